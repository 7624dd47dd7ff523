package job

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/common"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/document"
)

func TestNewJob(t *testing.T) {
	j, err := NewJob("", document.Options{}, "oa.pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(j.ID, "job-"))
	assert.NoError(t, common.ValidateID(j.ID, "job"))
	assert.Equal(t, StatusQueued, j.Status)
	assert.Equal(t, document.AnalysisGeneral, j.AnalysisType)
	assert.False(t, j.CreatedAt.IsZero())
}

func TestNewJob_Invalid(t *testing.T) {
	_, err := NewJob("poetry", document.Options{}, "oa.pdf")
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidOptions))

	_, err = NewJob(document.AnalysisOfficeAction, document.Options{MaxTokensPerSegment: -1}, "oa.pdf")
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidOptions))

	_, err = NewJob(document.AnalysisOfficeAction, document.Options{}, "")
	assert.Error(t, err)
}

func TestJob_Lifecycle(t *testing.T) {
	j, err := NewJob(document.AnalysisOfficeAction, document.Options{}, "oa.txt")
	require.NoError(t, err)

	require.NoError(t, j.Start())
	assert.Equal(t, StatusRunning, j.Status)
	assert.Equal(t, 1, j.Attempts)
	require.NotNil(t, j.StartedAt)

	// redelivery restarts a running job
	require.NoError(t, j.Start())
	assert.Equal(t, 2, j.Attempts)

	summary := document.ProcessingSummary{TotalSegments: 3, ProcessedSegments: 3}
	require.NoError(t, j.Complete("results/job.json", summary))
	assert.Equal(t, StatusCompleted, j.Status)
	assert.Equal(t, "results/job.json", j.ResultKey)
	assert.Equal(t, 3, j.Summary.TotalSegments)
	assert.True(t, j.Status.IsTerminal())

	err = j.Start()
	assert.True(t, errors.IsCode(err, errors.ErrCodeJobInvalidState))
	assert.Error(t, j.Fail("late"))
}

func TestJob_FailFromQueued(t *testing.T) {
	j, err := NewJob(document.AnalysisPatent, document.Options{}, "p.txt")
	require.NoError(t, err)

	require.NoError(t, j.Fail("document missing"))
	assert.Equal(t, StatusFailed, j.Status)
	assert.Equal(t, "document missing", j.Error)
	assert.NotNil(t, j.CompletedAt)

	err = j.Complete("k", document.ProcessingSummary{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeJobInvalidState))
}

func TestPayloads(t *testing.T) {
	j, err := NewJob(document.AnalysisPriorArt, document.Options{}, "ref.pdf")
	require.NoError(t, err)
	j.ObjectKey = "documents/" + j.ID + "/ref.pdf"

	sub := NewSubmittedPayload(j)
	assert.Equal(t, j.ID, sub.JobID)
	assert.Equal(t, j.ObjectKey, sub.ObjectKey)

	require.NoError(t, j.Start())
	require.NoError(t, j.Fail("boom"))
	done := NewCompletedPayload(j)
	assert.Equal(t, StatusFailed, done.Status)
	assert.Equal(t, "boom", done.Error)
	assert.Nil(t, done.Summary)
}

//Personal.AI order the ending
