package longdoc

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/KeyIP-LongDoc/internal/config"
	"github.com/turtacn/KeyIP-LongDoc/internal/intelligence/llm"
	"github.com/turtacn/KeyIP-LongDoc/internal/intelligence/llm/llmtest"
	"github.com/turtacn/KeyIP-LongDoc/internal/testutil"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/document"
)

const threeSections = `{"sections": [
	{"type": "header", "start_index": 0, "end_index": 400, "title": "Cover"},
	{"type": "rejection", "start_index": 400, "end_index": 800, "title": "Rejections"},
	{"type": "claims", "start_index": 800, "end_index": 1200, "title": "Claims"}
]}`

type fakePipelineRecorder struct {
	mu        sync.Mutex
	segments  map[string]int
	degraded  map[string]int
	pipelines int
}

func newFakePipelineRecorder() *fakePipelineRecorder {
	return &fakePipelineRecorder{segments: map[string]int{}, degraded: map[string]int{}}
}

func (f *fakePipelineRecorder) ObserveSegment(segmentType, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.segments[status]++
}

func (f *fakePipelineRecorder) ObserveDegradation(stage string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.degraded[stage]++
}

func (f *fakePipelineRecorder) ObservePipeline(string, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pipelines++
}

// ---------------------------------------------------------------------------
// Suite
// ---------------------------------------------------------------------------

type ServiceSuite struct {
	suite.Suite
	logger   *testutil.MockLogger
	recorder *fakePipelineRecorder
}

func (s *ServiceSuite) SetupTest() {
	s.logger = testutil.NewMockLogger()
	s.recorder = newFakePipelineRecorder()
}

func (s *ServiceSuite) newService(c llm.Completer, settings Settings) Service {
	svc, err := NewService(c, settings, WithLogger(s.logger), WithRecorder(s.recorder))
	s.Require().NoError(err)
	return svc
}

func (s *ServiceSuite) TestEmptyTextRejectedWithoutCalls() {
	c := llmtest.Static("{}")
	svc := s.newService(c, DefaultSettings())

	for _, text := range []string{"", "   \n\t "} {
		_, err := svc.ProcessLongDocument(context.Background(), text, document.AnalysisOfficeAction, document.Options{})
		s.Require().Error(err)
		s.True(errors.IsCode(err, errors.ErrCodeDocumentEmpty))
		s.True(errors.IsValidation(err))

		_, err = svc.SegmentDocument(context.Background(), text, document.Options{})
		s.True(errors.IsCode(err, errors.ErrCodeDocumentEmpty))
	}
	s.Equal(0, c.Calls())
}

func (s *ServiceSuite) TestInvalidOptionsRejected() {
	c := llmtest.Static("{}")
	svc := s.newService(c, DefaultSettings())

	_, err := svc.SegmentDocument(context.Background(), "text", document.Options{MergingStrategy: "fuzzy"})
	s.True(errors.IsCode(err, errors.ErrCodeInvalidOptions))

	_, err = svc.ProcessLongDocument(context.Background(), "text", "trademark", document.Options{})
	s.True(errors.IsCode(err, errors.ErrCodeInvalidOptions))
	s.Equal(0, c.Calls())
}

func (s *ServiceSuite) TestSingleSegmentDocument() {
	analysis := map[string]interface{}{"rejections": []interface{}{"claims 1-3 under 35 USC 103"}}
	c := llmtest.ByOperation(map[llm.Operation]llmtest.Handler{
		llm.OpSegment: func(int, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return llmtest.JSON(analysis), nil
		},
	})
	svc := s.newService(c, DefaultSettings())
	text := "Application No. 12/345,678\nMailing Date: 01/02/2024\nExaminer John Smith\nClaims 1-3 are rejected under 35 U.S.C. 103."

	res, err := svc.ProcessLongDocument(context.Background(), text, document.AnalysisOfficeAction, document.Options{})
	s.Require().NoError(err)

	s.Require().Len(res.Segments, 1)
	s.Equal(text, res.Segments[0].Content)
	s.True(res.Segments[0].Processed())
	s.Equal("12/345,678", res.DocumentMetadata.ApplicationNumber)
	s.Equal("John Smith", res.DocumentMetadata.ExaminerName)
	s.Equal(analysis, res.Analysis)

	s.Equal(0, c.CallsFor(llm.OpStructure))
	s.Equal(1, c.CallsFor(llm.OpSegment))
	s.Equal(0, c.CallsFor(llm.OpMerge))

	s.Equal(1, res.Summary.TotalSegments)
	s.Equal(1, res.Summary.ProcessedSegments)
	s.Equal(0, res.Summary.FailedSegments)
	s.Equal(100, res.Summary.InputTokens)
	s.Equal(20, res.Summary.OutputTokens)
	s.Equal(120, res.Summary.TotalTokens)
	s.Empty(res.Summary.Degraded)
	s.Equal(1, s.recorder.pipelines)
}

func (s *ServiceSuite) TestMultiSegmentWithOneFailure() {
	c := llmtest.ByOperation(map[llm.Operation]llmtest.Handler{
		llm.OpStructure: func(int, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return llmtest.Reply(threeSections), nil
		},
		llm.OpSegment: func(n int, _ *llm.CompletionRequest) (*llm.CompletionResponse, error) {
			if n == 1 {
				return nil, errors.New(errors.ErrCodeLLMRequestFailed, "segment call failed")
			}
			return llmtest.JSON(map[string]interface{}{"part": n}), nil
		},
		llm.OpMerge: func(int, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return llmtest.Reply(`{"merged_view": true}`), nil
		},
	})
	svc := s.newService(c, DefaultSettings())

	res, err := svc.ProcessLongDocument(context.Background(), threePartText(), document.AnalysisOfficeAction,
		document.Options{MaxTokensPerSegment: 120})
	s.Require().NoError(err)
	s.Require().Len(res.Segments, 3)

	s.True(res.Segments[0].Processed())
	s.False(res.Segments[1].Processed())
	s.Contains(res.Segments[1].Metadata[document.MetaError], "segment call failed")
	s.True(res.Segments[2].Processed())
	s.Equal(100, res.Segments[0].Metadata[document.MetaInputTokens])

	s.Equal(map[string]interface{}{"merged_view": true}, res.Analysis)
	s.Equal(1, c.CallsFor(llm.OpStructure))
	s.Equal(3, c.CallsFor(llm.OpSegment))
	s.Equal(1, c.CallsFor(llm.OpMerge))

	// merge sees only the two successful partials
	var mergeReq *llm.CompletionRequest
	for _, r := range c.Requests() {
		if r.Operation == llm.OpMerge {
			mergeReq = r
		}
	}
	s.Require().NotNil(mergeReq)
	s.Contains(mergeReq.UserPrompt, "2 partial analyses")

	// the third segment's context skips the failed second one
	var third *llm.CompletionRequest
	n := 0
	for _, r := range c.Requests() {
		if r.Operation == llm.OpSegment {
			if n == 2 {
				third = r
			}
			n++
		}
	}
	s.Require().NotNil(third)
	s.Contains(third.UserPrompt, "[HEADER]: ")
	s.NotContains(third.UserPrompt, "[REJECTION]: ")

	s.Equal(2, res.Summary.ProcessedSegments)
	s.Equal(1, res.Summary.FailedSegments)
	// structure + 2 successful segments + merge
	s.Equal(400, res.Summary.InputTokens)
	s.Equal(1, s.recorder.segments["failed"])
	s.Equal(2, s.recorder.segments["processed"])
	s.Equal(1, s.recorder.degraded[string(StageSegment)])
	s.True(s.logger.HasMessage("warn", "pipeline stage degraded"))
}

func (s *ServiceSuite) TestPreserveContextDisabled() {
	c := llmtest.ByOperation(map[llm.Operation]llmtest.Handler{
		llm.OpStructure: func(int, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return llmtest.Reply(threeSections), nil
		},
	})
	svc := s.newService(c, DefaultSettings())

	_, err := svc.ProcessLongDocument(context.Background(), threePartText(), document.AnalysisPatent,
		document.Options{MaxTokensPerSegment: 120, PreserveContext: document.BoolPtr(false)})
	s.Require().NoError(err)
	for _, r := range c.Requests() {
		s.NotContains(r.UserPrompt, "Preceding context")
	}
}

func (s *ServiceSuite) TestStructureFailureFallsBackToChunks() {
	c := llmtest.ByOperation(map[llm.Operation]llmtest.Handler{
		llm.OpStructure: func(int, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, errors.New(errors.ErrCodeLLMRateLimited, "429")
		},
	})
	svc := s.newService(c, DefaultSettings())
	text := strings.Repeat("x", 1000)

	res, err := svc.SegmentDocument(context.Background(), text, document.Options{MaxTokensPerSegment: 100})
	s.Require().NoError(err)
	s.Len(res.Segments, 3)
	s.Equal(250, res.TotalTokens)
	for _, seg := range res.Segments {
		s.Equal(document.SegmentOther, seg.Type)
	}
	s.True(s.logger.HasMessage("warn", "pipeline stage degraded"))
	v, ok := s.logger.FieldValue("pipeline stage degraded", "fallback")
	s.True(ok)
	s.Equal("fixed_size_chunks", v)
}

func (s *ServiceSuite) TestMergeFailureReturnsPartials() {
	c := llmtest.ByOperation(map[llm.Operation]llmtest.Handler{
		llm.OpStructure: func(int, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return llmtest.Reply(threeSections), nil
		},
		llm.OpSegment: func(n int, _ *llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return llmtest.Reply(fmt.Sprintf(`{"part": %d}`, n)), nil
		},
		llm.OpMerge: func(int, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return llmtest.Reply("sorry, here is prose"), nil
		},
	})
	svc := s.newService(c, DefaultSettings())

	res, err := svc.ProcessLongDocument(context.Background(), threePartText(), document.AnalysisGeneral,
		document.Options{MaxTokensPerSegment: 120})
	s.Require().NoError(err)
	merged, ok := res.Analysis[MergedKey].([]map[string]interface{})
	s.Require().True(ok)
	s.Len(merged, 3)
	s.Require().Len(res.Summary.Degraded, 1)
	s.Contains(res.Summary.Degraded[0], string(StageMerge))
}

func (s *ServiceSuite) TestCancelledContextDegradesInsteadOfFailing() {
	c := llmtest.Static("{}")
	svc := s.newService(c, DefaultSettings())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.ProcessLongDocument(ctx, threePartText(), document.AnalysisGeneral,
		document.Options{MaxTokensPerSegment: 120})
	s.Require().NoError(err)
	s.Equal(len(res.Segments), res.Summary.FailedSegments)
	s.Empty(res.Analysis)
}

func (s *ServiceSuite) TestIdempotentSegmentation() {
	newCompleter := func() llm.Completer { return llmtest.Static(threeSections) }
	text := threePartText() + strings.Repeat("tail ", 100)

	first, err := s.newService(newCompleter(), DefaultSettings()).
		SegmentDocument(context.Background(), text, document.Options{MaxTokensPerSegment: 120})
	s.Require().NoError(err)
	second, err := s.newService(newCompleter(), DefaultSettings()).
		SegmentDocument(context.Background(), text, document.Options{MaxTokensPerSegment: 120})
	s.Require().NoError(err)

	s.Require().Equal(len(first.Segments), len(second.Segments))
	for i := range first.Segments {
		a, b := first.Segments[i], second.Segments[i]
		s.Equal(a.Type, b.Type)
		s.Equal(a.StartIndex, b.StartIndex)
		s.Equal(a.EndIndex, b.EndIndex)
		s.Equal(a.Content, b.Content)
	}
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

// ---------------------------------------------------------------------------
// Plain tests
// ---------------------------------------------------------------------------

func TestNewService_RequiresCompleter(t *testing.T) {
	_, err := NewService(nil, DefaultSettings())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeLLMNotConfigured))
}

func TestSettingsFromConfig(t *testing.T) {
	s := SettingsFromConfig(config.SegmentationConfig{
		MaxTokensPerSegment: 8000,
		PreserveContext:     false,
		MergingStrategy:     "strict",
		ContextSegments:     1,
	})
	assert.Equal(t, 8000, s.MaxTokensPerSegment)
	assert.False(t, s.PreserveContext)
	assert.Equal(t, document.MergeStrict, s.MergingStrategy)
	assert.Equal(t, 1, s.ContextSegments)
	assert.Equal(t, defaultContextPreviewChars, s.ContextPreviewChars)
	assert.Equal(t, defaultStructureSampleChars, s.StructureSampleChars)
}

func TestService_ConcurrentUse(t *testing.T) {
	c := llmtest.Static(`{"ok": true}`)
	svc, err := NewService(c, DefaultSettings())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := fmt.Sprintf("Document %d. Application No. 12/345,67%d", i, i)
			res, err := svc.ProcessLongDocument(context.Background(), text, document.AnalysisGeneral, document.Options{})
			assert.NoError(t, err)
			assert.Equal(t, text, res.Segments[0].Content)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, c.Calls())
}

//Personal.AI order the ending
