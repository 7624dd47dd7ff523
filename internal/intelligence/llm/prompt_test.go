package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
)

func newTestRenderer(t *testing.T) PromptRenderer {
	t.Helper()
	r, err := NewPromptRenderer()
	require.NoError(t, err)
	return r
}

func TestPromptRenderer_BuiltinTemplates(t *testing.T) {
	r := newTestRenderer(t)
	assert.Equal(t, []string{
		TmplMergeSystem, TmplMergeUser,
		TmplSegmentSystem, TmplSegmentUser,
		TmplStructureSystem, TmplStructureUser,
	}, r.Templates())
}

func TestPromptRenderer_StructureTruncationNotice(t *testing.T) {
	r := newTestRenderer(t)

	out, err := r.Render(TmplStructureUser, map[string]interface{}{
		"Text": "abc", "TotalLength": 3, "SampleLength": 3, "Truncated": false,
	})
	require.NoError(t, err)
	assert.NotContains(t, out, "NOTE:")

	out, err = r.Render(TmplStructureUser, map[string]interface{}{
		"Text": "abc", "TotalLength": 20000, "SampleLength": 10000, "Truncated": true,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "only the first 10000 of 20000 characters")
}

func TestPromptRenderer_SegmentGuidancePerType(t *testing.T) {
	r := newTestRenderer(t)
	tests := map[string]string{
		"office_action": "35 USC 102/103/112",
		"prior_art":     "cited references",
		"patent":        "independent and dependent claims",
		"general":       "key facts",
	}
	for analysisType, want := range tests {
		out, err := r.Render(TmplSegmentSystem, map[string]interface{}{"AnalysisType": analysisType})
		require.NoError(t, err)
		assert.Contains(t, out, want, analysisType)
	}
}

func TestPromptRenderer_SegmentUserContext(t *testing.T) {
	r := newTestRenderer(t)
	vars := map[string]interface{}{
		"AnalysisType": "office_action", "Index": 2, "Total": 3,
		"SegmentType": "rejection", "Content": "Claims 1-5 are rejected", "Context": "",
	}
	out, err := r.Render(TmplSegmentUser, vars)
	require.NoError(t, err)
	assert.Contains(t, out, "Part 2 of 3")
	assert.NotContains(t, out, "Preceding context")

	vars["Context"] = "[HEADER]: Application No. 12/345,678..."
	out, err = r.Render(TmplSegmentUser, vars)
	require.NoError(t, err)
	assert.Contains(t, out, "Preceding context:\n[HEADER]: Application No. 12/345,678...")
}

func TestPromptRenderer_MergeUserSerialisesPartials(t *testing.T) {
	r := newTestRenderer(t)
	out, err := r.Render(TmplMergeUser, map[string]interface{}{
		"Metadata": map[string]string{"examiner_name": "John Smith"},
		"Partials": []map[string]interface{}{{"rejections": []string{"claim 1"}}},
		"Count":    1,
	})
	require.NoError(t, err)
	assert.Contains(t, out, `"examiner_name": "John Smith"`)
	assert.Contains(t, out, `"claim 1"`)
}

func TestPromptRenderer_Errors(t *testing.T) {
	r := newTestRenderer(t)

	_, err := r.Render("nope", nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodePromptTemplateNotFound))

	assert.Error(t, r.Register("", "x"))
	assert.Error(t, r.Register("x", ""))
	assert.Error(t, r.Register("broken", "{{.Foo"))

	require.NoError(t, r.Register("custom", "hello {{upper .Name}} {{truncate 3 .Long}}"))
	out, err := r.Render("custom", map[string]interface{}{"Name": "ada", "Long": "abcdef"})
	require.NoError(t, err)
	assert.Equal(t, "hello ADA abc...", out)
}

func TestTemplateFormatList(t *testing.T) {
	assert.Equal(t, "(none)", templateFormatList(nil))
	assert.Equal(t, "  1. a\n  2. b\n", templateFormatList([]string{"a", "b"}))
}

//Personal.AI order the ending
