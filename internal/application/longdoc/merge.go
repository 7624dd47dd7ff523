package longdoc

import (
	"context"

	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/internal/intelligence/llm"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/document"
)

const mergeMaxTokens = 6000

// MergedKey holds the raw partial analyses when the merge call fails.
const MergedKey = "merged"

// MergeEngine consolidates per-segment analyses into one object.
type MergeEngine struct {
	completer llm.Completer
	prompts   llm.PromptRenderer
	logger    logging.Logger
}

// NewMergeEngine returns a merge engine.
func NewMergeEngine(c llm.Completer, prompts llm.PromptRenderer, log logging.Logger) *MergeEngine {
	return &MergeEngine{completer: c, prompts: prompts, logger: log}
}

// Merge combines analyses.  A single analysis is returned as is and no
// analyses yield an empty object; neither calls the model.  When the merge
// call fails the value is {"merged": [partials...]}.
func (m *MergeEngine) Merge(ctx context.Context, analyses []SegmentAnalysis, meta document.DocumentMetadata, analysisType document.AnalysisType) Result[map[string]interface{}] {
	switch len(analyses) {
	case 0:
		return degradedResult(map[string]interface{}{}, StageMerge, ReasonNoAnalyses, nil)
	case 1:
		return okResult(analyses[0].Analysis, llm.Usage{})
	}

	partials := make([]map[string]interface{}, 0, len(analyses))
	for _, a := range analyses {
		partials = append(partials, a.Analysis)
	}
	fallback := func() map[string]interface{} {
		return map[string]interface{}{MergedKey: partials}
	}

	system, err := m.prompts.Render(llm.TmplMergeSystem, map[string]interface{}{
		"AnalysisType": string(analysisType),
	})
	if err != nil {
		return degradedResult(fallback(), StageMerge, ReasonRender, err)
	}
	user, err := m.prompts.Render(llm.TmplMergeUser, map[string]interface{}{
		"Metadata": meta,
		"Partials": partials,
		"Count":    len(partials),
	})
	if err != nil {
		return degradedResult(fallback(), StageMerge, ReasonRender, err)
	}

	resp, err := m.completer.Complete(ctx, &llm.CompletionRequest{
		SystemPrompt:   system,
		UserPrompt:     user,
		MaxTokens:      mergeMaxTokens,
		Temperature:    pipelineTemperature,
		ResponseFormat: llm.FormatJSONObject,
		Operation:      llm.OpMerge,
	})
	if err != nil {
		return degradedResult(fallback(), StageMerge, ReasonLLMError, err)
	}

	var merged map[string]interface{}
	if err := llm.DecodeJSON(resp.Content, &merged); err != nil || merged == nil {
		r := degradedResult(fallback(), StageMerge, ReasonInvalidJSON, err)
		r.Usage = resp.Usage
		return r
	}
	return okResult(merged, resp.Usage)
}

//Personal.AI order the ending
