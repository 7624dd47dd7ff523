package longdoc

import (
	"context"
	"fmt"
	"strings"

	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/internal/intelligence/llm"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/document"
)

const (
	segmentMaxTokens           = 4000
	defaultContextSegments     = 2
	defaultContextPreviewChars = 200
)

// SegmentAnalysis is the structured output for one segment.
type SegmentAnalysis struct {
	Index       int                    `json:"index"`
	SegmentID   string                 `json:"segment_id"`
	SegmentType document.SegmentType   `json:"segment_type"`
	Analysis    map[string]interface{} `json:"analysis"`
}

// SegmentProcessor runs the per-segment extraction call.
type SegmentProcessor struct {
	completer llm.Completer
	prompts   llm.PromptRenderer
	logger    logging.Logger
}

// NewSegmentProcessor returns a processor.
func NewSegmentProcessor(c llm.Completer, prompts llm.PromptRenderer, log logging.Logger) *SegmentProcessor {
	return &SegmentProcessor{completer: c, prompts: prompts, logger: log}
}

// ProcessSegment analyses seg, which is number index (0-based) of total.
// contextText may be empty.  Failures come back as a degraded result; the
// caller keeps going with the next segment.
func (p *SegmentProcessor) ProcessSegment(ctx context.Context, seg document.DocumentSegment, analysisType document.AnalysisType, contextText string, index, total int) Result[SegmentAnalysis] {
	out := SegmentAnalysis{Index: index, SegmentID: seg.ID, SegmentType: seg.Type}

	system, err := p.prompts.Render(llm.TmplSegmentSystem, map[string]interface{}{
		"AnalysisType": string(analysisType),
	})
	if err != nil {
		return degradedResult(out, StageSegment, ReasonRender, err)
	}
	user, err := p.prompts.Render(llm.TmplSegmentUser, map[string]interface{}{
		"AnalysisType": string(analysisType),
		"Index":        index + 1,
		"Total":        total,
		"SegmentType":  string(seg.Type),
		"Context":      contextText,
		"Content":      seg.Content,
	})
	if err != nil {
		return degradedResult(out, StageSegment, ReasonRender, err)
	}

	resp, err := p.completer.Complete(ctx, &llm.CompletionRequest{
		SystemPrompt:   system,
		UserPrompt:     user,
		MaxTokens:      segmentMaxTokens,
		Temperature:    pipelineTemperature,
		ResponseFormat: llm.FormatJSONObject,
		Operation:      llm.OpSegment,
	})
	if err != nil {
		return degradedResult(out, StageSegment, ReasonLLMError, err)
	}

	var analysis map[string]interface{}
	if err := llm.DecodeJSON(resp.Content, &analysis); err != nil {
		r := degradedResult(out, StageSegment, ReasonInvalidJSON, err)
		r.Usage = resp.Usage
		return r
	}
	if analysis == nil {
		// "null" decodes without error
		analysis = map[string]interface{}{}
	}
	out.Analysis = analysis
	return okResult(out, resp.Usage)
}

// BuildContext renders the last maxSegments successfully processed segments
// of previous as "[TYPE]: <first previewChars characters>..." lines.
func BuildContext(previous []document.DocumentSegment, maxSegments, previewChars int) string {
	if maxSegments <= 0 {
		return ""
	}
	picked := make([]document.DocumentSegment, 0, maxSegments)
	for i := len(previous) - 1; i >= 0 && len(picked) < maxSegments; i-- {
		if previous[i].Processed() {
			picked = append(picked, previous[i])
		}
	}

	lines := make([]string, 0, len(picked))
	for i := len(picked) - 1; i >= 0; i-- {
		seg := picked[i]
		preview, _ := truncateRunes(seg.Content, previewChars)
		lines = append(lines, fmt.Sprintf("[%s]: %s...", strings.ToUpper(string(seg.Type)), strings.TrimSpace(preview)))
	}
	return strings.Join(lines, "\n")
}

//Personal.AI order the ending
