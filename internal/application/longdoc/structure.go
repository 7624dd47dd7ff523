package longdoc

import (
	"context"
	"unicode/utf8"

	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/internal/intelligence/llm"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/document"
)

const (
	defaultStructureSampleChars = 10000
	structureMaxTokens          = 2000
	pipelineTemperature         = 0.1
)

// Section is a logical region of the document reported by the structure
// analyzer.  Offsets are byte offsets into the document.
type Section struct {
	Type       document.SegmentType `json:"type"`
	StartIndex int                  `json:"start_index"`
	EndIndex   int                  `json:"end_index"`
	Title      string               `json:"title,omitempty"`
	Importance string               `json:"importance,omitempty"`
}

// rawSection is the model's view: offsets count characters, and some models
// answer in camelCase.
type rawSection struct {
	Type          string `json:"type"`
	StartIndex    int    `json:"start_index"`
	EndIndex      int    `json:"end_index"`
	StartIndexAlt int    `json:"startIndex"`
	EndIndexAlt   int    `json:"endIndex"`
	Title         string `json:"title"`
	Importance    string `json:"importance"`
}

type structureResponse struct {
	Sections []rawSection `json:"sections"`
}

// StructureAnalyzer asks the model for section boundaries over a bounded
// prefix of the document.
type StructureAnalyzer struct {
	completer   llm.Completer
	prompts     llm.PromptRenderer
	sampleChars int
	logger      logging.Logger
}

// NewStructureAnalyzer returns an analyzer that shows the model at most
// sampleChars characters.
func NewStructureAnalyzer(c llm.Completer, prompts llm.PromptRenderer, sampleChars int, log logging.Logger) *StructureAnalyzer {
	if sampleChars <= 0 {
		sampleChars = defaultStructureSampleChars
	}
	return &StructureAnalyzer{completer: c, prompts: prompts, sampleChars: sampleChars, logger: log}
}

// AnalyzeStructure returns the sections found in text.  A model error yields
// a degraded result with nil sections; an unparseable answer yields a
// degraded result with an empty list.  Either way the builder falls back to
// fixed-size chunking.
func (a *StructureAnalyzer) AnalyzeStructure(ctx context.Context, text string, opts document.Options) Result[[]Section] {
	sample, truncated := truncateRunes(text, a.sampleChars)
	totalChars := utf8.RuneCountInString(text)

	system, err := a.prompts.Render(llm.TmplStructureSystem, map[string]interface{}{
		"AnalysisType": string(opts.TargetAnalysisType),
	})
	if err != nil {
		return degradedResult[[]Section](nil, StageStructure, ReasonRender, err)
	}
	user, err := a.prompts.Render(llm.TmplStructureUser, map[string]interface{}{
		"Text":         sample,
		"Truncated":    truncated,
		"SampleLength": utf8.RuneCountInString(sample),
		"TotalLength":  totalChars,
	})
	if err != nil {
		return degradedResult[[]Section](nil, StageStructure, ReasonRender, err)
	}

	resp, err := a.completer.Complete(ctx, &llm.CompletionRequest{
		SystemPrompt:   system,
		UserPrompt:     user,
		MaxTokens:      structureMaxTokens,
		Temperature:    pipelineTemperature,
		ResponseFormat: llm.FormatJSONObject,
		Operation:      llm.OpStructure,
	})
	if err != nil {
		return degradedResult[[]Section](nil, StageStructure, ReasonLLMError, err)
	}

	var parsed structureResponse
	if err := llm.DecodeJSON(resp.Content, &parsed); err != nil {
		r := degradedResult([]Section{}, StageStructure, ReasonInvalidJSON, err)
		r.Usage = resp.Usage
		return r
	}

	offsets := newRuneOffsets(text)
	sections := make([]Section, 0, len(parsed.Sections))
	for _, rs := range parsed.Sections {
		start, end := rs.StartIndex, rs.EndIndex
		if start == 0 && end == 0 {
			start, end = rs.StartIndexAlt, rs.EndIndexAlt
		}
		sections = append(sections, Section{
			Type:       document.ParseSegmentType(rs.Type),
			StartIndex: offsets.byteOffset(start),
			EndIndex:   offsets.byteOffset(end),
			Title:      rs.Title,
			Importance: rs.Importance,
		})
	}
	return okResult(sections, resp.Usage)
}

// truncateRunes returns the first n runes of s and whether anything was cut.
func truncateRunes(s string, n int) (string, bool) {
	if n <= 0 {
		return "", s != ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}

// runeOffsets converts character positions to byte positions.
type runeOffsets struct {
	ascii bool
	n     int
	index []int
}

func newRuneOffsets(s string) runeOffsets {
	ro := runeOffsets{n: len(s)}
	if utf8.RuneCountInString(s) == len(s) {
		ro.ascii = true
		return ro
	}
	ro.index = make([]int, 0, utf8.RuneCountInString(s)+1)
	for i := range s {
		ro.index = append(ro.index, i)
	}
	ro.index = append(ro.index, len(s))
	return ro
}

// byteOffset clamps the character position into range first.
func (ro runeOffsets) byteOffset(char int) int {
	if char <= 0 {
		return 0
	}
	if ro.ascii {
		if char > ro.n {
			return ro.n
		}
		return char
	}
	if char >= len(ro.index) {
		return ro.n
	}
	return ro.index[char]
}

//Personal.AI order the ending
