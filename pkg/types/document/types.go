// Package document defines the public data model of the long-document
// segmentation and analysis pipeline.  These types are shared by the
// pipeline, the HTTP API, the asynchronous job runner and pkg/client.
package document

import (
	"fmt"
	"strings"

	"github.com/turtacn/KeyIP-LongDoc/pkg/types/common"
)

// SegmentType tags the logical role of a DocumentSegment.
type SegmentType string

const (
	SegmentHeader    SegmentType = "header"
	SegmentRejection SegmentType = "rejection"
	SegmentPriorArt  SegmentType = "prior_art"
	SegmentClaims    SegmentType = "claims"
	SegmentReasoning SegmentType = "reasoning"
	SegmentOther     SegmentType = "other"
)

// IsValid reports whether t is one of the known segment types.
func (t SegmentType) IsValid() bool {
	switch t {
	case SegmentHeader, SegmentRejection, SegmentPriorArt, SegmentClaims, SegmentReasoning, SegmentOther:
		return true
	default:
		return false
	}
}

// ParseSegmentType maps free-form labels returned by a model onto a
// SegmentType.  Matching ignores case and surrounding space; unknown labels
// map to SegmentOther.
func ParseSegmentType(s string) SegmentType {
	s = strings.ToLower(strings.TrimSpace(s))
	switch SegmentType(s) {
	case SegmentHeader, SegmentRejection, SegmentPriorArt, SegmentClaims, SegmentReasoning, SegmentOther:
		return SegmentType(s)
	}
	switch s {
	case "prior-art", "prior art", "priorart", "references", "citations":
		return SegmentPriorArt
	case "claim", "claim_set":
		return SegmentClaims
	case "rejections", "objection", "objections":
		return SegmentRejection
	case "summary", "cover", "cover_sheet":
		return SegmentHeader
	case "argument", "arguments", "response", "analysis":
		return SegmentReasoning
	}
	return SegmentOther
}

// AnalysisType selects the extraction schema the segment processor asks for.
type AnalysisType string

const (
	AnalysisOfficeAction AnalysisType = "office_action"
	AnalysisPriorArt     AnalysisType = "prior_art"
	AnalysisPatent       AnalysisType = "patent"
	AnalysisGeneral      AnalysisType = "general"
)

// IsValid reports whether a is a supported analysis type.
func (a AnalysisType) IsValid() bool {
	switch a {
	case AnalysisOfficeAction, AnalysisPriorArt, AnalysisPatent, AnalysisGeneral:
		return true
	default:
		return false
	}
}

// MergingStrategy is accepted on requests; all strategies currently share
// one merge behaviour.
type MergingStrategy string

const (
	MergeStrict      MergingStrategy = "strict"
	MergeLoose       MergingStrategy = "loose"
	MergeIntelligent MergingStrategy = "intelligent"
)

// IsValid reports whether m is a known strategy.
func (m MergingStrategy) IsValid() bool {
	switch m {
	case MergeStrict, MergeLoose, MergeIntelligent:
		return true
	default:
		return false
	}
}

// DefaultMaxTokensPerSegment is the token budget applied when Options leaves
// MaxTokensPerSegment at zero.
const DefaultMaxTokensPerSegment = 15000

// Options tunes a single pipeline invocation.  Zero values are replaced by
// service defaults; PreserveContext is a pointer so "unset" and "false" can
// be told apart.
type Options struct {
	MaxTokensPerSegment int             `json:"max_tokens_per_segment,omitempty"`
	PreserveContext     *bool           `json:"preserve_context,omitempty"`
	MergingStrategy     MergingStrategy `json:"merging_strategy,omitempty"`
	TargetAnalysisType  AnalysisType    `json:"target_analysis_type,omitempty"`
}

// Validate checks enum fields and the token budget.  Empty enums are allowed.
func (o Options) Validate() error {
	if o.MaxTokensPerSegment < 0 {
		return fmt.Errorf("max_tokens_per_segment must be >= 0, got %d", o.MaxTokensPerSegment)
	}
	if o.MergingStrategy != "" && !o.MergingStrategy.IsValid() {
		return fmt.Errorf("unknown merging_strategy %q", o.MergingStrategy)
	}
	if o.TargetAnalysisType != "" && !o.TargetAnalysisType.IsValid() {
		return fmt.Errorf("unknown target_analysis_type %q", o.TargetAnalysisType)
	}
	return nil
}

// BoolPtr is a helper for setting Options.PreserveContext.
func BoolPtr(b bool) *bool { return &b }

// Well-known keys in DocumentSegment.Metadata.
const (
	MetaProcessed    = "processed"
	MetaError        = "error"
	MetaInputTokens  = "input_tokens"
	MetaOutputTokens = "output_tokens"
	MetaSections     = "sections"
	MetaOversized    = "oversized"
	MetaFallback     = "fallback"
	MetaIndex        = "index"
)

// DocumentSegment is a contiguous slice [StartIndex, EndIndex) of the source
// document.  Offsets are byte offsets into the Go string.
type DocumentSegment struct {
	ID         string          `json:"id"`
	Type       SegmentType     `json:"type"`
	Content    string          `json:"content"`
	StartIndex int             `json:"start_index"`
	EndIndex   int             `json:"end_index"`
	TokenCount int             `json:"token_count"`
	Metadata   common.Metadata `json:"metadata,omitempty"`
}

// Processed reports the metadata.processed flag; segments that were never
// handed to the processor report false.
func (s DocumentSegment) Processed() bool {
	v, _ := s.Metadata[MetaProcessed].(bool)
	return v
}

// DocumentMetadata holds fields extracted from the document text.  Every
// field is optional.
type DocumentMetadata struct {
	ApplicationNumber string `json:"application_number,omitempty"`
	MailingDate       string `json:"mailing_date,omitempty"`
	ExaminerName      string `json:"examiner_name,omitempty"`
	PageCount         int    `json:"page_count,omitempty"`
}

// IsEmpty reports whether no field was extracted.
func (m DocumentMetadata) IsEmpty() bool {
	return m == DocumentMetadata{}
}

// SegmentationResult is the output of SegmentDocument.
type SegmentationResult struct {
	Segments         []DocumentSegment `json:"segments"`
	TotalTokens      int               `json:"total_tokens"`
	DocumentMetadata DocumentMetadata  `json:"document_metadata"`
}

// ProcessingSummary reports counts, timing and token usage of one run.
// Degraded lists the stages that fell back to a partial result.
type ProcessingSummary struct {
	TotalSegments     int      `json:"total_segments"`
	ProcessedSegments int      `json:"processed_segments"`
	FailedSegments    int      `json:"failed_segments"`
	ProcessingTimeMs  int64    `json:"processing_time_ms"`
	InputTokens       int      `json:"input_tokens"`
	OutputTokens      int      `json:"output_tokens"`
	TotalTokens       int      `json:"total_tokens"`
	Degraded          []string `json:"degraded,omitempty"`
}

// ProcessedDocumentResult is the output of ProcessLongDocument.
type ProcessedDocumentResult struct {
	Segments         []DocumentSegment      `json:"segments"`
	Analysis         map[string]interface{} `json:"analysis"`
	DocumentMetadata DocumentMetadata       `json:"document_metadata"`
	Summary          ProcessingSummary      `json:"summary"`
}

//Personal.AI order the ending
