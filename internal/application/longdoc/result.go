package longdoc

import (
	"fmt"

	"github.com/turtacn/KeyIP-LongDoc/internal/intelligence/llm"
)

// Stage names the pipeline step that produced a degraded result.
type Stage string

const (
	StageStructure Stage = "structure_analysis"
	StageSegment   Stage = "segment_processing"
	StageMerge     Stage = "merge"
)

// Degradation reasons.
const (
	ReasonLLMError    = "llm_error"
	ReasonInvalidJSON = "invalid_json"
	ReasonNoAnalyses  = "no_analyses"
	ReasonRender      = "prompt_render"
)

// Degraded describes why a stage fell back to a partial value.
type Degraded struct {
	Stage  Stage
	Reason string
	Err    error
}

func (d *Degraded) Error() string {
	if d.Err == nil {
		return fmt.Sprintf("%s: %s", d.Stage, d.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", d.Stage, d.Reason, d.Err)
}

func (d *Degraded) Unwrap() error { return d.Err }

// Result is the outcome of a stage that never fails outright.  Value is
// always usable; Degraded is non-nil when Value is a fallback.  Usage sums
// the tokens of the model calls made for this result.
type Result[T any] struct {
	Value    T
	Degraded *Degraded
	Usage    llm.Usage
}

// OK reports whether the stage completed without falling back.
func (r Result[T]) OK() bool { return r.Degraded == nil }

func okResult[T any](v T, usage llm.Usage) Result[T] {
	return Result[T]{Value: v, Usage: usage}
}

func degradedResult[T any](v T, stage Stage, reason string, err error) Result[T] {
	return Result[T]{Value: v, Degraded: &Degraded{Stage: stage, Reason: reason, Err: err}}
}

//Personal.AI order the ending
