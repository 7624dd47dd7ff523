package llm

import (
	"context"
	"time"
)

// Recorder receives per-call measurements.  The prometheus package's
// LongDocMetrics implements it.
type Recorder interface {
	ObserveLLMRequest(operation, model, status string, d time.Duration)
	AddLLMTokens(operation, direction string, n int)
}

// InstrumentedCompleter reports call counts, latency and token usage.
type InstrumentedCompleter struct {
	next     Completer
	recorder Recorder
	model    string
}

// NewInstrumentedCompleter wraps next.  model labels calls whose request
// does not name one.
func NewInstrumentedCompleter(next Completer, recorder Recorder, model string) *InstrumentedCompleter {
	return &InstrumentedCompleter{next: next, recorder: recorder, model: model}
}

// Complete implements Completer.
func (c *InstrumentedCompleter) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	op := string(req.Operation)
	if op == "" {
		op = string(OpOther)
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	start := time.Now()
	resp, err := c.next.Complete(ctx, req)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		c.recorder.ObserveLLMRequest(op, model, "error", elapsed)
		return nil, err
	case resp.Cached:
		c.recorder.ObserveLLMRequest(op, model, "cached", elapsed)
	default:
		c.recorder.ObserveLLMRequest(op, model, "ok", elapsed)
		c.recorder.AddLLMTokens(op, "input", resp.Usage.PromptTokens)
		c.recorder.AddLLMTokens(op, "output", resp.Usage.CompletionTokens)
	}
	return resp, nil
}

//Personal.AI order the ending
