// Package llmtest provides a deterministic llm.Completer for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/turtacn/KeyIP-LongDoc/internal/intelligence/llm"
)

// Handler decides the reply for the call-th request (0-based).
type Handler func(call int, req *llm.CompletionRequest) (*llm.CompletionResponse, error)

// ScriptedCompleter records every request and answers through Handler.
type ScriptedCompleter struct {
	mu       sync.Mutex
	handler  Handler
	requests []*llm.CompletionRequest
}

// New returns a completer driven by h.
func New(h Handler) *ScriptedCompleter {
	return &ScriptedCompleter{handler: h}
}

// Static returns a completer that always answers content.
func Static(content string) *ScriptedCompleter {
	return New(func(int, *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return Reply(content), nil
	})
}

// ByOperation dispatches on the request's Operation.  Unlisted operations
// receive "{}".
func ByOperation(handlers map[llm.Operation]Handler) *ScriptedCompleter {
	counts := make(map[llm.Operation]int)
	var mu sync.Mutex
	return New(func(_ int, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		mu.Lock()
		n := counts[req.Operation]
		counts[req.Operation]++
		mu.Unlock()
		if h, ok := handlers[req.Operation]; ok {
			return h(n, req)
		}
		return Reply("{}"), nil
	})
}

// Complete implements llm.Completer.
func (s *ScriptedCompleter) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.mu.Lock()
	call := len(s.requests)
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.handler(call, req)
}

// Calls returns the number of requests seen.
func (s *ScriptedCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// CallsFor counts requests with the given operation.
func (s *ScriptedCompleter) CallsFor(op llm.Operation) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Operation == op {
			n++
		}
	}
	return n
}

// Requests returns a copy of the recorded requests.
func (s *ScriptedCompleter) Requests() []*llm.CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*llm.CompletionRequest(nil), s.requests...)
}

// Reply builds a response with fixed usage numbers.
func Reply(content string) *llm.CompletionResponse {
	return &llm.CompletionResponse{
		Content: content,
		Usage:   llm.Usage{PromptTokens: 100, CompletionTokens: 20},
		Model:   "scripted",
	}
}

// JSON marshals v into a Reply.
func JSON(v interface{}) *llm.CompletionResponse {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return Reply(string(data))
}

//Personal.AI order the ending
