// Package common holds small types shared across KeyIP-LongDoc packages:
// free-form metadata, health reporting, API envelopes and the messaging
// contracts used by the Kafka adapter.
package common

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Metadata is an open-ended key-value bag.
type Metadata map[string]interface{}

// Clone returns a shallow copy of m.  A nil map clones to an empty one.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// HealthStatus indicates the health of a component or service.
type HealthStatus string

const (
	HealthUp       HealthStatus = "up"
	HealthDown     HealthStatus = "down"
	HealthDegraded HealthStatus = "degraded"
)

// ComponentHealth provides health information for a specific component.
type ComponentHealth struct {
	Name    string        `json:"name"`
	Status  HealthStatus  `json:"status"`
	Latency time.Duration `json:"latency"`
	Message string        `json:"message,omitempty"`
}

// HealthChecker is implemented by infrastructure clients that can be probed
// by the readiness endpoint.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ErrorDetail provides structured error information for API responses.
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Messaging contracts
// ─────────────────────────────────────────────────────────────────────────────

// ProducerMessage is a message handed to a producer.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
	Partition int
}

// Message is a message delivered to a consumer handler.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// MessageHandler processes one consumed message.  A non-nil error triggers
// the consumer's retry and dead-letter policy.
type MessageHandler func(ctx context.Context, msg *Message) error

// BatchItemError describes one failed message in a batch publish.
type BatchItemError struct {
	Index int
	Topic string
	Error error
}

// BatchPublishResult summarises a batch publish.
type BatchPublishResult struct {
	Succeeded int
	Failed    int
	Errors    []BatchItemError
}

// ─────────────────────────────────────────────────────────────────────────────
// Identifiers
// ─────────────────────────────────────────────────────────────────────────────

// GenerateID generates a UUID v4, optionally prefixed ("seg-<uuid>").
func GenerateID(prefix string) string {
	if prefix == "" {
		return uuid.New().String()
	}
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String())
}

// ValidateID checks that id is a UUID, ignoring an optional "<prefix>-" head.
func ValidateID(id, prefix string) error {
	if id == "" {
		return fmt.Errorf("ID cannot be empty")
	}
	raw := id
	if prefix != "" {
		p := prefix + "-"
		if len(raw) <= len(p) || raw[:len(p)] != p {
			return fmt.Errorf("invalid ID format: missing %q prefix", p)
		}
		raw = raw[len(p):]
	}
	if _, err := uuid.Parse(raw); err != nil {
		return fmt.Errorf("invalid ID format: %w", err)
	}
	return nil
}

// Context keys for request context
type ContextKey string

const (
	// ContextKeyRequestID is the context key for request ID.
	ContextKeyRequestID ContextKey = "request_id"
	// ContextKeyJobID is the context key for the asynchronous job ID.
	ContextKeyJobID ContextKey = "job_id"
)

//Personal.AI order the ending
