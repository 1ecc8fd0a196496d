package analysis

import (
	"context"
	"time"
)

// Cache maps a request fingerprint to a previously produced valid result.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns ok=false on a miss, an expired entry or a stored payload
	// that no longer passes Violations.
	Get(ctx context.Context, key string) (Result, bool, error)
	Put(ctx context.Context, key string, r Result, ttl time.Duration) error
}

// PromptBuilder renders a request into the message pair sent to the model.
type PromptBuilder interface {
	Build(req Request) Prompt
}

// Gateway sends one chat completion and returns the raw reply text.
type Gateway interface {
	Send(ctx context.Context, system, user string) (string, error)
}

// ResponseParser turns raw model text into a result. It never fails; an
// unusable reply yields Fallback().
type ResponseParser interface {
	Parse(raw string) Result
}

// Archive keeps raw replies that degraded to the fallback.
type Archive interface {
	SaveDegraded(ctx context.Context, rec DegradedRecord) error
}

// EventPublisher emits analysis events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}
