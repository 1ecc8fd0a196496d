package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Request is a validated analysis request. Fields are already trimmed.
type Request struct {
	StartupIdea    string `json:"startup_idea"`
	Description    string `json:"description"`
	AdditionalInfo string `json:"additional_info,omitempty"`
}

// CacheKey returns the hex SHA-256 of the canonical JSON form of the request.
// An empty AdditionalInfo is omitted, so "absent" and "empty" share a key.
func (r Request) CacheKey() string {
	b, _ := json.Marshal(r) // plain string struct, cannot fail
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Prompt is the message pair sent to the model.
type Prompt struct {
	System string
	User   string
}

// Result is the analysis object returned by the model. It is kept as a
// generic JSON object so unknown fields pass through untouched.
type Result map[string]any

// Degraded reports whether the result carries an error marker, which is
// always the case for the fallback result.
func (r Result) Degraded() bool {
	_, ok := r[FieldError]
	return ok
}

// Valid reports whether the result satisfies the required schema.
func (r Result) Valid() bool {
	return len(Violations(r)) == 0
}

// DegradedRecord is what gets archived when the model reply could not be parsed.
type DegradedRecord struct {
	RequestID   string    `json:"request_id"`
	CacheKey    string    `json:"cache_key"`
	ReceivedAt  time.Time `json:"received_at"`
	RawResponse string    `json:"raw_response"`
}

// Event is published once per successful response.
type Event struct {
	Type       string    `json:"type"`
	RequestID  string    `json:"request_id"`
	CacheKey   string    `json:"cache_key"`
	FromCache  bool      `json:"from_cache"`
	Degraded   bool      `json:"degraded"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

const EventAnalysisCompleted = "analysis.completed"
