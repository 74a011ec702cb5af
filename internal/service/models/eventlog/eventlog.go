package eventlog

import (
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

var ErrEntryNotFound = errors.New("event log entry not found")

// Status of an event log row.
type Status string

const (
	StatusPending            Status = "pending"
	StatusProcessing         Status = "processing"
	StatusProcessed          Status = "processed"
	StatusFailed             Status = "failed"
	StatusMaxRetriesExceeded Status = "max_retries_exceeded"
)

// IsTerminal reports whether the row will never be dispatched again.
func (s Status) IsTerminal() bool {
	return s == StatusProcessed || s == StatusMaxRetriesExceeded
}

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"

	AggregateOrder = "order"

	DefaultMaxRetries = 3

	backoffBase       = 5 * time.Minute
	backoffMultiplier = 3
)

// Backoff returns the delay before attempt number retryCount: 5 × 3^retryCount minutes.
func Backoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}

	return time.Duration(float64(backoffBase) * math.Pow(backoffMultiplier, float64(retryCount)))
}

// Entry is one row of the outbox.
type Entry struct {
	ID             uuid.UUID       `json:"id"`
	EventType      string          `json:"event_type"`
	AggregateType  string          `json:"aggregate_type"`
	AggregateID    uuid.UUID       `json:"aggregate_id"`
	StoreID        uuid.UUID       `json:"store_id"`
	Payload        json.RawMessage `json:"payload"`
	Status         Status          `json:"status"`
	RetryCount     int             `json:"retry_count"`
	MaxRetries     int             `json:"max_retries"`
	NextRetryAt    time.Time       `json:"next_retry_at"`
	LeaseExpiresAt *time.Time      `json:"lease_expires_at,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Exhausted reports whether the row has used up its retries.
func (e Entry) Exhausted() bool {
	return e.RetryCount >= e.MaxRetries
}

// Message returns the wire form sent to the processor.
func (e Entry) Message() Message {
	return Message{
		EventID:       e.ID,
		EventType:     e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		StoreID:       e.StoreID,
		Payload:       e.Payload,
	}
}

// Message is the body of POST /process-event and of broker deliveries.
type Message struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	StoreID       uuid.UUID       `json:"store_id"`
	Payload       json.RawMessage `json:"payload"`
}

// Claim is the outcome of leasing a batch of due rows.
type Claim struct {
	Exhausted []Entry
	Leased    []Entry
}

// Outcome of processing a single delivery.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)
