package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies the internal user performing an administrative
// operation (issue, revoke, reissue). External suppliers never have one.
type ActorRef struct {
	ID   uuid.UUID
	Type string
}

// Clock abstracts time retrieval for deterministic testing.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID creation.
type IDGenerator interface {
	UUID() uuid.UUID
}

// Logger captures basic logging hooks used by the service.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Error(msg string, err error, fields ...any)
}

// ActivityRecord describes an audit entry emitted after issuance,
// validation, revocation, and the other lifecycle workflows. Validation
// entries carry the source address so every outcome is attributable.
type ActivityRecord struct {
	ID         uuid.UUID
	RecordID   uuid.UUID
	ActorID    uuid.UUID
	Verb       string
	ObjectType string
	ObjectID   string
	Channel    string
	Source     string
	Data       map[string]any
	OccurredAt time.Time
}

// ActivitySink is the minimal DI contract for emitting audit activity. Keep
// it stable and limited to Log so hosts can swap sinks without breaking
// changes.
type ActivitySink interface {
	Log(context.Context, ActivityRecord) error
}

// Hooks groups optional callbacks invoked after key workflows complete.
type Hooks struct {
	AfterStateChange func(context.Context, StateChangeEvent)
	AfterActivity    func(context.Context, ActivityRecord)
}

// StateChangeEvent is emitted after an invitation record changes state.
type StateChangeEvent struct {
	RecordID   uuid.UUID
	ActorID    uuid.UUID
	FromState  InvitationState
	ToState    InvitationState
	Reason     string
	OccurredAt time.Time
}

// SystemClock defers to time.Now for production usage.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator produces UUIDv4 identifiers.
type UUIDGenerator struct{}

// UUID returns a randomly generated UUID.
func (UUIDGenerator) UUID() uuid.UUID { return uuid.New() }

// NopLogger discards all log lines.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NopLogger) Info(string, ...any) {}

// Error implements Logger.
func (NopLogger) Error(string, error, ...any) {}
