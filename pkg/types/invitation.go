package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InvitationState tracks lifecycle state for invitation_links records.
type InvitationState string

const (
	InvitationStateCreated   InvitationState = "created"
	InvitationStateSent      InvitationState = "sent"
	InvitationStateDelivered InvitationState = "delivered"
	InvitationStateOpened    InvitationState = "opened"
	InvitationStateValidated InvitationState = "validated"
	InvitationStateConsumed  InvitationState = "consumed"
	InvitationStateExpired   InvitationState = "expired"
	InvitationStateRevoked   InvitationState = "revoked"
	InvitationStateFailed    InvitationState = "failed"
)

// IsTerminal reports whether no further transitions leave the state.
func (s InvitationState) IsTerminal() bool {
	switch s {
	case InvitationStateConsumed, InvitationStateExpired, InvitationStateRevoked, InvitationStateFailed:
		return true
	}
	return false
}

// PreValidationStates lists the states a successful validation advances to
// validated. A validated record re-enters validated while attempts remain
// under the limit.
func PreValidationStates() []InvitationState {
	return []InvitationState{
		InvitationStateCreated,
		InvitationStateSent,
		InvitationStateDelivered,
		InvitationStateOpened,
	}
}

// TransitionPolicy validates invitation state transitions.
type TransitionPolicy interface {
	Validate(current, target InvitationState) error
	AllowedTargets(current InvitationState) []InvitationState
}

// StaticTransitionPolicy enforces a fixed transition graph.
type StaticTransitionPolicy struct {
	graph map[InvitationState]map[InvitationState]struct{}
}

// NewStaticTransitionPolicy creates a policy from a transition graph.
func NewStaticTransitionPolicy(graph map[InvitationState][]InvitationState) *StaticTransitionPolicy {
	internal := make(map[InvitationState]map[InvitationState]struct{}, len(graph))
	for from, targets := range graph {
		targetSet := make(map[InvitationState]struct{}, len(targets))
		for _, to := range targets {
			if to == "" {
				continue
			}
			targetSet[to] = struct{}{}
		}
		internal[from] = targetSet
	}
	return &StaticTransitionPolicy{graph: internal}
}

// DefaultTransitionPolicy returns the invitation state machine. Delivery
// events walk created, sent, delivered, opened in order. Validation advances
// any pre-validation state to validated. Consume, revoke, and expire close
// out any non-terminal state, and delivery failures park created/sent in
// failed.
func DefaultTransitionPolicy() *StaticTransitionPolicy {
	closing := []InvitationState{
		InvitationStateConsumed,
		InvitationStateRevoked,
		InvitationStateExpired,
	}
	return NewStaticTransitionPolicy(map[InvitationState][]InvitationState{
		InvitationStateCreated: append([]InvitationState{
			InvitationStateSent,
			InvitationStateValidated,
			InvitationStateFailed,
		}, closing...),
		InvitationStateSent: append([]InvitationState{
			InvitationStateDelivered,
			InvitationStateOpened,
			InvitationStateValidated,
			InvitationStateFailed,
		}, closing...),
		InvitationStateDelivered: append([]InvitationState{
			InvitationStateOpened,
			InvitationStateValidated,
		}, closing...),
		InvitationStateOpened: append([]InvitationState{
			InvitationStateValidated,
		}, closing...),
		InvitationStateValidated: append([]InvitationState{
			InvitationStateValidated,
		}, closing...),
	})
}

// Validate ensures the target is allowed from the current state.
func (p *StaticTransitionPolicy) Validate(current, target InvitationState) error {
	if current == "" || target == "" {
		return ErrTransitionNotAllowed
	}
	targets, ok := p.graph[current]
	if !ok {
		return ErrTransitionNotAllowed
	}
	if _, ok := targets[target]; !ok {
		return ErrTransitionNotAllowed
	}
	return nil
}

// AllowedTargets returns the slice of valid targets from the provided state.
func (p *StaticTransitionPolicy) AllowedTargets(current InvitationState) []InvitationState {
	targets := p.graph[current]
	if len(targets) == 0 {
		return nil
	}
	out := make([]InvitationState, 0, len(targets))
	for target := range targets {
		out = append(out, target)
	}
	return out
}

// InvitationRecord is the durable row backing one magic link. The record,
// never the token claims, is the source of truth for authorization
// decisions. TokenHash is the SHA-256 digest of the full token string; the
// raw token is never persisted.
type InvitationRecord struct {
	ID                   uuid.UUID
	TokenHash            string
	State                InvitationState
	IssuedAt             time.Time
	ExpiresAt            time.Time
	ValidatedAt          time.Time
	ConsumedAt           time.Time
	RevokedAt            time.Time
	RevokedBy            string
	RevocationReason     string
	ValidationAttempts   int
	LastValidationAt     time.Time
	LastValidationSource string

	// Display metadata mirrored from issuance. Informational only, never an
	// authorization input.
	Email       string
	CompanyName string
	ContactName string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidationStamp carries the per-call data applied by a successful
// validation commit.
type ValidationStamp struct {
	At          time.Time
	Source      string
	MaxAttempts int
}

// TransitionStamp carries the metadata written alongside an administrative
// or delivery state transition.
type TransitionStamp struct {
	At        time.Time
	RevokedBy string
	Reason    string
}

// ReissueStamp resets a record for a freshly generated token. The record ID
// is preserved; hash, window, and counters start over.
type ReissueStamp struct {
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Email     string
}

// RecordStore is the narrow persistence contract the engine consumes. Every
// mutation is a single conditional statement: the guard travels in the
// WHERE clause, and a guard miss surfaces as ErrRecordConflict so callers
// can re-read and report the precise denial.
type RecordStore interface {
	// Create persists a new invitation record in the created state.
	Create(ctx context.Context, record InvitationRecord) (*InvitationRecord, error)
	// GetByTokenHash returns the record matching the token digest, or
	// ErrRecordNotFound.
	GetByTokenHash(ctx context.Context, tokenHash string) (*InvitationRecord, error)
	// GetByID returns the record by primary key, or ErrRecordNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*InvitationRecord, error)
	// RecordValidation atomically increments the attempt counter, stamps the
	// call, and advances pre-validation states to validated, guarded by state
	// and by attempts < stamp.MaxAttempts. Returns the updated record.
	RecordValidation(ctx context.Context, id uuid.UUID, stamp ValidationStamp) (*InvitationRecord, error)
	// TransitionState moves the record to target when its current state is in
	// from, stamping the matching timestamp columns.
	TransitionState(ctx context.Context, id uuid.UUID, from []InvitationState, target InvitationState, stamp TransitionStamp) error
	// Reissue rewrites the token hash and validity window and zeroes the
	// counters. Conflicts when the record has been consumed.
	Reissue(ctx context.Context, id uuid.UUID, stamp ReissueStamp) (*InvitationRecord, error)
}
