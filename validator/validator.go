// Package validator decides whether a presented magic-link token grants
// access. The signed claims only get a request in the door; the stored
// invitation record is the source of truth, and the commit that counts the
// attempt and advances the state is a single conditional update.
package validator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-invites/pkg/token"
	"github.com/goliatone/go-invites/pkg/types"
	"github.com/google/uuid"
)

// DefaultMaxAttempts bounds validation calls per record. The attempt that
// would reach the limit is the first one rejected, so a fresh record allows
// DefaultMaxAttempts-1 successful validations.
const DefaultMaxAttempts = 5

// Config wires the validator.
type Config struct {
	Signer      types.TokenSigner
	Store       types.RecordStore
	Clock       types.Clock
	Logger      types.Logger
	MaxAttempts int
}

// Validator verifies tokens and enforces the record state machine.
type Validator struct {
	signer      types.TokenSigner
	store       types.RecordStore
	clock       types.Clock
	logger      types.Logger
	maxAttempts int
}

// Result reports a successful validation.
type Result struct {
	Claims             types.InviteClaims
	Record             *types.InvitationRecord
	State              types.InvitationState
	ValidationAttempts int
}

// New constructs a Validator. Signer and store are required.
func New(cfg Config) (*Validator, error) {
	if cfg.Signer == nil {
		return nil, types.ErrMissingSigner
	}
	if cfg.Store == nil {
		return nil, types.ErrMissingRecordStore
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Validator{
		signer:      cfg.Signer,
		store:       cfg.Store,
		clock:       clock,
		logger:      logger,
		maxAttempts: maxAttempts,
	}, nil
}

// Validate runs the ordered pipeline: shape, signature, claims, record
// lookup by hash, terminal-state gate, rate limit, then the atomic commit.
// Each step fails fast with its own sentinel so callers map deterministic
// codes. The source address, when provided, is stamped for audit.
func (v *Validator) Validate(ctx context.Context, rawToken, sourceAddr string) (*Result, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, types.ErrTokenRequired
	}
	if strings.Count(rawToken, ".") != 2 {
		return nil, types.ErrTokenMalformed
	}

	claims, err := v.signer.Verify(rawToken)
	if err != nil {
		return nil, err
	}
	if !claims.Complete() {
		return nil, types.ErrClaimsIncomplete
	}

	record, err := v.store.GetByTokenHash(ctx, token.Hash(rawToken))
	if err != nil {
		return nil, err
	}

	now := v.clock.Now().UTC()
	if err := v.gateTerminalState(ctx, record, now); err != nil {
		return nil, err
	}

	// Reject before touching the counter: the call that would reach the
	// limit never commits, so attempts stay bounded even under races (the
	// same guard travels in the store's WHERE clause).
	if record.ValidationAttempts+1 >= v.maxAttempts {
		return nil, types.ErrRateLimited
	}

	updated, err := v.store.RecordValidation(ctx, record.ID, types.ValidationStamp{
		At:          now,
		Source:      strings.TrimSpace(sourceAddr),
		MaxAttempts: v.maxAttempts,
	})
	if err != nil {
		if errors.Is(err, types.ErrRecordConflict) {
			return nil, v.explainConflict(ctx, record.ID, now)
		}
		return nil, err
	}

	v.logger.Debug("invite validated",
		"record_id", updated.ID.String(),
		"attempts", updated.ValidationAttempts,
	)

	return &Result{
		Claims:             claims,
		Record:             updated,
		State:              updated.State,
		ValidationAttempts: updated.ValidationAttempts,
	}, nil
}

// gateTerminalState short-circuits records that can no longer validate.
// Stored expiry is authoritative and checked without skew; the write-back
// to expired is best-effort only.
func (v *Validator) gateTerminalState(ctx context.Context, record *types.InvitationRecord, now time.Time) error {
	switch record.State {
	case types.InvitationStateConsumed:
		return types.ErrAlreadyConsumed
	case types.InvitationStateRevoked:
		return types.ErrRevoked
	case types.InvitationStateExpired:
		return types.ErrTokenExpired
	case types.InvitationStateFailed:
		// Delivery never happened; reveal nothing beyond "no such link".
		return types.ErrRecordNotFound
	}
	if !record.ExpiresAt.IsZero() && now.After(record.ExpiresAt) {
		_ = v.store.TransitionState(ctx, record.ID,
			nonTerminalStates(),
			types.InvitationStateExpired,
			types.TransitionStamp{At: now},
		)
		return types.ErrTokenExpired
	}
	return nil
}

// explainConflict re-reads the record after a guarded commit missed, so the
// caller gets the precise denial instead of a generic conflict.
func (v *Validator) explainConflict(ctx context.Context, id uuid.UUID, now time.Time) error {
	latest, err := v.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrRecordNotFound) {
			return types.ErrRecordNotFound
		}
		return err
	}
	switch {
	case latest.State == types.InvitationStateConsumed:
		return types.ErrAlreadyConsumed
	case latest.State == types.InvitationStateRevoked:
		return types.ErrRevoked
	case latest.State == types.InvitationStateExpired:
		return types.ErrTokenExpired
	case !latest.ExpiresAt.IsZero() && now.After(latest.ExpiresAt):
		return types.ErrTokenExpired
	case latest.ValidationAttempts+1 >= v.maxAttempts:
		return types.ErrRateLimited
	}
	return types.ErrRecordConflict
}

func nonTerminalStates() []types.InvitationState {
	return []types.InvitationState{
		types.InvitationStateCreated,
		types.InvitationStateSent,
		types.InvitationStateDelivered,
		types.InvitationStateOpened,
		types.InvitationStateValidated,
	}
}
