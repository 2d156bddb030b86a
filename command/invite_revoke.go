package command

import (
	"context"
	"errors"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-invites/pkg/types"
	"github.com/google/uuid"
)

// InviteRevokeInput invalidates an outstanding invitation. Revocation is an
// administrative act: the actor is recorded on the row.
type InviteRevokeInput struct {
	RecordID uuid.UUID
	Reason   string
	Actor    types.ActorRef
	Result   *InviteRevokeResult
}

// Type implements gocommand.Message.
func (InviteRevokeInput) Type() string {
	return "command.invite.revoke"
}

// Validate implements gocommand.Message.
func (input InviteRevokeInput) Validate() error {
	switch {
	case input.RecordID == uuid.Nil:
		return ErrRecordIDRequired
	case input.Actor.ID == uuid.Nil:
		return ErrActorRequired
	default:
		return nil
	}
}

// InviteRevokeResult exposes the record after revocation.
type InviteRevokeResult struct {
	Record *types.InvitationRecord
}

// InviteRevokeCommand moves a non-terminal record to revoked.
type InviteRevokeCommand struct {
	store  types.RecordStore
	clock  types.Clock
	sink   types.ActivitySink
	hooks  types.Hooks
	logger types.Logger
}

// RevokeCommandConfig holds dependencies for the revocation flow.
type RevokeCommandConfig struct {
	Store    types.RecordStore
	Clock    types.Clock
	Activity types.ActivitySink
	Hooks    types.Hooks
	Logger   types.Logger
}

// NewInviteRevokeCommand constructs the revocation handler.
func NewInviteRevokeCommand(cfg RevokeCommandConfig) *InviteRevokeCommand {
	return &InviteRevokeCommand{
		store:  cfg.Store,
		clock:  safeClock(cfg.Clock),
		sink:   cfg.Activity,
		hooks:  cfg.Hooks,
		logger: safeLogger(cfg.Logger),
	}
}

var _ gocommand.Commander[InviteRevokeInput] = (*InviteRevokeCommand)(nil)

// Execute revokes the record. Revoking an already terminal record reports
// the terminal state it found rather than a generic conflict.
func (c *InviteRevokeCommand) Execute(ctx context.Context, input InviteRevokeInput) error {
	if c.store == nil {
		return types.ErrMissingRecordStore
	}
	if err := input.Validate(); err != nil {
		return err
	}

	current, err := c.store.GetByID(ctx, input.RecordID)
	if err != nil {
		return err
	}
	at := now(c.clock)
	err = c.store.TransitionState(ctx, input.RecordID,
		openStates(),
		types.InvitationStateRevoked,
		types.TransitionStamp{
			At:        at,
			RevokedBy: input.Actor.ID.String(),
			Reason:    strings.TrimSpace(input.Reason),
		},
	)
	if err != nil {
		if errors.Is(err, types.ErrRecordConflict) {
			return explainTerminal(ctx, c.store, input.RecordID)
		}
		return err
	}

	updated, err := c.store.GetByID(ctx, input.RecordID)
	if err != nil {
		return err
	}

	record := types.ActivityRecord{
		RecordID:   updated.ID,
		ActorID:    input.Actor.ID,
		Verb:       "invite.revoke",
		ObjectType: "invitation",
		ObjectID:   updated.ID.String(),
		Channel:    "invites",
		Data: map[string]any{
			"reason": updated.RevocationReason,
			"from":   string(current.State),
		},
		OccurredAt: at,
	}
	logActivity(ctx, c.sink, record)
	emitActivityHook(ctx, c.hooks, record)
	emitStateChangeHook(ctx, c.hooks, types.StateChangeEvent{
		RecordID:   updated.ID,
		ActorID:    input.Actor.ID,
		FromState:  current.State,
		ToState:    types.InvitationStateRevoked,
		Reason:     updated.RevocationReason,
		OccurredAt: at,
	})

	c.logger.Info("invite revoked", "record_id", updated.ID.String(), "actor", input.Actor.ID.String())

	if input.Result != nil {
		*input.Result = InviteRevokeResult{Record: updated}
	}
	return nil
}

func openStates() []types.InvitationState {
	return []types.InvitationState{
		types.InvitationStateCreated,
		types.InvitationStateSent,
		types.InvitationStateDelivered,
		types.InvitationStateOpened,
		types.InvitationStateValidated,
	}
}

// explainTerminal maps a guarded transition miss to the precise terminal
// denial the caller should report.
func explainTerminal(ctx context.Context, store types.RecordStore, id uuid.UUID) error {
	latest, err := store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch latest.State {
	case types.InvitationStateConsumed:
		return types.ErrAlreadyConsumed
	case types.InvitationStateRevoked:
		return types.ErrRevoked
	case types.InvitationStateExpired:
		return types.ErrTokenExpired
	case types.InvitationStateFailed:
		return types.ErrTransitionNotAllowed
	}
	return types.ErrRecordConflict
}
