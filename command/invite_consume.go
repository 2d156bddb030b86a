package command

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-invites/pkg/types"
	"github.com/google/uuid"
)

// InviteConsumeInput finalizes a validated invitation once the downstream
// workflow (supplier onboarding) completes. Consumption is terminal.
type InviteConsumeInput struct {
	RecordID uuid.UUID
	Actor    types.ActorRef
	Result   *InviteConsumeResult
}

// Type implements gocommand.Message.
func (InviteConsumeInput) Type() string {
	return "command.invite.consume"
}

// Validate implements gocommand.Message.
func (input InviteConsumeInput) Validate() error {
	if input.RecordID == uuid.Nil {
		return ErrRecordIDRequired
	}
	return nil
}

// InviteConsumeResult exposes the record after consumption.
type InviteConsumeResult struct {
	Record *types.InvitationRecord
}

// InviteConsumeCommand moves a validated record to consumed.
type InviteConsumeCommand struct {
	store  types.RecordStore
	clock  types.Clock
	sink   types.ActivitySink
	hooks  types.Hooks
	logger types.Logger
}

// ConsumeCommandConfig holds dependencies for the consumption flow.
type ConsumeCommandConfig struct {
	Store    types.RecordStore
	Clock    types.Clock
	Activity types.ActivitySink
	Hooks    types.Hooks
	Logger   types.Logger
}

// NewInviteConsumeCommand constructs the consumption handler.
func NewInviteConsumeCommand(cfg ConsumeCommandConfig) *InviteConsumeCommand {
	return &InviteConsumeCommand{
		store:  cfg.Store,
		clock:  safeClock(cfg.Clock),
		sink:   cfg.Activity,
		hooks:  cfg.Hooks,
		logger: safeLogger(cfg.Logger),
	}
}

var _ gocommand.Commander[InviteConsumeInput] = (*InviteConsumeCommand)(nil)

// Execute consumes the record. Only validated records consume; a guard miss
// is re-read so double consumption reports ErrAlreadyConsumed.
func (c *InviteConsumeCommand) Execute(ctx context.Context, input InviteConsumeInput) error {
	if c.store == nil {
		return types.ErrMissingRecordStore
	}
	if err := input.Validate(); err != nil {
		return err
	}

	at := now(c.clock)
	err := c.store.TransitionState(ctx, input.RecordID,
		[]types.InvitationState{types.InvitationStateValidated},
		types.InvitationStateConsumed,
		types.TransitionStamp{At: at},
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
		Verb:       "invite.consume",
		ObjectType: "invitation",
		ObjectID:   updated.ID.String(),
		Channel:    "invites",
		Data: map[string]any{
			"email": updated.Email,
		},
		OccurredAt: at,
	}
	logActivity(ctx, c.sink, record)
	emitActivityHook(ctx, c.hooks, record)
	emitStateChangeHook(ctx, c.hooks, types.StateChangeEvent{
		RecordID:   updated.ID,
		ActorID:    input.Actor.ID,
		FromState:  types.InvitationStateValidated,
		ToState:    types.InvitationStateConsumed,
		OccurredAt: at,
	})

	c.logger.Info("invite consumed", "record_id", updated.ID.String())

	if input.Result != nil {
		*input.Result = InviteConsumeResult{Record: updated}
	}
	return nil
}
