package command

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-invites/pkg/types"
	"github.com/google/uuid"
)

// InviteDeliveryInput records a delivery milestone reported by the mail
// pipeline: sent, delivered, opened, or failed.
type InviteDeliveryInput struct {
	RecordID uuid.UUID
	Target   types.InvitationState
	Detail   string
	Actor    types.ActorRef
	Result   *InviteDeliveryResult
}

// Type implements gocommand.Message.
func (InviteDeliveryInput) Type() string {
	return "command.invite.delivery"
}

// Validate implements gocommand.Message.
func (input InviteDeliveryInput) Validate() error {
	if input.RecordID == uuid.Nil {
		return ErrRecordIDRequired
	}
	switch input.Target {
	case types.InvitationStateSent,
		types.InvitationStateDelivered,
		types.InvitationStateOpened,
		types.InvitationStateFailed:
		return nil
	}
	return ErrTargetStateInvalid
}

// InviteDeliveryResult exposes the record after the delivery update.
type InviteDeliveryResult struct {
	Record *types.InvitationRecord
}

// InviteDeliveryCommand advances records along the delivery track.
type InviteDeliveryCommand struct {
	store  types.RecordStore
	policy types.TransitionPolicy
	clock  types.Clock
	sink   types.ActivitySink
	hooks  types.Hooks
	logger types.Logger
}

// DeliveryCommandConfig holds dependencies for delivery tracking.
type DeliveryCommandConfig struct {
	Store    types.RecordStore
	Policy   types.TransitionPolicy
	Clock    types.Clock
	Activity types.ActivitySink
	Hooks    types.Hooks
	Logger   types.Logger
}

// NewInviteDeliveryCommand constructs the delivery handler.
func NewInviteDeliveryCommand(cfg DeliveryCommandConfig) *InviteDeliveryCommand {
	policy := cfg.Policy
	if policy == nil {
		policy = types.DefaultTransitionPolicy()
	}
	return &InviteDeliveryCommand{
		store:  cfg.Store,
		policy: policy,
		clock:  safeClock(cfg.Clock),
		sink:   cfg.Activity,
		hooks:  cfg.Hooks,
		logger: safeLogger(cfg.Logger),
	}
}

var _ gocommand.Commander[InviteDeliveryInput] = (*InviteDeliveryCommand)(nil)

// Execute applies the milestone. The from-set is derived from the transition
// policy, so a stale or out-of-order webhook misses the guard instead of
// rewinding the record.
func (c *InviteDeliveryCommand) Execute(ctx context.Context, input InviteDeliveryInput) error {
	if c.store == nil {
		return types.ErrMissingRecordStore
	}
	if err := input.Validate(); err != nil {
		return err
	}

	from := c.sourcesFor(input.Target)
	if len(from) == 0 {
		return types.ErrTransitionNotAllowed
	}

	at := now(c.clock)
	err := c.store.TransitionState(ctx, input.RecordID, from, input.Target, types.TransitionStamp{
		At:     at,
		Reason: input.Detail,
	})
	if err != nil {
		if errors.Is(err, types.ErrRecordConflict) {
			latest, getErr := c.store.GetByID(ctx, input.RecordID)
			if getErr != nil {
				return getErr
			}
			if latest.State.IsTerminal() {
				return explainTerminal(ctx, c.store, input.RecordID)
			}
			return types.ErrTransitionNotAllowed
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
		Verb:       "invite.delivery." + string(input.Target),
		ObjectType: "invitation",
		ObjectID:   updated.ID.String(),
		Channel:    "invites",
		Data: map[string]any{
			"detail": input.Detail,
		},
		OccurredAt: at,
	}
	logActivity(ctx, c.sink, record)
	emitActivityHook(ctx, c.hooks, record)
	emitStateChangeHook(ctx, c.hooks, types.StateChangeEvent{
		RecordID:   updated.ID,
		ActorID:    input.Actor.ID,
		ToState:    input.Target,
		Reason:     input.Detail,
		OccurredAt: at,
	})

	if input.Result != nil {
		*input.Result = InviteDeliveryResult{Record: updated}
	}
	return nil
}

// sourcesFor lists every state the policy allows to reach target.
func (c *InviteDeliveryCommand) sourcesFor(target types.InvitationState) []types.InvitationState {
	all := []types.InvitationState{
		types.InvitationStateCreated,
		types.InvitationStateSent,
		types.InvitationStateDelivered,
		types.InvitationStateOpened,
		types.InvitationStateValidated,
	}
	var out []types.InvitationState
	for _, state := range all {
		if state == target {
			continue
		}
		if c.policy.Validate(state, target) == nil {
			out = append(out, state)
		}
	}
	return out
}
