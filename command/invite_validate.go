package command

import (
	"context"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-invites/pkg/types"
	"github.com/goliatone/go-invites/validator"
)

// TokenValidator runs the ordered validation pipeline against a raw token.
type TokenValidator interface {
	Validate(ctx context.Context, rawToken, sourceAddr string) (*validator.Result, error)
}

// InviteValidateInput carries a presented token and its source address.
// Suppliers present tokens anonymously, so no actor is required.
type InviteValidateInput struct {
	Token  string
	Source string
	Result *InviteValidateResult
}

// Type implements gocommand.Message.
func (InviteValidateInput) Type() string {
	return "command.invite.validate"
}

// Validate implements gocommand.Message.
func (input InviteValidateInput) Validate() error {
	if strings.TrimSpace(input.Token) == "" {
		return ErrTokenRequired
	}
	return nil
}

// InviteValidateResult exposes the validation outcome.
type InviteValidateResult struct {
	Claims             types.InviteClaims
	Record             *types.InvitationRecord
	State              types.InvitationState
	ValidationAttempts int
}

// InviteValidateCommand validates a presented token and records the attempt.
type InviteValidateCommand struct {
	validator TokenValidator
	clock     types.Clock
	sink      types.ActivitySink
	hooks     types.Hooks
	logger    types.Logger
}

// ValidateCommandConfig holds dependencies for the validation flow.
type ValidateCommandConfig struct {
	Validator TokenValidator
	Clock     types.Clock
	Activity  types.ActivitySink
	Hooks     types.Hooks
	Logger    types.Logger
}

// NewInviteValidateCommand constructs the validation handler.
func NewInviteValidateCommand(cfg ValidateCommandConfig) *InviteValidateCommand {
	return &InviteValidateCommand{
		validator: cfg.Validator,
		clock:     safeClock(cfg.Clock),
		sink:      cfg.Activity,
		hooks:     cfg.Hooks,
		logger:    safeLogger(cfg.Logger),
	}
}

var _ gocommand.Commander[InviteValidateInput] = (*InviteValidateCommand)(nil)

// Execute runs the pipeline. Denials surface as sentinel errors; every
// outcome that reaches a record is stamped with the source address.
func (c *InviteValidateCommand) Execute(ctx context.Context, input InviteValidateInput) error {
	if c.validator == nil {
		return types.ErrMissingSigner
	}
	if err := input.Validate(); err != nil {
		return err
	}

	res, err := c.validator.Validate(ctx, input.Token, input.Source)
	if err != nil {
		c.logger.Debug("invite validation denied", "error", err.Error(), "source", input.Source)
		return err
	}

	record := types.ActivityRecord{
		RecordID:   res.Record.ID,
		Verb:       "invite.validate",
		ObjectType: "invitation",
		ObjectID:   res.Record.ID.String(),
		Channel:    "invites",
		Source:     strings.TrimSpace(input.Source),
		Data: map[string]any{
			"attempts": res.ValidationAttempts,
			"state":    string(res.State),
		},
		OccurredAt: now(c.clock),
	}
	logActivity(ctx, c.sink, record)
	emitActivityHook(ctx, c.hooks, record)

	if input.Result != nil {
		*input.Result = InviteValidateResult{
			Claims:             res.Claims,
			Record:             res.Record,
			State:              res.State,
			ValidationAttempts: res.ValidationAttempts,
		}
	}
	return nil
}
