package command

import (
	"errors"

	"github.com/goliatone/go-invites/pkg/types"
)

var (
	// ErrActorRequired indicates an actor reference was not supplied.
	ErrActorRequired = errors.New("go-invites: actor required")
	// ErrRecordIDRequired indicates a lifecycle command omitted the record id.
	ErrRecordIDRequired = errors.New("go-invites: record id required")
	// ErrInviteDisabled indicates issuance is disabled via feature gate.
	ErrInviteDisabled = errors.New("go-invites: invite issuance disabled")
	// ErrReissueDisabled indicates reissue is disabled via feature gate.
	ErrReissueDisabled = errors.New("go-invites: invite reissue disabled")
	// ErrTargetStateInvalid indicates a delivery update named a state outside
	// the delivery set.
	ErrTargetStateInvalid = errors.New("go-invites: target state invalid")
	// ErrTokenRequired indicates an invite token was missing.
	ErrTokenRequired = types.ErrTokenRequired
)
