package service

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-invites/command"
	"github.com/goliatone/go-invites/issuer"
	"github.com/goliatone/go-invites/pkg/types"
)

// Text codes surfaced to transports. Stable: clients branch on these.
const (
	TextCodeInvalidInput      = "INVALID_INPUT"
	TextCodeInvalidFormat     = "INVALID_FORMAT"
	TextCodeSignatureInvalid  = "SIGNATURE_INVALID"
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodeInvalidClaims     = "INVALID_CLAIMS"
	TextCodeNotFound          = "NOT_FOUND"
	TextCodeAlreadyConsumed   = "ALREADY_CONSUMED"
	TextCodeRevoked           = "REVOKED"
	TextCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	TextCodeTransitionDenied  = "TRANSITION_NOT_ALLOWED"
	TextCodeFeatureDisabled   = "FEATURE_DISABLED"
	TextCodeStoreUnavailable  = "STORE_UNAVAILABLE"
	TextCodeConfigError       = "CONFIGURATION_ERROR"
)

// MapError translates engine sentinels into rich errors for transports.
// Sentinels stay intact inside the module; the boundary decorates them with
// category, HTTP-ish code, and a stable text code. Unknown errors are
// treated as infrastructure failures, never as denials.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return err
	}

	switch {
	case errors.Is(err, types.ErrTokenRequired),
		errors.Is(err, issuer.ErrEmailRequired),
		errors.Is(err, issuer.ErrEmailInvalid),
		errors.Is(err, issuer.ErrExpiryOutOfRange),
		errors.Is(err, command.ErrActorRequired),
		errors.Is(err, command.ErrRecordIDRequired),
		errors.Is(err, command.ErrTargetStateInvalid):
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid invite request").
			WithCode(goerrors.CodeBadRequest).
			WithTextCode(TextCodeInvalidInput)

	case errors.Is(err, types.ErrTokenMalformed):
		return goerrors.Wrap(err, goerrors.CategoryValidation, "token format invalid").
			WithCode(goerrors.CodeBadRequest).
			WithTextCode(TextCodeInvalidFormat)

	case errors.Is(err, types.ErrSignatureInvalid):
		return goerrors.Wrap(err, goerrors.CategoryAuth, "token rejected").
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(TextCodeSignatureInvalid)

	case errors.Is(err, types.ErrTokenExpired):
		return goerrors.Wrap(err, goerrors.CategoryAuth, "token expired").
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(TextCodeTokenExpired)

	case errors.Is(err, types.ErrClaimsIncomplete):
		return goerrors.Wrap(err, goerrors.CategoryAuth, "token claims invalid").
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(TextCodeInvalidClaims)

	case errors.Is(err, types.ErrRecordNotFound):
		return goerrors.Wrap(err, goerrors.CategoryNotFound, "invitation not found").
			WithCode(goerrors.CodeNotFound).
			WithTextCode(TextCodeNotFound)

	case errors.Is(err, types.ErrAlreadyConsumed):
		return goerrors.Wrap(err, goerrors.CategoryAuthz, "invitation already consumed").
			WithCode(goerrors.CodeForbidden).
			WithTextCode(TextCodeAlreadyConsumed)

	case errors.Is(err, types.ErrRevoked):
		return goerrors.Wrap(err, goerrors.CategoryAuthz, "invitation revoked").
			WithCode(goerrors.CodeForbidden).
			WithTextCode(TextCodeRevoked)

	case errors.Is(err, types.ErrRateLimited):
		return goerrors.Wrap(err, goerrors.CategoryAuthz, "validation attempts exceeded").
			WithCode(goerrors.CodeForbidden).
			WithTextCode(TextCodeRateLimitExceeded)

	case errors.Is(err, types.ErrTransitionNotAllowed),
		errors.Is(err, types.ErrRecordConflict):
		return goerrors.Wrap(err, goerrors.CategoryValidation, "state transition denied").
			WithCode(goerrors.CodeBadRequest).
			WithTextCode(TextCodeTransitionDenied)

	case errors.Is(err, command.ErrInviteDisabled),
		errors.Is(err, command.ErrReissueDisabled):
		return goerrors.Wrap(err, goerrors.CategoryAuthz, "feature disabled").
			WithCode(goerrors.CodeForbidden).
			WithTextCode(TextCodeFeatureDisabled)

	case errors.Is(err, types.ErrMissingSigner),
		errors.Is(err, types.ErrMissingRecordStore),
		errors.Is(err, types.ErrMissingSigningKey),
		errors.Is(err, types.ErrServiceNotReady):
		return goerrors.Wrap(err, goerrors.CategoryInternal, "invite service misconfigured").
			WithCode(goerrors.CodeInternal).
			WithTextCode(TextCodeConfigError)
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, "invite operation failed").
		WithCode(goerrors.CodeInternal).
		WithTextCode(TextCodeStoreUnavailable)
}
