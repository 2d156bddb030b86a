package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-invites/command"
	"github.com/goliatone/go-invites/pkg/types"
	"github.com/goliatone/go-invites/signer"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

// memStore is an in-memory types.RecordStore mirroring the guarded update
// semantics of the Bun repository.
type memStore struct {
	byID map[uuid.UUID]*types.InvitationRecord
}

func newMemStore() *memStore {
	return &memStore{byID: map[uuid.UUID]*types.InvitationRecord{}}
}

func (m *memStore) Create(_ context.Context, record types.InvitationRecord) (*types.InvitationRecord, error) {
	copy := record
	m.byID[copy.ID] = &copy
	out := copy
	return &out, nil
}

func (m *memStore) GetByTokenHash(_ context.Context, tokenHash string) (*types.InvitationRecord, error) {
	for _, rec := range m.byID {
		if rec.TokenHash == tokenHash {
			out := *rec
			return &out, nil
		}
	}
	return nil, types.ErrRecordNotFound
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*types.InvitationRecord, error) {
	rec, ok := m.byID[id]
	if !ok {
		return nil, types.ErrRecordNotFound
	}
	out := *rec
	return &out, nil
}

func (m *memStore) RecordValidation(_ context.Context, id uuid.UUID, stamp types.ValidationStamp) (*types.InvitationRecord, error) {
	rec, ok := m.byID[id]
	if !ok {
		return nil, types.ErrRecordConflict
	}
	if rec.State.IsTerminal() {
		return nil, types.ErrRecordConflict
	}
	if stamp.MaxAttempts > 0 && rec.ValidationAttempts+1 >= stamp.MaxAttempts {
		return nil, types.ErrRecordConflict
	}
	rec.ValidationAttempts++
	rec.State = types.InvitationStateValidated
	if rec.ValidatedAt.IsZero() {
		rec.ValidatedAt = stamp.At
	}
	rec.LastValidationAt = stamp.At
	rec.LastValidationSource = stamp.Source
	out := *rec
	return &out, nil
}

func (m *memStore) TransitionState(_ context.Context, id uuid.UUID, from []types.InvitationState, target types.InvitationState, stamp types.TransitionStamp) error {
	rec, ok := m.byID[id]
	if !ok {
		return types.ErrRecordConflict
	}
	match := false
	for _, state := range from {
		if rec.State == state {
			match = true
		}
	}
	if !match {
		return types.ErrRecordConflict
	}
	rec.State = target
	switch target {
	case types.InvitationStateConsumed:
		rec.ConsumedAt = stamp.At
	case types.InvitationStateRevoked:
		rec.RevokedAt = stamp.At
		rec.RevokedBy = stamp.RevokedBy
		rec.RevocationReason = stamp.Reason
	}
	return nil
}

func (m *memStore) Reissue(_ context.Context, id uuid.UUID, stamp types.ReissueStamp) (*types.InvitationRecord, error) {
	rec, ok := m.byID[id]
	if !ok || rec.State == types.InvitationStateConsumed {
		return nil, types.ErrRecordConflict
	}
	rec.TokenHash = stamp.TokenHash
	rec.State = types.InvitationStateCreated
	rec.IssuedAt = stamp.IssuedAt
	rec.ExpiresAt = stamp.ExpiresAt
	rec.ValidationAttempts = 0
	rec.ValidatedAt = time.Time{}
	out := *rec
	return &out, nil
}

var serviceTestKey = mustGenerateKey()

func mustGenerateKey() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return key
}

func newTestService(t *testing.T, store types.RecordStore, now time.Time) *Service {
	t.Helper()
	sgn, err := signer.New(signer.Config{
		PrivateKey: serviceTestKey,
		PublicKey:  &serviceTestKey.PublicKey,
		Issuer:     "supplier-portal",
		Subject:    "supplier-invite",
		Audience:   "supplier",
		Clock:      fixedClock{t: now},
	})
	require.NoError(t, err)

	svc, err := New(Config{
		Signer:   sgn,
		Store:    store,
		Clock:    fixedClock{t: now},
		Issuer:   "supplier-portal",
		Subject:  "supplier-invite",
		Audience: "supplier",
	})
	require.NoError(t, err)
	return svc
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Config{Store: newMemStore()})
	require.ErrorIs(t, err, types.ErrMissingSigner)

	sgn, err := signer.New(signer.Config{PublicKey: &serviceTestKey.PublicKey})
	require.NoError(t, err)
	_, err = New(Config{Signer: sgn})
	require.ErrorIs(t, err, types.ErrMissingRecordStore)
}

func TestService_InviteLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	store := newMemStore()
	svc := newTestService(t, store, now)
	require.True(t, svc.Ready())
	require.NoError(t, svc.HealthCheck(ctx))
	actor := types.ActorRef{ID: uuid.New(), Type: "user"}

	var created command.InviteCreateResult
	err := svc.Commands().InviteCreate.Execute(ctx, command.InviteCreateInput{
		Email:       "supplier@example.com",
		CompanyName: "Acme GmbH",
		Actor:       actor,
		Result:      &created,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.Token)

	var validated command.InviteValidateResult
	err = svc.Commands().InviteValidate.Execute(ctx, command.InviteValidateInput{
		Token:  created.Token,
		Source: "203.0.113.9",
		Result: &validated,
	})
	require.NoError(t, err)
	require.Equal(t, types.InvitationStateValidated, validated.State)
	require.Equal(t, created.Record.ID, validated.Record.ID)
	require.Equal(t, "supplier@example.com", validated.Claims.Email)

	err = svc.Commands().InviteConsume.Execute(ctx, command.InviteConsumeInput{
		RecordID: validated.Record.ID,
	})
	require.NoError(t, err)

	// Single use: the consumed link never validates again.
	err = svc.Commands().InviteValidate.Execute(ctx, command.InviteValidateInput{Token: created.Token})
	require.ErrorIs(t, err, types.ErrAlreadyConsumed)
}

func TestService_ReissueInvalidatesOldToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	store := newMemStore()
	svc := newTestService(t, store, now)
	actor := types.ActorRef{ID: uuid.New()}

	var created command.InviteCreateResult
	err := svc.Commands().InviteCreate.Execute(ctx, command.InviteCreateInput{
		Email:  "supplier@example.com",
		Actor:  actor,
		Result: &created,
	})
	require.NoError(t, err)

	var reissued command.InviteReissueResult
	err = svc.Commands().InviteReissue.Execute(ctx, command.InviteReissueInput{
		RecordID: created.Record.ID,
		Actor:    actor,
		Result:   &reissued,
	})
	require.NoError(t, err)
	require.NotEqual(t, created.Token, reissued.Token)

	// Old token's hash no longer matches any record.
	err = svc.Commands().InviteValidate.Execute(ctx, command.InviteValidateInput{Token: created.Token})
	require.ErrorIs(t, err, types.ErrRecordNotFound)

	var validated command.InviteValidateResult
	err = svc.Commands().InviteValidate.Execute(ctx, command.InviteValidateInput{
		Token:  reissued.Token,
		Result: &validated,
	})
	require.NoError(t, err)
	require.Equal(t, created.Record.ID, validated.Record.ID)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		textCode string
	}{
		{"token required", types.ErrTokenRequired, TextCodeInvalidInput},
		{"malformed", types.ErrTokenMalformed, TextCodeInvalidFormat},
		{"signature", types.ErrSignatureInvalid, TextCodeSignatureInvalid},
		{"expired", types.ErrTokenExpired, TextCodeTokenExpired},
		{"claims", types.ErrClaimsIncomplete, TextCodeInvalidClaims},
		{"not found", types.ErrRecordNotFound, TextCodeNotFound},
		{"consumed", types.ErrAlreadyConsumed, TextCodeAlreadyConsumed},
		{"revoked", types.ErrRevoked, TextCodeRevoked},
		{"rate limited", types.ErrRateLimited, TextCodeRateLimitExceeded},
		{"transition", types.ErrTransitionNotAllowed, TextCodeTransitionDenied},
		{"gate", command.ErrInviteDisabled, TextCodeFeatureDisabled},
		{"config", types.ErrMissingSigner, TextCodeConfigError},
		{"unknown", errors.New("connection refused"), TextCodeStoreUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := MapError(tc.err)
			var rich *goerrors.Error
			require.True(t, goerrors.As(mapped, &rich))
			require.Equal(t, tc.textCode, rich.TextCode)
			require.ErrorIs(t, mapped, tc.err, "sentinel must survive wrapping")
		})
	}

	require.NoError(t, MapError(nil))

	// Already-rich errors pass through untouched.
	mapped := MapError(types.ErrRevoked)
	require.Same(t, mapped, MapError(mapped))
}
