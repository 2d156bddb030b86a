package records

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-invites/pkg/types"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

func newTestDB(t *testing.T) *bun.DB {
	sqldb, err := sql.Open("sqlite3", ":memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
		_ = sqldb.Close()
	})
	return db
}

func applyDDL(t *testing.T, db *bun.DB) {
	content, err := os.ReadFile("../data/sql/migrations/sqlite/00001_invitation_links.up.sql")
	require.NoError(t, err)
	for _, stmt := range splitStatements(string(content)) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
}

func splitStatements(sql string) []string {
	lines := strings.Split(sql, "\n")
	var builder strings.Builder
	var statements []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		builder.WriteString(line)
		if strings.HasSuffix(line, ";") {
			statements = append(statements, strings.TrimSuffix(builder.String(), ";"))
			builder.Reset()
		} else {
			builder.WriteString(" ")
		}
	}
	if builder.Len() > 0 {
		statements = append(statements, builder.String())
	}
	return statements
}

func newTestRepository(t *testing.T, now time.Time) *Repository {
	t.Helper()
	db := newTestDB(t)
	applyDDL(t, db)
	repo, err := NewRepository(RepositoryConfig{DB: db, Clock: fixedClock{t: now}})
	require.NoError(t, err)
	return repo
}

func newLinkRecord(now time.Time) types.InvitationRecord {
	return types.InvitationRecord{
		ID:          uuid.New(),
		TokenHash:   uuid.NewString(),
		State:       types.InvitationStateCreated,
		IssuedAt:    now,
		ExpiresAt:   now.Add(7 * 24 * time.Hour),
		Email:       "supplier@example.com",
		CompanyName: "Acme GmbH",
		ContactName: "Jo Doe",
	}
}

func TestRepository_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newTestRepository(t, now)

	seed := newLinkRecord(now)
	created, err := repo.Create(ctx, seed)
	require.NoError(t, err)
	require.Equal(t, seed.ID, created.ID)
	require.Equal(t, types.InvitationStateCreated, created.State)
	require.False(t, created.CreatedAt.IsZero())

	byHash, err := repo.GetByTokenHash(ctx, seed.TokenHash)
	require.NoError(t, err)
	require.Equal(t, seed.ID, byHash.ID)
	require.Equal(t, "supplier@example.com", byHash.Email)

	byID, err := repo.GetByID(ctx, seed.ID)
	require.NoError(t, err)
	require.Equal(t, seed.TokenHash, byID.TokenHash)

	_, err = repo.GetByTokenHash(ctx, "no-such-hash")
	require.ErrorIs(t, err, types.ErrRecordNotFound)
}

func TestRepository_RecordValidation(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newTestRepository(t, now)

	seed := newLinkRecord(now)
	_, err := repo.Create(ctx, seed)
	require.NoError(t, err)

	updated, err := repo.RecordValidation(ctx, seed.ID, types.ValidationStamp{
		At:     now.Add(time.Minute),
		Source: "203.0.113.9",
	})
	require.NoError(t, err)
	require.Equal(t, types.InvitationStateValidated, updated.State)
	require.Equal(t, 1, updated.ValidationAttempts)
	require.Equal(t, "203.0.113.9", updated.LastValidationSource)
	require.False(t, updated.ValidatedAt.IsZero())

	// Re-validation increments but keeps the first validated_at.
	firstValidated := updated.ValidatedAt
	again, err := repo.RecordValidation(ctx, seed.ID, types.ValidationStamp{At: now.Add(2 * time.Minute)})
	require.NoError(t, err)
	require.Equal(t, 2, again.ValidationAttempts)
	require.True(t, firstValidated.Equal(again.ValidatedAt))
}

func TestRepository_RecordValidation_AttemptGuard(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newTestRepository(t, now)

	seed := newLinkRecord(now)
	_, err := repo.Create(ctx, seed)
	require.NoError(t, err)

	const maxAttempts = 3
	stamp := func(i int) types.ValidationStamp {
		return types.ValidationStamp{At: now.Add(time.Duration(i) * time.Minute), MaxAttempts: maxAttempts}
	}
	for i := 1; i < maxAttempts; i++ {
		_, err := repo.RecordValidation(ctx, seed.ID, stamp(i))
		require.NoError(t, err, "attempt %d", i)
	}

	_, err = repo.RecordValidation(ctx, seed.ID, stamp(maxAttempts))
	require.ErrorIs(t, err, types.ErrRecordConflict)

	rec, err := repo.GetByID(ctx, seed.ID)
	require.NoError(t, err)
	require.Equal(t, maxAttempts-1, rec.ValidationAttempts)
}

func TestRepository_RecordValidation_RefusesTerminalAndExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newTestRepository(t, now)

	consumed := newLinkRecord(now)
	consumed.State = types.InvitationStateConsumed
	_, err := repo.Create(ctx, consumed)
	require.NoError(t, err)
	_, err = repo.RecordValidation(ctx, consumed.ID, types.ValidationStamp{At: now})
	require.ErrorIs(t, err, types.ErrRecordConflict)

	stale := newLinkRecord(now)
	stale.ExpiresAt = now.Add(-time.Hour)
	_, err = repo.Create(ctx, stale)
	require.NoError(t, err)
	_, err = repo.RecordValidation(ctx, stale.ID, types.ValidationStamp{At: now})
	require.ErrorIs(t, err, types.ErrRecordConflict)
}

func TestRepository_TransitionState(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newTestRepository(t, now)

	seed := newLinkRecord(now)
	_, err := repo.Create(ctx, seed)
	require.NoError(t, err)

	require.NoError(t, repo.TransitionState(ctx, seed.ID,
		[]types.InvitationState{types.InvitationStateCreated},
		types.InvitationStateSent,
		types.TransitionStamp{At: now},
	))

	// Same from-set no longer matches.
	err = repo.TransitionState(ctx, seed.ID,
		[]types.InvitationState{types.InvitationStateCreated},
		types.InvitationStateSent,
		types.TransitionStamp{At: now},
	)
	require.ErrorIs(t, err, types.ErrRecordConflict)

	require.NoError(t, repo.TransitionState(ctx, seed.ID,
		[]types.InvitationState{types.InvitationStateSent},
		types.InvitationStateRevoked,
		types.TransitionStamp{At: now.Add(time.Hour), RevokedBy: "ops@example.com", Reason: "sent in error"},
	))

	rec, err := repo.GetByID(ctx, seed.ID)
	require.NoError(t, err)
	require.Equal(t, types.InvitationStateRevoked, rec.State)
	require.Equal(t, "ops@example.com", rec.RevokedBy)
	require.Equal(t, "sent in error", rec.RevocationReason)
	require.False(t, rec.RevokedAt.IsZero())
}

func TestRepository_TransitionState_Consume(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newTestRepository(t, now)

	seed := newLinkRecord(now)
	seed.State = types.InvitationStateValidated
	_, err := repo.Create(ctx, seed)
	require.NoError(t, err)

	require.NoError(t, repo.TransitionState(ctx, seed.ID,
		[]types.InvitationState{types.InvitationStateValidated},
		types.InvitationStateConsumed,
		types.TransitionStamp{At: now},
	))

	rec, err := repo.GetByID(ctx, seed.ID)
	require.NoError(t, err)
	require.Equal(t, types.InvitationStateConsumed, rec.State)
	require.False(t, rec.ConsumedAt.IsZero())

	// Consumed is terminal: a second consume misses its guard.
	err = repo.TransitionState(ctx, seed.ID,
		[]types.InvitationState{types.InvitationStateValidated},
		types.InvitationStateConsumed,
		types.TransitionStamp{At: now},
	)
	require.ErrorIs(t, err, types.ErrRecordConflict)
}

func TestRepository_Reissue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newTestRepository(t, now)

	seed := newLinkRecord(now)
	seed.State = types.InvitationStateValidated
	seed.ValidationAttempts = 3
	seed.ValidatedAt = now
	_, err := repo.Create(ctx, seed)
	require.NoError(t, err)

	fresh := types.ReissueStamp{
		TokenHash: uuid.NewString(),
		IssuedAt:  now.Add(time.Hour),
		ExpiresAt: now.Add(time.Hour + 7*24*time.Hour),
	}
	rec, err := repo.Reissue(ctx, seed.ID, fresh)
	require.NoError(t, err)
	require.Equal(t, fresh.TokenHash, rec.TokenHash)
	require.Equal(t, types.InvitationStateCreated, rec.State)
	require.Zero(t, rec.ValidationAttempts)
	require.True(t, rec.ValidatedAt.IsZero())
	require.True(t, fresh.ExpiresAt.Equal(rec.ExpiresAt))

	// The old hash no longer resolves.
	_, err = repo.GetByTokenHash(ctx, seed.TokenHash)
	require.ErrorIs(t, err, types.ErrRecordNotFound)
}

func TestRepository_Reissue_RefusesConsumed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newTestRepository(t, now)

	seed := newLinkRecord(now)
	seed.State = types.InvitationStateConsumed
	_, err := repo.Create(ctx, seed)
	require.NoError(t, err)

	_, err = repo.Reissue(ctx, seed.ID, types.ReissueStamp{
		TokenHash: uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(24 * time.Hour),
	})
	require.ErrorIs(t, err, types.ErrRecordConflict)
}

func TestRepository_ExpireOverdue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newTestRepository(t, now)

	stale := newLinkRecord(now.Add(-8 * 24 * time.Hour))
	stale.ExpiresAt = now.Add(-time.Hour)
	fresh := newLinkRecord(now)
	consumed := newLinkRecord(now.Add(-8 * 24 * time.Hour))
	consumed.ExpiresAt = now.Add(-time.Hour)
	consumed.State = types.InvitationStateConsumed
	for _, rec := range []types.InvitationRecord{stale, fresh, consumed} {
		_, err := repo.Create(ctx, rec)
		require.NoError(t, err)
	}

	swept, err := repo.ExpireOverdue(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, swept)

	rec, err := repo.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	require.Equal(t, types.InvitationStateExpired, rec.State)

	rec, err = repo.GetByID(ctx, consumed.ID)
	require.NoError(t, err)
	require.Equal(t, types.InvitationStateConsumed, rec.State)
}

func TestRepository_ListInvites(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newTestRepository(t, now)

	created := newLinkRecord(now)
	revoked := newLinkRecord(now.Add(time.Minute))
	revoked.State = types.InvitationStateRevoked
	revoked.Email = "other@example.com"
	expiring := newLinkRecord(now.Add(2 * time.Minute))
	expiring.ExpiresAt = now.Add(time.Hour)
	for _, rec := range []types.InvitationRecord{created, revoked, expiring} {
		_, err := repo.Create(ctx, rec)
		require.NoError(t, err)
	}

	all, err := repo.ListInvites(ctx, types.InviteInventoryFilter{})
	require.NoError(t, err)
	require.Equal(t, 3, all.Total)
	require.False(t, all.HasMore)

	byState, err := repo.ListInvites(ctx, types.InviteInventoryFilter{
		States: []types.InvitationState{types.InvitationStateRevoked},
	})
	require.NoError(t, err)
	require.Equal(t, 1, byState.Total)
	require.Equal(t, revoked.ID, byState.Records[0].ID)

	byEmail, err := repo.ListInvites(ctx, types.InviteInventoryFilter{
		Email: "other@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, 1, byEmail.Total)

	cutoff := now.Add(2 * time.Hour)
	soon, err := repo.ListInvites(ctx, types.InviteInventoryFilter{
		ExpiringBy: &cutoff,
	})
	require.NoError(t, err)
	require.Equal(t, 1, soon.Total)
	require.Equal(t, expiring.ID, soon.Records[0].ID)

	paged, err := repo.ListInvites(ctx, types.InviteInventoryFilter{
		Pagination: types.Pagination{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, paged.Records, 2)
	require.Equal(t, 3, paged.Total)
	require.True(t, paged.HasMore)
}
