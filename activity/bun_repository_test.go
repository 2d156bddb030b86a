package activity

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

func applyActivityDDL(t *testing.T, db *bun.DB) {
	content, err := os.ReadFile("../data/sql/migrations/sqlite/00002_invite_activity.up.sql")
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
	applyActivityDDL(t, db)
	repo, err := NewRepository(RepositoryConfig{DB: db, Clock: fixedClock{t: now}})
	require.NoError(t, err)
	return repo
}

func TestNewRepository_RequiresDB(t *testing.T) {
	_, err := NewRepository(RepositoryConfig{})
	require.Error(t, err)
}

func TestRepository_LogAssignsDefaults(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newTestRepository(t, now)

	recordID := uuid.New()
	err := repo.Log(ctx, types.ActivityRecord{
		RecordID:   recordID,
		Verb:       "invite.create",
		ObjectType: "invitation",
		ObjectID:   recordID.String(),
		Channel:    "admin",
		Data:       map[string]any{"email": "supplier@example.com"},
	})
	require.NoError(t, err)

	page, err := repo.ListActivity(ctx, types.ActivityFilter{RecordID: recordID})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	entry := page.Records[0]
	require.NotEqual(t, uuid.Nil, entry.ID)
	require.WithinDuration(t, now, entry.OccurredAt, time.Second)
	require.Equal(t, "invite.create", entry.Verb)
	require.Equal(t, "supplier@example.com", entry.Data["email"])
}

func TestRepository_ListActivityFilters(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newTestRepository(t, now)

	inviteID := uuid.New()
	otherID := uuid.New()
	actorID := uuid.New()

	seed := []types.ActivityRecord{
		{RecordID: inviteID, ActorID: actorID, Verb: "invite.create", Channel: "admin", OccurredAt: now},
		{RecordID: inviteID, Verb: "invite.validate", Source: "203.0.113.9", OccurredAt: now.Add(1 * time.Hour)},
		{RecordID: inviteID, Verb: "invite.validate", Source: "198.51.100.7", OccurredAt: now.Add(2 * time.Hour)},
		{RecordID: otherID, ActorID: actorID, Verb: "invite.revoke", Channel: "admin", OccurredAt: now.Add(3 * time.Hour)},
	}
	for _, rec := range seed {
		require.NoError(t, repo.Log(ctx, rec))
	}

	byRecord, err := repo.ListActivity(ctx, types.ActivityFilter{RecordID: inviteID})
	require.NoError(t, err)
	require.Equal(t, 3, byRecord.Total)
	require.Equal(t, "invite.validate", byRecord.Records[0].Verb, "feed is newest first")

	byVerb, err := repo.ListActivity(ctx, types.ActivityFilter{Verbs: []string{"invite.validate"}})
	require.NoError(t, err)
	require.Equal(t, 2, byVerb.Total)

	bySource, err := repo.ListActivity(ctx, types.ActivityFilter{Source: "203.0.113.9"})
	require.NoError(t, err)
	require.Equal(t, 1, bySource.Total)

	byActor, err := repo.ListActivity(ctx, types.ActivityFilter{ActorID: actorID})
	require.NoError(t, err)
	require.Equal(t, 2, byActor.Total)

	since := now.Add(90 * time.Minute)
	windowed, err := repo.ListActivity(ctx, types.ActivityFilter{Since: &since})
	require.NoError(t, err)
	require.Equal(t, 2, windowed.Total)
}

func TestRepository_ListActivityPagination(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newTestRepository(t, now)

	recordID := uuid.New()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Log(ctx, types.ActivityRecord{
			RecordID:   recordID,
			Verb:       "invite.validate",
			OccurredAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}

	first, err := repo.ListActivity(ctx, types.ActivityFilter{
		RecordID:   recordID,
		Pagination: types.Pagination{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, first.Records, 2)
	require.Equal(t, 5, first.Total)
	require.True(t, first.HasMore)
	require.Equal(t, 2, first.NextOffset)

	last, err := repo.ListActivity(ctx, types.ActivityFilter{
		RecordID:   recordID,
		Pagination: types.Pagination{Limit: 2, Offset: 4},
	})
	require.NoError(t, err)
	require.Len(t, last.Records, 1)
	require.False(t, last.HasMore)
}

func TestRepository_ActivityStats(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	repo := newTestRepository(t, now)

	recordID := uuid.New()
	verbs := []string{"invite.create", "invite.validate", "invite.validate", "invite.consume"}
	for i, verb := range verbs {
		require.NoError(t, repo.Log(ctx, types.ActivityRecord{
			RecordID:   recordID,
			Verb:       verb,
			OccurredAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}

	stats, err := repo.ActivityStats(ctx, types.ActivityStatsFilter{RecordID: recordID})
	require.NoError(t, err)
	require.Equal(t, 4, stats.Total)
	require.Equal(t, 2, stats.ByVerb["invite.validate"])
	require.Equal(t, 1, stats.ByVerb["invite.create"])

	scoped, err := repo.ActivityStats(ctx, types.ActivityStatsFilter{
		RecordID: recordID,
		Verbs:    []string{"invite.validate"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, scoped.Total)
}
