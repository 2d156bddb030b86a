// Package records persists invitation link records with Bun. Every state
// advance is a single conditional UPDATE so the state machine and the
// attempt counter hold under concurrent validators.
package records

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-invites/pkg/types"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryConfig wires the Bun-backed record store.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
}

// Repository implements types.RecordStore using Bun.
type Repository struct {
	store repository.Repository[*Record]
	clock types.Clock
	db    *bun.DB
}

// NewRepository constructs the default record store.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("records: db or repository required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*Record]{
			NewRecord: func() *Record { return &Record{} },
			GetID: func(rec *Record) uuid.UUID {
				if rec == nil {
					return uuid.Nil
				}
				return rec.ID
			},
			SetID: func(rec *Record, id uuid.UUID) {
				if rec != nil {
					rec.ID = id
				}
			},
		})
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	db := cfg.DB
	if db == nil {
		if withDB, ok := repo.(interface{ DB() *bun.DB }); ok {
			db = withDB.DB()
		}
	}
	return &Repository{store: repo, clock: clock, db: db}, nil
}

var (
	_ types.RecordStore               = (*Repository)(nil)
	_ types.InviteInventoryRepository = (*Repository)(nil)
)

// Create persists a new invitation record.
func (r *Repository) Create(ctx context.Context, record types.InvitationRecord) (*types.InvitationRecord, error) {
	if strings.TrimSpace(record.TokenHash) == "" {
		return nil, errors.New("records: token hash required")
	}
	rec := fromDomain(record)
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := r.clock.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	if strings.TrimSpace(rec.State) == "" {
		rec.State = string(types.InvitationStateCreated)
	}
	created, err := r.store.Create(ctx, rec)
	if err != nil {
		return nil, repository.MapDatabaseError(err, repository.DetectDriver(r.db))
	}
	return toDomain(created), nil
}

// GetByTokenHash returns the record matching the token hash.
func (r *Repository) GetByTokenHash(ctx context.Context, tokenHash string) (*types.InvitationRecord, error) {
	rec, err := r.store.Get(ctx, selectByHash(tokenHash))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, types.ErrRecordNotFound
		}
		return nil, err
	}
	return toDomain(rec), nil
}

// GetByID returns the record by primary key.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*types.InvitationRecord, error) {
	rec, err := r.store.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, types.ErrRecordNotFound
		}
		return nil, err
	}
	return toDomain(rec), nil
}

// RecordValidation counts a validation attempt and advances the record to
// validated in one guarded statement. The WHERE clause repeats the caller's
// state and attempt checks, so a concurrent consume, revoke, or burst of
// validations loses here rather than overshooting the limit.
func (r *Repository) RecordValidation(ctx context.Context, id uuid.UUID, stamp types.ValidationStamp) (*types.InvitationRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("records: db required for updates")
	}
	at := stamp.At
	if at.IsZero() {
		at = r.clock.Now()
	}
	q := r.db.NewUpdate().Model((*Record)(nil)).
		Set("validation_attempts = validation_attempts + 1").
		Set("validated_at = COALESCE(validated_at, ?)", at).
		Set("last_validation_at = ?", at).
		Set("state = ?", string(types.InvitationStateValidated)).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("state IN (?)", bun.In(stateStrings(append(types.PreValidationStates(), types.InvitationStateValidated)))).
		Where("expires_at > ?", at)
	if source := strings.TrimSpace(stamp.Source); source != "" {
		q = q.Set("last_validation_source = ?", source)
	}
	if stamp.MaxAttempts > 0 {
		q = q.Where("validation_attempts + 1 < ?", stamp.MaxAttempts)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return nil, repository.MapDatabaseError(err, repository.DetectDriver(r.db))
	}
	if err := repository.SQLExpectedCount(res, 1); err != nil {
		if repository.IsSQLExpectedCountViolation(err) {
			return nil, types.ErrRecordConflict
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// TransitionState moves the record to target if its current state is in
// from, stamping the timestamps that belong to the target.
func (r *Repository) TransitionState(ctx context.Context, id uuid.UUID, from []types.InvitationState, target types.InvitationState, stamp types.TransitionStamp) error {
	if r == nil || r.db == nil {
		return errors.New("records: db required for updates")
	}
	if len(from) == 0 {
		return types.ErrTransitionNotAllowed
	}
	at := stamp.At
	if at.IsZero() {
		at = r.clock.Now()
	}
	q := r.db.NewUpdate().Model((*Record)(nil)).
		Set("state = ?", string(target)).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("state IN (?)", bun.In(stateStrings(from)))
	switch target {
	case types.InvitationStateConsumed:
		q = q.Set("consumed_at = ?", at)
	case types.InvitationStateRevoked:
		q = q.Set("revoked_at = ?", at).
			Set("revoked_by = ?", strings.TrimSpace(stamp.RevokedBy)).
			Set("revocation_reason = ?", strings.TrimSpace(stamp.Reason))
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return repository.MapDatabaseError(err, repository.DetectDriver(r.db))
	}
	if err := repository.SQLExpectedCount(res, 1); err != nil {
		if repository.IsSQLExpectedCountViolation(err) {
			return types.ErrRecordConflict
		}
		return err
	}
	return nil
}

// Reissue swaps in a fresh token hash and issuance window on the same row,
// resetting the validation counters. A consumed record never reissues.
func (r *Repository) Reissue(ctx context.Context, id uuid.UUID, stamp types.ReissueStamp) (*types.InvitationRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("records: db required for updates")
	}
	if strings.TrimSpace(stamp.TokenHash) == "" {
		return nil, errors.New("records: token hash required")
	}
	now := r.clock.Now()
	q := r.db.NewUpdate().Model((*Record)(nil)).
		Set("token_hash = ?", stamp.TokenHash).
		Set("state = ?", string(types.InvitationStateCreated)).
		Set("issued_at = ?", stamp.IssuedAt).
		Set("expires_at = ?", stamp.ExpiresAt).
		Set("validation_attempts = 0").
		Set("validated_at = NULL").
		Set("last_validation_at = NULL").
		Set("last_validation_source = NULL").
		Set("revoked_at = NULL").
		Set("revoked_by = NULL").
		Set("revocation_reason = NULL").
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("state != ?", string(types.InvitationStateConsumed))
	if email := strings.TrimSpace(stamp.Email); email != "" {
		q = q.Set("email = ?", email)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return nil, repository.MapDatabaseError(err, repository.DetectDriver(r.db))
	}
	if err := repository.SQLExpectedCount(res, 1); err != nil {
		if repository.IsSQLExpectedCountViolation(err) {
			return nil, types.ErrRecordConflict
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// ExpireOverdue flips every overdue non-terminal record to expired and
// returns the number of rows affected. Used by the sweep command.
func (r *Repository) ExpireOverdue(ctx context.Context, cutoff time.Time) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("records: db required for updates")
	}
	open := []types.InvitationState{
		types.InvitationStateCreated,
		types.InvitationStateSent,
		types.InvitationStateDelivered,
		types.InvitationStateOpened,
		types.InvitationStateValidated,
	}
	res, err := r.db.NewUpdate().Model((*Record)(nil)).
		Set("state = ?", string(types.InvitationStateExpired)).
		Set("updated_at = ?", cutoff).
		Where("state IN (?)", bun.In(stateStrings(open))).
		Where("expires_at <= ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, repository.MapDatabaseError(err, repository.DetectDriver(r.db))
	}
	return res.RowsAffected()
}

// ListInvites returns a paginated inventory of invitation records, newest
// first, for admin surfaces.
func (r *Repository) ListInvites(ctx context.Context, filter types.InviteInventoryFilter) (types.InviteInventoryPage, error) {
	pagination := normalizePagination(filter.Pagination, 50, 200)
	criteria := []repository.SelectCriteria{
		func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.OrderExpr("created_at DESC").
				Limit(pagination.Limit).
				Offset(pagination.Offset)
			if len(filter.States) > 0 {
				q = q.Where("state IN (?)", bun.In(stateStrings(filter.States)))
			}
			if email := strings.TrimSpace(filter.Email); email != "" {
				q = q.Where("email = ?", email)
			}
			if filter.ExpiringBy != nil && !filter.ExpiringBy.IsZero() {
				q = q.Where("expires_at <= ?", filter.ExpiringBy)
			}
			return q
		},
	}

	rows, total, err := r.store.List(ctx, criteria...)
	if err != nil {
		return types.InviteInventoryPage{}, err
	}
	records := make([]types.InvitationRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, *toDomain(row))
	}
	return types.InviteInventoryPage{
		Records:    records,
		Total:      total,
		NextOffset: pagination.Offset + pagination.Limit,
		HasMore:    pagination.Offset+pagination.Limit < total,
	}, nil
}

func normalizePagination(p types.Pagination, def, max int) types.Pagination {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func selectByHash(tokenHash string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("token_hash = ?", strings.TrimSpace(tokenHash))
	}
}

func stateStrings(states []types.InvitationState) []string {
	out := make([]string, 0, len(states))
	for _, state := range states {
		out = append(out, string(state))
	}
	return out
}

func fromDomain(record types.InvitationRecord) *Record {
	return &Record{
		ID:                   record.ID,
		TokenHash:            record.TokenHash,
		State:                string(record.State),
		IssuedAt:             record.IssuedAt,
		ExpiresAt:            record.ExpiresAt,
		ValidatedAt:          timePtr(record.ValidatedAt),
		ConsumedAt:           timePtr(record.ConsumedAt),
		RevokedAt:            timePtr(record.RevokedAt),
		RevokedBy:            record.RevokedBy,
		RevocationReason:     record.RevocationReason,
		ValidationAttempts:   record.ValidationAttempts,
		LastValidationAt:     timePtr(record.LastValidationAt),
		LastValidationSource: record.LastValidationSource,
		Email:                record.Email,
		CompanyName:          record.CompanyName,
		ContactName:          record.ContactName,
		CreatedAt:            record.CreatedAt,
		UpdatedAt:            record.UpdatedAt,
	}
}

func toDomain(rec *Record) *types.InvitationRecord {
	if rec == nil {
		return nil
	}
	return &types.InvitationRecord{
		ID:                   rec.ID,
		TokenHash:            rec.TokenHash,
		State:                types.InvitationState(rec.State),
		IssuedAt:             rec.IssuedAt,
		ExpiresAt:            rec.ExpiresAt,
		ValidatedAt:          timeFromPtr(rec.ValidatedAt),
		ConsumedAt:           timeFromPtr(rec.ConsumedAt),
		RevokedAt:            timeFromPtr(rec.RevokedAt),
		RevokedBy:            rec.RevokedBy,
		RevocationReason:     rec.RevocationReason,
		ValidationAttempts:   rec.ValidationAttempts,
		LastValidationAt:     timeFromPtr(rec.LastValidationAt),
		LastValidationSource: rec.LastValidationSource,
		Email:                rec.Email,
		CompanyName:          rec.CompanyName,
		ContactName:          rec.ContactName,
		CreatedAt:            rec.CreatedAt,
		UpdatedAt:            rec.UpdatedAt,
	}
}

func timePtr(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	copy := value
	return &copy
}

func timeFromPtr(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return *value
}
