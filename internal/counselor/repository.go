package counselor

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"crm-service/internal/metrics"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	ErrNotFound    = errors.New("counselor not found")
	ErrEmailExists = errors.New("email address already registered")
)

type Repository interface {
	Create(ctx context.Context, counselor *Counselor) (*Counselor, error)
	GetByID(ctx context.Context, id int) (*Counselor, error)
	GetByEmail(ctx context.Context, email string) (*Counselor, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{
		db:      db,
		metrics: m,
	}
}

// Create inserts a new counselor. Duplicate emails are rejected by the
// UNIQUE constraint on the email column, so two concurrent registrations
// with the same address cannot both succeed.
func (r *repository) Create(ctx context.Context, counselor *Counselor) (*Counselor, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(counselor).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "counselors", time.Since(start), err)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return counselor, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Counselor, error) {
	start := time.Now()
	counselor := new(Counselor)
	err := r.db.NewSelect().Model(counselor).Where("id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "counselors", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return counselor, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Counselor, error) {
	start := time.Now()
	counselor := new(Counselor)
	err := r.db.NewSelect().
		Model(counselor).
		Where("email = ?", email).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "counselors", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return counselor, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}
