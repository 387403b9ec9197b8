package enquiry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crm-service/internal/metrics"

	"github.com/uptrace/bun"
)

var (
	ErrNotFound       = errors.New("enquiry not found")
	ErrAlreadyClaimed = errors.New("enquiry already claimed")
)

type Repository interface {
	Create(ctx context.Context, enquiry *Enquiry) (*Enquiry, error)
	GetByID(ctx context.Context, id int) (*Enquiry, error)
	ListUnclaimed(ctx context.Context) ([]Enquiry, error)
	ListClaimedBy(ctx context.Context, counselorID int) ([]Enquiry, error)
	Claim(ctx context.Context, id, counselorID int) (*Enquiry, error)
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

func (r *repository) Create(ctx context.Context, enquiry *Enquiry) (*Enquiry, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(enquiry).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "enquiries", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return enquiry, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Enquiry, error) {
	start := time.Now()
	enquiry := new(Enquiry)
	err := r.db.NewSelect().
		Model(enquiry).
		Relation("Counselor").
		Where("e.id = ?", id).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "enquiries", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return enquiry, nil
}

// ListUnclaimed returns the shared lead pool, most recent first. The slice is
// never nil so empty pools serialize as [].
func (r *repository) ListUnclaimed(ctx context.Context) ([]Enquiry, error) {
	start := time.Now()
	enquiries := make([]Enquiry, 0)
	err := r.db.NewSelect().
		Model(&enquiries).
		Where("claimed = FALSE").
		Order("created_at DESC").
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "enquiries", time.Since(start), err)

	return enquiries, err
}

// ListClaimedBy returns the leads owned by one counselor, most recent first.
func (r *repository) ListClaimedBy(ctx context.Context, counselorID int) ([]Enquiry, error) {
	start := time.Now()
	enquiries := make([]Enquiry, 0)
	err := r.db.NewSelect().
		Model(&enquiries).
		Relation("Counselor").
		Where("claimed = TRUE").
		Where("counselor_id = ?", counselorID).
		Order("e.created_at DESC").
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "enquiries", time.Since(start), err)

	return enquiries, err
}

// Claim assigns the enquiry to the counselor with a single conditional
// UPDATE. The WHERE clause requires claimed = FALSE, so the database row is
// the serialization point: of any number of concurrent claim attempts,
// exactly one statement affects a row. A read-then-check-then-write sequence
// here would let two callers pass the check before either writes.
//
// On conflict the current record (with its owner) is returned alongside
// ErrAlreadyClaimed so the caller can see who won.
func (r *repository) Claim(ctx context.Context, id, counselorID int) (*Enquiry, error) {
	start := time.Now()
	res, err := r.db.NewUpdate().
		Model((*Enquiry)(nil)).
		Set("claimed = TRUE").
		Set("counselor_id = ?", counselorID).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("claimed = FALSE").
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "enquiries", time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("claim enquiry: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		// Either the enquiry does not exist or it was already claimed;
		// re-read to distinguish.
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return current, ErrAlreadyClaimed
	}

	// Sole winner; re-read with owner details resolved.
	return r.GetByID(ctx, id)
}
