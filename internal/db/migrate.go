package db

import (
	"context"
	"fmt"
	"log/slog"

	"crm-service/internal/counselor"
	"crm-service/internal/enquiry"

	"github.com/uptrace/bun"
)

// Migrate creates the counselors and enquiries tables and the indexes the
// claim workflow depends on. Counselors must exist first so enquiries can
// reference it. The UNIQUE constraint on counselors.email and the FK with
// ON DELETE SET NULL come from the model tags and the CreateTable query.
func Migrate(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().
		Model((*counselor.Counselor)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create counselors table: %w", err)
	}

	if _, err := db.NewCreateTable().
		Model((*enquiry.Enquiry)(nil)).
		IfNotExists().
		ForeignKey(`("counselor_id") REFERENCES "counselors" ("id") ON DELETE SET NULL`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create enquiries table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_enquiries_claimed ON enquiries (claimed)`,
		`CREATE INDEX IF NOT EXISTS idx_enquiries_counselor_id ON enquiries (counselor_id)`,
	}
	for _, ddl := range indexes {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	slog.Info("database migrations completed successfully")
	return nil
}
