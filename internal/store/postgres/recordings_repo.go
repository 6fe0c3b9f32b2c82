package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"meetloop/backend/internal/domain"
)

type RecordingRepo struct {
	db *bun.DB
}

func NewRecordingRepo(db *bun.DB) *RecordingRepo {
	return &RecordingRepo{db: db}
}

// Upsert keeps one row per (provider, external_id): re-fetching refreshes
// metadata and any expiring download URL in place.
func (r *RecordingRepo) Upsert(ctx context.Context, rec domain.Recording) (domain.Recording, error) {
	_, err := r.db.NewInsert().
		Model(&rec).
		On("CONFLICT (provider, external_id) DO UPDATE").
		Set("url = EXCLUDED.url").
		Set("download_url = EXCLUDED.download_url").
		Set("download_expires_at = EXCLUDED.download_expires_at").
		Set("file_type = EXCLUDED.file_type").
		Set("file_size = EXCLUDED.file_size").
		Set("status = EXCLUDED.status").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return domain.Recording{}, err
	}
	return rec, nil
}

func (r *RecordingRepo) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.Recording, error) {
	var rows []domain.Recording
	err := r.db.NewSelect().
		Model(&rows).
		Where("booking_id = ?", bookingID).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
