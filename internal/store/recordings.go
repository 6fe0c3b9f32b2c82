package store

import (
	"context"

	"github.com/google/uuid"

	"meetloop/backend/internal/domain"
)

type RecordingRepository interface {
	// Upsert inserts or refreshes the row identified by
	// (provider, external_id), keeping one row per recording no matter
	// how many triggers re-fetch it.
	Upsert(ctx context.Context, rec domain.Recording) (domain.Recording, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.Recording, error)
}
