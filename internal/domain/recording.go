package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RecordingStatus string

const (
	RecordingStatusProcessing RecordingStatus = "processing"
	RecordingStatusAvailable  RecordingStatus = "available"
	RecordingStatusFailed     RecordingStatus = "failed"
	RecordingStatusDeleted    RecordingStatus = "deleted"
)

// Recording is one recording file located at a provider, identified
// uniquely by (provider, external_id). Re-fetching the same id refreshes
// the row in place instead of duplicating it.
type Recording struct {
	bun.BaseModel `bun:"table:recordings"`

	ID                uuid.UUID       `bun:"id,pk,type:uuid"`
	BookingID         uuid.UUID       `bun:"booking_id,notnull,type:uuid"`
	Provider          string          `bun:"provider,notnull"`
	ExternalID        string          `bun:"external_id,notnull"`
	URL               string          `bun:"url"`
	DownloadURL       string          `bun:"download_url"`
	DownloadExpiresAt *time.Time      `bun:"download_expires_at"`
	FileType          string          `bun:"file_type"`
	FileSize          int64           `bun:"file_size"`
	Status            RecordingStatus `bun:"status,notnull"`
	CreatedAt         time.Time       `bun:"created_at,notnull"`
	UpdatedAt         time.Time       `bun:"updated_at,notnull"`
}

func (r *Recording) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if r.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			r.ID = id
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		r.UpdatedAt = now
	}
	return nil
}
