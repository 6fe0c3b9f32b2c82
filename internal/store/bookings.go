package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"meetloop/backend/internal/domain"
)

type BookingRepository interface {
	Create(ctx context.Context, b domain.Booking) (domain.Booking, error)
	// CreateBatch inserts a whole recurring series in one statement.
	// Either every row lands or none does.
	CreateBatch(ctx context.Context, bs []domain.Booking) ([]domain.Booking, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Booking, error)

	UpdateTimes(ctx context.Context, id uuid.UUID, start, end time.Time) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) error
	SetMeetingResult(ctx context.Context, id uuid.UUID, res domain.MeetingResult) error
	SetCalendarEventID(ctx context.Context, id uuid.UUID, eventID string) error

	// ListUpcomingStartingBetween returns upcoming bookings whose start
	// time falls in [from, to], ascending by start time.
	ListUpcomingStartingBetween(ctx context.Context, from, to time.Time) ([]domain.Booking, error)
	// ListUpcomingEndedBefore returns upcoming bookings that already
	// ended, candidates for auto-completion.
	ListUpcomingEndedBefore(ctx context.Context, cutoff time.Time) ([]domain.Booking, error)

	SetNotificationFlag(ctx context.Context, id uuid.UUID, lead string) error
	SetRecordingFlag(ctx context.Context, id uuid.UUID, trigger string) error
}
