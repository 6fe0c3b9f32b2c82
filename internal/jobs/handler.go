package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"meetloop/backend/internal/domain"
	"meetloop/backend/internal/service/recordings"
	"meetloop/backend/internal/store"
)

// ReminderRunner executes one reminder pass.
type ReminderRunner interface {
	Run(ctx context.Context, now time.Time) error
}

// Completer flips ended bookings to completed.
type Completer interface {
	CompleteEnded(ctx context.Context, now time.Time) ([]domain.Booking, error)
}

// RecordingFetcher chases recordings for one booking.
type RecordingFetcher interface {
	FetchForBooking(ctx context.Context, b domain.Booking, trigger string) (int, error)
}

// Enqueuer schedules follow-up recording fetches.
type Enqueuer interface {
	EnqueueRecordingFetch(ctx context.Context, bookingID uuid.UUID, trigger string, delay time.Duration) error
}

// Handler processes engine tasks. Per-item failures inside a batch task
// are logged and skipped; the batch itself never fails for one item.
type Handler struct {
	reminders  ReminderRunner
	completer  Completer
	fetcher    RecordingFetcher
	bookings   store.BookingRepository
	enqueuer   Enqueuer
	retryDelay time.Duration
	log        *slog.Logger
}

func NewHandler(
	reminders ReminderRunner,
	completer Completer,
	fetcher RecordingFetcher,
	bookings store.BookingRepository,
	enqueuer Enqueuer,
	retryDelay time.Duration,
	log *slog.Logger,
) *Handler {
	if retryDelay <= 0 {
		retryDelay = 15 * time.Minute
	}
	return &Handler{
		reminders:  reminders,
		completer:  completer,
		fetcher:    fetcher,
		bookings:   bookings,
		enqueuer:   enqueuer,
		retryDelay: retryDelay,
		log:        log,
	}
}

func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeReminderTick, h.processReminderTick)
	mux.HandleFunc(TypeBookingAutoComplete, h.processAutoComplete)
	mux.HandleFunc(TypeRecordingFetch, h.processRecordingFetch)
}

func (h *Handler) processReminderTick(ctx context.Context, task *asynq.Task) error {
	return h.reminders.Run(ctx, time.Now())
}

func (h *Handler) processAutoComplete(ctx context.Context, task *asynq.Task) error {
	completed, err := h.completer.CompleteEnded(ctx, time.Now())
	if err != nil {
		return err
	}

	for _, b := range completed {
		if _, err := h.fetcher.FetchForBooking(ctx, b, recordings.TriggerAuto); err != nil {
			h.log.Error("recording fetch on auto-complete failed",
				slog.String("booking_id", b.ID.String()),
				slog.Any("err", err))
		}
		// A delayed retry covers recordings still processing at the
		// provider when the meeting ends.
		if err := h.enqueuer.EnqueueRecordingFetch(ctx, b.ID, recordings.TriggerDelayed, h.retryDelay); err != nil {
			h.log.Error("delayed recording fetch enqueue failed",
				slog.String("booking_id", b.ID.String()),
				slog.Any("err", err))
		}
	}
	return nil
}

func (h *Handler) processRecordingFetch(ctx context.Context, task *asynq.Task) error {
	var payload RecordingFetchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("recording fetch payload: %w", err)
	}

	b, err := h.bookings.Get(ctx, payload.BookingID)
	if err != nil {
		h.log.Warn("recording fetch for unknown booking",
			slog.String("booking_id", payload.BookingID.String()),
			slog.Any("err", err))
		return nil
	}
	if b.Status != domain.BookingStatusCompleted {
		return nil
	}

	if _, err := h.fetcher.FetchForBooking(ctx, b, payload.Trigger); err != nil {
		h.log.Error("recording fetch failed",
			slog.String("booking_id", b.ID.String()),
			slog.String("trigger", payload.Trigger),
			slog.Any("err", err))
	}
	return nil
}
