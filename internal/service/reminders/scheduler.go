// Package reminders implements the time-window reminder pass. Each pass
// is stateless: it matches "now" against lead-time windows over upcoming
// bookings and fires each (booking, lead) pair at most once, tracked by a
// persisted flag.
package reminders

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"meetloop/backend/internal/domain"
	"meetloop/backend/internal/store"
)

// Notifier performs the reminder side effect.
type Notifier interface {
	SendReminder(ctx context.Context, b domain.Booking, lead Lead) error
}

// Lead is one configured lead time, keyed by its label in the booking's
// flag map (e.g. "24h").
type Lead struct {
	Label  string
	Offset time.Duration
}

// DefaultLeads matches the stock reminder ladder.
var DefaultLeads = []Lead{
	{Label: "24h", Offset: 24 * time.Hour},
	{Label: "2h", Offset: 2 * time.Hour},
	{Label: "30m", Offset: 30 * time.Minute},
}

type Scheduler struct {
	repo     store.BookingRepository
	notifier Notifier
	leads    []Lead
	// buffer compensates for trigger jitter; it derives from the tick
	// cadence, so a cadence change recomputes the window.
	buffer time.Duration
	log    *slog.Logger
}

func NewScheduler(repo store.BookingRepository, notifier Notifier, leads []Lead, tickInterval time.Duration, log *slog.Logger) *Scheduler {
	if len(leads) == 0 {
		leads = DefaultLeads
	}
	buffer := tickInterval
	if buffer <= 0 {
		buffer = time.Minute
	}
	return &Scheduler{
		repo:     repo,
		notifier: notifier,
		leads:    leads,
		buffer:   buffer,
		log:      log,
	}
}

// Run executes one pass at the given instant. Per-booking failures are
// logged and skipped, and a failed lead query does not stop the remaining
// leads; their errors are joined and reported once the pass is over.
//
// Two overlapping passes can both see an unset flag and double fire;
// that race is accepted in exchange for lock-free flags.
func (s *Scheduler) Run(ctx context.Context, now time.Time) error {
	now = now.UTC()
	var errs []error
	for _, lead := range s.leads {
		if err := s.runLead(ctx, now, lead); err != nil {
			s.log.Error("reminder lead pass failed",
				slog.String("lead", lead.Label),
				slog.Any("err", err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) runLead(ctx context.Context, now time.Time, lead Lead) error {
	// A booking qualifies when its start sits inside
	// [now + offset - buffer, now + offset + buffer].
	from := now.Add(lead.Offset - s.buffer)
	to := now.Add(lead.Offset + s.buffer)

	rows, err := s.repo.ListUpcomingStartingBetween(ctx, from, to)
	if err != nil {
		return err
	}

	for _, b := range rows {
		if b.StartTime.IsZero() || b.NotificationSent[lead.Label] {
			continue
		}

		// The flag flips even when the send partially failed:
		// at-most-once beats exactly-once here.
		if err := s.notifier.SendReminder(ctx, b, lead); err != nil {
			s.log.Error("reminder send failed",
				slog.String("booking_id", b.ID.String()),
				slog.String("lead", lead.Label),
				slog.Any("err", err))
		}
		if err := s.repo.SetNotificationFlag(ctx, b.ID, lead.Label); err != nil {
			s.log.Error("notification flag write failed",
				slog.String("booking_id", b.ID.String()),
				slog.String("lead", lead.Label),
				slog.Any("err", err))
		}
	}
	return nil
}

// LogNotifier is the default reminder sink: it records the reminder in
// the structured log. Real delivery (mail, push) is a collaborator
// outside this engine.
type LogNotifier struct {
	Log *slog.Logger
}

func (n *LogNotifier) SendReminder(ctx context.Context, b domain.Booking, lead Lead) error {
	n.Log.Info("reminder fired",
		slog.String("booking_id", b.ID.String()),
		slog.String("lead", lead.Label),
		slog.Time("start_time", b.StartTime),
		slog.String("title", b.Title))
	return nil
}
