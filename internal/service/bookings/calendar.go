package bookings

import (
	"context"
	"log/slog"

	"meetloop/backend/internal/domain"
	"meetloop/backend/internal/provider"
)

// CalendarSyncer mirrors bookings onto the external calendar. Every
// operation is best effort: provider failures are logged and the booking
// mutation that triggered the sync completes regardless, so booking and
// calendar state may diverge transiently. There is no compensating
// transaction.
type CalendarSyncer struct {
	registry provider.Registry
	creds    *CredentialResolver
	log      *slog.Logger

	// calendarProvider is the integration holding the external
	// calendar, independent of which provider minted the meeting link.
	calendarProvider string
}

func NewCalendarSyncer(registry provider.Registry, creds *CredentialResolver, log *slog.Logger) *CalendarSyncer {
	return &CalendarSyncer{
		registry:         registry,
		creds:            creds,
		log:              log,
		calendarProvider: "google",
	}
}

// CreateEvent creates one calendar event for the booking and returns its
// id, or "" when the sync could not happen. Meet bookings already carry
// their own event (the one holding the conference data), so that id is
// reused instead of creating a duplicate.
func (s *CalendarSyncer) CreateEvent(ctx context.Context, b domain.Booking) string {
	if b.MeetingType == domain.MeetingTypeGoogleMeet && b.MeetingID != "" {
		return b.MeetingID
	}

	eventID, err := s.withCalendar(ctx, b.TenantID, b.HostID, func(ctx context.Context, integ provider.Integration, token string) (string, error) {
		return integ.CreateEvent(ctx, token, eventDetails(b, ""))
	})
	if err != nil {
		s.log.Error("calendar event create failed, booking proceeds without event",
			slog.String("tenant_id", b.TenantID),
			slog.Any("err", err))
		return ""
	}
	return eventID
}

// UpdateEvent pushes new times/title to the stored event id. A supplied
// timezone overrides the stored one for this call only. Never creates.
func (s *CalendarSyncer) UpdateEvent(ctx context.Context, b domain.Booking, timezoneOverride string) {
	if b.EventID == "" {
		return
	}
	_, err := s.withCalendar(ctx, b.TenantID, b.HostID, func(ctx context.Context, integ provider.Integration, token string) (string, error) {
		return "", integ.UpdateEvent(ctx, token, b.EventID, eventDetails(b, timezoneOverride))
	})
	if err != nil {
		s.log.Error("calendar event update failed",
			slog.String("event_id", b.EventID),
			slog.String("tenant_id", b.TenantID),
			slog.Any("err", err))
	}
}

// DeleteEvent removes the stored event. Missing event id or missing
// connection is a no-op, not an error.
func (s *CalendarSyncer) DeleteEvent(ctx context.Context, b domain.Booking) {
	if b.EventID == "" {
		return
	}
	_, err := s.withCalendar(ctx, b.TenantID, b.HostID, func(ctx context.Context, integ provider.Integration, token string) (string, error) {
		return "", integ.DeleteEvent(ctx, token, b.EventID)
	})
	if err != nil {
		if provider.CodeOf(err) == provider.CodeNoConnection {
			return
		}
		s.log.Error("calendar event delete failed",
			slog.String("event_id", b.EventID),
			slog.String("tenant_id", b.TenantID),
			slog.Any("err", err))
	}
}

func (s *CalendarSyncer) withCalendar(ctx context.Context, tenantID, actorID string, fn func(ctx context.Context, integ provider.Integration, token string) (string, error)) (string, error) {
	integ, err := s.registry.Lookup(s.calendarProvider)
	if err != nil {
		return "", err
	}
	token, err := s.creds.AccessToken(ctx, tenantID, actorID, s.calendarProvider)
	if err != nil {
		return "", err
	}
	return fn(ctx, integ, token)
}

func eventDetails(b domain.Booking, timezoneOverride string) provider.EventDetails {
	tz := b.Timezone
	if timezoneOverride != "" {
		tz = timezoneOverride
	}
	return provider.EventDetails{
		Title:       b.Title,
		Description: b.Description,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		Timezone:    tz,
		Attendees:   b.Attendees(),
	}
}
