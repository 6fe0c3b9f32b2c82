package bookings

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"meetloop/backend/internal/domain"
	"meetloop/backend/internal/store"
)

// LinkResolver mints or resolves a meeting link for one occurrence.
type LinkResolver interface {
	Resolve(ctx context.Context, b domain.Booking) (domain.MeetingResult, bool)
}

// CalendarSync mirrors a booking onto the external calendar.
type CalendarSync interface {
	CreateEvent(ctx context.Context, b domain.Booking) string
	UpdateEvent(ctx context.Context, b domain.Booking, timezoneOverride string)
	DeleteEvent(ctx context.Context, b domain.Booking)
}

// Service materializes bookings: expansion, link minting and calendar
// sync feed rows that are then persisted strictly.
type Service struct {
	repo     store.BookingRepository
	links    LinkResolver
	calendar CalendarSync
	log      *slog.Logger
}

func NewService(repo store.BookingRepository, links LinkResolver, calendar CalendarSync, log *slog.Logger) *Service {
	return &Service{repo: repo, links: links, calendar: calendar, log: log}
}

type RecurrenceInput struct {
	Type       domain.RecurrenceType
	Interval   int
	DaysOfWeek []int16
	DayOfMonth int
	EndType    domain.RecurrenceEndType
	Count      int
	EndDate    time.Time
}

func (r *RecurrenceInput) spec() domain.RecurrenceSpec {
	return domain.RecurrenceSpec{
		Type:       r.Type,
		Interval:   r.Interval,
		DaysOfWeek: r.DaysOfWeek,
		DayOfMonth: r.DayOfMonth,
		EndType:    r.EndType,
		Count:      r.Count,
		EndDate:    r.EndDate,
	}
}

type CreateInput struct {
	TenantID    string
	ActorID     string
	HostID      string
	HostEmail   string
	MemberEmail string
	GuestEmail  string
	Title       string
	Description string
	Timezone    string
	MeetingType domain.MeetingType
	StartTime   time.Time
	EndTime     time.Time
	// Stored configuration for manual_link / physical types.
	MeetingURL string
	Location   string

	EnableRecording bool
	Recurrence      *RecurrenceInput
}

// Create persists one booking, or a whole recurring series when a
// recurrence rule is supplied. Link and calendar enrichment is best
// effort; the persistence write is not.
func (s *Service) Create(ctx context.Context, in CreateInput) ([]domain.Booking, error) {
	template, err := s.buildTemplate(in)
	if err != nil {
		return nil, err
	}

	if in.Recurrence == nil {
		b := s.materialize(ctx, template)
		created, err := s.repo.Create(ctx, b)
		if err != nil {
			return nil, err
		}
		return []domain.Booking{created}, nil
	}

	anchor := domain.Occurrence{Start: template.StartTime, End: template.EndTime}
	occs, err := domain.Expand(anchor, in.Recurrence.spec())
	if err != nil {
		return nil, validationError(err.Error())
	}

	groupID, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	// Occurrences are processed one at a time on purpose: provider rate
	// limits over latency.
	rows := make([]domain.Booking, 0, len(occs))
	for i, occ := range occs {
		b := template
		b.StartTime = occ.Start
		b.EndTime = occ.End
		b.RecurrenceGroupID = &groupID
		index := i
		b.RecurrenceIndex = &index

		rows = append(rows, s.materialize(ctx, b))
	}

	// One batch write: either the whole series lands or none of it.
	return s.repo.CreateBatch(ctx, rows)
}

// materialize enriches one row with a link and a calendar event. Both
// steps degrade to empty values on provider failure.
func (s *Service) materialize(ctx context.Context, b domain.Booking) domain.Booking {
	if res, ok := s.links.Resolve(ctx, b); ok {
		b.MeetingURL = res.MeetingURL
		b.MeetingID = res.MeetingID
		b.HostURL = res.HostURL
		b.Password = res.Password
	} else if b.MeetingType.RequiresGeneration() {
		b.MeetingURL = ""
	}
	b.EventID = s.calendar.CreateEvent(ctx, b)
	return b
}

func (s *Service) buildTemplate(in CreateInput) (domain.Booking, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Booking{}, validationError("title is required")
	}
	if in.TenantID == "" {
		return domain.Booking{}, validationError("tenant_id is required")
	}
	if in.HostID == "" {
		return domain.Booking{}, validationError("host_id is required")
	}

	switch in.MeetingType {
	case domain.MeetingTypeZoom, domain.MeetingTypeGoogleMeet:
	case domain.MeetingTypeManualLink:
		if strings.TrimSpace(in.MeetingURL) == "" {
			return domain.Booking{}, validationError("meeting_url is required for manual links")
		}
	case domain.MeetingTypePhysical:
		if strings.TrimSpace(in.Location) == "" {
			return domain.Booking{}, validationError("location is required for physical meetings")
		}
	default:
		return domain.Booking{}, validationError("unsupported meeting type")
	}

	tz := strings.TrimSpace(in.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return domain.Booking{}, validationError("invalid timezone")
	}

	start := in.StartTime.UTC()
	end := in.EndTime.UTC()
	if end.Equal(start) || end.Before(start) {
		return domain.Booking{}, validationError("end_time must be after start_time")
	}
	if end.Sub(start) > 24*time.Hour {
		return domain.Booking{}, validationError("duration too long")
	}

	return domain.Booking{
		TenantID:    in.TenantID,
		HostID:      in.HostID,
		HostEmail:   in.HostEmail,
		MemberEmail: in.MemberEmail,
		GuestEmail:  in.GuestEmail,
		Title:       title,
		Description: in.Description,
		Timezone:    tz,
		MeetingType: in.MeetingType,
		Status:      domain.BookingStatusUpcoming,
		StartTime:   start,
		EndTime:     end,
		MeetingURL:  strings.TrimSpace(in.MeetingURL),
		Location:    strings.TrimSpace(in.Location),
		RecordingOn: in.EnableRecording,
	}, nil
}

// Reschedule moves a booking and pushes the change to its calendar
// event by stored id, never creating a duplicate. The optional timezone
// override applies to the calendar call only.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, start, end time.Time, timezoneOverride string) (domain.Booking, error) {
	start = start.UTC()
	end = end.UTC()
	if end.Equal(start) || end.Before(start) {
		return domain.Booking{}, validationError("end_time must be after start_time")
	}

	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}

	if err := s.repo.UpdateTimes(ctx, id, start, end); err != nil {
		return domain.Booking{}, err
	}

	b.StartTime = start
	b.EndTime = end
	s.calendar.UpdateEvent(ctx, b, timezoneOverride)

	return b, nil
}

// Cancel marks the booking cancelled and removes its calendar event
// best effort.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, domain.BookingStatusCancelled); err != nil {
		return err
	}
	s.calendar.DeleteEvent(ctx, b)
	return nil
}

// Complete marks the booking completed and returns it so the caller can
// chase recordings.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if err := s.repo.UpdateStatus(ctx, id, domain.BookingStatusCompleted); err != nil {
		return domain.Booking{}, err
	}
	b.Status = domain.BookingStatusCompleted
	return b, nil
}

// CompleteEnded flips upcoming bookings that already ended to completed
// and returns them. One booking's failure never aborts the pass.
func (s *Service) CompleteEnded(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	rows, err := s.repo.ListUpcomingEndedBefore(ctx, now.UTC())
	if err != nil {
		return nil, err
	}

	out := make([]domain.Booking, 0, len(rows))
	for _, b := range rows {
		if err := s.repo.UpdateStatus(ctx, b.ID, domain.BookingStatusCompleted); err != nil {
			s.log.Error("auto-complete failed",
				slog.String("booking_id", b.ID.String()),
				slog.Any("err", err))
			continue
		}
		b.Status = domain.BookingStatusCompleted
		out = append(out, b)
	}
	return out, nil
}

// BusyTimes projects upcoming bookings onto bare (start, end) pairs for
// availability display. Titles and details stay private.
func (s *Service) BusyTimes(ctx context.Context, from, to time.Time) ([]domain.Occurrence, error) {
	if !to.After(from) {
		return nil, validationError("window end must be after window start")
	}
	rows, err := s.repo.ListUpcomingStartingBetween(ctx, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	out := make([]domain.Occurrence, 0, len(rows))
	for _, b := range rows {
		out = append(out, domain.Occurrence{Start: b.StartTime, End: b.EndTime})
	}
	return out, nil
}

// PreviewOccurrences expands a proposed booking onto [from, to) without
// persisting anything, so callers can show where a series would land
// before confirming it. Validation matches Create.
func (s *Service) PreviewOccurrences(in CreateInput, from, to time.Time) ([]domain.Occurrence, error) {
	if !to.After(from) {
		return nil, validationError("window end must be after window start")
	}
	template, err := s.buildTemplate(in)
	if err != nil {
		return nil, err
	}

	anchor := domain.Occurrence{Start: template.StartTime, End: template.EndTime}
	if in.Recurrence == nil {
		if anchor.Start.Before(to.UTC()) && anchor.End.After(from.UTC()) {
			return []domain.Occurrence{anchor}, nil
		}
		return nil, nil
	}

	occs, err := domain.ExpandWithin(anchor, in.Recurrence.spec(), from.UTC(), to.UTC())
	if err != nil {
		return nil, validationError(err.Error())
	}
	return occs, nil
}
