package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingStatusUpcoming  BookingStatus = "upcoming"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type MeetingType string

const (
	MeetingTypeZoom       MeetingType = "zoom"
	MeetingTypeGoogleMeet MeetingType = "google_meet"
	MeetingTypeManualLink MeetingType = "manual_link"
	MeetingTypePhysical   MeetingType = "physical"
)

// RequiresGeneration reports whether the meeting type needs a provider
// call to mint a link, as opposed to reading stored configuration.
func (t MeetingType) RequiresGeneration() bool {
	return t == MeetingTypeZoom || t == MeetingTypeGoogleMeet
}

// MeetingResult is what a provider hands back for a minted meeting.
type MeetingResult struct {
	MeetingURL string
	MeetingID  string
	Provider   string
	HostURL    string
	Password   string
}

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID          uuid.UUID     `bun:"id,pk,type:uuid"`
	TenantID    string        `bun:"tenant_id,notnull"`
	HostID      string        `bun:"host_id,notnull"`
	HostEmail   string        `bun:"host_email"`
	MemberEmail string        `bun:"member_email"`
	GuestEmail  string        `bun:"guest_email"`
	Title       string        `bun:"title,notnull"`
	Description string        `bun:"description"`
	Timezone    string        `bun:"timezone,notnull"`
	MeetingType MeetingType   `bun:"meeting_type,notnull"`
	Status      BookingStatus `bun:"status,notnull"`
	StartTime   time.Time     `bun:"start_time,notnull"`
	EndTime     time.Time     `bun:"end_time,notnull"`
	Location    string        `bun:"location"`
	MeetingURL  string        `bun:"meeting_url"`
	MeetingID   string        `bun:"meeting_id"`
	HostURL     string        `bun:"host_url"`
	Password    string        `bun:"meeting_password"`
	EventID     string        `bun:"calendar_event_id"`
	RecordingOn bool          `bun:"recording_enabled"`

	RecurrenceGroupID *uuid.UUID `bun:"recurrence_group_id,type:uuid"`
	RecurrenceIndex   *int       `bun:"recurrence_index"`

	// Monotonic at-most-once flags: once a key is true it never resets.
	NotificationSent map[string]bool `bun:"notification_sent,type:jsonb"`
	RecordingFetched map[string]bool `bun:"recording_fetched,type:jsonb"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}

// Attendees collects the emails a minted meeting should invite: the
// registered member or the guest, plus the host.
func (b *Booking) Attendees() []string {
	out := make([]string, 0, 2)
	if b.MemberEmail != "" {
		out = append(out, b.MemberEmail)
	} else if b.GuestEmail != "" {
		out = append(out, b.GuestEmail)
	}
	if b.HostEmail != "" {
		out = append(out, b.HostEmail)
	}
	return out
}
