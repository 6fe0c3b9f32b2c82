package recordings

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"meetloop/backend/internal/domain"
	"meetloop/backend/internal/provider"
)

type fakeRecordingRepo struct {
	upsertFn func(ctx context.Context, rec domain.Recording) (domain.Recording, error)
}

func (f *fakeRecordingRepo) Upsert(ctx context.Context, rec domain.Recording) (domain.Recording, error) {
	if f.upsertFn == nil {
		panic("Upsert not configured")
	}
	return f.upsertFn(ctx, rec)
}

func (f *fakeRecordingRepo) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.Recording, error) {
	panic("ListByBooking not configured")
}

type fakeBookingRepo struct {
	setRecFlagFn func(ctx context.Context, id uuid.UUID, trigger string) error
}

func (f *fakeBookingRepo) Create(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	panic("Create not configured")
}

func (f *fakeBookingRepo) CreateBatch(ctx context.Context, bs []domain.Booking) ([]domain.Booking, error) {
	panic("CreateBatch not configured")
}

func (f *fakeBookingRepo) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	panic("Get not configured")
}

func (f *fakeBookingRepo) UpdateTimes(ctx context.Context, id uuid.UUID, start, end time.Time) error {
	panic("UpdateTimes not configured")
}

func (f *fakeBookingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) error {
	panic("UpdateStatus not configured")
}

func (f *fakeBookingRepo) SetMeetingResult(ctx context.Context, id uuid.UUID, res domain.MeetingResult) error {
	panic("SetMeetingResult not configured")
}

func (f *fakeBookingRepo) SetCalendarEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	panic("SetCalendarEventID not configured")
}

func (f *fakeBookingRepo) ListUpcomingStartingBetween(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
	panic("ListUpcomingStartingBetween not configured")
}

func (f *fakeBookingRepo) ListUpcomingEndedBefore(ctx context.Context, cutoff time.Time) ([]domain.Booking, error) {
	panic("ListUpcomingEndedBefore not configured")
}

func (f *fakeBookingRepo) SetNotificationFlag(ctx context.Context, id uuid.UUID, lead string) error {
	panic("SetNotificationFlag not configured")
}

func (f *fakeBookingRepo) SetRecordingFlag(ctx context.Context, id uuid.UUID, trigger string) error {
	if f.setRecFlagFn == nil {
		panic("SetRecordingFlag not configured")
	}
	return f.setRecFlagFn(ctx, id, trigger)
}

type fakeIntegration struct {
	name             string
	listRecordingsFn func(ctx context.Context, accessToken, meetingRef string) ([]provider.RecordingFile, error)
}

func (f *fakeIntegration) Name() string { return f.name }

func (f *fakeIntegration) CreateMeeting(ctx context.Context, accessToken string, details provider.MeetingDetails) (domain.MeetingResult, error) {
	panic("CreateMeeting not configured")
}

func (f *fakeIntegration) CreateEvent(ctx context.Context, accessToken string, details provider.EventDetails) (string, error) {
	panic("CreateEvent not configured")
}

func (f *fakeIntegration) UpdateEvent(ctx context.Context, accessToken, eventID string, details provider.EventDetails) error {
	panic("UpdateEvent not configured")
}

func (f *fakeIntegration) DeleteEvent(ctx context.Context, accessToken, eventID string) error {
	panic("DeleteEvent not configured")
}

func (f *fakeIntegration) ListRecordings(ctx context.Context, accessToken, meetingRef string) ([]provider.RecordingFile, error) {
	if f.listRecordingsFn == nil {
		panic("ListRecordings not configured")
	}
	return f.listRecordingsFn(ctx, accessToken, meetingRef)
}

type staticTokens string

func (t staticTokens) AccessToken(ctx context.Context, tenantID, actorID, providerName string) (string, error) {
	return string(t), nil
}

type failingTokens struct{ err error }

func (t failingTokens) AccessToken(ctx context.Context, tenantID, actorID, providerName string) (string, error) {
	return "", t.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func zoomBooking() domain.Booking {
	return domain.Booking{
		ID:          uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		TenantID:    "t1",
		HostID:      "h1",
		MeetingType: domain.MeetingTypeZoom,
		MeetingURL:  "https://zoom.us/j/987654321",
		Status:      domain.BookingStatusCompleted,
	}
}

func TestMeetingSignature(t *testing.T) {
	tests := []struct {
		name         string
		booking      domain.Booking
		wantProvider string
		wantRef      string
		wantOK       bool
	}{
		{
			name:         "zoom join url",
			booking:      domain.Booking{MeetingType: domain.MeetingTypeZoom, MeetingURL: "https://us02web.zoom.us/j/123456"},
			wantProvider: "zoom",
			wantRef:      "123456",
			wantOK:       true,
		},
		{
			name:         "meet link",
			booking:      domain.Booking{MeetingType: domain.MeetingTypeGoogleMeet, MeetingURL: "https://meet.google.com/abc-defg-hij"},
			wantProvider: "google",
			wantRef:      "abc-defg-hij",
			wantOK:       true,
		},
		{
			name:    "type and url disagree",
			booking: domain.Booking{MeetingType: domain.MeetingTypeZoom, MeetingURL: "https://meet.google.com/abc-defg-hij"},
			wantOK:  false,
		},
		{
			name:    "manual link",
			booking: domain.Booking{MeetingType: domain.MeetingTypeManualLink, MeetingURL: "https://example.com/room"},
			wantOK:  false,
		},
		{
			name:    "no url",
			booking: domain.Booking{MeetingType: domain.MeetingTypeZoom},
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providerName, ref, ok := meetingSignature(tt.booking)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if providerName != tt.wantProvider || ref != tt.wantRef {
				t.Fatalf("signature = (%q, %q), want (%q, %q)", providerName, ref, tt.wantProvider, tt.wantRef)
			}
		})
	}
}

func TestFetchForBooking_NotReadyLeavesFlagsUnset(t *testing.T) {
	registry := provider.Registry{
		"zoom": &fakeIntegration{
			name: "zoom",
			listRecordingsFn: func(ctx context.Context, accessToken, meetingRef string) ([]provider.RecordingFile, error) {
				return nil, provider.ErrNotReady
			},
		},
	}
	bookings := &fakeBookingRepo{
		setRecFlagFn: func(ctx context.Context, id uuid.UUID, trigger string) error {
			t.Fatalf("flag write for not-ready fetch")
			return nil
		},
	}

	f := NewFetcher(&fakeRecordingRepo{}, bookings, registry, staticTokens("tok"), discardLogger())

	written, err := f.FetchForBooking(context.Background(), zoomBooking(), TriggerAuto)
	if err != nil {
		t.Fatalf("FetchForBooking error: %v", err)
	}
	if written != 0 {
		t.Fatalf("written = %d, want 0", written)
	}
}

func TestFetchForBooking_UpsertsFilesAndFlags(t *testing.T) {
	expires := time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)
	registry := provider.Registry{
		"zoom": &fakeIntegration{
			name: "zoom",
			listRecordingsFn: func(ctx context.Context, accessToken, meetingRef string) ([]provider.RecordingFile, error) {
				if accessToken != "tok" {
					t.Fatalf("access token = %q, want %q", accessToken, "tok")
				}
				if meetingRef != "987654321" {
					t.Fatalf("meeting ref = %q, want %q", meetingRef, "987654321")
				}
				return []provider.RecordingFile{
					{ExternalID: "rec-1", URL: "https://zoom.us/rec/1", FileType: "MP4", FileSize: 1024, Status: domain.RecordingStatusAvailable, DownloadExpiresAt: &expires},
					{ExternalID: "rec-2", URL: "https://zoom.us/rec/2", FileType: "M4A", FileSize: 256, Status: domain.RecordingStatusAvailable},
				}, nil
			},
		},
	}

	var upserted []domain.Recording
	recRepo := &fakeRecordingRepo{
		upsertFn: func(ctx context.Context, rec domain.Recording) (domain.Recording, error) {
			upserted = append(upserted, rec)
			return rec, nil
		},
	}
	var flaggedTrigger string
	bookings := &fakeBookingRepo{
		setRecFlagFn: func(ctx context.Context, id uuid.UUID, trigger string) error {
			flaggedTrigger = trigger
			return nil
		},
	}

	f := NewFetcher(recRepo, bookings, registry, staticTokens("tok"), discardLogger())

	written, err := f.FetchForBooking(context.Background(), zoomBooking(), TriggerDelayed)
	if err != nil {
		t.Fatalf("FetchForBooking error: %v", err)
	}
	if written != 2 || len(upserted) != 2 {
		t.Fatalf("written = %d/%d, want 2", written, len(upserted))
	}
	if upserted[0].Provider != "zoom" || upserted[0].ExternalID != "rec-1" {
		t.Fatalf("upserted[0] = %+v", upserted[0])
	}
	if upserted[0].BookingID != zoomBooking().ID {
		t.Fatalf("booking id = %s, want %s", upserted[0].BookingID, zoomBooking().ID)
	}
	if flaggedTrigger != TriggerDelayed {
		t.Fatalf("flag trigger = %q, want %q", flaggedTrigger, TriggerDelayed)
	}
}

func TestFetchForBooking_AlreadyFetchedForTrigger(t *testing.T) {
	f := NewFetcher(&fakeRecordingRepo{}, &fakeBookingRepo{}, provider.Registry{}, staticTokens("tok"), discardLogger())

	b := zoomBooking()
	b.RecordingFetched = map[string]bool{TriggerAuto: true}

	written, err := f.FetchForBooking(context.Background(), b, TriggerAuto)
	if err != nil {
		t.Fatalf("FetchForBooking error: %v", err)
	}
	if written != 0 {
		t.Fatalf("written = %d, want 0", written)
	}
}

func TestFetchForBooking_NoSignatureSkips(t *testing.T) {
	f := NewFetcher(&fakeRecordingRepo{}, &fakeBookingRepo{}, provider.Registry{}, staticTokens("tok"), discardLogger())

	b := zoomBooking()
	b.MeetingURL = "https://example.com/else"

	written, err := f.FetchForBooking(context.Background(), b, TriggerManual)
	if err != nil {
		t.Fatalf("FetchForBooking error: %v", err)
	}
	if written != 0 {
		t.Fatalf("written = %d, want 0", written)
	}
}

func TestFetchForBooking_TokenFailurePropagates(t *testing.T) {
	cause := provider.NewError(provider.CodeNoConnection, "zoom", nil)
	registry := provider.Registry{"zoom": &fakeIntegration{name: "zoom"}}

	f := NewFetcher(&fakeRecordingRepo{}, &fakeBookingRepo{}, registry, failingTokens{err: cause}, discardLogger())

	_, err := f.FetchForBooking(context.Background(), zoomBooking(), TriggerManual)
	if provider.CodeOf(err) != provider.CodeNoConnection {
		t.Fatalf("code = %q, want %q (err=%v)", provider.CodeOf(err), provider.CodeNoConnection, err)
	}
}
