package bookings

import (
	"context"
	"errors"
	"testing"

	"meetloop/backend/internal/domain"
	"meetloop/backend/internal/identity"
	"meetloop/backend/internal/provider"
)

type fakeIntegration struct {
	name            string
	createMeetingFn func(ctx context.Context, accessToken string, details provider.MeetingDetails) (domain.MeetingResult, error)
	createEventFn   func(ctx context.Context, accessToken string, details provider.EventDetails) (string, error)
	updateEventFn   func(ctx context.Context, accessToken, eventID string, details provider.EventDetails) error
	deleteEventFn   func(ctx context.Context, accessToken, eventID string) error
}

func (f *fakeIntegration) Name() string { return f.name }

func (f *fakeIntegration) CreateMeeting(ctx context.Context, accessToken string, details provider.MeetingDetails) (domain.MeetingResult, error) {
	if f.createMeetingFn == nil {
		panic("CreateMeeting not configured")
	}
	return f.createMeetingFn(ctx, accessToken, details)
}

func (f *fakeIntegration) CreateEvent(ctx context.Context, accessToken string, details provider.EventDetails) (string, error) {
	if f.createEventFn == nil {
		panic("CreateEvent not configured")
	}
	return f.createEventFn(ctx, accessToken, details)
}

func (f *fakeIntegration) UpdateEvent(ctx context.Context, accessToken, eventID string, details provider.EventDetails) error {
	if f.updateEventFn == nil {
		panic("UpdateEvent not configured")
	}
	return f.updateEventFn(ctx, accessToken, eventID, details)
}

func (f *fakeIntegration) DeleteEvent(ctx context.Context, accessToken, eventID string) error {
	if f.deleteEventFn == nil {
		panic("DeleteEvent not configured")
	}
	return f.deleteEventFn(ctx, accessToken, eventID)
}

func (f *fakeIntegration) ListRecordings(ctx context.Context, accessToken, meetingRef string) ([]provider.RecordingFile, error) {
	panic("ListRecordings not configured")
}

// zoomCreds wires a credential resolver whose zoom tokens come from
// account credentials, no stored connection involved.
func zoomCreds(t *testing.T, conns *fakeConns) *CredentialResolver {
	t.Helper()
	tokens := provider.NewTokenManager(conns, discardLogger())
	tokens.RegisterMinter("zoom", staticMinter("minted"))
	return NewCredentialResolver(tokens, conns, identity.NewStaticResolver(nil))
}

func TestDispatcherResolve_ManualLinkUsesStoredURL(t *testing.T) {
	d := NewMeetingLinkDispatcher(provider.Registry{}, zoomCreds(t, &fakeConns{}), discardLogger())

	res, ok := d.Resolve(context.Background(), domain.Booking{
		MeetingType: domain.MeetingTypeManualLink,
		MeetingURL:  "https://example.com/room",
	})
	if !ok {
		t.Fatalf("expected result")
	}
	if res.MeetingURL != "https://example.com/room" {
		t.Fatalf("meeting_url = %q", res.MeetingURL)
	}
}

func TestDispatcherResolve_PhysicalHasNoLink(t *testing.T) {
	d := NewMeetingLinkDispatcher(provider.Registry{}, zoomCreds(t, &fakeConns{}), discardLogger())

	_, ok := d.Resolve(context.Background(), domain.Booking{
		MeetingType: domain.MeetingTypePhysical,
		Location:    "Room 4",
	})
	if ok {
		t.Fatalf("expected no result for physical booking")
	}
}

func TestDispatcherResolve_ZoomMintsAndCreates(t *testing.T) {
	var gotToken string
	var gotDetails provider.MeetingDetails
	registry := provider.Registry{
		"zoom": &fakeIntegration{
			name: "zoom",
			createMeetingFn: func(ctx context.Context, accessToken string, details provider.MeetingDetails) (domain.MeetingResult, error) {
				gotToken = accessToken
				gotDetails = details
				return domain.MeetingResult{
					MeetingURL: "https://zoom.us/j/123",
					MeetingID:  "123",
					Provider:   "zoom",
				}, nil
			},
		},
	}
	d := NewMeetingLinkDispatcher(registry, zoomCreds(t, &fakeConns{}), discardLogger())

	b := domain.Booking{
		TenantID:    "t1",
		HostID:      "h1",
		HostEmail:   "host@example.com",
		MemberEmail: "member@example.com",
		Title:       "standup",
		MeetingType: domain.MeetingTypeZoom,
		RecordingOn: true,
	}
	res, ok := d.Resolve(context.Background(), b)
	if !ok {
		t.Fatalf("expected result")
	}
	if res.MeetingURL != "https://zoom.us/j/123" {
		t.Fatalf("meeting_url = %q", res.MeetingURL)
	}
	if gotToken != "minted" {
		t.Fatalf("access token = %q, want %q", gotToken, "minted")
	}
	if !gotDetails.EnableRecording {
		t.Fatalf("expected recording enabled")
	}
	if len(gotDetails.Attendees) != 2 {
		t.Fatalf("attendees = %v, want member and host", gotDetails.Attendees)
	}
}

func TestDispatcherResolve_GenerationFailureSwallowed(t *testing.T) {
	registry := provider.Registry{
		"zoom": &fakeIntegration{
			name: "zoom",
			createMeetingFn: func(ctx context.Context, accessToken string, details provider.MeetingDetails) (domain.MeetingResult, error) {
				return domain.MeetingResult{}, provider.NewError(provider.CodeGenerationFailed, "zoom", errors.New("429"))
			},
		},
	}
	d := NewMeetingLinkDispatcher(registry, zoomCreds(t, &fakeConns{}), discardLogger())

	_, ok := d.Resolve(context.Background(), domain.Booking{
		TenantID:    "t1",
		HostID:      "h1",
		MeetingType: domain.MeetingTypeZoom,
	})
	if ok {
		t.Fatalf("expected no result after generation failure")
	}
}

func TestDispatcherResolve_UnregisteredProviderSwallowed(t *testing.T) {
	d := NewMeetingLinkDispatcher(provider.Registry{}, zoomCreds(t, &fakeConns{}), discardLogger())

	_, ok := d.Resolve(context.Background(), domain.Booking{
		TenantID:    "t1",
		HostID:      "h1",
		MeetingType: domain.MeetingTypeZoom,
	})
	if ok {
		t.Fatalf("expected no result for unregistered provider")
	}
}
