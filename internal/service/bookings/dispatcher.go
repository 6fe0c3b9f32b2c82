package bookings

import (
	"context"
	"log/slog"

	"meetloop/backend/internal/domain"
	"meetloop/backend/internal/provider"
)

// providerFor maps a meeting type to the integration that mints its
// links. Types that need no generation map to "".
func providerFor(t domain.MeetingType) string {
	switch t {
	case domain.MeetingTypeZoom:
		return "zoom"
	case domain.MeetingTypeGoogleMeet:
		return "google"
	default:
		return ""
	}
}

// MeetingLinkDispatcher mints a meeting link for one occurrence.
// Link minting is best effort: a failure here is logged and swallowed so
// the booking persists without a link, while booking persistence itself
// stays strict.
type MeetingLinkDispatcher struct {
	registry provider.Registry
	creds    *CredentialResolver
	log      *slog.Logger
}

func NewMeetingLinkDispatcher(registry provider.Registry, creds *CredentialResolver, log *slog.Logger) *MeetingLinkDispatcher {
	return &MeetingLinkDispatcher{registry: registry, creds: creds, log: log}
}

// Resolve returns the meeting result for the booking and whether one
// exists. Manual links come straight from stored configuration; physical
// locations have no link at all.
func (d *MeetingLinkDispatcher) Resolve(ctx context.Context, b domain.Booking) (domain.MeetingResult, bool) {
	switch b.MeetingType {
	case domain.MeetingTypeManualLink:
		if b.MeetingURL == "" {
			return domain.MeetingResult{}, false
		}
		return domain.MeetingResult{MeetingURL: b.MeetingURL}, true
	case domain.MeetingTypePhysical:
		return domain.MeetingResult{}, false
	}

	providerName := providerFor(b.MeetingType)
	if providerName == "" {
		d.log.Warn("unknown meeting type, booking proceeds without link",
			slog.String("meeting_type", string(b.MeetingType)),
			slog.String("booking", b.Title))
		return domain.MeetingResult{}, false
	}

	res, err := d.generate(ctx, providerName, b)
	if err != nil {
		d.log.Error("meeting link generation failed, booking proceeds without link",
			slog.String("provider", providerName),
			slog.String("code", string(provider.CodeOf(err))),
			slog.String("tenant_id", b.TenantID),
			slog.Any("err", err))
		return domain.MeetingResult{}, false
	}
	return res, true
}

func (d *MeetingLinkDispatcher) generate(ctx context.Context, providerName string, b domain.Booking) (domain.MeetingResult, error) {
	integ, err := d.registry.Lookup(providerName)
	if err != nil {
		return domain.MeetingResult{}, err
	}

	token, err := d.creds.AccessToken(ctx, b.TenantID, b.HostID, providerName)
	if err != nil {
		return domain.MeetingResult{}, err
	}

	return integ.CreateMeeting(ctx, token, provider.MeetingDetails{
		Title:           b.Title,
		Description:     b.Description,
		StartTime:       b.StartTime,
		EndTime:         b.EndTime,
		Timezone:        b.Timezone,
		Attendees:       b.Attendees(),
		EnableRecording: b.RecordingOn,
	})
}
