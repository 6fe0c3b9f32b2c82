// Package recordings locates and persists provider recordings for
// completed bookings. Fetching is idempotent by construction: rows are
// upserted by (provider, external_id), so the immediate, auto-complete
// and delayed triggers can all safely hit the same booking.
package recordings

import (
	"context"
	"errors"
	"log/slog"
	"regexp"

	"meetloop/backend/internal/domain"
	"meetloop/backend/internal/provider"
	"meetloop/backend/internal/store"
)

// Trigger labels the call site in the booking's fetch-flag map.
const (
	TriggerManual  = "manual_complete"
	TriggerAuto    = "auto_complete"
	TriggerDelayed = "delayed_retry"
)

var (
	zoomMeetingID = regexp.MustCompile(`zoom\.us/j/(\d+)`)
	meetCode      = regexp.MustCompile(`meet\.google\.com/([a-z0-9\-]+)`)
)

// meetingSignature matches a booking against a known provider signature.
// Both the meeting type and the URL pattern must agree; anything else is
// silently skipped.
func meetingSignature(b domain.Booking) (providerName, meetingRef string, ok bool) {
	switch b.MeetingType {
	case domain.MeetingTypeZoom:
		if m := zoomMeetingID.FindStringSubmatch(b.MeetingURL); m != nil {
			return "zoom", m[1], true
		}
	case domain.MeetingTypeGoogleMeet:
		if m := meetCode.FindStringSubmatch(b.MeetingURL); m != nil {
			return "google", m[1], true
		}
	}
	return "", "", false
}

type Fetcher struct {
	recordings store.RecordingRepository
	bookings   store.BookingRepository
	registry   provider.Registry
	creds      TokenSource
	log        *slog.Logger
}

// TokenSource resolves an access token for a provider call on behalf of
// a tenant, mirroring the dispatcher's credential-holder selection.
type TokenSource interface {
	AccessToken(ctx context.Context, tenantID, actorID, providerName string) (string, error)
}

func NewFetcher(recordings store.RecordingRepository, bookings store.BookingRepository, registry provider.Registry, creds TokenSource, log *slog.Logger) *Fetcher {
	return &Fetcher{
		recordings: recordings,
		bookings:   bookings,
		registry:   registry,
		creds:      creds,
		log:        log,
	}
}

// FetchForBooking locates recordings for one completed booking and
// upserts them, returning how many rows were written. A provider that
// has nothing yet is not a failure: the fetch flag stays unset so a
// later trigger retries.
func (f *Fetcher) FetchForBooking(ctx context.Context, b domain.Booking, trigger string) (int, error) {
	if b.RecordingFetched[trigger] {
		return 0, nil
	}

	providerName, meetingRef, ok := meetingSignature(b)
	if !ok {
		return 0, nil
	}

	integ, err := f.registry.Lookup(providerName)
	if err != nil {
		return 0, err
	}
	token, err := f.creds.AccessToken(ctx, b.TenantID, b.HostID, providerName)
	if err != nil {
		return 0, err
	}

	files, err := integ.ListRecordings(ctx, token, meetingRef)
	if err != nil {
		if errors.Is(err, provider.ErrNotReady) {
			f.log.Info("recordings not ready yet",
				slog.String("booking_id", b.ID.String()),
				slog.String("provider", providerName),
				slog.String("trigger", trigger))
			return 0, nil
		}
		return 0, err
	}

	written := 0
	for _, file := range files {
		_, err := f.recordings.Upsert(ctx, domain.Recording{
			BookingID:         b.ID,
			Provider:          providerName,
			ExternalID:        file.ExternalID,
			URL:               file.URL,
			DownloadURL:       file.DownloadURL,
			DownloadExpiresAt: file.DownloadExpiresAt,
			FileType:          file.FileType,
			FileSize:          file.FileSize,
			Status:            file.Status,
		})
		if err != nil {
			return written, err
		}
		written++
	}

	if err := f.bookings.SetRecordingFlag(ctx, b.ID, trigger); err != nil {
		return written, err
	}

	f.log.Info("recordings fetched",
		slog.String("booking_id", b.ID.String()),
		slog.String("provider", providerName),
		slog.String("trigger", trigger),
		slog.Int("count", written))

	return written, nil
}
