// Package provider defines the integration surface for external meeting
// and calendar providers, and the credential lifecycle around it.
package provider

import (
	"context"
	"time"

	"meetloop/backend/internal/domain"
)

// MeetingDetails is the request to mint one meeting.
type MeetingDetails struct {
	Title           string
	Description     string
	StartTime       time.Time
	EndTime         time.Time
	Timezone        string
	Attendees       []string
	EnableRecording bool
}

// EventDetails is the request to create or update one calendar event.
type EventDetails struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Timezone    string
	Attendees   []string
	// WithConference requests provider conferencing data on the event,
	// used when each occurrence needs its own link.
	WithConference bool
}

// RecordingFile is one recording located at the provider.
type RecordingFile struct {
	ExternalID        string
	URL               string
	DownloadURL       string
	DownloadExpiresAt *time.Time
	FileType          string
	FileSize          int64
	Status            domain.RecordingStatus
}

// Integration is one provider variant. Adding a provider means adding an
// implementation and a registry entry, not editing dispatch logic.
type Integration interface {
	Name() string

	CreateMeeting(ctx context.Context, accessToken string, details MeetingDetails) (domain.MeetingResult, error)

	CreateEvent(ctx context.Context, accessToken string, details EventDetails) (string, error)
	UpdateEvent(ctx context.Context, accessToken, eventID string, details EventDetails) error
	DeleteEvent(ctx context.Context, accessToken, eventID string) error

	// ListRecordings returns recordings for a provider meeting
	// reference. ErrNotReady when the provider has nothing yet.
	ListRecordings(ctx context.Context, accessToken, meetingRef string) ([]RecordingFile, error)
}

// TokenPair is the result of a token exchange or mint.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scope        string
}

// RefreshExchanger is implemented by user-credential providers that can
// trade a refresh token for a fresh pair.
type RefreshExchanger interface {
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (TokenPair, error)
}

// AccountMinter is implemented by server-credential providers that mint
// tokens from account-level configuration, with no per-user row.
type AccountMinter interface {
	MintAccountToken(ctx context.Context) (TokenPair, error)
}

// Registry maps provider names to integrations.
type Registry map[string]Integration

func (r Registry) Lookup(name string) (Integration, error) {
	integ, ok := r[name]
	if !ok {
		return nil, NewError(CodeUnsupportedProvider, name, nil)
	}
	return integ, nil
}
