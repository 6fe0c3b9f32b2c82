// Package zoom implements the Zoom integration. Zoom is a
// server-credential provider: tokens are minted per call from
// account-level Server-to-Server OAuth credentials, so no per-user
// connection is ever stored.
package zoom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"meetloop/backend/internal/domain"
	"meetloop/backend/internal/provider"
)

const Name = "zoom"

const (
	defaultBaseURL  = "https://api.zoom.us/v2"
	defaultTokenURL = "https://zoom.us/oauth/token"
)

type Config struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	BaseURL      string
	TokenURL     string
}

// Configured reports whether account credentials are present. Without
// them the integration is unavailable and callers fall back to no link.
func (c Config) Configured() bool {
	return c.AccountID != "" && c.ClientID != "" && c.ClientSecret != ""
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Name() string { return Name }

// MintAccountToken performs the account_credentials grant.
func (c *Client) MintAccountToken(ctx context.Context) (provider.TokenPair, error) {
	if !c.cfg.Configured() {
		return provider.TokenPair{}, provider.NewError(provider.CodeNoConnection, Name, nil)
	}

	form := url.Values{}
	form.Set("grant_type", "account_credentials")
	form.Set("account_id", c.cfg.AccountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return provider.TokenPair{}, err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
		Scope       string `json:"scope"`
	}
	if err := c.do(req, http.StatusOK, &body); err != nil {
		return provider.TokenPair{}, err
	}

	return provider.TokenPair{
		AccessToken: body.AccessToken,
		ExpiresAt:   time.Now().UTC().Add(time.Duration(body.ExpiresIn) * time.Second),
		Scope:       body.Scope,
	}, nil
}

type meetingRequest struct {
	Topic     string          `json:"topic"`
	Agenda    string          `json:"agenda,omitempty"`
	Type      int             `json:"type"`
	StartTime string          `json:"start_time"`
	Duration  int             `json:"duration"`
	Timezone  string          `json:"timezone,omitempty"`
	Settings  meetingSettings `json:"settings"`
}

type meetingSettings struct {
	AutoRecording   string           `json:"auto_recording,omitempty"`
	JoinBeforeHost  bool             `json:"join_before_host"`
	WaitingRoom     bool             `json:"waiting_room"`
	MeetingInvitees []meetingInvitee `json:"meeting_invitees,omitempty"`
}

type meetingInvitee struct {
	Email string `json:"email"`
}

func (c *Client) CreateMeeting(ctx context.Context, accessToken string, details provider.MeetingDetails) (domain.MeetingResult, error) {
	payload := meetingRequest{
		Topic:     details.Title,
		Agenda:    details.Description,
		Type:      2, // scheduled meeting
		StartTime: details.StartTime.UTC().Format("2006-01-02T15:04:05Z"),
		Duration:  int(details.EndTime.Sub(details.StartTime) / time.Minute),
		Timezone:  details.Timezone,
		Settings: meetingSettings{
			JoinBeforeHost: true,
			WaitingRoom:    false,
		},
	}
	if details.EnableRecording {
		payload.Settings.AutoRecording = "cloud"
	}
	for _, email := range details.Attendees {
		payload.Settings.MeetingInvitees = append(payload.Settings.MeetingInvitees, meetingInvitee{Email: email})
	}

	req, err := c.jsonRequest(ctx, http.MethodPost, c.cfg.BaseURL+"/users/me/meetings", accessToken, payload)
	if err != nil {
		return domain.MeetingResult{}, err
	}

	var body struct {
		ID       int64  `json:"id"`
		JoinURL  string `json:"join_url"`
		StartURL string `json:"start_url"`
		Password string `json:"password"`
	}
	if err := c.do(req, http.StatusCreated, &body); err != nil {
		return domain.MeetingResult{}, provider.NewError(provider.CodeGenerationFailed, Name, err)
	}

	return domain.MeetingResult{
		MeetingURL: body.JoinURL,
		MeetingID:  strconv.FormatInt(body.ID, 10),
		Provider:   Name,
		HostURL:    body.StartURL,
		Password:   body.Password,
	}, nil
}

// Zoom has no calendar surface; event sync belongs to the calendar
// provider.
func (c *Client) CreateEvent(ctx context.Context, accessToken string, details provider.EventDetails) (string, error) {
	return "", provider.NewError(provider.CodeUnsupportedProvider, Name, nil)
}

func (c *Client) UpdateEvent(ctx context.Context, accessToken, eventID string, details provider.EventDetails) error {
	return provider.NewError(provider.CodeUnsupportedProvider, Name, nil)
}

func (c *Client) DeleteEvent(ctx context.Context, accessToken, eventID string) error {
	return provider.NewError(provider.CodeUnsupportedProvider, Name, nil)
}

// ListRecordings queries cloud recordings for a numeric meeting id.
// Zoom answers 404 until recordings finish processing, which maps to
// ErrNotReady rather than a failure.
func (c *Client) ListRecordings(ctx context.Context, accessToken, meetingRef string) ([]provider.RecordingFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/meetings/"+url.PathEscape(meetingRef)+"/recordings", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, provider.ErrNotReady
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zoom recordings: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		RecordingFiles []struct {
			ID          string `json:"id"`
			PlayURL     string `json:"play_url"`
			DownloadURL string `json:"download_url"`
			FileType    string `json:"file_type"`
			FileSize    int64  `json:"file_size"`
			Status      string `json:"status"`
		} `json:"recording_files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	out := make([]provider.RecordingFile, 0, len(body.RecordingFiles))
	for _, f := range body.RecordingFiles {
		status := domain.RecordingStatusAvailable
		if f.Status != "completed" {
			status = domain.RecordingStatusProcessing
		}
		// Download links carry a short-lived token; re-fetch refreshes
		// them through the upsert.
		expires := time.Now().UTC().Add(24 * time.Hour)
		out = append(out, provider.RecordingFile{
			ExternalID:        f.ID,
			URL:               f.PlayURL,
			DownloadURL:       f.DownloadURL,
			DownloadExpiresAt: &expires,
			FileType:          f.FileType,
			FileSize:          f.FileSize,
			Status:            status,
		})
	}
	if len(out) == 0 {
		return nil, provider.ErrNotReady
	}
	return out, nil
}

func (c *Client) jsonRequest(ctx context.Context, method, endpoint, accessToken string, payload any) (*http.Request, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, wantStatus int, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("zoom: unexpected status %d: %s", resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
