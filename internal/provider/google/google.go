// Package google implements the Google integration. Google is a
// user-credential provider: calls run on a stored per-user connection
// obtained through interactive consent and refreshed ahead of expiry.
package google

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

	"github.com/google/uuid"

	"meetloop/backend/internal/domain"
	"meetloop/backend/internal/provider"
)

const Name = "google"

const (
	defaultCalendarURL = "https://www.googleapis.com/calendar/v3"
	defaultDriveURL    = "https://www.googleapis.com/drive/v3"
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
)

type Config struct {
	ClientID     string
	ClientSecret string
	CalendarURL  string
	DriveURL     string
	TokenURL     string
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.CalendarURL == "" {
		cfg.CalendarURL = defaultCalendarURL
	}
	if cfg.DriveURL == "" {
		cfg.DriveURL = defaultDriveURL
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

// ExchangeRefreshToken trades a refresh token for a new access token.
// Google usually omits the refresh token from the response, in which
// case the stored one stays in force.
func (c *Client) ExchangeRefreshToken(ctx context.Context, refreshToken string) (provider.TokenPair, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return provider.TokenPair{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		Scope        string `json:"scope"`
	}
	if err := c.do(req, http.StatusOK, &body); err != nil {
		return provider.TokenPair{}, err
	}

	return provider.TokenPair{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(body.ExpiresIn) * time.Second),
		Scope:        body.Scope,
	}, nil
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone,omitempty"`
}

type eventAttendee struct {
	Email string `json:"email"`
}

type conferenceData struct {
	CreateRequest *conferenceCreateRequest `json:"createRequest,omitempty"`
}

type conferenceCreateRequest struct {
	RequestID             string                `json:"requestId"`
	ConferenceSolutionKey conferenceSolutionKey `json:"conferenceSolutionKey"`
}

type conferenceSolutionKey struct {
	Type string `json:"type"`
}

type eventPayload struct {
	Summary        string          `json:"summary"`
	Description    string          `json:"description,omitempty"`
	Start          eventTime       `json:"start"`
	End            eventTime       `json:"end"`
	Attendees      []eventAttendee `json:"attendees,omitempty"`
	ConferenceData *conferenceData `json:"conferenceData,omitempty"`
}

type eventResponse struct {
	ID          string `json:"id"`
	HangoutLink string `json:"hangoutLink"`
	HTMLLink    string `json:"htmlLink"`
}

func buildEventPayload(details provider.EventDetails) eventPayload {
	payload := eventPayload{
		Summary:     details.Title,
		Description: details.Description,
		Start:       eventTime{DateTime: details.StartTime.Format(time.RFC3339), TimeZone: details.Timezone},
		End:         eventTime{DateTime: details.EndTime.Format(time.RFC3339), TimeZone: details.Timezone},
	}
	for _, email := range details.Attendees {
		payload.Attendees = append(payload.Attendees, eventAttendee{Email: email})
	}
	if details.WithConference {
		payload.ConferenceData = &conferenceData{
			CreateRequest: &conferenceCreateRequest{
				RequestID:             uuid.NewString(),
				ConferenceSolutionKey: conferenceSolutionKey{Type: "hangoutsMeet"},
			},
		}
	}
	return payload
}

// CreateMeeting mints a Meet link by creating a calendar event with
// conferencing data and reading back the hangout link.
func (c *Client) CreateMeeting(ctx context.Context, accessToken string, details provider.MeetingDetails) (domain.MeetingResult, error) {
	eventID, link, err := c.createEvent(ctx, accessToken, provider.EventDetails{
		Title:          details.Title,
		Description:    details.Description,
		StartTime:      details.StartTime,
		EndTime:        details.EndTime,
		Timezone:       details.Timezone,
		Attendees:      details.Attendees,
		WithConference: true,
	})
	if err != nil {
		return domain.MeetingResult{}, provider.NewError(provider.CodeGenerationFailed, Name, err)
	}
	return domain.MeetingResult{
		MeetingURL: link,
		MeetingID:  eventID,
		Provider:   Name,
	}, nil
}

func (c *Client) CreateEvent(ctx context.Context, accessToken string, details provider.EventDetails) (string, error) {
	eventID, _, err := c.createEvent(ctx, accessToken, details)
	return eventID, err
}

func (c *Client) createEvent(ctx context.Context, accessToken string, details provider.EventDetails) (string, string, error) {
	endpoint := c.cfg.CalendarURL + "/calendars/primary/events?conferenceDataVersion=1"
	req, err := c.jsonRequest(ctx, http.MethodPost, endpoint, accessToken, buildEventPayload(details))
	if err != nil {
		return "", "", err
	}
	var body eventResponse
	if err := c.do(req, http.StatusOK, &body); err != nil {
		return "", "", err
	}
	return body.ID, body.HangoutLink, nil
}

func (c *Client) UpdateEvent(ctx context.Context, accessToken, eventID string, details provider.EventDetails) error {
	endpoint := c.cfg.CalendarURL + "/calendars/primary/events/" + url.PathEscape(eventID)
	req, err := c.jsonRequest(ctx, http.MethodPatch, endpoint, accessToken, buildEventPayload(details))
	if err != nil {
		return err
	}
	return c.do(req, http.StatusOK, nil)
}

func (c *Client) DeleteEvent(ctx context.Context, accessToken, eventID string) error {
	endpoint := c.cfg.CalendarURL + "/calendars/primary/events/" + url.PathEscape(eventID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Already-gone events are fine on delete.
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK &&
		resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusGone {
		return fmt.Errorf("google delete event: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// ListRecordings searches Drive for Meet recordings whose file name
// contains the meeting code. Meet drops recordings into the organizer's
// Drive, so zero matches just means nothing has landed yet.
func (c *Client) ListRecordings(ctx context.Context, accessToken, meetingRef string) ([]provider.RecordingFile, error) {
	q := fmt.Sprintf("name contains '%s' and mimeType contains 'video/'", meetingRef)
	endpoint := c.cfg.DriveURL + "/files?q=" + url.QueryEscape(q) +
		"&fields=" + url.QueryEscape("files(id,name,mimeType,size,webViewLink,webContentLink)")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var body struct {
		Files []struct {
			ID             string `json:"id"`
			Name           string `json:"name"`
			MimeType       string `json:"mimeType"`
			Size           string `json:"size"`
			WebViewLink    string `json:"webViewLink"`
			WebContentLink string `json:"webContentLink"`
		} `json:"files"`
	}
	if err := c.do(req, http.StatusOK, &body); err != nil {
		return nil, err
	}

	if len(body.Files) == 0 {
		return nil, provider.ErrNotReady
	}

	out := make([]provider.RecordingFile, 0, len(body.Files))
	for _, f := range body.Files {
		size, _ := strconv.ParseInt(f.Size, 10, 64)
		out = append(out, provider.RecordingFile{
			ExternalID:  f.ID,
			URL:         f.WebViewLink,
			DownloadURL: f.WebContentLink,
			FileType:    f.MimeType,
			FileSize:    size,
			Status:      domain.RecordingStatusAvailable,
		})
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
		return fmt.Errorf("google: unexpected status %d: %s", resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
