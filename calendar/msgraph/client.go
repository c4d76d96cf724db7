// Package msgraph talks to the Microsoft Graph calendar API on behalf of one
// mailbox, using the client-credentials flow. Free/busy comes from
// getSchedule's availabilityView string, sliced into hourly slots inside the
// tenant's business hours.
package msgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	contractx "github.com/Jamesonkanakulya/appointment-agent/agent/contract"
)

const (
	defaultGraphBase = "https://graph.microsoft.com/v1.0"
	defaultLoginBase = "https://login.microsoftonline.com"
	defaultTimeout   = 30 * time.Second

	eventDuration = time.Hour

	maxResponseSizeBytes = 2 << 20
)

type Config struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	UserEmail    string

	// Overridable in tests.
	GraphBase string
	LoginBase string
	Timeout   time.Duration
}

type Client struct {
	cfg        Config
	graphBase  string
	loginBase  string
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

var _ contractx.CalendarProvider = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("microsoft graph client credentials are required")
	}
	if strings.TrimSpace(cfg.TenantID) == "" {
		return nil, errors.New("microsoft graph tenant id is required")
	}
	if strings.TrimSpace(cfg.UserEmail) == "" {
		return nil, errors.New("microsoft graph user email is required")
	}

	graphBase := strings.TrimRight(cfg.GraphBase, "/")
	if graphBase == "" {
		graphBase = defaultGraphBase
	}
	loginBase := strings.TrimRight(cfg.LoginBase, "/")
	if loginBase == "" {
		loginBase = defaultLoginBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		cfg:        cfg,
		graphBase:  graphBase,
		loginBase:  loginBase,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

/* ------------------------------ Availability ------------------------------ */

type scheduleResponse struct {
	Value []struct {
		AvailabilityView string `json:"availabilityView"`
	} `json:"value"`
}

func (c *Client) FreeSlots(ctx context.Context, date, timezone, workdayStart, workdayEnd string) ([]contractx.Slot, error) {
	dayStart, dayEnd, err := businessWindow(date, timezone, workdayStart, workdayEnd)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"schedules": []string{c.cfg.UserEmail},
		"startTime": graphTime(dayStart, timezone),
		"endTime":   graphTime(dayEnd, timezone),
		// One digit per hour in availabilityView.
		"availabilityViewInterval": 60,
	}

	var parsed scheduleResponse
	path := fmt.Sprintf("/users/%s/calendar/getSchedule", url.PathEscape(c.cfg.UserEmail))
	if err := c.do(ctx, http.MethodPost, path, body, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Value) == 0 {
		return nil, nil
	}

	// availabilityView is one digit per interval: 0=free, 2=busy.
	var out []contractx.Slot
	current := dayStart
	for _, ch := range parsed.Value[0].AvailabilityView {
		slotEnd := current.Add(eventDuration)
		if ch == '0' {
			out = append(out, contractx.Slot{
				Start: current.Format(time.RFC3339),
				End:   slotEnd.Format(time.RFC3339),
			})
		}
		current = slotEnd
		if !current.Before(dayEnd) {
			break
		}
	}
	return out, nil
}

/* -------------------------------- Events ---------------------------------- */

type graphEvent struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Body    struct {
		Content string `json:"content"`
	} `json:"body"`
	Start struct {
		DateTime string `json:"dateTime"`
	} `json:"start"`
	End struct {
		DateTime string `json:"dateTime"`
	} `json:"end"`
	Attendees []struct {
		EmailAddress struct {
			Address string `json:"address"`
			Name    string `json:"name"`
		} `json:"emailAddress"`
	} `json:"attendees"`
}

func (c *Client) CreateEvent(ctx context.Context, req contractx.CreateEventRequest) (contractx.Event, error) {
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		return contractx.Event{}, fmt.Errorf("parse start %q: %w", req.Start, err)
	}

	body := map[string]any{
		"subject": req.Title,
		"body":    map[string]any{"contentType": "Text", "content": req.Description},
		"start":   graphTime(start, req.Timezone),
		"end":     graphTime(start.Add(eventDuration), req.Timezone),
		"attendees": []map[string]any{
			{
				"emailAddress": map[string]any{"address": req.Email, "name": req.Name},
				"type":         "required",
			},
		},
	}

	var created graphEvent
	path := fmt.Sprintf("/users/%s/events", url.PathEscape(c.cfg.UserEmail))
	if err := c.do(ctx, http.MethodPost, path, body, &created); err != nil {
		return contractx.Event{}, err
	}

	title := created.Subject
	if title == "" {
		title = req.Title
	}
	return contractx.Event{
		UID:   created.ID,
		Title: title,
		Start: created.Start.DateTime,
		End:   created.End.DateTime,
	}, nil
}

func (c *Client) EventsForAttendee(ctx context.Context, email string) ([]contractx.Event, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	path := fmt.Sprintf(
		"/users/%s/events?$filter=start/dateTime ge '%s'&$orderby=start/dateTime&$top=50",
		url.PathEscape(c.cfg.UserEmail), now,
	)

	var parsed struct {
		Value []graphEvent `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &parsed); err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	var out []contractx.Event
	for _, e := range parsed.Value {
		for _, a := range e.Attendees {
			if strings.ToLower(a.EmailAddress.Address) != email {
				continue
			}
			out = append(out, contractx.Event{
				UID:           e.ID,
				Title:         e.Subject,
				Start:         e.Start.DateTime,
				End:           e.End.DateTime,
				AttendeeName:  a.EmailAddress.Name,
				AttendeeEmail: a.EmailAddress.Address,
			})
			break
		}
	}
	return out, nil
}

func (c *Client) CancelEvent(ctx context.Context, uid, reason string) error {
	path := fmt.Sprintf("/users/%s/events/%s", url.PathEscape(c.cfg.UserEmail), url.PathEscape(uid))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) RescheduleEvent(ctx context.Context, uid, newStart, timezone string) (contractx.Event, error) {
	path := fmt.Sprintf("/users/%s/events/%s", url.PathEscape(c.cfg.UserEmail), url.PathEscape(uid))

	var existing graphEvent
	if err := c.do(ctx, http.MethodGet, path, nil, &existing); err != nil {
		return contractx.Event{}, err
	}

	duration := eventDuration
	if oldStart, err1 := parseGraphTime(existing.Start.DateTime); err1 == nil {
		if oldEnd, err2 := parseGraphTime(existing.End.DateTime); err2 == nil {
			duration = oldEnd.Sub(oldStart)
		}
	}

	start, err := time.Parse(time.RFC3339, newStart)
	if err != nil {
		return contractx.Event{}, fmt.Errorf("parse new start %q: %w", newStart, err)
	}

	body := map[string]any{
		"start": graphTime(start, timezone),
		"end":   graphTime(start.Add(duration), timezone),
	}

	var updated graphEvent
	if err := c.do(ctx, http.MethodPatch, path, body, &updated); err != nil {
		return contractx.Event{}, err
	}
	return contractx.Event{
		UID:   updated.ID,
		Title: updated.Subject,
		Start: updated.Start.DateTime,
		End:   updated.End.DateTime,
	}, nil
}

/* ------------------------------- Internals --------------------------------- */

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("scope", "https://graph.microsoft.com/.default")

	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.loginBase, url.PathEscape(c.cfg.TenantID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute token request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", errors.New("token response missing access_token")
	}
	c.token = parsed.AccessToken
	return c.token, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.graphBase+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("graph %s %s status=%d body=%s", method, path, resp.StatusCode, string(raw))
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func graphTime(t time.Time, timezone string) map[string]any {
	return map[string]any{
		"dateTime": t.Format("2006-01-02T15:04:05"),
		"timeZone": timezone,
	}
}

// parseGraphTime accepts Graph's zone-less dateTime strings as well as full
// RFC 3339 timestamps.
func parseGraphTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05.0000000", s)
}

// businessWindow resolves a YYYY-MM-DD date plus HH:MM bounds into concrete
// instants in the tenant's timezone.
func businessWindow(date, timezone, workdayStart, workdayEnd string) (time.Time, time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}

	startH, startM, err := parseClock(workdayStart, 9, 0)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endH, endM, err := parseClock(workdayEnd, 17, 0)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), startH, startM, 0, 0, loc)
	dayEnd := time.Date(day.Year(), day.Month(), day.Day(), endH, endM, 0, 0, loc)
	return dayStart, dayEnd, nil
}

func parseClock(s string, defaultH, defaultM int) (int, int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultH, defaultM, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}
