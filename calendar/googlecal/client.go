// Package googlecal implements the calendar provider contract against the
// Google Calendar v3 REST API. Availability is derived from the freebusy
// endpoint: the business day is cut into hourly slots and any slot touching
// a busy interval is dropped.
package googlecal

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
	"time"

	contractx "github.com/Jamesonkanakulya/appointment-agent/agent/contract"
)

const (
	defaultBaseURL = "https://www.googleapis.com/calendar/v3"
	defaultTimeout = 30 * time.Second

	eventDuration = time.Hour

	maxResponseSizeBytes = 2 << 20
)

type Config struct {
	CalendarID  string
	AccessToken string

	// Overridable in tests.
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
}

var _ contractx.CalendarProvider = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.CalendarID) == "" {
		return nil, errors.New("google calendar id is required")
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("google calendar access token is required")
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		cfg:        cfg,
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

/* ------------------------------ Availability ------------------------------ */

type busyInterval struct {
	Start time.Time
	End   time.Time
}

func (c *Client) FreeSlots(ctx context.Context, date, timezone, workdayStart, workdayEnd string) ([]contractx.Slot, error) {
	dayStart, dayEnd, err := businessWindow(date, timezone, workdayStart, workdayEnd)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"timeMin":  dayStart.Format(time.RFC3339),
		"timeMax":  dayEnd.Format(time.RFC3339),
		"timeZone": timezone,
		"items":    []map[string]string{{"id": c.cfg.CalendarID}},
	}

	var parsed struct {
		Calendars map[string]struct {
			Busy []struct {
				Start string `json:"start"`
				End   string `json:"end"`
			} `json:"busy"`
		} `json:"calendars"`
	}
	if err := c.do(ctx, http.MethodPost, "/freeBusy", body, &parsed); err != nil {
		return nil, err
	}

	var busy []busyInterval
	if cal, ok := parsed.Calendars[c.cfg.CalendarID]; ok {
		for _, b := range cal.Busy {
			start, err1 := time.Parse(time.RFC3339, b.Start)
			end, err2 := time.Parse(time.RFC3339, b.End)
			if err1 != nil || err2 != nil {
				continue
			}
			busy = append(busy, busyInterval{Start: start, End: end})
		}
	}

	var out []contractx.Slot
	for current := dayStart; !current.Add(eventDuration).After(dayEnd); current = current.Add(eventDuration) {
		slotEnd := current.Add(eventDuration)
		if overlapsAny(current, slotEnd, busy) {
			continue
		}
		out = append(out, contractx.Slot{
			Start: current.Format(time.RFC3339),
			End:   slotEnd.Format(time.RFC3339),
		})
	}
	return out, nil
}

func overlapsAny(start, end time.Time, busy []busyInterval) bool {
	for _, b := range busy {
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}

/* -------------------------------- Events ---------------------------------- */

type googleEvent struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Start       struct {
		DateTime string `json:"dateTime"`
	} `json:"start"`
	End struct {
		DateTime string `json:"dateTime"`
	} `json:"end"`
	Attendees []struct {
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	} `json:"attendees"`
}

func (c *Client) CreateEvent(ctx context.Context, req contractx.CreateEventRequest) (contractx.Event, error) {
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		return contractx.Event{}, fmt.Errorf("parse start %q: %w", req.Start, err)
	}

	body := map[string]any{
		"summary":     req.Title,
		"description": req.Description,
		"start":       map[string]string{"dateTime": start.Format(time.RFC3339), "timeZone": req.Timezone},
		"end":         map[string]string{"dateTime": start.Add(eventDuration).Format(time.RFC3339), "timeZone": req.Timezone},
		"attendees": []map[string]string{
			{"email": req.Email, "displayName": req.Name},
		},
	}

	var created googleEvent
	path := fmt.Sprintf("/calendars/%s/events", url.PathEscape(c.cfg.CalendarID))
	if err := c.do(ctx, http.MethodPost, path, body, &created); err != nil {
		return contractx.Event{}, err
	}

	title := created.Summary
	if title == "" {
		title = req.Title
	}
	return contractx.Event{
		UID:    created.ID,
		Title:  title,
		Start:  created.Start.DateTime,
		End:    created.End.DateTime,
		Status: created.Status,
	}, nil
}

func (c *Client) EventsForAttendee(ctx context.Context, email string) ([]contractx.Event, error) {
	q := url.Values{}
	q.Set("timeMin", time.Now().UTC().Format(time.RFC3339))
	q.Set("singleEvents", "true")
	q.Set("orderBy", "startTime")
	q.Set("maxResults", "50")

	var parsed struct {
		Items []googleEvent `json:"items"`
	}
	path := fmt.Sprintf("/calendars/%s/events?%s", url.PathEscape(c.cfg.CalendarID), q.Encode())
	if err := c.do(ctx, http.MethodGet, path, nil, &parsed); err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	var out []contractx.Event
	for _, e := range parsed.Items {
		if e.Status == "cancelled" {
			continue
		}
		for _, a := range e.Attendees {
			if strings.ToLower(a.Email) != email {
				continue
			}
			out = append(out, contractx.Event{
				UID:           e.ID,
				Title:         e.Summary,
				Start:         e.Start.DateTime,
				End:           e.End.DateTime,
				Status:        e.Status,
				AttendeeName:  a.DisplayName,
				AttendeeEmail: a.Email,
			})
			break
		}
	}
	return out, nil
}

func (c *Client) CancelEvent(ctx context.Context, uid, reason string) error {
	path := fmt.Sprintf("/calendars/%s/events/%s", url.PathEscape(c.cfg.CalendarID), url.PathEscape(uid))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) RescheduleEvent(ctx context.Context, uid, newStart, timezone string) (contractx.Event, error) {
	path := fmt.Sprintf("/calendars/%s/events/%s", url.PathEscape(c.cfg.CalendarID), url.PathEscape(uid))

	var existing googleEvent
	if err := c.do(ctx, http.MethodGet, path, nil, &existing); err != nil {
		return contractx.Event{}, err
	}

	duration := eventDuration
	if oldStart, err1 := time.Parse(time.RFC3339, existing.Start.DateTime); err1 == nil {
		if oldEnd, err2 := time.Parse(time.RFC3339, existing.End.DateTime); err2 == nil {
			duration = oldEnd.Sub(oldStart)
		}
	}

	start, err := time.Parse(time.RFC3339, newStart)
	if err != nil {
		return contractx.Event{}, fmt.Errorf("parse new start %q: %w", newStart, err)
	}

	body := map[string]any{
		"start": map[string]string{"dateTime": start.Format(time.RFC3339), "timeZone": timezone},
		"end":   map[string]string{"dateTime": start.Add(duration).Format(time.RFC3339), "timeZone": timezone},
	}

	var updated googleEvent
	if err := c.do(ctx, http.MethodPatch, path, body, &updated); err != nil {
		return contractx.Event{}, err
	}
	return contractx.Event{
		UID:    updated.ID,
		Title:  updated.Summary,
		Start:  updated.Start.DateTime,
		End:    updated.End.DateTime,
		Status: updated.Status,
	}, nil
}

/* ------------------------------- Internals --------------------------------- */

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
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
		return fmt.Errorf("google calendar %s %s status=%d body=%s", method, path, resp.StatusCode, string(raw))
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

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
