// Package calcom talks to the Cal.com v1 REST API. Authentication is the
// ?apiKey= query parameter; v1 has no in-place reschedule on some plans, so
// RescheduleEvent falls back to cancel-and-recreate when PATCH is rejected.
package calcom

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
	defaultBaseURL = "https://api.cal.com/v1"
	defaultTimeout = 30 * time.Second

	// Cal.com slot responses carry start times only.
	slotDuration = 30 * time.Minute

	maxResponseSizeBytes = 2 << 20
)

type Config struct {
	BaseURL     string
	APIKey      string
	EventTypeID int64
	Timeout     time.Duration
}

type Client struct {
	baseURL     string
	apiKey      string
	eventTypeID int64
	httpClient  *http.Client
}

var _ contractx.CalendarProvider = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("cal.com api key is required")
	}
	if cfg.EventTypeID <= 0 {
		return nil, errors.New("cal.com event type id is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		eventTypeID: cfg.EventTypeID,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

/* ------------------------------ Availability ------------------------------ */

type slotsResponse struct {
	Slots map[string][]struct {
		Time      string `json:"time"`
		StartTime string `json:"startTime"`
	} `json:"slots"`
}

func (c *Client) FreeSlots(ctx context.Context, date, timezone, workdayStart, workdayEnd string) ([]contractx.Slot, error) {
	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	params.Set("startTime", date+"T00:00:00.000Z")
	params.Set("endTime", date+"T23:59:59.000Z")
	params.Set("eventTypeId", fmt.Sprint(c.eventTypeID))
	params.Set("timeZone", timezone)

	var parsed slotsResponse
	if err := c.do(ctx, http.MethodGet, "/slots/available", params, nil, &parsed); err != nil {
		return nil, err
	}

	var out []contractx.Slot
	for _, daySlots := range parsed.Slots {
		for _, slot := range daySlots {
			start := slot.Time
			if start == "" {
				start = slot.StartTime
			}
			if start == "" {
				continue
			}
			startAt, err := time.Parse(time.RFC3339, start)
			if err != nil {
				out = append(out, contractx.Slot{Start: start, End: start})
				continue
			}
			out = append(out, contractx.Slot{
				Start: startAt.Format(time.RFC3339),
				End:   startAt.Add(slotDuration).Format(time.RFC3339),
			})
		}
	}
	return out, nil
}

/* -------------------------------- Create ---------------------------------- */

type bookingResponse struct {
	UID       string `json:"uid"`
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Status    string `json:"status"`
	Attendees []struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		TimeZone string `json:"timeZone"`
	} `json:"attendees"`
}

func (c *Client) CreateEvent(ctx context.Context, req contractx.CreateEventRequest) (contractx.Event, error) {
	body := map[string]any{
		"eventTypeId": c.eventTypeID,
		"start":       req.Start,
		"responses": map[string]any{
			"name":  req.Name,
			"email": req.Email,
		},
		"timeZone": req.Timezone,
		"language": "en",
		"metadata": map[string]any{},
	}

	var parsed bookingResponse
	if err := c.do(ctx, http.MethodPost, "/bookings", c.authParams(), body, &parsed); err != nil {
		return contractx.Event{}, err
	}

	ev := contractx.Event{
		UID:   parsed.UID,
		ID:    parsed.ID,
		Title: parsed.Title,
		Start: parsed.StartTime,
		End:   parsed.EndTime,
	}
	if ev.Title == "" {
		ev.Title = req.Title
	}
	if ev.Start == "" {
		ev.Start = req.Start
	}
	return ev, nil
}

/* --------------------------------- List ----------------------------------- */

func (c *Client) EventsForAttendee(ctx context.Context, email string) ([]contractx.Event, error) {
	params := c.authParams()
	params.Set("status", "upcoming")

	bookings, err := c.listBookings(ctx, params)
	if err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	var out []contractx.Event
	for _, b := range bookings {
		for _, a := range b.Attendees {
			if strings.ToLower(a.Email) != email {
				continue
			}
			out = append(out, contractx.Event{
				UID:           b.UID,
				ID:            b.ID,
				Title:         b.Title,
				Start:         b.StartTime,
				End:           b.EndTime,
				Status:        b.Status,
				AttendeeName:  a.Name,
				AttendeeEmail: a.Email,
			})
			break
		}
	}
	return out, nil
}

/* -------------------------------- Cancel ----------------------------------- */

func (c *Client) CancelEvent(ctx context.Context, uid, reason string) error {
	id := uid
	if b, err := c.bookingByUID(ctx, uid); err == nil && b != nil {
		id = fmt.Sprint(b.ID)
	}

	params := c.authParams()
	if reason != "" {
		params.Set("cancellationReason", reason)
	}
	err := c.do(ctx, http.MethodDelete, "/bookings/"+id, params, nil, nil)
	if err == nil {
		return nil
	}

	// Some API versions use POST /bookings/cancel instead.
	body := map[string]any{"id": id, "cancellationReason": reason}
	if err2 := c.do(ctx, http.MethodPost, "/bookings/cancel", c.authParams(), body, nil); err2 != nil {
		return fmt.Errorf("cancel booking uid=%s: %w", uid, err)
	}
	return nil
}

/* ------------------------------ Reschedule --------------------------------- */

func (c *Client) RescheduleEvent(ctx context.Context, uid, newStart, timezone string) (contractx.Event, error) {
	original, err := c.bookingByUID(ctx, uid)
	if err != nil {
		return contractx.Event{}, err
	}

	if original != nil {
		var parsed bookingResponse
		body := map[string]any{"start": newStart}
		patchErr := c.do(ctx, http.MethodPatch, fmt.Sprintf("/bookings/%d", original.ID), c.authParams(), body, &parsed)
		if patchErr == nil {
			ev := contractx.Event{
				UID:   parsed.UID,
				ID:    parsed.ID,
				Start: parsed.StartTime,
				End:   parsed.EndTime,
				Title: parsed.Title,
			}
			if ev.UID == "" {
				ev.UID = uid
			}
			if ev.Start == "" {
				ev.Start = newStart
			}
			return ev, nil
		}
	}

	// Fallback: cancel and recreate with the original attendee.
	if original == nil {
		return contractx.Event{}, fmt.Errorf("booking uid=%s not found", uid)
	}
	if err := c.CancelEvent(ctx, uid, "Rescheduled by agent"); err != nil {
		return contractx.Event{}, err
	}

	var name, email, tz string
	if len(original.Attendees) > 0 {
		name = original.Attendees[0].Name
		email = original.Attendees[0].Email
		tz = original.Attendees[0].TimeZone
	}
	if name == "" {
		name = "Guest"
	}
	if tz == "" {
		tz = timezone
	}
	return c.CreateEvent(ctx, contractx.CreateEventRequest{
		Start:    newStart,
		Name:     name,
		Email:    email,
		Title:    original.Title,
		Timezone: tz,
	})
}

/* ------------------------------- Internals --------------------------------- */

type bookingsResponse struct {
	Bookings []bookingResponse `json:"bookings"`
}

func (c *Client) listBookings(ctx context.Context, params url.Values) ([]bookingResponse, error) {
	var parsed bookingsResponse
	if err := c.do(ctx, http.MethodGet, "/bookings", params, nil, &parsed); err != nil {
		return nil, err
	}
	return parsed.Bookings, nil
}

func (c *Client) bookingByUID(ctx context.Context, uid string) (*bookingResponse, error) {
	bookings, err := c.listBookings(ctx, c.authParams())
	if err != nil {
		return nil, err
	}
	for i := range bookings {
		if bookings[i].UID == uid {
			return &bookings[i], nil
		}
	}
	return nil, nil
}

func (c *Client) authParams() url.Values {
	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	return params
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
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
		return fmt.Errorf("cal.com %s %s status=%d body=%s", method, path, resp.StatusCode, string(raw))
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
