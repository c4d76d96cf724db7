package tool

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/Jamesonkanakulya/appointment-agent/agent/contract"
)

const defaultCancelReason = "User requested cancellation"

type checkAvailabilityArgs struct {
	Date string `json:"date"`
}

func (t *Turn) checkAvailability(ctx context.Context, args checkAvailabilityArgs) (any, error) {
	if args.Date == "" {
		return nil, errors.New("date is required")
	}

	provider, err := t.provider()
	if err != nil {
		return nil, err
	}
	slots, err := provider.FreeSlots(ctx, args.Date, t.tenant.Timezone, t.tenant.WorkdayStart, t.tenant.WorkdayEnd)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return map[string]any{
			"available": false,
			"slots":     []contractx.Slot{},
			"message":   fmt.Sprintf("No available slots on %s", args.Date),
		}, nil
	}
	return map[string]any{
		"available": true,
		"slots":     slots,
		"date":      args.Date,
	}, nil
}

type createBookingArgs struct {
	Start       string `json:"start"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (t *Turn) createBooking(ctx context.Context, args createBookingArgs) (any, error) {
	if args.Start == "" || args.Name == "" || args.Email == "" {
		return nil, errors.New("start, name, and email are required")
	}
	title := args.Title
	if title == "" {
		title = "Appointment"
	}

	provider, err := t.provider()
	if err != nil {
		return nil, err
	}
	event, err := provider.CreateEvent(ctx, contractx.CreateEventRequest{
		Start:       args.Start,
		Name:        args.Name,
		Email:       args.Email,
		Title:       title,
		Description: args.Description,
		Timezone:    t.tenant.Timezone,
	})
	if err != nil {
		return nil, err
	}

	t.rememberRef(event.UID, args.Email)

	start := event.Start
	if start == "" {
		start = args.Start
	}
	return map[string]any{
		"success": true,
		"uid":     event.UID,
		"id":      event.ID,
		"start":   start,
		"end":     event.End,
		"title":   title,
	}, nil
}

type getBookingInformationArgs struct {
	Email string `json:"email"`
}

func (t *Turn) getBookingInformation(ctx context.Context, args getBookingInformationArgs) (any, error) {
	if args.Email == "" {
		return nil, errors.New("email is required")
	}

	provider, err := t.provider()
	if err != nil {
		return nil, err
	}
	events, err := provider.EventsForAttendee(ctx, args.Email)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return map[string]any{
			"found":    false,
			"bookings": []contractx.Event{},
			"message":  fmt.Sprintf("No upcoming bookings found for %s", args.Email),
		}, nil
	}

	for _, e := range events {
		t.rememberRef(e.UID, args.Email)
	}
	return map[string]any{
		"found":    true,
		"bookings": events,
	}, nil
}

type cancelBookingArgs struct {
	EventID string `json:"event_id"`
	Email   string `json:"email"`
	Reason  string `json:"reason"`
}

func (t *Turn) cancelBooking(ctx context.Context, args cancelBookingArgs) (any, error) {
	if args.EventID == "" || args.Email == "" {
		return nil, errors.New("event_id and email are required")
	}
	if err := t.verifyRef(args.EventID, args.Email); err != nil {
		return nil, err
	}

	reason := args.Reason
	if reason == "" {
		reason = defaultCancelReason
	}

	provider, err := t.provider()
	if err != nil {
		return nil, err
	}
	if err := provider.CancelEvent(ctx, args.EventID, reason); err != nil {
		return nil, err
	}
	return map[string]any{
		"success": true,
		"uid":     args.EventID,
	}, nil
}

type rescheduleBookingArgs struct {
	EventID  string `json:"event_id"`
	Email    string `json:"email"`
	NewStart string `json:"new_start"`
}

func (t *Turn) rescheduleBooking(ctx context.Context, args rescheduleBookingArgs) (any, error) {
	if args.EventID == "" || args.Email == "" || args.NewStart == "" {
		return nil, errors.New("event_id, email, and new_start are required")
	}
	if err := t.verifyRef(args.EventID, args.Email); err != nil {
		return nil, err
	}

	provider, err := t.provider()
	if err != nil {
		return nil, err
	}
	event, err := provider.RescheduleEvent(ctx, args.EventID, args.NewStart, t.tenant.Timezone)
	if err != nil {
		return nil, err
	}

	uid := event.UID
	if uid == "" {
		uid = args.EventID
	}
	t.rememberRef(uid, args.Email)

	newStart := event.Start
	if newStart == "" {
		newStart = args.NewStart
	}
	return map[string]any{
		"success":   true,
		"uid":       uid,
		"new_start": newStart,
		"new_end":   event.End,
	}, nil
}
