package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Jamesonkanakulya/appointment-agent/agent/guest"
	"github.com/Jamesonkanakulya/appointment-agent/agent/pin"
)

type searchGuestRecordArgs struct {
	Email string `json:"email"`
}

func (t *Turn) searchGuestRecord(ctx context.Context, args searchGuestRecordArgs) (any, error) {
	email := guest.NormalizeEmail(args.Email)
	if email == "" {
		return nil, errors.New("email is required")
	}

	record, err := t.d.guests.FindLatestByEmail(ctx, t.tenant.ID, email)
	if errors.Is(err, guest.ErrRecordNotFound) {
		return map[string]any{
			"found":   false,
			"message": fmt.Sprintf("No guest record found for %s", email),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	// The lookup establishes provenance for the stored calendar reference.
	t.rememberRef(record.CalendarEventID, record.Email)

	bookingTime := ""
	if !record.BookingTime.IsZero() {
		bookingTime = record.BookingTime.Format(time.RFC3339)
	}
	return map[string]any{
		"found":         true,
		"Name":          record.Name,
		"Email":         record.Email,
		"code":          record.PIN,
		"Booking time":  bookingTime,
		"Status":        record.Status,
		"meeting_title": record.MeetingTitle,
		"booking_uid":   record.CalendarEventID,
	}, nil
}

func (t *Turn) searchAllGuests(ctx context.Context) (any, error) {
	records, err := t.d.guests.ListByTenant(ctx, t.tenant.ID)
	if err != nil {
		return nil, err
	}

	guests := make([]map[string]any, 0, len(records))
	for _, r := range records {
		guests = append(guests, map[string]any{
			"name":     r.Name,
			"email":    r.Email,
			"pin_code": r.PIN,
			"status":   r.Status,
		})
	}
	return map[string]any{
		"guests": guests,
		"count":  len(guests),
	}, nil
}

type addGuestRecordArgs struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	PinCode         string `json:"pin_code"`
	BookingTime     string `json:"booking_time"`
	MeetingTitle    string `json:"meeting_title"`
	CalendarEventID string `json:"calendar_event_id"`
}

func (t *Turn) addGuestRecord(ctx context.Context, args addGuestRecordArgs) (any, error) {
	email := guest.NormalizeEmail(args.Email)
	if email == "" {
		return nil, errors.New("email is required")
	}

	code, err := t.acceptOrIssuePIN(ctx, args.PinCode)
	if err != nil {
		return nil, err
	}

	record := &guest.Record{
		TenantID:        t.tenant.ID,
		Name:            args.Name,
		Email:           email,
		PIN:             code,
		Status:          guest.StatusActive,
		MeetingTitle:    args.MeetingTitle,
		CalendarEventID: args.CalendarEventID,
	}
	if ts, err := parseISOTime(args.BookingTime); err == nil {
		record.BookingTime = ts
	}

	if err := t.d.guests.Insert(ctx, record); err != nil {
		return nil, err
	}
	return map[string]any{
		"success":  true,
		"id":       record.ID,
		"pin_code": record.PIN,
	}, nil
}

type updateGuestRecordArgs struct {
	Email           string  `json:"email"`
	Status          string  `json:"status"`
	PinCode         *string `json:"pin_code"`
	BookingTime     *string `json:"booking_time"`
	MeetingTitle    *string `json:"meeting_title"`
	CalendarEventID *string `json:"calendar_event_id"`
}

func (t *Turn) updateGuestRecord(ctx context.Context, args updateGuestRecordArgs) (any, error) {
	email := guest.NormalizeEmail(args.Email)
	if email == "" {
		return nil, errors.New("email is required")
	}
	status := guest.Status(args.Status)
	if args.Status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", args.Status)
	}

	current, err := t.d.guests.FindLatestByEmail(ctx, t.tenant.ID, email)
	if errors.Is(err, guest.ErrRecordNotFound) {
		return nil, fmt.Errorf("no guest record found for %s", email)
	}
	if err != nil {
		return nil, err
	}
	if args.Status != "" && !guest.CanTransition(current.Status, status) {
		return nil, fmt.Errorf("%w: booking for %s is %s", guest.ErrInvalidTransition, email, current.Status)
	}

	var patch guest.Patch
	if args.Status != "" {
		patch.Status = &status
	}
	// A cancellation never touches the PIN, even if one was supplied. A
	// reschedule always rotates it: moving the booking revokes the old PIN
	// whether or not the caller suggested a replacement.
	rescheduling := status == guest.StatusRescheduled || args.BookingTime != nil
	if status != guest.StatusCanceled && (args.PinCode != nil || rescheduling) {
		supplied := ""
		if args.PinCode != nil {
			supplied = *args.PinCode
		}
		code, err := t.acceptOrIssuePIN(ctx, supplied)
		if err != nil {
			return nil, err
		}
		patch.PIN = &code
	}
	if args.BookingTime != nil {
		if ts, err := parseISOTime(*args.BookingTime); err == nil {
			patch.BookingTime = &ts
		}
	}
	if args.MeetingTitle != nil {
		patch.MeetingTitle = args.MeetingTitle
	}
	if args.CalendarEventID != nil {
		patch.CalendarEventID = args.CalendarEventID
	}

	updated, err := t.d.guests.UpdateLatestByEmail(ctx, t.tenant.ID, email, patch)
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"success": true,
		"email":   email,
		"status":  updated.Status,
	}
	if patch.PIN != nil {
		out["pin_code"] = updated.PIN
	}
	return out, nil
}

// acceptOrIssuePIN keeps a model-supplied PIN when it is well formed and not
// already held by a live record; otherwise the policy issues a fresh one. The
// stored value is echoed back so confirmations always use the real PIN.
func (t *Turn) acceptOrIssuePIN(ctx context.Context, supplied string) (string, error) {
	if pin.ValidFormat(supplied) {
		taken, err := t.d.pins.Taken(ctx, t.tenant.ID, supplied)
		if err != nil {
			return "", err
		}
		if !taken {
			return supplied, nil
		}
	}
	return t.d.pins.Issue(ctx, t.tenant.ID)
}

func parseISOTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02T15:04:05", s)
}
