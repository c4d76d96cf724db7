package tool

import contractx "github.com/Jamesonkanakulya/appointment-agent/agent/contract"

// Tool names the model may request. The dispatcher matches these exhaustively.
const (
	NameCheckAvailability     = "check_availability"
	NameCreateBooking         = "create_booking"
	NameGetBookingInformation = "get_booking_information"
	NameCancelBooking         = "cancel_booking"
	NameRescheduleBooking     = "reschedule_booking"
	NameSearchGuestRecord     = "search_guest_record"
	NameSearchAllGuests       = "search_all_guests"
	NameAddGuestRecord        = "add_guest_record"
	NameUpdateGuestRecord     = "update_guest_record"
	NameSendNotification      = "send_notification"
)

// Catalog returns the schemas for the ten tools exposed to the model.
func Catalog() []contractx.ToolSchema {
	return []contractx.ToolSchema{
		{
			Name: NameCheckAvailability,
			Description: "Check available appointment slots for a given date. " +
				"Returns a list of free time slots during business hours.",
			Parameters: objectSchema(map[string]any{
				"date": prop("string", "Date to check in YYYY-MM-DD format (e.g., 2026-02-20)"),
			}, "date"),
		},
		{
			Name: NameCreateBooking,
			Description: "Create a new appointment booking on the calendar. " +
				"ONLY call this after confirming availability.",
			Parameters: objectSchema(map[string]any{
				"start":       prop("string", "Start time in ISO 8601 format (e.g., 2026-02-20T10:00:00+04:00)"),
				"name":        prop("string", "Guest's full name"),
				"email":       prop("string", "Guest's email address"),
				"title":       prop("string", "Meeting title"),
				"description": prop("string", "Meeting description"),
			}, "start", "name", "email", "title"),
		},
		{
			Name: NameGetBookingInformation,
			Description: "Retrieve existing upcoming bookings for a guest by their email address. " +
				"Returns booking details including event_id (needed for cancel/reschedule).",
			Parameters: objectSchema(map[string]any{
				"email": prop("string", "Guest's email address"),
			}, "email"),
		},
		{
			Name: NameCancelBooking,
			Description: "Cancel an existing booking. Requires the event_id from get_booking_information. " +
				"PIN must be verified BEFORE calling this tool.",
			Parameters: objectSchema(map[string]any{
				"event_id": prop("string", "Calendar event ID from get_booking_information"),
				"email":    prop("string", "Guest's email address"),
				"reason":   prop("string", "Reason for cancellation (default: 'User requested cancellation')"),
			}, "event_id", "email"),
		},
		{
			Name: NameRescheduleBooking,
			Description: "Reschedule an existing booking to a new time. " +
				"Requires the event_id from get_booking_information. " +
				"PIN must be verified BEFORE calling this tool. " +
				"A new unique PIN is issued after a successful reschedule.",
			Parameters: objectSchema(map[string]any{
				"event_id":  prop("string", "Calendar event ID from get_booking_information"),
				"email":     prop("string", "Guest's email address"),
				"new_start": prop("string", "New start time in ISO 8601 format"),
			}, "event_id", "email", "new_start"),
		},
		{
			Name: NameSearchGuestRecord,
			Description: "Look up a guest record by email address. " +
				"Returns the guest's name, PIN code (for internal verification), " +
				"and booking status. ALWAYS call this before cancel/reschedule to get the PIN.",
			Parameters: objectSchema(map[string]any{
				"email": prop("string", "Guest's email address"),
			}, "email"),
		},
		{
			Name: NameSearchAllGuests,
			Description: "Retrieve all guest records for this business: name, email, " +
				"PIN code, and status. Use when checking PIN uniqueness.",
			Parameters: objectSchema(map[string]any{}),
		},
		{
			Name: NameAddGuestRecord,
			Description: "Add a new guest record to the database with a PIN code. " +
				"ONLY call this when creating a NEW booking (not for cancel/reschedule). " +
				"The response carries the PIN that was actually stored.",
			Parameters: objectSchema(map[string]any{
				"name":              prop("string", "Guest's full name"),
				"email":             prop("string", "Guest's email address"),
				"pin_code":          prop("string", "4-digit PIN code (e.g., '4821'). Must be unique."),
				"booking_time":      prop("string", "Booking time in ISO 8601 format"),
				"meeting_title":     prop("string", "Meeting title"),
				"calendar_event_id": prop("string", "Calendar event ID returned by create_booking"),
			}, "name", "email", "pin_code", "booking_time", "meeting_title", "calendar_event_id"),
		},
		{
			Name: NameUpdateGuestRecord,
			Description: "Update an existing guest record (status, PIN, booking time). " +
				"Use for cancel (status='Canceled') and reschedule (new booking_time + new PIN). " +
				"Do NOT use for new bookings; use add_guest_record instead.",
			Parameters: objectSchema(map[string]any{
				"email": prop("string", "Guest's email address (used to find the record)"),
				"status": map[string]any{
					"type":        "string",
					"enum":        []string{"Active", "Canceled", "Rescheduled"},
					"description": "New status",
				},
				"pin_code":          prop("string", "New 4-digit PIN (required for reschedule, omit for cancel)"),
				"booking_time":      prop("string", "New booking time in ISO 8601 (required for reschedule)"),
				"calendar_event_id": prop("string", "Updated calendar event ID (if changed)"),
			}, "email", "status"),
		},
		{
			Name: NameSendNotification,
			Description: "Send an email notification to the guest. " +
				"ONLY call after successfully creating, canceling, or rescheduling a booking.",
			Parameters: objectSchema(map[string]any{
				"guest_name":    prop("string", "Guest's full name"),
				"email_address": prop("string", "Guest's email address"),
				"subject":       prop("string", "Email subject line"),
				"body":          prop("string", "Plain-text email body"),
			}, "email_address", "subject", "body"),
		},
	}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}
