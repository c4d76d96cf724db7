package contract

import "context"

// ChatModel is the language-model boundary. One Complete call is one model
// round trip within a turn.
type ChatModel interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// CalendarProvider is the calendar backend boundary. Implementations may
// satisfy RescheduleEvent with a cancel-and-recreate fallback when the
// backend has no in-place move.
type CalendarProvider interface {
	FreeSlots(ctx context.Context, date, timezone, workdayStart, workdayEnd string) ([]Slot, error)
	CreateEvent(ctx context.Context, req CreateEventRequest) (Event, error)
	EventsForAttendee(ctx context.Context, email string) ([]Event, error)
	CancelEvent(ctx context.Context, uid, reason string) error
	RescheduleEvent(ctx context.Context, uid, newStart, timezone string) (Event, error)
}

// Notifier delivers one message to one address.
type Notifier interface {
	Send(ctx context.Context, req NotifyRequest) (NotifyResult, error)
}
