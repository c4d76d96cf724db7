package guest

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

var (
	ErrRecordNotFound    = errors.New("guest record not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Status of a guest record's booking.
type Status string

const (
	StatusActive      Status = "Active"
	StatusCanceled    Status = "Canceled"
	StatusRescheduled Status = "Rescheduled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCanceled, StatusRescheduled:
		return true
	}
	return false
}

// Live reports whether the record still backs a real upcoming booking.
// A rescheduled record is an active booking under a new time and PIN.
func (s Status) Live() bool {
	return s == StatusActive || s == StatusRescheduled
}

// CanTransition reports whether the conversational flow may move a record
// from one status to another. Canceled is terminal: a fresh booking requires
// a brand-new record.
func CanTransition(from, to Status) bool {
	if !to.Valid() {
		return false
	}
	if from == StatusCanceled {
		return false
	}
	return true
}

// Record is the durable proof of booking ownership: the row binding an email
// to a PIN, a status, and a calendar reference. Creation always inserts a new
// row; the most recently updated row for (tenant, email) is authoritative.
type Record struct {
	bun.BaseModel `bun:"table:guest_records"`

	ID              int64     `bun:"id,pk,autoincrement" json:"id"`
	TenantID        string    `bun:"tenant_id,notnull" json:"tenant_id"`
	Name            string    `bun:"name" json:"name"`
	Email           string    `bun:"email,notnull" json:"email"`
	PIN             string    `bun:"pin_code,notnull" json:"pin_code"`
	BookingTime     time.Time `bun:"booking_time,nullzero" json:"booking_time,omitempty"`
	Status          Status    `bun:"status,notnull,default:'Active'" json:"status"`
	MeetingTitle    string    `bun:"meeting_title" json:"meeting_title,omitempty"`
	CalendarEventID string    `bun:"calendar_event_id" json:"calendar_event_id,omitempty"`
	CreatedAt       time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Patch is a partial update applied to the latest record for an email.
// Nil fields are left untouched.
type Patch struct {
	Status          *Status
	PIN             *string
	BookingTime     *time.Time
	MeetingTitle    *string
	CalendarEventID *string
}
