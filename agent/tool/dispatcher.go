// Package tool routes the model's tool invocations to the capability
// providers. A fixed registry of ten names is matched exhaustively; anything
// else comes back as an error envelope, never a crash of the turn.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/Jamesonkanakulya/appointment-agent/agent/contract"
	"github.com/Jamesonkanakulya/appointment-agent/agent/guest"
	"github.com/Jamesonkanakulya/appointment-agent/agent/pin"
	tenantx "github.com/Jamesonkanakulya/appointment-agent/tenant"
)

// ProviderFactory builds the calendar backend a tenant's configuration
// selects. calendar.Factory satisfies this; tests substitute fakes.
type ProviderFactory interface {
	ForTenant(t tenantx.Tenant) (contractx.CalendarProvider, error)
}

// NotifierFactory builds the outbound notifier for one tenant.
type NotifierFactory func(t tenantx.Tenant) contractx.Notifier

type Dispatcher struct {
	guests    guest.Store
	pins      *pin.Policy
	providers ProviderFactory
	notifiers NotifierFactory
	now       func() time.Time
}

type Option func(*Dispatcher)

// WithClock fixes the dispatcher's notion of now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(guests guest.Store, pins *pin.Policy, providers ProviderFactory, notifiers NotifierFactory, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		guests:    guests,
		pins:      pins,
		providers: providers,
		notifiers: notifiers,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Turn scopes dispatch to one orchestration run. It tracks which calendar
// references this turn has legitimately seen, so a reference volunteered by
// the user (rather than obtained from a lookup) is rejected.
type Turn struct {
	d      *Dispatcher
	tenant tenantx.Tenant

	// calendar reference -> owning email, as returned by lookups and
	// mutations during this turn.
	refs map[string]string
}

func (d *Dispatcher) Begin(t tenantx.Tenant) *Turn {
	return &Turn{d: d, tenant: t, refs: make(map[string]string)}
}

// Execute runs one tool invocation and normalizes the outcome into a result
// envelope. Handler panics and provider errors become error payloads the
// model can react to; they never abort the loop.
func (t *Turn) Execute(ctx context.Context, call contractx.ToolCall) (res contractx.ToolResult) {
	res = contractx.ToolResult{Tool: call.Name, CallID: call.ID}

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("tool", call.Name).
				Any("panic", r).
				Msg("tool handler panicked")
			res.Result = nil
			res.Error = fmt.Sprintf("tool %s failed: %v", call.Name, r)
		}
	}()

	result, err := t.dispatch(ctx, call)
	if err != nil {
		log.Warn().
			Str("tool", call.Name).
			Str("tenant_id", t.tenant.ID).
			Err(err).
			Msg("tool returned error")
		res.Error = err.Error()
		return res
	}
	res.Result = result
	return res
}

func (t *Turn) dispatch(ctx context.Context, call contractx.ToolCall) (any, error) {
	switch call.Name {
	case NameCheckAvailability:
		var args checkAvailabilityArgs
		decodeArgs(call.Arguments, &args)
		return t.checkAvailability(ctx, args)
	case NameCreateBooking:
		var args createBookingArgs
		decodeArgs(call.Arguments, &args)
		return t.createBooking(ctx, args)
	case NameGetBookingInformation:
		var args getBookingInformationArgs
		decodeArgs(call.Arguments, &args)
		return t.getBookingInformation(ctx, args)
	case NameCancelBooking:
		var args cancelBookingArgs
		decodeArgs(call.Arguments, &args)
		return t.cancelBooking(ctx, args)
	case NameRescheduleBooking:
		var args rescheduleBookingArgs
		decodeArgs(call.Arguments, &args)
		return t.rescheduleBooking(ctx, args)
	case NameSearchGuestRecord:
		var args searchGuestRecordArgs
		decodeArgs(call.Arguments, &args)
		return t.searchGuestRecord(ctx, args)
	case NameSearchAllGuests:
		return t.searchAllGuests(ctx)
	case NameAddGuestRecord:
		var args addGuestRecordArgs
		decodeArgs(call.Arguments, &args)
		return t.addGuestRecord(ctx, args)
	case NameUpdateGuestRecord:
		var args updateGuestRecordArgs
		decodeArgs(call.Arguments, &args)
		return t.updateGuestRecord(ctx, args)
	case NameSendNotification:
		var args sendNotificationArgs
		decodeArgs(call.Arguments, &args)
		return t.sendNotification(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", call.Name)
	}
}

// decodeArgs parses the model's JSON arguments. Malformed payloads degrade to
// zero-value args; the handler reports the missing required fields itself.
func decodeArgs(raw string, out any) {
	if raw == "" {
		return
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		log.Debug().Str("arguments", raw).Err(err).Msg("malformed tool arguments, treating as empty")
	}
}

func (t *Turn) provider() (contractx.CalendarProvider, error) {
	return t.d.providers.ForTenant(t.tenant)
}

// rememberRef records that this turn saw a calendar reference belonging to
// an email, establishing provenance for later cancel/reschedule calls.
func (t *Turn) rememberRef(ref, email string) {
	if ref == "" {
		return
	}
	t.refs[ref] = guest.NormalizeEmail(email)
}

// verifyRef checks that a calendar reference was obtained during this turn
// and belongs to the supplied email.
func (t *Turn) verifyRef(ref, email string) error {
	owner, ok := t.refs[ref]
	if !ok {
		return fmt.Errorf("calendar reference %q was not returned by a lookup in this conversation turn; call get_booking_information first", ref)
	}
	if owner != guest.NormalizeEmail(email) {
		return fmt.Errorf("calendar reference %q does not belong to %s", ref, email)
	}
	return nil
}
