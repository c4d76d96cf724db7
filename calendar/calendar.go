// Package calendar selects and constructs the calendar backend for a tenant.
// The three backends are interchangeable implementations of
// contract.CalendarProvider; the orchestration core never sees which one is
// behind the interface.
package calendar

import (
	"fmt"

	contractx "github.com/Jamesonkanakulya/appointment-agent/agent/contract"
	"github.com/Jamesonkanakulya/appointment-agent/calendar/calcom"
	"github.com/Jamesonkanakulya/appointment-agent/calendar/googlecal"
	"github.com/Jamesonkanakulya/appointment-agent/calendar/msgraph"
	"github.com/Jamesonkanakulya/appointment-agent/pkg/secrets"
	tenantx "github.com/Jamesonkanakulya/appointment-agent/tenant"
)

// Factory builds a provider for one tenant, decrypting credentials on use.
type Factory struct {
	box *secrets.Box
}

func NewFactory(box *secrets.Box) *Factory {
	return &Factory{box: box}
}

// ForTenant returns the provider the tenant's configuration selects.
func (f *Factory) ForTenant(t tenantx.Tenant) (contractx.CalendarProvider, error) {
	switch t.CalendarProvider {
	case tenantx.ProviderCalCom, "":
		return calcom.NewClient(calcom.Config{
			APIKey:      f.box.Open(t.CalComAPIKey),
			EventTypeID: t.CalComEventTypeID,
		})
	case tenantx.ProviderGoogle:
		return googlecal.NewClient(googlecal.Config{
			CalendarID:  t.GoogleCalendarID,
			AccessToken: f.box.Open(t.GoogleToken),
		})
	case tenantx.ProviderMSGraph:
		return msgraph.NewClient(msgraph.Config{
			ClientID:     t.MSClientID,
			ClientSecret: f.box.Open(t.MSClientSecret),
			TenantID:     t.MSTenantID,
			UserEmail:    t.MSUserEmail,
		})
	default:
		return nil, fmt.Errorf("unknown calendar provider %q", t.CalendarProvider)
	}
}
