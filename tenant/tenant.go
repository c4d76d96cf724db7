package tenant

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

var ErrNotFound = errors.New("tenant not found")

// Calendar provider selectors.
const (
	ProviderCalCom   = "calcom"
	ProviderGoogle   = "google"
	ProviderMSGraph  = "msgraph"
	defaultTimezone  = "UTC"
	defaultWorkStart = "09:00"
	defaultWorkEnd   = "17:00"
)

// Tenant is one configured business instance. Every conversational operation
// is scoped by its ID. The struct is passed by value into a turn and never
// mutated by the conversational core. Credential fields hold ciphertext; they
// are decrypted only at provider construction.
type Tenant struct {
	bun.BaseModel `bun:"table:tenants"`

	ID          string `bun:"id,pk" json:"id"`
	Name        string `bun:"name,notnull" json:"name"`
	WebhookPath string `bun:"webhook_path,notnull,unique" json:"webhook_path"`
	Active      bool   `bun:"active,notnull,default:true" json:"active"`

	Timezone       string `bun:"timezone,notnull,default:'UTC'" json:"timezone"`
	TimezoneOffset string `bun:"timezone_offset,notnull,default:'+00:00'" json:"timezone_offset"`
	BusinessName   string `bun:"business_name,notnull" json:"business_name"`
	WorkdayStart   string `bun:"workday_start,notnull,default:'09:00'" json:"workday_start"`
	WorkdayEnd     string `bun:"workday_end,notnull,default:'17:00'" json:"workday_end"`

	CalendarProvider string `bun:"calendar_provider,notnull,default:'calcom'" json:"calendar_provider"`

	// Cal.com v1 credentials.
	CalComAPIKey      string `bun:"calcom_api_key" json:"-"`
	CalComEventTypeID int64  `bun:"calcom_event_type_id" json:"calcom_event_type_id,omitempty"`

	// Google Calendar credentials.
	GoogleCalendarID string `bun:"google_calendar_id" json:"google_calendar_id,omitempty"`
	GoogleToken      string `bun:"google_token" json:"-"`

	// Microsoft Graph credentials.
	MSClientID     string `bun:"ms_client_id" json:"ms_client_id,omitempty"`
	MSClientSecret string `bun:"ms_client_secret" json:"-"`
	MSTenantID     string `bun:"ms_tenant_id" json:"ms_tenant_id,omitempty"`
	MSUserEmail    string `bun:"ms_user_email" json:"ms_user_email,omitempty"`

	// SMTP sender identity. Password is ciphertext.
	SMTPHost      string `bun:"smtp_host" json:"smtp_host,omitempty"`
	SMTPPort      int    `bun:"smtp_port,default:587" json:"smtp_port,omitempty"`
	SMTPUser      string `bun:"smtp_user" json:"smtp_user,omitempty"`
	SMTPPassword  string `bun:"smtp_password" json:"-"`
	SMTPFromEmail string `bun:"smtp_from_email" json:"smtp_from_email,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Normalize fills zero-valued scheduling fields with their defaults.
func (t *Tenant) Normalize() {
	if t.Timezone == "" {
		t.Timezone = defaultTimezone
	}
	if t.WorkdayStart == "" {
		t.WorkdayStart = defaultWorkStart
	}
	if t.WorkdayEnd == "" {
		t.WorkdayEnd = defaultWorkEnd
	}
	if t.CalendarProvider == "" {
		t.CalendarProvider = ProviderCalCom
	}
}

// SMTPConfigured reports whether the tenant carries a usable sender identity.
func (t Tenant) SMTPConfigured() bool {
	return t.SMTPHost != "" && t.SMTPUser != "" && t.SMTPPassword != ""
}
