// Package prompt renders the system prompt for a tenant. The template is
// embedded at compile time and parsed once; rendering injects the tenant's
// business identity plus the current wall-clock time in its timezone.
package prompt

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	_ "embed"

	tenantx "github.com/Jamesonkanakulya/appointment-agent/tenant"
)

//go:embed template/system.txt
var systemRaw string

var systemTmpl = template.Must(template.New("system").Parse(strings.TrimSpace(systemRaw)))

type systemData struct {
	BusinessName   string
	Timezone       string
	TimezoneOffset string
	WorkdayStart   string
	WorkdayEnd     string
	Now            string
}

// Build renders the system prompt for one tenant at the given instant.
func Build(t tenantx.Tenant, now time.Time) (string, error) {
	nowStr := now.UTC().Format(time.RFC3339)
	if loc, err := time.LoadLocation(t.Timezone); err == nil {
		nowStr = now.In(loc).Format(time.RFC3339)
	}

	data := systemData{
		BusinessName:   t.BusinessName,
		Timezone:       t.Timezone,
		TimezoneOffset: t.TimezoneOffset,
		WorkdayStart:   t.WorkdayStart,
		WorkdayEnd:     t.WorkdayEnd,
		Now:            nowStr,
	}

	var sb strings.Builder
	if err := systemTmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}
	return sb.String(), nil
}
