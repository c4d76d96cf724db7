// Package notify delivers outbound email on behalf of a tenant. Delivery is
// best effort: a tenant without SMTP credentials gets a logged no-op rather
// than a failed conversation turn.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"

	contractx "github.com/Jamesonkanakulya/appointment-agent/agent/contract"
	"github.com/Jamesonkanakulya/appointment-agent/pkg/secrets"
	tenantx "github.com/Jamesonkanakulya/appointment-agent/tenant"
)

const skipNote = "SMTP not configured for this tenant; notification recorded but not delivered"

// SMTPNotifier sends through the tenant's own SMTP relay.
type SMTPNotifier struct {
	tenant tenantx.Tenant
	box    *secrets.Box
}

var _ contractx.Notifier = (*SMTPNotifier)(nil)

func NewSMTPNotifier(t tenantx.Tenant, box *secrets.Box) *SMTPNotifier {
	return &SMTPNotifier{tenant: t, box: box}
}

func (n *SMTPNotifier) Send(ctx context.Context, req contractx.NotifyRequest) (contractx.NotifyResult, error) {
	if !n.tenant.SMTPConfigured() {
		log.Warn().
			Str("tenant_id", n.tenant.ID).
			Str("to", req.ToAddress).
			Msg("notification skipped, no smtp credentials")
		return contractx.NotifyResult{Sent: false, Note: skipNote}, nil
	}

	msg := mail.NewMsg()
	from := n.tenant.SMTPFromEmail
	if from == "" {
		from = n.tenant.SMTPUser
	}
	if err := msg.From(from); err != nil {
		return contractx.NotifyResult{}, fmt.Errorf("set sender %q: %w", from, err)
	}
	if err := msg.AddToFormat(req.ToName, req.ToAddress); err != nil {
		return contractx.NotifyResult{}, fmt.Errorf("set recipient %q: %w", req.ToAddress, err)
	}
	msg.Subject(req.Subject)
	msg.SetBodyString(mail.TypeTextPlain, req.Body)

	client, err := mail.NewClient(n.tenant.SMTPHost,
		mail.WithPort(n.tenant.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.tenant.SMTPUser),
		mail.WithPassword(n.box.Open(n.tenant.SMTPPassword)),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return contractx.NotifyResult{}, fmt.Errorf("build smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return contractx.NotifyResult{}, fmt.Errorf("%w: send notification: %v", contractx.ErrProvider, err)
	}

	log.Info().
		Str("tenant_id", n.tenant.ID).
		Str("to", req.ToAddress).
		Str("subject", req.Subject).
		Msg("notification delivered")
	return contractx.NotifyResult{Sent: true}, nil
}
