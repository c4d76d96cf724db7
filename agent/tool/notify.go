package tool

import (
	"context"
	"errors"

	contractx "github.com/Jamesonkanakulya/appointment-agent/agent/contract"
)

type sendNotificationArgs struct {
	GuestName    string `json:"guest_name"`
	EmailAddress string `json:"email_address"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
}

func (t *Turn) sendNotification(ctx context.Context, args sendNotificationArgs) (any, error) {
	if args.EmailAddress == "" {
		return nil, errors.New("email_address is required")
	}
	subject := args.Subject
	if subject == "" {
		subject = "Booking Notification"
	}

	notifier := t.d.notifiers(t.tenant)
	result, err := notifier.Send(ctx, contractx.NotifyRequest{
		ToName:    args.GuestName,
		ToAddress: args.EmailAddress,
		Subject:   subject,
		Body:      args.Body,
	})
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"success": true,
		"sent":    result.Sent,
		"subject": subject,
	}
	if result.Sent {
		out["sent_to"] = args.EmailAddress
	} else {
		out["note"] = result.Note
		out["would_have_sent_to"] = args.EmailAddress
	}
	return out, nil
}
