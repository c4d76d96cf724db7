package notify

import (
	"context"
	"testing"

	contractx "github.com/Jamesonkanakulya/appointment-agent/agent/contract"
	"github.com/Jamesonkanakulya/appointment-agent/pkg/secrets"
	tenantx "github.com/Jamesonkanakulya/appointment-agent/tenant"
)

func TestSendSkipsWhenUnconfigured(t *testing.T) {
	t.Parallel()

	box, err := secrets.NewBox(secrets.Config{})
	if err != nil {
		t.Fatal(err)
	}
	n := NewSMTPNotifier(tenantx.Tenant{ID: "t1", Name: "Bare"}, box)

	res, err := n.Send(context.Background(), contractx.NotifyRequest{
		ToName: "Ada", ToAddress: "a@x.com", Subject: "Hi", Body: "Hello",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Sent {
		t.Fatal("delivery must be skipped without smtp credentials")
	}
	if res.Note == "" {
		t.Fatal("skip must be explained in the note")
	}
}
