package pin

import (
	"context"
	"testing"

	guestx "github.com/Jamesonkanakulya/appointment-agent/agent/guest"
)

type fakeActiveLister struct {
	records []guestx.Record
}

func (f *fakeActiveLister) ListActive(ctx context.Context, tenantID string) ([]guestx.Record, error) {
	var out []guestx.Record
	for _, r := range f.records {
		if r.TenantID == tenantID && r.Status == guestx.StatusActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestIssueAvoidsActiveCollisions(t *testing.T) {
	t.Parallel()

	lister := &fakeActiveLister{records: []guestx.Record{
		{TenantID: "t1", PIN: "1111", Status: guestx.StatusActive},
		{TenantID: "t1", PIN: "2222", Status: guestx.StatusActive},
	}}
	p, err := NewPolicy(lister)
	if err != nil {
		t.Fatal(err)
	}

	draws := []string{"1111", "2222", "3333"}
	p.draw = func() (string, error) {
		next := draws[0]
		draws = draws[1:]
		return next, nil
	}

	code, err := p.Issue(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	if code != "3333" {
		t.Fatalf("expected third draw to win, got %q", code)
	}
}

func TestIssueIgnoresCanceledRecords(t *testing.T) {
	t.Parallel()

	lister := &fakeActiveLister{records: []guestx.Record{
		{TenantID: "t1", PIN: "4444", Status: guestx.StatusCanceled},
	}}
	p, err := NewPolicy(lister)
	if err != nil {
		t.Fatal(err)
	}
	p.draw = func() (string, error) { return "4444", nil }

	code, err := p.Issue(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	if code != "4444" {
		t.Fatalf("canceled record should not block reuse, got %q", code)
	}
}

func TestIssueAcceptsLastDrawAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	lister := &fakeActiveLister{records: []guestx.Record{
		{TenantID: "t1", PIN: "5555", Status: guestx.StatusActive},
	}}
	p, err := NewPolicy(lister)
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	p.draw = func() (string, error) {
		calls++
		return "5555", nil
	}

	code, err := p.Issue(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	if code != "5555" {
		t.Fatalf("expected last draw accepted, got %q", code)
	}
	if calls != defaultMaxAttempts {
		t.Fatalf("expected %d draws, got %d", defaultMaxAttempts, calls)
	}
}

func TestIssueProducesValidFormat(t *testing.T) {
	t.Parallel()

	p, err := NewPolicy(&fakeActiveLister{})
	if err != nil {
		t.Fatal(err)
	}
	for range 50 {
		code, err := p.Issue(context.Background(), "t1")
		if err != nil {
			t.Fatal(err)
		}
		if !ValidFormat(code) {
			t.Fatalf("issued code %q is not a valid 4-digit pin", code)
		}
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	cases := []struct {
		stored, supplied string
		want             bool
	}{
		{"7392", "7392", true},
		{"7392", " 7392 ", true},
		{"7392", "1234", false},
		{"7392", "739", false},
		{"7392", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		if got := Compare(tc.stored, tc.supplied); got != tc.want {
			t.Errorf("Compare(%q, %q) = %v, want %v", tc.stored, tc.supplied, got, tc.want)
		}
	}
}

func TestValidFormat(t *testing.T) {
	t.Parallel()

	valid := []string{"1000", "9999", "4821"}
	for _, s := range valid {
		if !ValidFormat(s) {
			t.Errorf("ValidFormat(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "999", "10000", "0123", "abcd", "12 4"}
	for _, s := range invalid {
		if ValidFormat(s) {
			t.Errorf("ValidFormat(%q) = true, want false", s)
		}
	}
}
