// Package pin issues and compares the 4-digit verification codes that prove
// booking ownership. A code is disclosed to the guest only at the moment it
// is first issued (new booking) or re-issued (successful reschedule), never
// during lookup, verification, or cancellation.
package pin

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	guestx "github.com/Jamesonkanakulya/appointment-agent/agent/guest"
)

const (
	pinMin = 1000
	pinMax = 9999

	// Draw attempts before accepting the last value regardless of collision.
	// With 9000 possible codes the residual collision probability after 20
	// draws is negligible for realistic tenant sizes.
	defaultMaxAttempts = 20
)

var pinPattern = regexp.MustCompile(`^[1-9][0-9]{3}$`)

// ActiveLister is the slice of the guest store the policy needs: the codes
// currently held by Active records. Canceled records do not participate in
// the uniqueness scan, so their codes may be reissued immediately.
type ActiveLister interface {
	ListActive(ctx context.Context, tenantID string) ([]guestx.Record, error)
}

// Policy generates collision-free codes per tenant.
type Policy struct {
	guests      ActiveLister
	maxAttempts int
	draw        func() (string, error)
}

func NewPolicy(guests ActiveLister) (*Policy, error) {
	if guests == nil {
		return nil, fmt.Errorf("guest store is required")
	}
	return &Policy{
		guests:      guests,
		maxAttempts: defaultMaxAttempts,
		draw:        drawRandom,
	}, nil
}

// Issue draws a 4-digit code not held by any currently Active record of the
// tenant. After maxAttempts collisions the last draw is accepted.
func (p *Policy) Issue(ctx context.Context, tenantID string) (string, error) {
	active, err := p.guests.ListActive(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("list active records: %w", err)
	}
	taken := make(map[string]struct{}, len(active))
	for _, r := range active {
		taken[r.PIN] = struct{}{}
	}

	var code string
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		code, err = p.draw()
		if err != nil {
			return "", fmt.Errorf("draw pin: %w", err)
		}
		if _, collision := taken[code]; !collision {
			return code, nil
		}
	}
	return code, nil
}

// Taken reports whether code is already held by an Active record.
func (p *Policy) Taken(ctx context.Context, tenantID, code string) (bool, error) {
	active, err := p.guests.ListActive(ctx, tenantID)
	if err != nil {
		return false, fmt.Errorf("list active records: %w", err)
	}
	for _, r := range active {
		if r.PIN == code {
			return true, nil
		}
	}
	return false, nil
}

// Compare checks a supplied code against the stored one: exact string
// equality, with only surrounding whitespace trimmed from both sides.
func Compare(stored, supplied string) bool {
	stored = strings.TrimSpace(stored)
	supplied = strings.TrimSpace(supplied)
	return stored != "" && stored == supplied
}

// ValidFormat reports whether code is a 4-digit numeral in 1000-9999.
func ValidFormat(code string) bool {
	return pinPattern.MatchString(code)
}

func drawRandom() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(pinMax-pinMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", pinMin+n.Int64()), nil
}
