package state

import (
	"errors"
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/Jamesonkanakulya/appointment-agent/agent/contract"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNilSession      = errors.New("session is nil")
	ErrInvalidSession  = errors.New("session id is empty")
)

// MaxMessages is the hard cap on a session's stored history. Every save
// truncates to the most recent MaxMessages entries, oldest first.
const MaxMessages = 40

// Session is one conversation thread, identified by (tenant id, session id).
type Session struct {
	bun.BaseModel `bun:"table:sessions"`

	ID        int64               `bun:"id,pk,autoincrement" json:"id,omitempty"`
	TenantID  string              `bun:"tenant_id,notnull" json:"tenant_id"`
	SessionID string              `bun:"session_id,notnull" json:"session_id"`
	Messages  []contractx.Message `bun:"messages,type:jsonb" json:"messages"`
	CreatedAt time.Time           `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time           `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Truncate drops the oldest messages until at most limit remain. It is a hard
// cap on count, not a sliding window keyed by time.
func Truncate(messages []contractx.Message, limit int) []contractx.Message {
	if limit <= 0 || len(messages) <= limit {
		return messages
	}
	return messages[len(messages)-limit:]
}
