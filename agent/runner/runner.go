// Package runner drives the conversation loop for one user turn: ask the
// model, execute the tool calls it requests, feed the results back, repeat
// until the model answers in plain text or the iteration cap is hit.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/Jamesonkanakulya/appointment-agent/agent/contract"
	"github.com/Jamesonkanakulya/appointment-agent/agent/prompt"
	"github.com/Jamesonkanakulya/appointment-agent/agent/state"
	"github.com/Jamesonkanakulya/appointment-agent/agent/tool"
	tenantx "github.com/Jamesonkanakulya/appointment-agent/tenant"
)

// MaxToolIterations caps the model loop. A model that keeps requesting tools
// is forced to the fallback reply after this many rounds.
const MaxToolIterations = 15

const (
	fallbackExhausted = "I'm sorry, I was unable to complete your request. Please try again."
	fallbackEmpty     = "I'm sorry, I couldn't generate a response. Please try again."
)

// ToolExecutor runs one tool invocation within the scope of a turn.
type ToolExecutor interface {
	Execute(ctx context.Context, call contractx.ToolCall) contractx.ToolResult
}

// TurnFactory opens a fresh tool-execution scope per user turn. Calendar
// reference provenance lives inside that scope.
type TurnFactory interface {
	Begin(t tenantx.Tenant) ToolExecutor
}

// Dispatch adapts a tool.Dispatcher to the TurnFactory interface.
func Dispatch(d *tool.Dispatcher) TurnFactory { return dispatchAdapter{d} }

type dispatchAdapter struct{ d *tool.Dispatcher }

func (a dispatchAdapter) Begin(t tenantx.Tenant) ToolExecutor { return a.d.Begin(t) }

type Runner struct {
	model    contractx.ChatModel
	sessions state.Store
	turns    TurnFactory
	catalog  []contractx.ToolSchema
	now      func() time.Time
}

type Option func(*Runner)

// WithClock fixes the runner's notion of now, used for prompt rendering.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func NewRunner(model contractx.ChatModel, sessions state.Store, turns TurnFactory, opts ...Option) *Runner {
	r := &Runner{
		model:    model,
		sessions: sessions,
		turns:    turns,
		catalog:  tool.Catalog(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunTurn processes one inbound user message and returns the final reply.
// A model invocation failure is fatal for the turn and leaves history
// unwritten; tool failures are fed back to the model as error payloads.
func (r *Runner) RunTurn(ctx context.Context, tenant tenantx.Tenant, sessionID, userMessage string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	userMessage = strings.TrimSpace(userMessage)
	if sessionID == "" || userMessage == "" {
		return "", fmt.Errorf("%w: session id and message are required", contractx.ErrValidation)
	}

	sess, err := r.sessions.Load(ctx, tenant.ID, sessionID)
	if err != nil {
		if !errors.Is(err, state.ErrSessionNotFound) {
			return "", fmt.Errorf("load session: %w", err)
		}
		sess = &state.Session{TenantID: tenant.ID, SessionID: sessionID}
	}

	messages := append(sess.Messages, contractx.Message{Role: contractx.RoleUser, Content: userMessage})

	systemPrompt, err := prompt.Build(tenant, r.now())
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrConfig, err)
	}

	turn := r.turns.Begin(tenant)

	final := ""
	answered := false
	for iteration := 1; iteration <= MaxToolIterations; iteration++ {
		log.Info().
			Str("tenant_id", tenant.ID).
			Str("session_id", sessionID).
			Int("iteration", iteration).
			Msg("agent iteration")

		resp, err := r.model.Complete(ctx, contractx.ChatRequest{
			SystemPrompt: systemPrompt,
			Messages:     messages,
			Tools:        r.catalog,
		})
		if err != nil {
			return "", err
		}

		if len(resp.ToolCalls) == 0 {
			final = resp.Content
			answered = true
			messages = append(messages, contractx.Message{Role: contractx.RoleAssistant, Content: resp.Content})
			break
		}

		messages = append(messages, contractx.Message{
			Role:      contractx.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		// Order-preserving, sequential: later calls in a batch may depend
		// on state mutated by earlier ones.
		for _, call := range resp.ToolCalls {
			log.Info().
				Str("session_id", sessionID).
				Str("tool", call.Name).
				Msg("executing tool")

			result := turn.Execute(ctx, call)
			messages = append(messages, contractx.Message{
				Role:       contractx.RoleTool,
				Content:    encodeResult(result),
				ToolCallID: call.ID,
			})
		}
	}

	if !answered {
		log.Warn().
			Str("tenant_id", tenant.ID).
			Str("session_id", sessionID).
			Int("iterations", MaxToolIterations).
			Msg("iteration cap exhausted, returning fallback reply")
		final = fallbackExhausted
	}

	sess.Messages = state.Truncate(messages, state.MaxMessages)
	if err := r.sessions.Save(ctx, sess); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	if final == "" {
		return fallbackEmpty, nil
	}
	return final, nil
}

// encodeResult serializes one tool outcome into the content of a tool
// message. Failures collapse to the same {"error": ...} shape the model
// already knows how to react to.
func encodeResult(res contractx.ToolResult) string {
	var payload any = res.Result
	if res.Error != "" {
		payload = map[string]string{"error": res.Error}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		raw, _ = json.Marshal(map[string]string{"error": fmt.Sprintf("encode tool result: %v", err)})
	}
	return string(raw)
}
