package contract

// Role values for conversation messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is one structured invocation requested by the model. Arguments is
// the raw JSON string exactly as the model produced it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one role-tagged entry of a session's history. An assistant
// message may carry tool calls; a tool message carries the result of exactly
// one call, correlated by ToolCallID.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolResult is the uniform envelope produced by the dispatcher for one tool
// call. A failing call sets Error and leaves Result nil; the orchestration
// loop keeps running either way.
type ToolResult struct {
	Tool   string `json:"tool"`
	CallID string `json:"call_id,omitempty"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ToolSchema describes one tool to the model: a name, a description, and a
// JSON-Schema object for its parameters.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ChatRequest is one model invocation: the system prompt, the full history so
// far, and the tool catalog the model may draw from.
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	Tools        []ToolSchema
}

// ChatResponse is the model's answer: plain text, requested tool calls, or
// both. An empty ToolCalls slice means Content is the final reply.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// Slot is one free interval returned by a calendar backend.
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Event is one booked calendar event. UID is the opaque calendar reference;
// ID is the backend's numeric identifier when it has one.
type Event struct {
	UID           string `json:"uid"`
	ID            int64  `json:"id,omitempty"`
	Title         string `json:"title"`
	Start         string `json:"start"`
	End           string `json:"end"`
	Status        string `json:"status,omitempty"`
	AttendeeName  string `json:"attendee_name,omitempty"`
	AttendeeEmail string `json:"attendee_email,omitempty"`
}

// CreateEventRequest carries everything a backend needs to book a slot.
type CreateEventRequest struct {
	Start       string
	Name        string
	Email       string
	Title       string
	Description string
	Timezone    string
}

// NotifyRequest is one outbound notification to a guest.
type NotifyRequest struct {
	ToName    string
	ToAddress string
	Subject   string
	Body      string
}

// NotifyResult reports whether the notification went out. Sent=false with an
// empty Error means delivery was skipped (transport not configured).
type NotifyResult struct {
	Sent bool
	Note string
}
