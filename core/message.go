package core

// Role identifies a conversation participant.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one turn in a conversation: a user message or an
// assistant reply. Timestamp is epoch milliseconds and may be zero
// when the message did not come from the conversation store.
type ChatMessage struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Mode selects how the outbound prompt is assembled.
type Mode string

const (
	// ModeCommand asks the model for a reasoning plan plus exactly one
	// shell command, as structured JSON.
	ModeCommand Mode = "command"

	// ModeChat is a plain conversational exchange.
	ModeChat Mode = "chat"
)

// ParseMode maps a request-supplied mode string to a Mode.
// Unknown or empty values default to ModeCommand.
func ParseMode(s string) Mode {
	if Mode(s) == ModeChat {
		return ModeChat
	}
	return ModeCommand
}
