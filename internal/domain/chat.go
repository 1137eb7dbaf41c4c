package domain

// Message roles accepted from chat clients.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one turn of the visitor's conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Source points the visitor at the chunk an answer was grounded on.
type Source struct {
	ID      string `json:"id"`
	Excerpt string `json:"excerpt"`
}

// ChatReply is the answer returned to the chat widget.
type ChatReply struct {
	Content string   `json:"content"`
	Sources []Source `json:"sources"`
}

// IsValidRole reports whether role can be forwarded to the answer generator.
func IsValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAssistant:
		return true
	}
	return false
}
