package model

// Message is a single role-tagged turn in a training conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Sample is a complete training record in ChatML format, one JSON object
// per line when exported as JSONL
type Sample struct {
	Messages []Message `json:"messages"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
