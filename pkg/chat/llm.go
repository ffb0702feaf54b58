package chat

import "context"

// Message is one turn of a conversation thread.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// LLM is the minimal completion interface the chat endpoint needs. The
// provider owns model selection and transport.
type LLM interface {
	Name() string
	Generate(ctx context.Context, messages []Message) (string, error)
}
