package assistant

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Request carries everything a provider may use to produce a reply. Model
// backed providers read Messages; the template provider reads Intent and Summary.
type Request struct {
	Messages []Message
	Intent   Intent
	Summary  Summary
	Context  string
}

// Provider produces the assistant's reply.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

var ErrEmptyReply = errors.New("provider returned an empty reply")
