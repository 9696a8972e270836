package llm

import (
	"context"

	"github.com/Rrens/ddoksori/internal/domain"
)

// Request contains consultation reply parameters
type Request struct {
	ChatType domain.ChatType
	// History is the conversation so far, ending with the user's latest message
	History []domain.Message
	// FromForm marks a message rendered from the dispute intake form
	FromForm bool
}

// Latest returns the content of the last user message
func (r Request) Latest() string {
	for i := len(r.History) - 1; i >= 0; i-- {
		if r.History[i].Role == domain.RoleUser {
			return r.History[i].Content
		}
	}
	return ""
}

// Response contains a generated reply
type Response struct {
	Content    string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for reply providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Reply answers the latest user message
	Reply(ctx context.Context, req Request, model string) (*Response, error)
}
