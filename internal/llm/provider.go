// Package llm wraps the chat-completion backends behind a single Provider
// interface so the tutor, generators and stream handler do not care which
// vendor answers.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/prakeerthprasadoff/AILearningHelper/internal/config"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
	defaultTopP        = 0.95
)

var ErrEmptyResponse = errors.New("model returned no choices")

type Message struct {
	Role    Role
	Content string

	// Set on assistant messages that requested tools.
	ToolCalls []ToolCall
	// Set on tool messages.
	ToolCallID string
	Name       string
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON
}

// Tool describes a function the model may call. Parameters is a JSON schema.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type Request struct {
	Messages    []Message
	Tools       []Tool
	Temperature float64
	MaxTokens   int
}

type Response struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
}

// Provider is a chat-completion backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
	// Stream calls onChunk for each non-empty content delta. Returning an
	// error from onChunk stops the stream.
	Stream(ctx context.Context, req Request, onChunk func(string) error) error
	Close() error
}

// New builds the provider selected by cfg.LLMProvider.
func New(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.LLMProvider {
	case config.ProviderAzure:
		return NewAzureProvider(cfg.AzureEndpoint, cfg.AzureAPIKey, cfg.AzureDeployment, cfg.AzureAPIVersion)
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
	}
}

func (r Request) temperature() float64 {
	if r.Temperature <= 0 {
		return DefaultTemperature
	}
	return r.Temperature
}

func (r Request) maxTokens() int {
	if r.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return r.MaxTokens
}

// Complete is a convenience for a single system + user exchange.
func Complete(ctx context.Context, p Provider, system, user string, maxTokens int) (string, error) {
	var msgs []Message
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	msgs = append(msgs, Message{Role: RoleUser, Content: user})

	resp, err := p.Complete(ctx, Request{Messages: msgs, MaxTokens: maxTokens})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
