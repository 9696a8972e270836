package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/Rrens/ddoksori/internal/config"
	"github.com/Rrens/ddoksori/internal/domain"
	"github.com/Rrens/ddoksori/internal/llm"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Provider answers consultations with Gemini chat sessions. The mode
// instructions go in as the system instruction and earlier turns as chat
// history.
type Provider struct {
	apiKey string
	model  string
}

func NewProvider(cfg config.GeminiConfig) *Provider {
	return &Provider{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) AvailableModels() []string {
	return []string{
		"gemini-2.5-flash",
		"gemini-1.5-flash",
		"gemini-1.5-pro",
	}
}

func (p *Provider) DefaultModel() string {
	if p.model != "" {
		return p.model
	}
	return "gemini-2.5-flash"
}

func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

func (p *Provider) Reply(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("gemini provider is not configured (missing API key)")
	}

	if model == "" {
		model = p.DefaultModel()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	history, question := Conversation(req)
	if question == "" {
		return nil, fmt.Errorf("no customer message to answer")
	}

	generativeModel := client.GenerativeModel(model)
	var temperature float32 = 0.4
	generativeModel.Temperature = &temperature
	generativeModel.SystemInstruction = genai.NewUserContent(genai.Text(llm.Instructions(req)))

	chat := generativeModel.StartChat()
	chat.History = history

	start := time.Now()
	resp, err := chat.SendMessage(ctx, genai.Text(question))
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from gemini")
	}

	var output string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			output += string(text)
		}
	}

	tokensUsed := 0
	if resp.UsageMetadata != nil {
		tokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &llm.Response{
		Content:    llm.CleanReply(output),
		Model:      model,
		TokensUsed: tokensUsed,
		LatencyMs:  latency,
	}, nil
}

// Conversation splits the trimmed history into prior chat turns and the
// question to send. Gemini history has to open with a user turn, so the
// leading greeting is dropped.
func Conversation(req llm.Request) ([]*genai.Content, string) {
	messages := llm.RecentHistory(req)

	last := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			last = i
			break
		}
	}
	if last < 0 {
		return nil, ""
	}

	var history []*genai.Content
	for _, m := range messages[:last] {
		role := "model"
		if m.Role == domain.RoleUser {
			role = "user"
		}
		if len(history) == 0 && role != "user" {
			continue
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return history, messages[last].Content
}
