// Package consult runs one consultation turn: the visitor's message, the
// assistant's reply and the save that follows.
package consult

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/ddoksori/internal/domain"
	"github.com/Rrens/ddoksori/internal/llm"
	"github.com/Rrens/ddoksori/internal/llm/simulated"
	"github.com/Rrens/ddoksori/internal/workspace"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrInvalidChatType = errors.New("invalid chat type")
)

// Exchange is the outcome of one turn
type Exchange struct {
	SessionID string           `json:"sessionId"`
	Question  domain.Message   `json:"question"`
	Answer    domain.Message   `json:"answer"`
	Messages  []domain.Message `json:"messages"`
	Provider  string           `json:"provider"`
}

// Service handles consultation turns
type Service struct {
	llmRouter *llm.Router
	fallback  llm.Provider
	validate  *validator.Validate
	now       func() time.Time
}

// NewService creates a new consultation service
func NewService(llmRouter *llm.Router) *Service {
	return &Service{
		llmRouter: llmRouter,
		fallback:  simulated.NewProvider(),
		validate:  validator.New(),
		now:       time.Now,
	}
}

// Send appends content as a user message to the chatType conversation of
// ws, appends the assistant reply and saves the session. The workspace is
// held for the whole turn, so turns of one client run one after another.
func (s *Service) Send(ctx context.Context, ws *workspace.Workspace, chatType domain.ChatType, content string) (*Exchange, error) {
	if !chatType.Valid() {
		return nil, ErrInvalidChatType
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}

	ws.Lock()
	defer ws.Unlock()
	return s.turn(ctx, ws, chatType, content, false)
}

// SubmitDisputeForm renders the intake form into a message and sends it on
// the dispute conversation.
func (s *Service) SubmitDisputeForm(ctx context.Context, ws *workspace.Workspace, form domain.DisputeForm) (*Exchange, error) {
	if err := s.validate.Struct(form); err != nil {
		return nil, fmt.Errorf("invalid dispute form: %w", err)
	}

	ws.Lock()
	defer ws.Unlock()
	ws.Store.SetFormSubmitted(true)
	return s.turn(ctx, ws, domain.ChatTypeDispute, FormatDisputeForm(form), true)
}

// turn expects ws to be locked
func (s *Service) turn(ctx context.Context, ws *workspace.Workspace, chatType domain.ChatType, content string, fromForm bool) (*Exchange, error) {
	store := ws.Store
	authenticated := ws.Gate.IsAuthenticated()

	messages := store.Messages(chatType)
	question := domain.Message{
		ID:        len(messages) + 1,
		Role:      domain.RoleUser,
		Content:   content,
		Timestamp: s.now(),
	}
	messages = append(messages, question)

	store.SetActiveChatType(chatType)
	store.SetMessages(chatType, messages)

	reply, provider := s.reply(ctx, llm.Request{
		ChatType: chatType,
		History:  messages,
		FromForm: fromForm,
	})

	answer := domain.Message{
		ID:        len(messages) + 1,
		Role:      domain.RoleAI,
		Content:   reply,
		Timestamp: s.now(),
	}
	messages = append(messages, answer)
	store.SetMessages(chatType, messages)

	// the greeting alone is never saved
	var sessionID string
	if len(messages) > 1 {
		sessionID = store.Save(ctx, chatType, messages, authenticated)
	}

	return &Exchange{
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
		Messages:  messages,
		Provider:  provider,
	}, nil
}

// reply asks the configured provider and falls back to the canned reply
func (s *Service) reply(ctx context.Context, req llm.Request) (string, string) {
	if s.llmRouter != nil {
		content, name, err := s.generate(ctx, req)
		if err == nil {
			return content, name
		}
		log.Warn().Err(err).Msg("reply provider failed, using simulated reply")
	}

	resp, _ := s.fallback.Reply(ctx, req, "")
	return resp.Content, s.fallback.Name()
}

func (s *Service) generate(ctx context.Context, req llm.Request) (string, string, error) {
	provider, err := s.llmRouter.GetProvider("")
	if err != nil {
		return "", "", err
	}

	resp, err := provider.Reply(ctx, req, provider.DefaultModel())
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", provider.Name(), err)
	}
	if resp.Content == "" {
		return "", "", fmt.Errorf("%s: empty reply", provider.Name())
	}

	log.Debug().
		Str("provider", provider.Name()).
		Str("model", resp.Model).
		Int("tokens_used", resp.TokensUsed).
		Int64("latency_ms", resp.LatencyMs).
		Msg("reply generated")

	return resp.Content, provider.Name(), nil
}

// FormatDisputeForm renders the intake form as a user message
func FormatDisputeForm(form domain.DisputeForm) string {
	var b strings.Builder
	b.WriteString("[분쟁 정보]\n")
	fmt.Fprintf(&b, "구매일자: %s\n", form.PurchaseDate)
	fmt.Fprintf(&b, "구매처: %s\n", form.PurchasePlace)
	if form.Platform != "" {
		fmt.Fprintf(&b, "플랫폼: %s\n", form.Platform)
	}
	fmt.Fprintf(&b, "구매품목: %s\n", form.PurchaseItem)
	fmt.Fprintf(&b, "구매금액: %s원\n", form.PurchaseAmount)
	fmt.Fprintf(&b, "분쟁 상세: %s", form.DisputeDetail)
	return b.String()
}
