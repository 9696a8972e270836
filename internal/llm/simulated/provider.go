// Package simulated answers with fixed progress messages. It needs no
// credentials and is the fallback when a real provider fails.
package simulated

import (
	"context"

	"github.com/Rrens/ddoksori/internal/domain"
	"github.com/Rrens/ddoksori/internal/llm"
)

const (
	FormReply    = "분쟁 정보를 확인했습니다. 유사한 분쟁조정 사례를 검색하고 있습니다..."
	DisputeReply = "질문을 분석 중입니다... 유사한 분쟁조정 사례를 검색하고 있습니다."
	GeneralReply = "질문을 분석 중입니다... 답변을 준비하고 있습니다."
)

const Name = "simulated"

// Provider implements llm.Provider with canned replies
type Provider struct{}

// NewProvider creates a simulated provider
func NewProvider() llm.Provider {
	return Provider{}
}

func (Provider) Name() string { return Name }

func (Provider) AvailableModels() []string { return []string{"canned"} }

func (Provider) DefaultModel() string { return "canned" }

func (Provider) IsConfigured() bool { return true }

// Reply picks the canned message for the request
func (Provider) Reply(_ context.Context, req llm.Request, _ string) (*llm.Response, error) {
	return &llm.Response{Content: ReplyFor(req), Model: "canned"}, nil
}

// ReplyFor returns the canned message for a request
func ReplyFor(req llm.Request) string {
	switch {
	case req.FromForm:
		return FormReply
	case req.ChatType == domain.ChatTypeDispute:
		return DisputeReply
	default:
		return GeneralReply
	}
}
