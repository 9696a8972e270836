package llm

import (
	"fmt"
	"strings"

	"github.com/Rrens/ddoksori/internal/domain"
)

// maxHistory bounds how many earlier turns are sent along with a question
const maxHistory = 20

// Instructions returns the standing instructions for the conversation mode
func Instructions(req Request) string {
	focus := "일반적인 소비자 문의에 친절하고 정확하게 답변하세요."
	if req.ChatType == domain.ChatTypeDispute {
		focus = "소비자 분쟁 상황을 파악하고 유사한 분쟁조정 사례와 해결 절차를 안내하세요."
		if req.FromForm {
			focus += "\n고객이 방금 분쟁 정보 양식을 제출했습니다. 양식 내용을 요약하고 필요한 추가 정보를 물어보세요."
		}
	}

	return fmt.Sprintf(`당신은 "똑소리" 소비자 상담 AI입니다.
%s

규칙:
1. 한국어로 답변하세요
2. 법률 자문이 아닌 일반 정보임을 필요할 때 밝히세요
3. 개인정보를 요구하지 마세요
4. 간결하게 답변하세요`, focus)
}

// RecentHistory returns the conversation trimmed to the turns sent to a model
func RecentHistory(req Request) []domain.Message {
	if len(req.History) > maxHistory {
		return req.History[len(req.History)-maxHistory:]
	}
	return req.History
}

// BuildPrompt renders instructions and transcript as one completion prompt
func BuildPrompt(req Request) string {
	var transcript strings.Builder
	for _, m := range RecentHistory(req) {
		speaker := "상담사"
		if m.Role == domain.RoleUser {
			speaker = "고객"
		}
		fmt.Fprintf(&transcript, "%s: %s\n", speaker, m.Content)
	}

	return fmt.Sprintf("%s\n\n대화:\n%s\n상담사:", Instructions(req), transcript.String())
}

// CleanReply trims model output down to the reply text
func CleanReply(content string) string {
	content = strings.TrimSpace(content)
	for _, label := range []string{"상담사:", "AI:"} {
		content = strings.TrimSpace(strings.TrimPrefix(content, label))
	}
	return content
}
