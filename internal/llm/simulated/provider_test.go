package simulated

import (
	"context"
	"testing"

	"github.com/Rrens/ddoksori/internal/domain"
	"github.com/Rrens/ddoksori/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReply(t *testing.T) {
	p := NewProvider()
	assert.Equal(t, Name, p.Name())
	assert.True(t, p.IsConfigured())

	tests := []struct {
		name string
		req  llm.Request
		want string
	}{
		{"form", llm.Request{ChatType: domain.ChatTypeDispute, FromForm: true}, FormReply},
		{"dispute", llm.Request{ChatType: domain.ChatTypeDispute}, DisputeReply},
		{"general", llm.Request{ChatType: domain.ChatTypeGeneral}, GeneralReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := p.Reply(context.Background(), tt.req, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Content)
		})
	}
}
