package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Rrens/ddoksori/internal/consult"
	"github.com/Rrens/ddoksori/internal/domain"
	"github.com/Rrens/ddoksori/internal/fingerprint"
	"github.com/Rrens/ddoksori/internal/repository/memory"
	"github.com/Rrens/ddoksori/internal/security"
	"github.com/Rrens/ddoksori/internal/storage"
	"github.com/Rrens/ddoksori/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup() (*AuthService, *workspace.Registry) {
	svc, reg, _ := setupWithRoot()
	return svc, reg
}

func setupWithRoot() (*AuthService, *workspace.Registry, *storage.Adapter) {
	root := storage.NewAdapter(memory.NewStore(), memory.NewStore())
	jwtManager := security.NewJWTManager("test-secret", time.Hour)
	return NewAuthService(jwtManager), workspace.NewRegistry(root), root
}

func conversation() []domain.Message {
	now := time.Now()
	return []domain.Message{
		{ID: 1, Role: domain.RoleAI, Content: "안녕하세요", Timestamp: now},
		{ID: 2, Role: domain.RoleUser, Content: "환불 받고 싶어요", Timestamp: now},
	}
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	svc, reg := setup()
	ws := reg.Get(ctx, "client-a", fingerprint.Environment{})

	guestID := ws.Store.Save(ctx, domain.ChatTypeGeneral, conversation(), false)

	result, err := svc.Login(ctx, ws, domain.UserLogin{
		Provider: domain.ProviderKakao,
		Name:     "김소비",
		Email:    "kim@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SessionsMoved)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, int64(3600), result.ExpiresIn)
	assert.True(t, strings.HasPrefix(result.User.ID, "kakao_"))

	sessions := ws.Store.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, guestID, sessions[0].ID)
	assert.Nil(t, sessions[0].ExpiresAt)

	claims, err := svc.Verify(ws, result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
}

func TestAuthService_VerifyOtherClient(t *testing.T) {
	ctx := context.Background()
	svc, reg := setup()

	a := reg.Get(ctx, "client-a", fingerprint.Environment{})
	b := reg.Get(ctx, "client-b", fingerprint.Environment{})

	result, err := svc.Login(ctx, a, domain.UserLogin{Provider: domain.ProviderGoogle, ID: "g-1", Name: "이", Email: "lee@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "g-1", result.User.ID)

	_, err = svc.Verify(b, result.AccessToken)
	assert.ErrorIs(t, err, ErrTokenMismatch)

	_, err = svc.Verify(a, "not-a-token")
	assert.Error(t, err)
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	svc, reg := setup()
	ws := reg.Get(ctx, "client-a", fingerprint.Environment{})

	result, err := svc.Login(ctx, ws, domain.UserLogin{Provider: domain.ProviderNaver, Name: "박", Email: "park@example.com"})
	require.NoError(t, err)
	ws.Store.Save(ctx, domain.ChatTypeDispute, conversation(), true)

	svc.Logout(ctx, ws)

	assert.False(t, ws.Gate.IsAuthenticated())
	assert.Empty(t, ws.Store.Sessions())
	assert.Empty(t, ws.Store.CurrentSessionID())

	_, err = svc.Verify(ws, result.AccessToken)
	assert.ErrorIs(t, err, ErrTokenMismatch)

	// history survives and returns on the next login
	_, err = svc.Login(ctx, ws, domain.UserLogin{Provider: domain.ProviderNaver, Name: "박", Email: "park@example.com"})
	require.NoError(t, err)
	assert.Len(t, ws.Store.Sessions(), 1)
}

func TestAuthService_LoginDuringSends(t *testing.T) {
	ctx := context.Background()
	svc, reg, root := setupWithRoot()
	chat := consult.NewService(nil)
	ws := reg.Get(ctx, "client-a", fingerprint.Environment{})

	_, err := chat.Send(ctx, ws, domain.ChatTypeGeneral, "처음 질문")
	require.NoError(t, err)

	const turns = 8
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := chat.Send(ctx, ws, domain.ChatTypeGeneral, fmt.Sprintf("질문 %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		_, err := svc.Login(ctx, ws, domain.UserLogin{Provider: domain.ProviderKakao, ID: "k-1", Name: "김", Email: "kim@example.com"})
		assert.NoError(t, err)
	}()
	close(start)
	wg.Wait()

	adapter := root.WithNamespace("client-a")
	temp, _ := storage.Get[[]domain.ChatSession](ctx, adapter, storage.KeyTempChatSessions, storage.Ephemeral)
	assert.Empty(t, temp)

	saved, ok := storage.Get[[]domain.ChatSession](ctx, adapter, storage.KeyChatSessions, storage.Durable)
	require.True(t, ok)
	require.Len(t, saved, 1)
	assert.Nil(t, saved[0].ExpiresAt)
	assert.Len(t, saved[0].Messages, 1+2*(turns+1))

	messages := ws.Store.Messages(domain.ChatTypeGeneral)
	require.Len(t, messages, 1+2*(turns+1))
	for i, m := range messages {
		assert.Equal(t, i+1, m.ID)
	}
}
