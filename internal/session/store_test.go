package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Rrens/ddoksori/internal/domain"
	"github.com/Rrens/ddoksori/internal/repository/memory"
	"github.com/Rrens/ddoksori/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*Store, *storage.Adapter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	adapter := storage.NewAdapter(memory.NewStore(), memory.NewStore()).WithNamespace("test-client")

	n := 0
	store := NewStore(adapter,
		WithClock(clock.Now),
		WithGuestIDFunc(func() string {
			n++
			return fmt.Sprintf("guest_abc_%d", n)
		}),
	)
	return store, adapter, clock
}

func conversation(now time.Time, userText ...string) []domain.Message {
	msgs := []domain.Message{{ID: 1, Role: domain.RoleAI, Content: Greeting, Timestamp: now}}
	for _, text := range userText {
		msgs = append(msgs, domain.Message{ID: len(msgs) + 1, Role: domain.RoleUser, Content: text, Timestamp: now})
		msgs = append(msgs, domain.Message{ID: len(msgs) + 1, Role: domain.RoleAI, Content: "질문을 분석 중입니다...", Timestamp: now})
	}
	return msgs
}

func stored(ctx context.Context, a *storage.Adapter, scope storage.Scope) ([]domain.ChatSession, bool) {
	return storage.Get[[]domain.ChatSession](ctx, a, storage.SessionsKey(scope), scope)
}

func TestStore_GuestLifecycle(t *testing.T) {
	ctx := context.Background()
	store, adapter, clock := newTestStore(t)

	// first consultation as a guest
	id := store.Save(ctx, domain.ChatTypeDispute, conversation(clock.Now(), "환불 받고 싶어요"), false)
	assert.Equal(t, "guest_abc_1", id)
	assert.Equal(t, id, store.CurrentSessionID())

	sessions, ok := stored(ctx, adapter, storage.Ephemeral)
	require.True(t, ok)
	require.Len(t, sessions, 1)
	assert.Equal(t, "환불 받고 싶어요", sessions[0].Title)
	require.NotNil(t, sessions[0].ExpiresAt)
	assert.Equal(t, clock.Now().UnixMilli()+86_400_000, *sessions[0].ExpiresAt)

	// a second, unrelated consultation replaces the first
	clock.Advance(time.Minute)
	store.StartNewChat()
	store.Save(ctx, domain.ChatTypeGeneral, conversation(clock.Now(), "배송이 너무 늦어요"), false)

	sessions, _ = stored(ctx, adapter, storage.Ephemeral)
	require.Len(t, sessions, 1)
	assert.Equal(t, domain.ChatTypeGeneral, sessions[0].Type)
	assert.Equal(t, "배송이 너무 늦어요", sessions[0].Title)

	// login moves the survivor to durable storage
	moved := Transfer(ctx, adapter)
	assert.Equal(t, 1, moved)

	durable, ok := stored(ctx, adapter, storage.Durable)
	require.True(t, ok)
	require.Len(t, durable, 1)
	assert.Equal(t, domain.ChatTypeGeneral, durable[0].Type)
	assert.Nil(t, durable[0].ExpiresAt)

	_, ok = stored(ctx, adapter, storage.Ephemeral)
	assert.False(t, ok)
}

func TestStore_GuestKeepsAtMostOneSession(t *testing.T) {
	ctx := context.Background()
	store, adapter, clock := newTestStore(t)

	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		switch i % 3 {
		case 0:
			store.StartNewChat()
		case 1:
			store.SetCurrentSessionID(fmt.Sprintf("guest_other_%d", i))
		}
		store.Save(ctx, domain.ChatTypeGeneral, conversation(clock.Now(), fmt.Sprintf("질문 %d", i)), false)

		sessions, _ := stored(ctx, adapter, storage.Ephemeral)
		assert.LessOrEqual(t, len(sessions), 1, "iteration %d", i)
		assert.LessOrEqual(t, len(store.Sessions()), 1, "iteration %d", i)
	}
}

func TestStore_GuestReusesStoredSession(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)

	first := store.Save(ctx, domain.ChatTypeDispute, conversation(clock.Now(), "a"), false)

	// a new store for the same visitor (e.g. after restart) has no current id
	other := NewStore(store.storage, WithClock(clock.Now), WithGuestIDFunc(func() string { return "guest_new" }))
	second := other.Save(ctx, domain.ChatTypeDispute, conversation(clock.Now(), "b"), false)

	assert.Equal(t, first, second)
}

func TestStore_LoadDropsExpired(t *testing.T) {
	ctx := context.Background()
	store, adapter, clock := newTestStore(t)

	now := clock.Now().UnixMilli()
	past, edge, future := now-1, now, now+1
	adapter.Set(ctx, storage.KeyTempChatSessions, []domain.ChatSession{
		{ID: "expired", Type: domain.ChatTypeGeneral, ExpiresAt: &past},
		{ID: "edge", Type: domain.ChatTypeGeneral, ExpiresAt: &edge},
		{ID: "live", Type: domain.ChatTypeGeneral, ExpiresAt: &future},
		{ID: "forever", Type: domain.ChatTypeGeneral},
	}, storage.Ephemeral)

	got := store.Load(ctx, false)
	ids := make([]string, len(got))
	for i, s := range got {
		ids[i] = s.ID
		assert.False(t, s.Expired(clock.Now()))
	}
	assert.Equal(t, []string{"live", "forever"}, ids)

	persisted, _ := stored(ctx, adapter, storage.Ephemeral)
	assert.Len(t, persisted, 2)

	// idempotent
	assert.Equal(t, got, store.Load(ctx, false))

	// the live one expires with time
	clock.Advance(time.Millisecond)
	assert.Len(t, store.Load(ctx, false), 1)
}

func TestStore_LoadDurableKeepsEverything(t *testing.T) {
	ctx := context.Background()
	store, adapter, clock := newTestStore(t)

	past := clock.Now().UnixMilli() - 1
	adapter.Set(ctx, storage.KeyChatSessions, []domain.ChatSession{{ID: "1", ExpiresAt: &past}}, storage.Durable)

	assert.Len(t, store.Load(ctx, true), 1)
}

func TestStore_LoadEmpty(t *testing.T) {
	store, _, _ := newTestStore(t)
	assert.Empty(t, store.Load(context.Background(), true))
	assert.Empty(t, store.Load(context.Background(), false))
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)

	msgs := conversation(clock.Now(), "계약 해지가 가능한가요?")
	msgs[1].Timestamp = time.UnixMilli(1_700_000_123_456)

	id := store.Save(ctx, domain.ChatTypeDispute, msgs, true)
	assert.Equal(t, "1700000000000", id)

	loaded := store.Load(ctx, true)
	require.Len(t, loaded, 1)
	assert.Equal(t, id, loaded[0].ID)
	assert.Equal(t, domain.ChatTypeDispute, loaded[0].Type)
	assert.Nil(t, loaded[0].ExpiresAt)

	require.Len(t, loaded[0].Messages, len(msgs))
	for i, m := range loaded[0].LiveMessages() {
		assert.Equal(t, msgs[i].ID, m.ID)
		assert.Equal(t, msgs[i].Role, m.Role)
		assert.Equal(t, msgs[i].Content, m.Content)
		assert.Equal(t, msgs[i].Timestamp.UnixMilli(), m.Timestamp.UnixMilli())
	}
}

func TestStore_UpdateInPlace(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)

	id := store.Save(ctx, domain.ChatTypeGeneral, conversation(clock.Now(), "첫 질문"), false)
	first := store.Sessions()[0]

	// same millisecond: lastUpdated must still move forward
	store.Save(ctx, domain.ChatTypeGeneral, conversation(clock.Now(), "첫 질문", "둘째 질문"), false)
	second := store.Sessions()[0]
	assert.Greater(t, second.LastUpdated, first.LastUpdated)

	clock.Advance(time.Hour)
	store.Save(ctx, domain.ChatTypeGeneral, conversation(clock.Now(), "첫 질문", "둘째 질문", "셋째"), false)
	third := store.Sessions()[0]

	assert.Equal(t, id, third.ID)
	assert.Equal(t, first.CreatedAt, third.CreatedAt)
	assert.Equal(t, *first.ExpiresAt, *third.ExpiresAt)
	assert.Equal(t, clock.Now().UnixMilli(), third.LastUpdated)
	assert.Equal(t, "첫 질문", third.Title)
	assert.Len(t, third.Messages, 7)
}

func TestStore_AuthenticatedPrependsNewSessions(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)

	first := store.Save(ctx, domain.ChatTypeGeneral, conversation(clock.Now(), "하나"), true)
	store.StartNewChat()
	clock.Advance(time.Second)
	second := store.Save(ctx, domain.ChatTypeDispute, conversation(clock.Now(), "둘"), true)

	sessions := store.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, second, sessions[0].ID)
	assert.Equal(t, first, sessions[1].ID)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store, adapter, clock := newTestStore(t)

	id := store.Save(ctx, domain.ChatTypeGeneral, conversation(clock.Now(), "삭제할 상담"), true)

	store.Delete(ctx, "unknown", true)
	assert.Equal(t, id, store.CurrentSessionID())
	assert.Len(t, store.Sessions(), 1)

	store.Delete(ctx, id, true)
	assert.Empty(t, store.CurrentSessionID())
	assert.Empty(t, store.Sessions())

	persisted, ok := stored(ctx, adapter, storage.Durable)
	assert.True(t, ok)
	assert.Empty(t, persisted)
}

func TestStore_DeleteKeepsOtherCurrent(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)

	old := store.Save(ctx, domain.ChatTypeGeneral, conversation(clock.Now(), "old"), true)
	store.StartNewChat()
	clock.Advance(time.Second)
	current := store.Save(ctx, domain.ChatTypeGeneral, conversation(clock.Now(), "new"), true)

	store.Delete(ctx, old, true)
	assert.Equal(t, current, store.CurrentSessionID())
}

func TestStore_RefreshExpiry(t *testing.T) {
	ctx := context.Background()
	store, adapter, clock := newTestStore(t)

	t.Run("unknown id is a no-op", func(t *testing.T) {
		before := store.State()
		assert.False(t, store.RefreshExpiry(ctx, "nope"))
		assert.Equal(t, before, store.State())
		_, ok := stored(ctx, adapter, storage.Ephemeral)
		assert.False(t, ok)
	})

	t.Run("extends a guest session", func(t *testing.T) {
		id := store.Save(ctx, domain.ChatTypeGeneral, conversation(clock.Now(), "연장"), false)
		clock.Advance(20 * time.Hour)

		assert.True(t, store.RefreshExpiry(ctx, id))

		sessions, _ := stored(ctx, adapter, storage.Ephemeral)
		require.Len(t, sessions, 1)
		assert.Equal(t, clock.Now().Add(DefaultExpiry).UnixMilli(), *sessions[0].ExpiresAt)
		assert.Equal(t, clock.Now().UnixMilli(), sessions[0].LastUpdated)
		assert.Equal(t, sessions, store.Sessions())
	})
}

func TestStore_StartNewChat(t *testing.T) {
	ctx := context.Background()
	store, adapter, clock := newTestStore(t)

	msgs := conversation(clock.Now(), "진행 중")
	store.SetMessages(domain.ChatTypeDispute, msgs)
	store.SetActiveChatType(domain.ChatTypeDispute)
	store.SetFormSubmitted(true)
	store.Save(ctx, domain.ChatTypeDispute, msgs, false)

	store.StartNewChat()

	state := store.State()
	assert.Empty(t, state.CurrentSessionID)
	assert.Empty(t, state.ActiveChatType)
	assert.False(t, state.IsFormSubmitted)
	require.Len(t, state.DisputeMessages, 1)
	require.Len(t, state.GeneralMessages, 1)
	assert.Equal(t, Greeting, state.DisputeMessages[0].Content)
	assert.Equal(t, domain.RoleAI, state.GeneralMessages[0].Role)

	sessions, _ := stored(ctx, adapter, storage.Ephemeral)
	assert.Len(t, sessions, 1)
}

func TestStore_Open(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)

	msgs := conversation(clock.Now(), "열어볼 상담")
	id := store.Save(ctx, domain.ChatTypeDispute, msgs, true)
	store.StartNewChat()

	_, err := store.Open("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	sess, err := store.Open(id)
	require.NoError(t, err)
	assert.Equal(t, id, sess.ID)

	state := store.State()
	assert.Equal(t, id, state.CurrentSessionID)
	assert.Equal(t, domain.ChatTypeDispute, state.ActiveChatType)
	assert.True(t, state.IsFormSubmitted)
	assert.Len(t, state.DisputeMessages, len(msgs))
	assert.Len(t, state.GeneralMessages, 1)
}

func TestStore_SnapshotsAreCopies(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore(t)

	store.Save(ctx, domain.ChatTypeGeneral, conversation(clock.Now(), "원본"), false)

	sessions := store.Sessions()
	sessions[0].Title = "changed"
	*sessions[0].ExpiresAt = 0

	fresh := store.Sessions()
	assert.Equal(t, "원본", fresh[0].Title)
	assert.NotZero(t, *fresh[0].ExpiresAt)
}
