package session

import (
	"context"

	"github.com/Rrens/ddoksori/internal/domain"
	"github.com/Rrens/ddoksori/internal/storage"
	"github.com/rs/zerolog/log"
)

// Transfer moves every guest session into durable storage.
// Moved sessions lose their expiry and are placed ahead of existing durable
// sessions; the ephemeral list is removed. It returns the number moved.
func Transfer(ctx context.Context, adapter *storage.Adapter) int {
	guest, _ := storage.Get[[]domain.ChatSession](ctx, adapter, storage.KeyTempChatSessions, storage.Ephemeral)
	if len(guest) == 0 {
		return 0
	}

	owned, _ := storage.Get[[]domain.ChatSession](ctx, adapter, storage.KeyChatSessions, storage.Durable)

	merged := make([]domain.ChatSession, 0, len(guest)+len(owned))
	for _, s := range guest {
		s.ExpiresAt = nil
		merged = append(merged, s)
	}
	merged = append(merged, owned...)

	adapter.Set(ctx, storage.KeyChatSessions, merged, storage.Durable)
	adapter.Remove(ctx, storage.KeyTempChatSessions, storage.Ephemeral)

	log.Info().
		Str("namespace", adapter.Namespace()).
		Int("transferred", len(guest)).
		Msg("moved guest sessions to durable storage")

	return len(guest)
}
