package domain

import "time"

// ChatType selects one of the two consultation modes
type ChatType string

const (
	ChatTypeDispute ChatType = "dispute"
	ChatTypeGeneral ChatType = "general"
)

// Valid reports whether t is a known chat mode
func (t ChatType) Valid() bool {
	return t == ChatTypeDispute || t == ChatTypeGeneral
}

// DefaultTitle is used for sessions without any user message yet
func (t ChatType) DefaultTitle() string {
	if t == ChatTypeDispute {
		return "분쟁 상담"
	}
	return "일반 상담"
}

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleAI   MessageRole = "ai"
	RoleUser MessageRole = "user"
)

// Message is a live chat message as shown in a conversation
type Message struct {
	ID        int         `json:"id"`
	Role      MessageRole `json:"role" validate:"required,oneof=ai user"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// StoredMessage is the persisted form of a Message.
// Timestamp is epoch milliseconds.
type StoredMessage struct {
	ID        int         `json:"id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp int64       `json:"timestamp"`
}

// ToStored converts a live message for persistence
func (m Message) ToStored() StoredMessage {
	return StoredMessage{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		Timestamp: m.Timestamp.UnixMilli(),
	}
}

// ToMessage reconstructs a live message from its persisted form
func (m StoredMessage) ToMessage() Message {
	return Message{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		Timestamp: time.UnixMilli(m.Timestamp),
	}
}

// ChatSession is one saved conversation
type ChatSession struct {
	ID          string          `json:"id"`
	Type        ChatType        `json:"type"`
	Title       string          `json:"title"`
	CreatedAt   int64           `json:"createdAt"`
	LastUpdated int64           `json:"lastUpdated"`
	ExpiresAt   *int64          `json:"expiresAt"`
	Messages    []StoredMessage `json:"messages"`
}

// Expired reports whether the session carries an expiry at or before now
func (s ChatSession) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && *s.ExpiresAt <= now.UnixMilli()
}

// LiveMessages returns the session messages with reconstructed timestamps
func (s ChatSession) LiveMessages() []Message {
	out := make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		out[i] = m.ToMessage()
	}
	return out
}

// DisputeForm is the structured intake for a dispute consultation
type DisputeForm struct {
	PurchaseDate   string `json:"purchase_date" validate:"required"`
	PurchasePlace  string `json:"purchase_place" validate:"required"`
	Platform       string `json:"platform"`
	PurchaseItem   string `json:"purchase_item" validate:"required"`
	PurchaseAmount string `json:"purchase_amount" validate:"required"`
	DisputeDetail  string `json:"dispute_detail" validate:"required"`
}
