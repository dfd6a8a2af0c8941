package models

import (
	"time"

	"github.com/google/uuid"
)

// TurnRole identifies who produced a conversation turn
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// conversationTitleLimit bounds the auto-generated conversation title.
const conversationTitleLimit = 50

// Conversation groups the turns of one chat thread
type Conversation struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Conversation model
func (Conversation) TableName() string {
	return "conversations"
}

// NewConversation creates a conversation titled after its opening message
func NewConversation(userID, openingMessage string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     TitleFromMessage(openingMessage),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TitleFromMessage derives a conversation title from the opening message.
func TitleFromMessage(message string) string {
	runes := []rune(message)
	if len(runes) <= conversationTitleLimit {
		return message
	}
	return string(runes[:conversationTitleLimit])
}

// Turn represents one message in a conversation, tagged user or assistant
type Turn struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ConversationID uuid.UUID `json:"conversation_id" db:"conversation_id"`
	UserID         string    `json:"user_id" db:"user_id"`
	Role           TurnRole  `json:"role" db:"role"`
	Content        string    `json:"content" db:"content"`

	// Set on assistant turns only.
	Provider string  `json:"provider,omitempty" db:"provider"`
	Cost     float64 `json:"cost" db:"cost"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Turn model
func (Turn) TableName() string {
	return "messages"
}
