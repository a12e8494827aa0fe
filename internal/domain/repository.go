package domain

import (
	"context"
)

// ConversationStore defines persistence operations for 1:1 conversations.
type ConversationStore interface {
	// FindOrCreate returns the conversation for the unordered pair (a, b),
	// creating it atomically if it does not exist yet. Concurrent calls for
	// the same pair must all resolve to the same conversation.
	FindOrCreate(ctx context.Context, a, b string) (*Conversation, error)
	// Get returns the conversation for the pair, or nil if none exists.
	Get(ctx context.Context, a, b string) (*Conversation, error)
	// AppendMessage appends a message id to the conversation's sequence.
	AppendMessage(ctx context.Context, conversationID, messageID string) error
}

// MessageStore defines persistence operations for messages.
type MessageStore interface {
	Create(ctx context.Context, m *Message) error
	// GetByID returns nil (no error) when the message does not exist.
	GetByID(ctx context.Context, id string) (*Message, error)
	// ListByIDs returns messages in the order of ids, skipping ids that no
	// longer resolve to a record (hard-deleted messages leave dangling ids).
	ListByIDs(ctx context.Context, ids []string) ([]*Message, error)
	// MarkRead flips read=true on every unread message from senderID to
	// receiverID and returns how many were updated. Idempotent.
	MarkRead(ctx context.Context, senderID, receiverID string) (int64, error)
	// SoftDelete hides the message for userID; a no-op if already hidden.
	SoftDelete(ctx context.Context, id, userID string) error
	// HardDelete removes the record entirely.
	HardDelete(ctx context.Context, id string) error
}

// UserDirectory is the read-only window onto the identity collaborator's
// user records, used for notification display info.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*User, error)
}
