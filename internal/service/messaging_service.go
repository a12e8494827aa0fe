package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"nexasphere/internal/domain"
)

// MessagingService orchestrates send/history/read/delete for direct
// messages: it mutates the stores and returns the events to push, leaving
// actual delivery to the effects dispatcher.
type MessagingService struct {
	conversations domain.ConversationStore
	messages      domain.MessageStore
	users         domain.UserDirectory
	log           *slog.Logger
}

func NewMessagingService(
	conversations domain.ConversationStore,
	messages domain.MessageStore,
	users domain.UserDirectory,
	log *slog.Logger,
) *MessagingService {
	return &MessagingService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		log:           log,
	}
}

// Send persists a message, lazily creating the conversation for the pair,
// and produces two effects for the receiver: the full message as newMessage
// and a human-readable messageNotification. Both are always produced; the
// channel drops them silently when the receiver is offline.
func (s *MessagingService) Send(ctx context.Context, senderID, receiverID, body string) (*domain.Message, []Effect, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil, fmt.Errorf("%w: message body is empty", domain.ErrInvalidInput)
	}
	if senderID == receiverID {
		return nil, nil, fmt.Errorf("%w: cannot message yourself", domain.ErrInvalidInput)
	}

	conv, err := s.conversations.FindOrCreate(ctx, senderID, receiverID)
	if err != nil {
		return nil, nil, fmt.Errorf("find or create conversation: %w", err)
	}

	msg := &domain.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, nil, fmt.Errorf("create message: %w", err)
	}
	if err := s.conversations.AppendMessage(ctx, conv.ID, msg.ID); err != nil {
		return nil, nil, fmt.Errorf("append message: %w", err)
	}

	actor := s.actorInfo(ctx, senderID)
	effects := []Effect{
		{To: receiverID, Event: "newMessage", Payload: msg},
		{To: receiverID, Event: "messageNotification", Payload: domain.Notification{
			Kind:    domain.NotificationMessage,
			ActorID: senderID,
			Actor:   actor,
			Text:    notificationText(domain.NotificationMessage, actor.Username),
		}},
	}
	return msg, effects, nil
}

// History returns the conversation's messages in stored order, or an empty
// slice when the pair has never talked. Records hidden by a "delete for me"
// are returned intact; filtering them is the consumer's read-time concern.
func (s *MessagingService) History(ctx context.Context, userID, otherID string) ([]*domain.Message, error) {
	conv, err := s.conversations.Get(ctx, userID, otherID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return []*domain.Message{}, nil
	}
	msgs, err := s.messages.ListByIDs(ctx, conv.MessageIDs)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// MarkRead flips read=true on every unread message from otherID to readerID
// and returns how many changed. Idempotent: a repeat call updates zero. The
// messageRead effect carries only the reader id; the sender's client
// reconciles its local list from that.
func (s *MessagingService) MarkRead(ctx context.Context, readerID, otherID string) (int64, []Effect, error) {
	updated, err := s.messages.MarkRead(ctx, otherID, readerID)
	if err != nil {
		return 0, nil, fmt.Errorf("mark read: %w", err)
	}
	effects := []Effect{
		{To: otherID, Event: "messageRead", Payload: map[string]any{"readerId": readerID}},
	}
	return updated, effects, nil
}

// Delete removes a message for the requester only, or for everyone when the
// requester is the sender. The returned bool reports whether the record was
// hard-deleted.
func (s *MessagingService) Delete(ctx context.Context, requesterID, messageID string, forEveryone bool) (bool, []Effect, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return false, nil, fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return false, nil, fmt.Errorf("%w: message %s", domain.ErrNotFound, messageID)
	}

	if forEveryone {
		if msg.SenderID != requesterID {
			return false, nil, fmt.Errorf("%w: only the sender can delete for everyone", domain.ErrForbidden)
		}
		if err := s.messages.HardDelete(ctx, messageID); err != nil {
			return false, nil, fmt.Errorf("delete message: %w", err)
		}
		// the conversation's id list is not compacted; hydration skips the
		// dangling id
		other := msg.ReceiverID
		if other == requesterID {
			other = msg.SenderID
		}
		effects := []Effect{
			{To: other, Event: "messageDeleted", Payload: map[string]any{"messageId": messageID}},
		}
		return true, effects, nil
	}

	if err := s.messages.SoftDelete(ctx, messageID, requesterID); err != nil {
		return false, nil, fmt.Errorf("delete message for requester: %w", err)
	}
	return false, nil, nil
}

// actorInfo loads display info for notifications. A directory miss degrades
// the notification text, it never fails the operation.
func (s *MessagingService) actorInfo(ctx context.Context, userID string) domain.ActorInfo {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u == nil {
		s.log.Warn("messaging: actor lookup failed", "user_id", userID, "error", err)
		return domain.ActorInfo{}
	}
	return domain.ActorInfo{Username: u.Username, ProfilePicture: u.ProfilePicture}
}
