package domain

import "time"

// User is the identity collaborator's view of an account. This subsystem
// only reads display info and the follow relationship; the record itself is
// owned by the auth service.
type User struct {
	ID             string   `bson:"_id" json:"id"`
	Username       string   `bson:"username" json:"userName"`
	ProfilePicture string   `bson:"profile_picture" json:"profilePicture"`
	Followers      []string `bson:"followers" json:"-"`
	Following      []string `bson:"following" json:"-"`
}

// Conversation records the 1:1 pairing and its message-id sequence.
// Exactly one conversation exists per unordered participant pair; it is
// created lazily on first send and never deleted.
type Conversation struct {
	ID           string    `bson:"_id" json:"id"`
	Participants []string  `bson:"participants" json:"participants"`
	MessageIDs   []string  `bson:"message_ids" json:"messageIds"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updatedAt"`
}

// Message is a single direct message. Read only ever flips false->true.
// DeletedFor lists users the message is hidden for ("delete for me"); a
// hard delete removes the record and may leave its id dangling in the
// conversation's MessageIDs, which hydration must skip.
type Message struct {
	ID         string    `bson:"_id" json:"id"`
	SenderID   string    `bson:"sender_id" json:"senderId"`
	ReceiverID string    `bson:"receiver_id" json:"receiverId"`
	Body       string    `bson:"body" json:"message"`
	Read       bool      `bson:"read" json:"read"`
	DeletedFor []string  `bson:"deleted_for" json:"deletedFor"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
}

// HiddenFor reports whether the message is soft-deleted for the given user.
func (m *Message) HiddenFor(userID string) bool {
	for _, id := range m.DeletedFor {
		if id == userID {
			return true
		}
	}
	return false
}

// ActorInfo is the slice of a user shown in notifications.
type ActorInfo struct {
	Username       string `json:"userName"`
	ProfilePicture string `json:"profilePicture"`
}

// NotificationKind tags the cause of a notification.
type NotificationKind string

const (
	NotificationLike    NotificationKind = "like"
	NotificationDislike NotificationKind = "dislike"
	NotificationComment NotificationKind = "comment"
	NotificationMessage NotificationKind = "message"
)

// Notification is the transient fan-out value pushed over the event channel.
// It is never persisted; the client keeps its own running list.
type Notification struct {
	Kind    NotificationKind `json:"type"`
	ActorID string           `json:"userId"`
	Actor   ActorInfo        `json:"userDetails"`
	PostID  string           `json:"postId,omitempty"`
	Text    string           `json:"message"`
}
