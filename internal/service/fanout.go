package service

import (
	"context"
	"fmt"
	"log/slog"

	"nexasphere/internal/domain"
)

// Fanout formats and pushes "someone liked/commented/messaged you" events.
// Invoked by messaging and by the external like/comment workflows; stateless
// apart from its collaborators.
type Fanout struct {
	users   domain.UserDirectory
	channel EventChannel
	log     *slog.Logger
}

func NewFanout(users domain.UserDirectory, channel EventChannel, log *slog.Logger) *Fanout {
	return &Fanout{users: users, channel: channel, log: log}
}

// Notify pushes a notification event to the target. Self-notifications are
// suppressed and an offline target is a silent no-op.
func (f *Fanout) Notify(ctx context.Context, actorID, targetID string, kind domain.NotificationKind, postID string) {
	if actorID == targetID {
		return
	}

	actor := domain.ActorInfo{}
	if u, err := f.users.GetByID(ctx, actorID); err == nil && u != nil {
		actor = domain.ActorInfo{Username: u.Username, ProfilePicture: u.ProfilePicture}
	} else {
		f.log.Warn("fanout: actor lookup failed", "user_id", actorID, "error", err)
	}

	f.channel.EmitTo(targetID, "notification", domain.Notification{
		Kind:    kind,
		ActorID: actorID,
		Actor:   actor,
		PostID:  postID,
		Text:    notificationText(kind, actor.Username),
	})
}

func notificationText(kind domain.NotificationKind, username string) string {
	if username == "" {
		username = "Someone"
	}
	switch kind {
	case domain.NotificationLike:
		return fmt.Sprintf("%s liked your post", username)
	case domain.NotificationDislike:
		return fmt.Sprintf("%s disliked your post", username)
	case domain.NotificationComment:
		return fmt.Sprintf("%s commented on your post", username)
	case domain.NotificationMessage:
		return fmt.Sprintf("%s messaged you", username)
	default:
		return fmt.Sprintf("%s interacted with you", username)
	}
}
