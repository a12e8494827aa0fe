package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nexasphere/internal/domain"
	"nexasphere/internal/service"
)

type notifyRequest struct {
	Kind   string `json:"kind"`
	PostID string `json:"postId"`
}

// handleNotify is the seam the post/like/comment workflows call into: the
// authenticated user is the actor, the path names the target. The push
// itself is best-effort, so success only means the request was accepted.
func handleNotify(fanout *service.Fanout) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := CurrentUserID(r)
		targetID := chi.URLParam(r, "targetId")

		var req notifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("%w: invalid JSON body", domain.ErrInvalidInput))
			return
		}

		kind := domain.NotificationKind(req.Kind)
		switch kind {
		case domain.NotificationLike, domain.NotificationDislike, domain.NotificationComment:
		default:
			writeError(w, fmt.Errorf("%w: unknown notification kind %q", domain.ErrInvalidInput, req.Kind))
			return
		}

		fanout.Notify(r.Context(), actorID, targetID, kind, req.PostID)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}
