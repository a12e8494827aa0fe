package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nexasphere/internal/domain"
	"nexasphere/internal/service"
)

type sendMessageRequest struct {
	Message string `json:"message"`
}

type deleteMessageRequest struct {
	ForEveryone bool `json:"forEveryone"`
}

func handleSendMessage(msgSvc *service.MessagingService, dispatcher *service.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		senderID := CurrentUserID(r)
		receiverID := chi.URLParam(r, "receiverId")

		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("%w: invalid JSON body", domain.ErrInvalidInput))
			return
		}

		msg, effects, err := msgSvc.Send(r.Context(), senderID, receiverID, req.Message)
		if err != nil {
			writeError(w, err)
			return
		}
		dispatcher.Apply(effects)

		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"newMessage": msg,
		})
	}
}

func handleGetMessages(msgSvc *service.MessagingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := CurrentUserID(r)
		otherID := chi.URLParam(r, "otherId")

		msgs, err := msgSvc.History(r.Context(), userID, otherID)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"messages": msgs,
		})
	}
}

func handleMarkRead(msgSvc *service.MessagingService, dispatcher *service.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		readerID := CurrentUserID(r)
		otherID := chi.URLParam(r, "otherId")

		updated, effects, err := msgSvc.MarkRead(r.Context(), readerID, otherID)
		if err != nil {
			writeError(w, err)
			return
		}
		dispatcher.Apply(effects)

		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"updatedCount": updated,
		})
	}
}

func handleDeleteMessage(msgSvc *service.MessagingService, dispatcher *service.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requesterID := CurrentUserID(r)
		messageID := chi.URLParam(r, "messageId")

		// an absent body means "delete for me"
		var req deleteMessageRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		deleted, effects, err := msgSvc.Delete(r.Context(), requesterID, messageID, req.ForEveryone)
		if err != nil {
			writeError(w, err)
			return
		}
		dispatcher.Apply(effects)

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"deleted": deleted,
		})
	}
}
