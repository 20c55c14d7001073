package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"telegram-tempmail-relay/internal/domain"
)

// listMessagesHandler serves the current inbox snapshot for a user.
// The lookup counts as an inbox check and keeps the session active.
func (s *Server) listMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	messages, err := s.inbox.ListMessages(r.Context(), userID)
	if err != nil {
		s.writeInboxError(w, r, err, "Failed to list messages")
		return
	}

	response := struct {
		Data  interface{} `json:"data"`
		Total int         `json:"total"`
	}{
		Data:  messages,
		Total: len(messages),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func (s *Server) fetchMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	messageID := chi.URLParam(r, "messageID")

	msg, err := s.inbox.FetchMessage(r.Context(), userID, messageID)
	if err != nil {
		s.writeInboxError(w, r, err, "Failed to fetch message")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(msg)
}

func (s *Server) deleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	messageID := chi.URLParam(r, "messageID")

	if err := s.inbox.DeleteMessage(r.Context(), userID, messageID); err != nil {
		s.writeInboxError(w, r, err, "Failed to delete message")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeInboxError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.NotFound(w, r)
	case errors.Is(err, domain.ErrMailboxGone):
		http.Error(w, "Mailbox no longer exists", http.StatusGone)
	case errors.Is(err, domain.ErrInvalidCredentials):
		http.Error(w, "Stored credentials rejected by provider", http.StatusConflict)
	case errors.Is(err, domain.ErrTransient):
		http.Error(w, "Mail provider unavailable", http.StatusBadGateway)
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("inbox handler failed")
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}
