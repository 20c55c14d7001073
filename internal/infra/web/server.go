package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-tempmail-relay/internal/domain"
	"telegram-tempmail-relay/internal/usecase"
)

// Pinger is a named dependency the health endpoint probes.
type Pinger struct {
	Name string
	Ping func(ctx context.Context) error
}

// Server exposes the push endpoint plus the small operational surface.
type Server struct {
	sessions usecase.SessionUseCase
	inbox    usecase.InboxUseCase
	auth     *SocketAuth
	hub      SocketHub
	apiKey   string
	pingers  []Pinger
	log      *zerolog.Logger
}

func NewServer(
	sessions usecase.SessionUseCase,
	inbox usecase.InboxUseCase,
	auth *SocketAuth,
	hub SocketHub,
	apiKey string,
	pingers []Pinger,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "web").Logger()
	return &Server{
		sessions: sessions,
		inbox:    inbox,
		auth:     auth,
		hub:      hub,
		apiKey:   apiKey,
		pingers:  pingers,
		log:      &l,
	}
}

// Router builds the chi mux with all routes attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthzHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/ws", s.wsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.apiKeyMiddleware)
		r.Post("/ws-token", s.mintTokenHandler)
		r.Get("/users/{userID}/messages", s.listMessagesHandler)
		r.Get("/users/{userID}/messages/{messageID}", s.fetchMessageHandler)
		r.Delete("/users/{userID}/messages/{messageID}", s.deleteMessageHandler)
	})

	return r
}

// apiKeyMiddleware gates the admin routes behind a static bearer key.
func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		hdr := r.Header.Get("Authorization")
		if hdr == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		parts := strings.Split(hdr, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}
		if parts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type mintTokenRequest struct {
	UserID string `json:"user_id"`
}

// mintTokenHandler issues a socket token for a user with a registered
// session. The provisioning layer calls this before handing the token
// to the browser client.
func (s *Server) mintTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req mintTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if _, err := s.sessions.GetByUserID(r.Context(), req.UserID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.log.Error().Err(err).Str("user_id", req.UserID).Msg("session lookup failed")
		http.Error(w, "Failed to mint token", http.StatusInternalServerError)
		return
	}

	token, expires, err := s.auth.Mint(req.UserID)
	if err != nil {
		s.log.Error().Err(err).Msg("token mint failed")
		http.Error(w, "Failed to mint token", http.StatusInternalServerError)
		return
	}

	response := struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}{
		Token:     token,
		ExpiresAt: expires,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.pingers))
	for _, p := range s.pingers {
		if err := p.Ping(ctx); err != nil {
			checks[p.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[p.Name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks,omitempty"`
	}{
		Status: http.StatusText(status),
		Checks: checks,
	})
}
