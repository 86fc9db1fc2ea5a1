package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"taskremind/internal/domain"
	"taskremind/internal/metrics"
	"taskremind/internal/ports"
	"taskremind/internal/realtime"
	"taskremind/internal/usecase"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Deps struct {
	Notifier      usecase.Notifier
	Notifications ports.NotificationStore
	// Hub serves /ws/{userID}; nil leaves the route out.
	Hub  *realtime.Hub
	Ping func(ctx context.Context) error
}

type Server struct {
	router *chi.Mux
	deps   Deps
}

func NewServer(d Deps) *Server {
	s := &Server{router: chi.NewRouter(), deps: d}

	r := s.router
	r.Get("/healthz", s.health)
	r.Handle("/metrics", metrics.Handler())
	r.Post("/notifications", s.createNotification)
	r.Put("/notifications/{id}/read", s.markRead)
	r.Get("/users/{userID}/notifications", s.listNotifications)
	if d.Hub != nil {
		r.Get("/ws/{userID}", s.websocket)
	}
	return s
}

// Handler is the router wrapped in the server's middleware stack.
func (s *Server) Handler() http.Handler {
	return chainMiddleware(
		s.router,
		recoverHandler,
		requestIDHandler,
		realIPHandler,
		loggerHandler(func(w http.ResponseWriter, r *http.Request) bool {
			return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
		}),
		corsHandler,
	)
}

// Run serves on port until ctx is cancelled, then drains in-flight
// requests for up to 30 seconds.
func (s *Server) Run(ctx context.Context, port int) error {
	httpServer := http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		log.Info().Msg("Server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		done <- httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Msgf("server serving on port %d", port)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}

	if err := <-done; err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ping != nil {
		if err := s.deps.Ping(r.Context()); err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("health check failed")
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) createNotification(w http.ResponseWriter, r *http.Request) {
	var req usecase.NewNotification
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n, err := s.deps.Notifier.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidNotification) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Msg("create notification")
		http.Error(w, "could not create notification", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, n.Payload())
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	q := r.URL.Query()

	limit := defaultListLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}
	unread, _ := strconv.ParseBool(q.Get("unread"))

	ns, err := s.deps.Notifications.ListForRecipient(r.Context(), userID, unread, limit)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("user", userID).Msg("list notifications")
		http.Error(w, "could not list notifications", http.StatusInternalServerError)
		return
	}

	out := make([]domain.Payload, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Payload())
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": out})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Notifications.MarkRead(r.Context(), id); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			http.Error(w, "notification not found", http.StatusNotFound)
			return
		}
		log.Ctx(r.Context()).Error().Err(err).Str("notification", id).Msg("mark read")
		http.Error(w, "could not update notification", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) websocket(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := s.deps.Hub.Serve(w, r, userID); err != nil {
		// The upgrader has already replied to the client.
		log.Ctx(r.Context()).Warn().Err(err).Str("user", userID).Msg("websocket rejected")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
