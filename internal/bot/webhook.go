package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"crypto-summary-bot/internal/summary"
)

const (
	webhookPath    = "/webhook"
	triggerTimeout = 180 * time.Second
)

// Server exposes the webhook endpoint plus a manual trigger and a health
// check. It runs in both webhook and long-poll modes; in long-poll mode the
// webhook route still answers but updates arrive through the poller.
type Server struct {
	handler     *Handler
	orch        *summary.Orchestrator
	broadcaster *Broadcaster
	logger      zerolog.Logger
	srv         *http.Server
}

// NewServer wires the HTTP surface.
func NewServer(port int, handler *Handler, orch *summary.Orchestrator, broadcaster *Broadcaster, logger zerolog.Logger) *Server {
	s := &Server{
		handler:     handler,
		orch:        orch,
		broadcaster: broadcaster,
		logger:      logger.With().Str("component", "http").Logger(),
	}

	r := mux.NewRouter()
	r.HandleFunc(webhookPath, s.handleWebhook).Methods(http.MethodPost)
	r.HandleFunc("/trigger", s.handleTrigger).Methods(http.MethodGet)
	r.PathPrefix("/").HandlerFunc(s.handleHealth).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: triggerTimeout + 10*time.Second,
	}
	return s
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("HTTP server started")
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var upd Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		s.logger.Error().Err(err).Msg("webhook decode failed")
		w.WriteHeader(http.StatusOK)
		return
	}
	s.handler.HandleUpdate(r.Context(), upd)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleTrigger runs the pipeline and broadcasts the result. Used by
// external schedulers poking the bot over HTTP.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	s.logger.Info().Msg("summary triggered over HTTP")

	ctx, cancel := context.WithTimeout(r.Context(), triggerTimeout)
	defer cancel()

	doc := s.orch.BuildSummary(ctx)
	sent, failed := s.broadcaster.Broadcast(ctx, doc.Text())
	if sent == 0 && failed > 0 {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Error"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Summary sent"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
