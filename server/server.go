// Package server exposes the inbound webhook: one POST per user turn, routed
// to a tenant by its webhook path.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/Jamesonkanakulya/appointment-agent/agent/contract"
	tenantx "github.com/Jamesonkanakulya/appointment-agent/tenant"
)

const maxBodyBytes = 1 << 20

type Config struct {
	Addr            string        `envconfig:"ADDR" split_words:"true" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" split_words:"true" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

// TurnRunner processes one user turn for a tenant.
type TurnRunner interface {
	RunTurn(ctx context.Context, tenant tenantx.Tenant, sessionID, userMessage string) (string, error)
}

type Server struct {
	cfg     Config
	tenants tenantx.Store
	runner  TurnRunner
}

func New(cfg Config, tenants tenantx.Store, runner TurnRunner) *Server {
	return &Server{cfg: cfg, tenants: tenants, runner: runner}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook/{path}", s.handleWebhook)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// ListenAndServe blocks until the context is canceled, then drains in-flight
// requests within the shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("webhook server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type webhookRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type webhookResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"sessionId"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")

	tenant, err := s.tenants.FindByWebhookPath(r.Context(), path)
	if errors.Is(err, tenantx.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no active tenant found for webhook path: %s", path))
		return
	}
	if err != nil {
		log.Error().Err(err).Str("webhook_path", path).Msg("tenant lookup failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var body webhookRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sessionID := strings.TrimSpace(body.SessionID)
	message := strings.TrimSpace(body.Message)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required and must be non-empty")
		return
	}
	if message == "" {
		writeError(w, http.StatusBadRequest, "message is required and must be non-empty")
		return
	}

	reply, err := s.runner.RunTurn(r.Context(), *tenant, sessionID, message)
	switch {
	case err == nil:
	case errors.Is(err, contractx.ErrConfig), errors.Is(err, contractx.ErrModelInvoke):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, contractx.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	default:
		log.Error().Err(err).Str("tenant_id", tenant.ID).Str("session_id", sessionID).Msg("turn failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{Reply: reply, SessionID: sessionID})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("write response failed")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
