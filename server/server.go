// Package server is the HTTP surface of the assistant: one chat endpoint
// driving conversation turns, a session inspection endpoint and a health
// probe. Everything conversational happens behind the Conversation
// interface; this package only translates HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/laserhenk/henk-agent/agent/orchestrator"
	statex "github.com/laserhenk/henk-agent/agent/state"
)

const maxRequestBodyBytes = 1 << 20

type Config struct {
	Addr            string        `split_words:"true" default:":8080"`
	ReadTimeout     time.Duration `split_words:"true" default:"15s"`
	WriteTimeout    time.Duration `split_words:"true" default:"120s"`
	IdleTimeout     time.Duration `split_words:"true" default:"60s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

// Conversation is the turn-driving surface the chat endpoint needs.
type Conversation interface {
	AdvanceTurn(ctx context.Context, sessionID string, text string) (orchestrator.TurnResult, error)
}

type Handler struct {
	conversation Conversation
	store        statex.Store
}

func NewHandler(conversation Conversation, store statex.Store) (*Handler, error) {
	if conversation == nil {
		return nil, errors.New("conversation is required")
	}
	if store == nil {
		return nil, errors.New("session store is required")
	}
	return &Handler{conversation: conversation, store: store}, nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.HandleChat)
	r.Get("/sessions/{sessionID}", h.HandleSession)
	r.Get("/healthz", h.HandleHealth)
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string        `json:"session_id"`
	Reply     string        `json:"reply"`
	Stage     string        `json:"stage"`
	Messages  []statex.Turn `json:"messages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleChat runs one conversation turn. A request without a session id
// starts a fresh conversation under a minted uuid; the id comes back in the
// response so the client can continue it.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	result, err := h.conversation.AdvanceTurn(r.Context(), sessionID, req.Message)
	if err != nil {
		if errors.Is(err, orchestrator.ErrInvalidSession) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "session id is invalid"})
			return
		}
		log.Error().Err(err).Str("session_id", sessionID).Msg("turn failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: result.SessionID,
		Reply:     result.Reply,
		Stage:     result.Stage,
		Messages:  result.Messages,
	})
}

// HandleSession returns the full persisted session state. It backs the
// handover view the studio staff use and local debugging.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))

	session, err := h.store.Load(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, statex.ErrStateNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		case errors.Is(err, statex.ErrInvalidSession):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "session id is invalid"})
		default:
			log.Error().Err(err).Str("session_id", sessionID).Msg("session load failed")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("write response failed")
	}
}

// Run serves the handler until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg Config, handler *Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
