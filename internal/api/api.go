// Package api provides HTTP handlers and the main API server logic for Angel.
//
// It exposes RESTful endpoints for enrolling sessions, answering onboarding
// questions, and working with the phase pipeline: navigation, progress,
// guidance prompts, completion declarations, and roadmap export.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/venturelaunch/angel/internal/flow"
	"github.com/venturelaunch/angel/internal/messaging"
	"github.com/venturelaunch/angel/internal/models"
	"github.com/venturelaunch/angel/internal/store"
)

// DefaultAddr is the default listen address for the API server.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address for the API server.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// Server wires the store, messaging service, and flow components behind the
// HTTP API.
type Server struct {
	addr         string
	store        store.Store
	msgService   messaging.Service
	respHandler  *messaging.ResponseHandler
	stateManager flow.StateManager
	journey      *flow.Journey
	controller   *flow.PhaseController
	httpServer   *http.Server
}

// Dependencies holds the collaborators the server needs.
type Dependencies struct {
	Store        store.Store
	MsgService   messaging.Service
	StateManager flow.StateManager
	Journey      *flow.Journey
	Controller   *flow.PhaseController
}

// NewServer creates a new API server with the given dependencies and options.
func NewServer(deps Dependencies, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	return &Server{
		addr:         cfg.Addr,
		store:        deps.Store,
		msgService:   deps.MsgService,
		respHandler:  messaging.NewResponseHandler(deps.MsgService),
		stateManager: deps.StateManager,
		journey:      deps.Journey,
		controller:   deps.Controller,
	}
}

// routes registers all HTTP handlers on a new mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /sessions", s.enrollHandler)
	mux.HandleFunc("GET /sessions", s.listSessionsHandler)
	mux.HandleFunc("GET /sessions/{id}", s.getSessionHandler)
	mux.HandleFunc("GET /sessions/{id}/question", s.questionHandler)
	mux.HandleFunc("POST /sessions/{id}/answer", s.answerHandler)

	mux.HandleFunc("GET /sessions/{id}/navigation", s.navigationHandler)
	mux.HandleFunc("POST /sessions/{id}/navigation/focus", s.focusHandler)
	mux.HandleFunc("POST /sessions/{id}/navigation/expand", s.expandHandler)
	mux.HandleFunc("POST /sessions/{id}/navigation/complete", s.completeTaskHandler)

	mux.HandleFunc("GET /sessions/{id}/progress", s.progressHandler)
	mux.HandleFunc("POST /sessions/{id}/progress", s.applyProgressHandler)

	mux.HandleFunc("GET /sessions/{id}/prompts", s.promptsHandler)
	mux.HandleFunc("POST /sessions/{id}/prompts/dismiss", s.dismissPromptHandler)

	mux.HandleFunc("POST /sessions/{id}/declarations", s.declareHandler)
	mux.HandleFunc("GET /sessions/{id}/declarations", s.listDeclarationsHandler)

	mux.HandleFunc("GET /sessions/{id}/roadmap", s.roadmapHandler)

	mux.HandleFunc("GET /receipts", s.receiptsHandler)
	mux.HandleFunc("GET /health", s.healthHandler)

	// Inbound Twilio webhook when SMS delivery is configured.
	if twilioSvc, ok := s.msgService.(*messaging.TwilioService); ok {
		mux.HandleFunc("POST /webhook/twilio", twilioSvc.TwilioWebhookHandler)
	}

	return mux
}

// Run starts the messaging service, restores response hooks for active
// sessions, and serves HTTP until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.msgService.Start(ctx); err != nil {
		slog.Error("Server.Run: failed to start messaging service", "error", err)
		return err
	}
	go s.pumpReceipts(ctx)
	go s.pumpResponses(ctx)

	if err := s.recoverHooks(ctx); err != nil {
		slog.Error("Server.Run: hook recovery failed", "error", err)
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server.Run: shutdown failed", "error", err)
		}
		if err := s.msgService.Stop(); err != nil {
			slog.Error("Server.Run: messaging service stop failed", "error", err)
		}
	}()

	slog.Info("Angel API running", "addr", s.addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// pumpReceipts drains delivery receipts from the messaging service into the
// store. The service's receipt channel is buffered and a full buffer drops
// events, so the pump must run for the whole lifetime of the server.
func (s *Server) pumpReceipts(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case receipt, ok := <-s.msgService.Receipts():
			if !ok {
				return
			}
			if err := s.store.AddReceipt(receipt); err != nil {
				slog.Error("Server.pumpReceipts: failed to store receipt", "error", err, "to", receipt.To)
			}
		}
	}
}

// pumpResponses records each inbound message and dispatches it to the
// registered response hooks.
func (s *Server) pumpResponses(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case response, ok := <-s.msgService.Responses():
			if !ok {
				return
			}
			if err := s.store.AddResponse(response); err != nil {
				slog.Error("Server.pumpResponses: failed to store response", "error", err, "from", response.From)
			}
			if err := s.respHandler.ProcessResponse(ctx, response); err != nil {
				slog.Error("Server.pumpResponses: failed to process response", "error", err, "from", response.From)
			}
		}
	}
}

// recoverHooks re-registers response hooks for active sessions after a restart.
func (s *Server) recoverHooks(ctx context.Context) error {
	sessions, err := s.store.ListSessions()
	if err != nil {
		return err
	}
	recovered := 0
	for _, session := range sessions {
		if session.Status != models.SessionStatusActive {
			continue
		}
		if err := s.respHandler.RegisterHook(session.Recipient, s.journeyHook(session.ID)); err != nil {
			slog.Error("Server.recoverHooks: failed to register hook", "error", err, "sessionID", session.ID)
			continue
		}
		recovered++
	}
	if recovered > 0 {
		slog.Info("Server.recoverHooks: response hooks restored", "count", recovered)
	}
	return nil
}

// journeyHook routes a participant's inbound message into the journey and
// sends the resulting reply back over the messaging service.
func (s *Server) journeyHook(sessionID string) messaging.ResponseAction {
	return func(ctx context.Context, from, responseText string, timestamp int64) (bool, error) {
		session, err := s.store.GetSession(sessionID)
		if err != nil {
			return false, err
		}
		if session == nil || session.Status != models.SessionStatusActive {
			return false, nil
		}

		reply, err := s.journey.HandleAnswer(ctx, session, responseText, time.Unix(timestamp, 0))
		if err != nil {
			return false, err
		}
		if reply == "" {
			return true, nil
		}
		if err := s.msgService.SendMessage(ctx, session.Recipient, reply); err != nil {
			return false, err
		}
		return true, nil
	}
}
