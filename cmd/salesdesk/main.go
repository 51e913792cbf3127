package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/comigor/salesdesk/internal/agent"
	"github.com/comigor/salesdesk/internal/chatlog"
	"github.com/comigor/salesdesk/internal/config"
	"github.com/comigor/salesdesk/internal/conversation"
	"github.com/comigor/salesdesk/internal/gateway"
	"github.com/comigor/salesdesk/internal/llm"
	"github.com/comigor/salesdesk/internal/logger"
	"github.com/comigor/salesdesk/internal/paramstore"
	"github.com/comigor/salesdesk/internal/session"
	"github.com/comigor/salesdesk/internal/web"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.L.Warn("failed to load .env", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load configuration", err)
	}
	logger.SetOutput(os.Stdout, cfg.Log.Format)
	logger.SetLevel(cfg.Log.Level)

	if cfg.LLM.APIKey == "" && cfg.LLM.APIKeyParameter != "" {
		ps, err := paramstore.NewFromEnvironment(ctx)
		if err != nil {
			fatal("failed to create parameter store client", err)
		}
		if cfg.LLM.APIKey, err = ps.APIKey(ctx, cfg.LLM.APIKeyParameter); err != nil {
			fatal("failed to resolve API key from parameter store", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		fatal("invalid configuration", err)
	}

	// Completion gateway
	gw, err := gateway.New(llm.NewClient(cfg.LLM), cfg.LLM.Model)
	if err != nil {
		fatal("failed to create gateway", err)
	}

	// Sessions
	store, err := session.Open(ctx, cfg.Session)
	if err != nil {
		fatal("failed to open session store", err)
	}
	defer store.Close()
	sessions, err := session.NewManager(store, cfg.Session.Secret, cfg.Session.CookieName)
	if err != nil {
		fatal("failed to create session manager", err)
	}
	if cfg.Session.Secret == "" {
		logger.L.Warn("session.secret not set; sessions will not survive a restart")
	}

	// Visitor logs
	sink, err := chatlog.New(cfg.Logs.Dir)
	if err != nil {
		fatal("failed to create log directory", err)
	}

	seed := conversation.Seed{Instructions: cfg.Assistant.Instructions, Knowledge: cfg.Assistant.Knowledge}
	ag, err := agent.New(gw, sessions, sink, seed, cfg.Session.MaxTurns)
	if err != nil {
		fatal("failed to create agent", err)
	}

	srv, err := web.New(sessions, ag, cfg.Assistant)
	if err != nil {
		fatal("failed to create web server", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.L.Error("server shutdown error", "error", err)
		}
	}()

	// Start server
	logger.L.Info("starting server", "address", httpServer.Addr, "model", cfg.LLM.Model, "session_backend", cfg.Session.Backend)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.L.Error("failed to start server", "error", err)
	}
}

func fatal(msg string, err error) {
	logger.L.Error(msg, "error", err)
	os.Exit(1)
}
