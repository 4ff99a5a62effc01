package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/seventech-gov/browser-use/internal/api"
	"github.com/seventech-gov/browser-use/internal/executor"
	"github.com/seventech-gov/browser-use/internal/extract"
	"github.com/seventech-gov/browser-use/internal/logging"
	"github.com/seventech-gov/browser-use/internal/mapper"
	"github.com/seventech-gov/browser-use/internal/planner"
	"github.com/seventech-gov/browser-use/internal/proposer"
	"github.com/seventech-gov/browser-use/internal/scheduler"
	"github.com/seventech-gov/browser-use/internal/store"
	"github.com/seventech-gov/browser-use/internal/streaming"
	"github.com/seventech-gov/browser-use/internal/surface"
	"github.com/seventech-gov/browser-use/internal/validation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "seventech:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := loadConfig()
	logger := newLogger(cfg.LogLevel)

	if cfg.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY is required for mapping sessions")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.NewLibSQLStore("file:" + cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	hub := streaming.NewMemoryHub()
	journal := streaming.NewJournal(hub, st, logger)
	if err := journal.Start(ctx); err != nil {
		return fmt.Errorf("start journal: %w", err)
	}
	defer journal.Stop()

	factory := surface.NewPlaywrightFactory(cfg.Headless)

	var llmOpts []proposer.Option
	if cfg.OpenAIModel != "" {
		llmOpts = append(llmOpts, proposer.WithModel(cfg.OpenAIModel))
	}
	if cfg.OpenAIBaseURL != "" {
		llmOpts = append(llmOpts, proposer.WithBaseURL(cfg.OpenAIBaseURL))
	}
	llm := proposer.New(cfg.OpenAIAPIKey, llmOpts...)

	sessions := mapper.NewRegistry(factory, llm, hub, logger, mapper.Config{
		MaxSteps: cfg.MaxSessionSteps,
	})
	defer sessions.Close()

	validator, err := validation.NewPlanValidator()
	if err != nil {
		return fmt.Errorf("compile plan schema: %w", err)
	}

	engine := executor.New(factory, extract.NewEngine(), logger, executor.Config{
		Retry: executor.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			Delay:      time.Duration(cfg.RetryDelayMs) * time.Millisecond,
		},
		StepTimeout:       time.Duration(cfg.StepTimeoutMs) * time.Millisecond,
		FailFast:          cfg.FailFast,
		SaveScreenshots:   cfg.SaveScreenshots,
		ScreenshotOnError: cfg.ScreenshotOnError,
	})
	executions := executor.NewService(st, engine, logger)

	sched := scheduler.New(st, executions, logger)
	if cfg.SchedulerEnabled {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	server := api.NewServer(api.Deps{
		Sessions:   sessions,
		Compiler:   planner.New(),
		Validator:  validator,
		Executions: executions,
		Store:      st,
		Hub:        hub,
		Scheduler:  sched,
		Logger:     logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.ListenAddr, "db", cfg.DBPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(logging.NewCorrelationHandler(handler))
}
