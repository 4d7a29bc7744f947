// Package app wires configuration, storage, pipeline, scheduler, and the HTTP
// server into a running service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"secure-mail-digest-go/internal/classify"
	"secure-mail-digest-go/internal/config"
	"secure-mail-digest-go/internal/fetcher"
	"secure-mail-digest-go/internal/handlers"
	"secure-mail-digest-go/internal/metrics"
	"secure-mail-digest-go/internal/notify"
	"secure-mail-digest-go/internal/pipeline"
	"secure-mail-digest-go/internal/scheduler"
	"secure-mail-digest-go/internal/server"
	"secure-mail-digest-go/internal/store"
	"secure-mail-digest-go/internal/summarize"
)

// Run initializes and starts the application
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting Secure Mail Digest Service")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// The summary history is the source of truth; rebuild any processed marks
	// lost to a crash between runs.
	repaired, err := st.Reconcile()
	if err != nil {
		return fmt.Errorf("startup reconciliation failed: %w", err)
	}
	if repaired > 0 {
		logrus.Infof("Startup reconciliation rebuilt %d processed marks", repaired)
	}

	m := metrics.NewMetrics()

	var f fetcher.Fetcher
	if cfg.Mailbox.UseGmailAPI {
		f, err = fetcher.NewGmailAPIFetcher(cfg.Mailbox)
		if err != nil {
			return fmt.Errorf("failed to create Gmail API fetcher: %w", err)
		}
		logrus.Info("Using Gmail API for mail fetching")
	} else {
		f, err = fetcher.NewIMAPFetcher(cfg.Mailbox)
		if err != nil {
			return fmt.Errorf("failed to create IMAP fetcher: %w", err)
		}
		logrus.Info("Using IMAP for mail fetching")
	}

	checker := classify.NewChecker(cfg.Monitor.KeywordList(), cfg.Monitor.ConfidentialityCheck)

	var summarizer summarize.Summarizer
	if cfg.Summarizer.APIKey != "" {
		gemini, err := summarize.NewGemini(context.Background(), cfg.Summarizer)
		if err != nil {
			return fmt.Errorf("failed to create summarizer: %w", err)
		}
		summarizer = gemini
		logrus.Infof("Gemini summarizer enabled with model %s", cfg.Summarizer.Model)
	} else {
		logrus.Warn("No Gemini API key configured, all summaries use the local fallback")
	}

	notifier := notify.NewTwilio(cfg.Notifier)

	engine := pipeline.NewEngine(f, st, checker, summarizer, notifier, m, pipeline.Options{
		Folder:       cfg.Mailbox.Folder,
		DomainFilter: cfg.Monitor.DomainFilter,
		FetchTimeout: cfg.Monitor.FetchTimeout,
		CallTimeout:  cfg.Summarizer.Timeout,
	})

	sched := scheduler.NewScheduler(engine, st, cfg.Monitor.PollInterval(), cfg.Monitor.MaxBackoff)

	h := handlers.NewHandlers(st, sched)
	router := server.SetupRouter(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Monitor.Autostart {
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start monitor: %w", err)
		}
	} else {
		logrus.Info("Monitor autostart disabled, waiting for start via API")
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop monitor: %v", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	if err := f.Close(); err != nil {
		logrus.Errorf("Failed to close fetcher: %v", err)
	}
	if summarizer != nil {
		summarizer.Close()
	}
	if err := st.Close(); err != nil {
		logrus.Errorf("Failed to close database: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return nil
}
