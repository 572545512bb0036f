// Command proposals-api serves the proposal tracker over HTTP: synchronous
// document upload, review and correction endpoints, spreadsheet export and a
// pending-backlog digest.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/propform/proposals-tracker/internal/common"
	"github.com/propform/proposals-tracker/internal/export"
	"github.com/propform/proposals-tracker/internal/extract"
	"github.com/propform/proposals-tracker/internal/llm/gemini"
	"github.com/propform/proposals-tracker/internal/notify"
	"github.com/propform/proposals-tracker/internal/pipeline"
	"github.com/propform/proposals-tracker/internal/repository"
	"github.com/propform/proposals-tracker/internal/server"
	"github.com/propform/proposals-tracker/internal/server/handler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "proposals-api:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := common.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	repo := repository.NewProposalRepository(db, logger)

	analyzer, err := gemini.NewClient(ctx, gemini.Config{
		ProjectID: cfg.AI.ProjectID,
		Region:    cfg.AI.Region,
		Model:     cfg.AI.Model,
		Timeout:   cfg.AI.Timeout.Std(),
	}, logger)
	if err != nil {
		return err
	}
	defer analyzer.Close()

	notifier := notify.NewWhatsAppNotifier(notify.Config{
		PhoneNumber: cfg.Notify.PhoneNumber,
		APIKey:      cfg.Notify.APIKey,
		BaseURL:     cfg.Notify.BaseURL,
		Timeout:     cfg.Notify.Timeout.Std(),
	}, logger)

	processor := pipeline.NewProcessor(
		pipeline.Config{Predict: cfg.Ingest.PredictOr(common.PredictDefaultInteractive)},
		extract.NewPDFExtractor(logger),
		analyzer,
		repo,
		notifier,
		logger,
	)

	h := handler.NewProposalHandler(repo, processor, export.NewService(repo, logger), analyzer, logger)
	router := server.NewRouter(h, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("api.listening", "addr", cfg.Server.Addr)

	select {
	case <-ctx.Done():
		logger.Info("api.shutting_down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
