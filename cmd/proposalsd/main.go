// Command proposalsd watches a directory for commercial proposal PDFs,
// processes each through the analysis pipeline and files the document away.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/propform/proposals-tracker/internal/common"
	"github.com/propform/proposals-tracker/internal/extract"
	"github.com/propform/proposals-tracker/internal/ingest"
	"github.com/propform/proposals-tracker/internal/llm/gemini"
	"github.com/propform/proposals-tracker/internal/notify"
	"github.com/propform/proposals-tracker/internal/pipeline"
	"github.com/propform/proposals-tracker/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "proposalsd:", err)
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

	predict := cfg.Ingest.PredictOr(common.PredictDefaultDaemon)
	processor := pipeline.NewProcessor(
		pipeline.Config{Predict: predict},
		extract.NewPDFExtractor(logger),
		analyzer,
		repo,
		notifier,
		logger,
	)

	queue, err := ingest.NewQueue(cfg.Ingest.InputDir, cfg.Ingest.ProcessedDir, cfg.Ingest.Pattern, logger)
	if err != nil {
		return err
	}

	ticks, err := ingest.StartWatcher(ctx, cfg.Ingest.InputDir, logger)
	if err != nil {
		// Polling still covers ingestion when the watcher cannot start.
		logger.Warn("daemon.watcher_unavailable", "error", err)
		ticks = nil
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runMetricsServer(ctx, cfg.Server.MetricsAddr, logger)
	})

	g.Go(func() error {
		runLoop(ctx, queue, processor, ticks, cfg.Ingest.PollInterval.Std(), logger)
		return nil
	})

	logger.Info("daemon.started",
		"input_dir", cfg.Ingest.InputDir,
		"processed_dir", cfg.Ingest.ProcessedDir,
		"poll_interval", cfg.Ingest.PollInterval.Std().String(),
		"predict", predict,
	)

	err = g.Wait()
	logger.Info("daemon.stopped")
	return err
}

// runLoop drains the queue, then sleeps until the poll timer or a watcher
// tick fires. A scan failure doubles the wait before the next attempt.
func runLoop(
	ctx context.Context,
	queue *ingest.Queue,
	processor *pipeline.Processor,
	ticks <-chan struct{},
	poll time.Duration,
	logger *slog.Logger,
) {
	for {
		wait := poll

		files, err := queue.Scan()
		if err != nil {
			logger.Error("daemon.scan_failed", "error", err)
			wait = 2 * poll
		} else {
			for _, path := range files {
				if ctx.Err() != nil {
					return
				}
				processOne(ctx, queue, processor, path, logger)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticks:
		case <-time.After(wait):
		}
	}
}

// processOne runs the pipeline for a single file and acknowledges it by
// moving it out of the input directory. A panic in any stage quarantines the
// file instead of killing the daemon.
func processOne(
	ctx context.Context,
	queue *ingest.Queue,
	processor *pipeline.Processor,
	path string,
	logger *slog.Logger,
) {
	var res pipeline.Result

	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("daemon.process_panic", "file", path, "panic", r)
				res = pipeline.Result{FailedStage: "panic", Err: errors.New("processing panicked")}
			}
		}()
		res = processor.Process(ctx, path)
	}()

	if res.OK() {
		if err := queue.MoveProcessed(path); err != nil {
			logger.Error("daemon.ack_failed", "file", path, "error", err)
		}
		return
	}

	// A shutdown mid-sequence is not a document fault. The file stays in the
	// input directory and is re-discovered on the next run.
	if ctx.Err() != nil || errors.Is(res.Err, context.Canceled) {
		logger.Info("daemon.interrupted", "file", path)
		return
	}

	if err := queue.MoveErrored(path); err != nil {
		logger.Error("daemon.quarantine_failed", "file", path, "error", err)
	}
}

func runMetricsServer(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("daemon.metrics_listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
