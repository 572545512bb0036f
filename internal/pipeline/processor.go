package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/propform/proposals-tracker/constants"
	"github.com/propform/proposals-tracker/internal/common"
	"github.com/propform/proposals-tracker/internal/entity"
	"github.com/propform/proposals-tracker/internal/extract"
	"github.com/propform/proposals-tracker/internal/llm"
	"github.com/propform/proposals-tracker/internal/metrics"
	"github.com/propform/proposals-tracker/internal/notify"
	"github.com/propform/proposals-tracker/internal/repository"
)

// Pipeline stage names, used in logs, metrics and results.
const (
	StageExtract = "extract"
	StageFields  = "fields"
	StageSummary = "summary"
	StagePredict = "predict"
	StageStore   = "store"
	StageNotify  = "notify"
)

// Config tunes a Processor.
type Config struct {
	// MinTextLength is the minimum extracted text length for a document to
	// be considered readable. Zero means the default gate.
	MinTextLength int
	// Predict enables the acceptance-likelihood stage; when off, new
	// proposals are stored as pending.
	Predict bool
	// OnStage, when set, is called with each stage name as it starts.
	OnStage func(stage string)
}

// Result reports the outcome of processing one document.
type Result struct {
	ProposalID   int64
	Proposal     *entity.Proposal
	Deduplicated bool
	// FailedStage names the stage that aborted processing; empty on success.
	FailedStage string
	Err         error
}

func (r Result) OK() bool { return r.Err == nil }

// Processor runs a document through extract, analyze, persist and notify.
type Processor struct {
	log       *slog.Logger
	cfg       Config
	extractor extract.TextExtractor
	analyzer  llm.Analyzer
	repo      repository.ProposalRepository
	notifier  notify.Notifier
}

func NewProcessor(
	cfg Config,
	extractor extract.TextExtractor,
	analyzer llm.Analyzer,
	repo repository.ProposalRepository,
	notifier notify.Notifier,
	logger *slog.Logger,
) *Processor {
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = constants.MinTextLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		log:       logger,
		cfg:       cfg,
		extractor: extractor,
		analyzer:  analyzer,
		repo:      repo,
		notifier:  notifier,
	}
}

// Process runs the full pipeline for one file. A failed result carries the
// stage that aborted it; summary and notification failures degrade instead
// of aborting.
func (p *Processor) Process(ctx context.Context, path string) Result {
	filename := filepath.Base(path)
	log := p.log.With("file", filename)
	log.Info("pipeline.start")

	text, res := p.runExtract(ctx, path, log)
	if res != nil {
		return *res
	}

	fields, rawJSON, res := p.runFields(ctx, text, filename, log)
	if res != nil {
		return *res
	}
	log.Debug("pipeline.fields", "raw", string(rawJSON))

	p.stage(StageSummary)
	summary := p.timedSummary(ctx, fields)
	if summary == llm.SummaryUnavailable {
		log.Warn("pipeline.summary_unavailable")
	}

	status := constants.StatusPending
	if p.cfg.Predict {
		p.stage(StagePredict)
		status = p.timedPredict(ctx, fields)
		log.Info("pipeline.predicted", "status", string(status))
	}

	// The extractor just read this file, so a hash failure means it vanished
	// or broke mid-run. Without the hash the dedup guarantee is gone, so the
	// document fails rather than slipping in unkeyed.
	hash, err := hashFile(path)
	if err != nil {
		metrics.ProposalsFailed.WithLabelValues(StageStore).Inc()
		log.Error("pipeline.hash_failed", "error", err)
		return Result{FailedStage: StageStore, Err: common.WrapError(err, "hash source document")}
	}

	proposal := &entity.Proposal{
		ClientName:       orSentinel(fields.ClientName),
		ProposalValue:    fields.ProposalValue,
		ProductOrService: orSentinel(fields.ProductOrService),
		ProposalType:     orSentinel(fields.ProposalType),
		Terms:            orSentinel(fields.Terms),
		AISummary:        summary,
		SourceFilename:   filename,
		ContentHash:      hash,
		ProcessedAt:      time.Now().UTC(),
		Status:           status,
	}

	p.stage(StageStore)
	start := time.Now()
	id, dedup, err := p.repo.Insert(ctx, proposal)
	metrics.StageDuration.WithLabelValues(StageStore).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProposalsFailed.WithLabelValues(StageStore).Inc()
		log.Error("pipeline.store_failed", "error", err)
		return Result{FailedStage: StageStore, Err: err}
	}

	if dedup {
		log.Warn("pipeline.deduplicated", "id", id)
	} else {
		p.stage(StageNotify)
		p.notifier.NotifyProcessed(ctx, proposal)
	}

	metrics.ProposalsProcessed.Inc()
	log.Info("pipeline.done", "id", id, "client", proposal.ClientName, "dedup", dedup)
	return Result{ProposalID: id, Proposal: proposal, Deduplicated: dedup}
}

func (p *Processor) runExtract(ctx context.Context, path string, log *slog.Logger) (string, *Result) {
	p.stage(StageExtract)
	start := time.Now()
	extracted, err := p.extractor.Extract(ctx, path)
	metrics.StageDuration.WithLabelValues(StageExtract).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProposalsFailed.WithLabelValues(StageExtract).Inc()
		log.Error("pipeline.extract_failed", "error", err)
		return "", &Result{FailedStage: StageExtract, Err: err}
	}

	text := strings.TrimSpace(extracted.Text)
	if len(text) < p.cfg.MinTextLength {
		metrics.ProposalsFailed.WithLabelValues(StageExtract).Inc()
		err := common.NewAppError("EXTRACT_EMPTY",
			fmt.Sprintf("extracted only %d characters, document likely has no text layer", len(text)), nil)
		log.Error("pipeline.extract_too_short", "chars", len(text), "pages", extracted.Pages)
		return "", &Result{FailedStage: StageExtract, Err: err}
	}

	log.Info("pipeline.extracted", "chars", len(text), "pages", extracted.Pages)
	return text, nil
}

func (p *Processor) runFields(ctx context.Context, text, filename string, log *slog.Logger) (llm.ProposalFields, []byte, *Result) {
	p.stage(StageFields)
	start := time.Now()
	fields, rawJSON, err := p.analyzer.ExtractFields(ctx, text)
	metrics.StageDuration.WithLabelValues(StageFields).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProposalsFailed.WithLabelValues(StageFields).Inc()
		log.Error("pipeline.fields_failed", "error", err)
		return llm.ProposalFields{}, nil, &Result{FailedStage: StageFields, Err: err}
	}
	return fields, rawJSON, nil
}

func (p *Processor) timedSummary(ctx context.Context, fields llm.ProposalFields) string {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(StageSummary).Observe(time.Since(start).Seconds())
	}()
	return p.analyzer.Summarize(ctx, fields)
}

func (p *Processor) timedPredict(ctx context.Context, fields llm.ProposalFields) constants.Status {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues(StagePredict).Observe(time.Since(start).Seconds())
	}()
	return p.analyzer.PredictStatus(ctx, fields)
}

func (p *Processor) stage(name string) {
	if p.cfg.OnStage != nil {
		p.cfg.OnStage(name)
	}
}

func orSentinel(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
