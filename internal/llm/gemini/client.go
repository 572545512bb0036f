package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"

	"github.com/propform/proposals-tracker/constants"
	"github.com/propform/proposals-tracker/internal/entity"
	"github.com/propform/proposals-tracker/internal/llm"
)

// Config for the Gemini (Vertex AI) client.
type Config struct {
	ProjectID string        // required
	Region    string        // default us-central1
	Model     string        // e.g. "gemini-1.5-flash"
	Timeout   time.Duration // per-call deadline
}

// Client implements llm.Analyzer on top of Vertex AI generative models. It
// holds pre-configured models: the extraction model is forced to JSON output
// at temperature 0, the classifier is plain text at temperature 0 and the
// prose model keeps a little creative headroom for summaries.
type Client struct {
	extractModel *genai.GenerativeModel
	proseModel   *genai.GenerativeModel
	predictModel *genai.GenerativeModel
	base         *genai.Client
	cfg          Config
	log          *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("gemini: project id is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-central1"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	base, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	extract := base.GenerativeModel(cfg.Model)
	extract.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	}

	prose := base.GenerativeModel(cfg.Model)
	prose.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.3),
	}

	predict := base.GenerativeModel(cfg.Model)
	predict.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0),
	}

	return &Client{
		extractModel: extract,
		proseModel:   prose,
		predictModel: predict,
		base:         base,
		cfg:          cfg,
		log:          logger,
	}, nil
}

func (c *Client) Close() error {
	if c.base != nil {
		return c.base.Close()
	}
	return nil
}

// ExtractFields implements llm.Analyzer.
func (c *Client) ExtractFields(ctx context.Context, text string) (llm.ProposalFields, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"text_len", len(text),
	)

	content, err := c.generate(ctx, c.extractModel, llm.BuildExtractionPrompt(text))
	if err != nil {
		c.log.Error("llm.extract.call_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ProposalFields{}, nil, fmt.Errorf("gemini extract: %w", err)
	}

	fields, raw, dropped, err := llm.DecodeFields(content)
	if err != nil {
		c.log.Error("llm.extract.parse_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		// raw response kept at debug for post-mortem
		c.log.Debug("llm.extract.raw_response", "req_id", rid, "content", content)
		return llm.ProposalFields{}, raw, fmt.Errorf("parse fields: %w", err)
	}
	if len(dropped) > 0 {
		c.log.Warn("llm.extract.sanitized", "req_id", rid, "repaired", dropped)
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"client", fields.ClientName,
		"value", fields.ProposalValue,
		"type", fields.ProposalType,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return fields, raw, nil
}

// Summarize implements llm.Analyzer. Failures degrade to the fixed
// placeholder instead of failing the caller.
func (c *Client) Summarize(ctx context.Context, fields llm.ProposalFields) string {
	rid := uuid.New().String()
	start := time.Now()

	content, err := c.generate(ctx, c.proseModel, llm.BuildSummaryPrompt(fields))
	if err != nil || strings.TrimSpace(content) == "" {
		c.log.Error("llm.summary.failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.SummaryUnavailable
	}

	c.log.Info("llm.summary.ok",
		"req_id", rid,
		"chars", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return strings.TrimSpace(content)
}

// PredictStatus implements llm.Analyzer. Out-of-domain labels and service
// failures both collapse to pending.
func (c *Client) PredictStatus(ctx context.Context, fields llm.ProposalFields) constants.Status {
	rid := uuid.New().String()

	content, err := c.generate(ctx, c.predictModel, llm.BuildPredictionPrompt(fields))
	if err != nil {
		c.log.Error("llm.predict.failed", "req_id", rid, "error", err)
		return constants.StatusPending
	}

	status, ok := constants.NormalizeStatus(content)
	if !ok {
		c.log.Warn("llm.predict.unexpected_label", "req_id", rid, "label", content)
		return constants.StatusPending
	}
	c.log.Info("llm.predict.ok", "req_id", rid, "status", string(status))
	return status
}

// DigestPending implements llm.Analyzer. Failures degrade to the fixed
// placeholder, same as Summarize.
func (c *Client) DigestPending(ctx context.Context, proposals []entity.Proposal) string {
	if len(proposals) == 0 {
		return llm.DigestEmpty
	}

	rid := uuid.New().String()
	content, err := c.generate(ctx, c.proseModel, llm.BuildPendingDigestPrompt(proposals))
	if err != nil || strings.TrimSpace(content) == "" {
		c.log.Error("llm.digest.failed", "req_id", rid, "error", err, "proposals", len(proposals))
		return llm.DigestUnavailable
	}
	return strings.TrimSpace(content)
}

func (c *Client) generate(ctx context.Context, model *genai.GenerativeModel, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return textFromResponse(resp), nil
}

func textFromResponse(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	return b.String()
}
