package llm

import (
	"context"

	"github.com/propform/proposals-tracker/constants"
	"github.com/propform/proposals-tracker/internal/entity"
)

// ProposalFields is the normalized shape we want from the model. The wire
// keys follow the extraction prompt contract.
type ProposalFields struct {
	ClientName       string  `json:"nome_cliente"`
	ProposalValue    float64 `json:"valor_proposta"`
	ProductOrService string  `json:"produto_servico"`
	ProposalType     string  `json:"proposal_type"`
	Terms            string  `json:"condicoes"`
}

// Fixed fallback strings returned when generation fails. These are persisted
// (summary) or shown to operators (digest), so they are human-readable.
const (
	SummaryUnavailable = "Não foi possível gerar o resumo."
	DigestUnavailable  = "Não foi possível gerar o resumo das propostas pendentes."
	DigestEmpty        = "Não há propostas pendentes no momento."
)

// Analyzer is the narrow interface the pipeline depends on. Summarize and
// PredictStatus degrade internally (placeholder string, pending status)
// instead of surfacing errors; only field extraction can fail a document.
type Analyzer interface {
	// ExtractFields parses proposal text into structured fields. The raw
	// (sanitized) model output is returned for diagnostics.
	ExtractFields(ctx context.Context, text string) (ProposalFields, []byte, error)

	// Summarize produces a 3-4 sentence executive summary, or
	// SummaryUnavailable when the service fails.
	Summarize(ctx context.Context, fields ProposalFields) string

	// PredictStatus classifies the proposal outcome. Out-of-domain labels and
	// service failures both yield StatusPending.
	PredictStatus(ctx context.Context, fields ProposalFields) constants.Status

	// DigestPending summarizes a set of pending proposals for operators.
	// An empty set short-circuits to DigestEmpty without a service call;
	// service failures degrade to DigestUnavailable.
	DigestPending(ctx context.Context, proposals []entity.Proposal) string
}
