package entity

import (
	"time"

	"github.com/propform/proposals-tracker/constants"
)

// Proposal is the durable record of one processed commercial proposal.
// ID is assigned by the store on insert; ProcessedAt defaults at insert time.
type Proposal struct {
	ID               int64            `json:"id"`
	ClientName       string           `json:"client_name"`
	ProposalValue    float64          `json:"proposal_value"`
	ProductOrService string           `json:"product_or_service"`
	ProposalType     string           `json:"proposal_type"`
	Terms            string           `json:"terms"`
	AISummary        string           `json:"ai_summary"`
	SourceFilename   string           `json:"source_filename"`
	ContentHash      string           `json:"content_hash,omitempty"`
	ProcessedAt      time.Time        `json:"processed_at"`
	Status           constants.Status `json:"status"`
}

// ProposalUpdate is the closed partial-update payload for a stored proposal.
// Nil fields are left untouched. ID, ProcessedAt, SourceFilename and
// ContentHash are never updatable.
type ProposalUpdate struct {
	ClientName       *string  `json:"client_name,omitempty"`
	ProposalValue    *float64 `json:"proposal_value,omitempty"`
	ProductOrService *string  `json:"product_or_service,omitempty"`
	ProposalType     *string  `json:"proposal_type,omitempty"`
	Terms            *string  `json:"terms,omitempty"`
	AISummary        *string  `json:"ai_summary,omitempty"`
}

// Empty reports whether the update carries no recognized fields.
func (u ProposalUpdate) Empty() bool {
	return u.ClientName == nil &&
		u.ProposalValue == nil &&
		u.ProductOrService == nil &&
		u.ProposalType == nil &&
		u.Terms == nil &&
		u.AISummary == nil
}
