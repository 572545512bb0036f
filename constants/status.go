package constants

import "strings"

// Status is the canonical lifecycle status for rows in the proposals table.
type Status string

// Stable values (store these exact strings in DB).
const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

var allStatuses = []Status{StatusPending, StatusAccepted, StatusRejected}

// statusSynonyms folds the Portuguese labels the prediction prompt asks for
// onto the canonical set.
var statusSynonyms = map[string]Status{
	"pendente": StatusPending,
	"aceita":   StatusAccepted,
	"recusada": StatusRejected,
}

func AllStatuses() []string {
	result := make([]string, len(allStatuses))
	for i, s := range allStatuses {
		result[i] = string(s)
	}
	return result
}

// NormalizeStatus trims and case-folds a raw label and maps it onto the
// canonical set. The second return reports whether the label was recognized;
// unrecognized labels collapse to pending, the conservative default.
func NormalizeStatus(raw string) (Status, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if s, ok := statusSynonyms[normalized]; ok {
		return s, true
	}
	for _, s := range allStatuses {
		if normalized == string(s) {
			return s, true
		}
	}
	return StatusPending, false
}
