package constants

import "strings"

// ProposalType is the closed catalog a proposal is classified into.
type ProposalType string

const (
	SoftwareDevelopment ProposalType = "Software Development"
	Consulting          ProposalType = "Consulting"
	Maintenance         ProposalType = "Maintenance"
	Licensing           ProposalType = "Licensing"
	OtherType           ProposalType = "Other"
)

var allProposalTypes = []ProposalType{
	SoftwareDevelopment,
	Consulting,
	Maintenance,
	Licensing,
	OtherType,
}

// promptTypeTags are the Portuguese labels the extraction prompt offers the
// model. Order matches allProposalTypes.
var promptTypeTags = []string{
	"Desenvolvimento de Software",
	"Consultoria",
	"Manutenção",
	"Licenciamento",
	"Outros",
}

func ProposalTypes() []string {
	result := make([]string, len(allProposalTypes))
	for i, t := range allProposalTypes {
		result[i] = string(t)
	}
	return result
}

// PromptTypeTags returns the labels to interpolate into the extraction prompt.
func PromptTypeTags() []string {
	out := make([]string, len(promptTypeTags))
	copy(out, promptTypeTags)
	return out
}

// CanonicalizeType maps a raw label (Portuguese prompt tag or canonical name,
// any casing) onto the catalog. Unknown labels land on Other.
func CanonicalizeType(input string) (ProposalType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return OtherType, false
	}

	synonyms := map[string]ProposalType{
		"desenvolvimento de software": SoftwareDevelopment,
		"desenvolvimento":             SoftwareDevelopment,
		"software":                    SoftwareDevelopment,
		"consultoria":                 Consulting,
		"manutenção":                  Maintenance,
		"manutencao":                  Maintenance,
		"licenciamento":               Licensing,
		"licença":                     Licensing,
		"outros":                      OtherType,
		"outro":                       OtherType,
	}
	if t, ok := synonyms[normalized]; ok {
		return t, true
	}

	for _, t := range allProposalTypes {
		if normalized == strings.ToLower(string(t)) {
			return t, true
		}
	}
	return OtherType, false
}
