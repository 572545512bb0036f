package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/propform/proposals-tracker/constants"
)

// StripCodeFences removes markdown code-fence wrappers ("```json ... ```")
// that the model sometimes adds despite instructions.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// sanitizeFieldsJSON
// - Coerces valor_proposta to a number (models return strings like "R$ 1.200,50")
// - Fills missing strings with the "N/A" sentinel and missing values with 0.0
// - Removes unknown keys (strict additionalProperties friendliness)
func sanitizeFieldsJSON(raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 4)

	switch v := m["valor_proposta"].(type) {
	case float64:
		if v < 0 {
			m["valor_proposta"] = 0.0
			dropped = append(dropped, "valor_proposta(negative)")
		}
	case string:
		if f, ok := parseCurrency(v); ok && f >= 0 {
			m["valor_proposta"] = f
		} else {
			m["valor_proposta"] = 0.0
			dropped = append(dropped, "valor_proposta(unparsable)")
		}
	default:
		m["valor_proposta"] = 0.0
		if v != nil {
			dropped = append(dropped, "valor_proposta(type)")
		}
	}

	stringKeys := []string{"nome_cliente", "produto_servico", "proposal_type", "condicoes"}
	for _, k := range stringKeys {
		s, isStr := m[k].(string)
		if !isStr || strings.TrimSpace(s) == "" {
			if _, present := m[k]; !present {
				dropped = append(dropped, k+"(missing)")
			}
			m[k] = "N/A"
			continue
		}
		m[k] = strings.TrimSpace(s)
	}

	allowed := map[string]struct{}{
		"nome_cliente": {}, "valor_proposta": {}, "produto_servico": {},
		"proposal_type": {}, "condicoes": {},
	}
	for k := range m {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, dropped, nil
}

// parseCurrency strips currency decoration and parses Brazilian or plain
// decimal notation ("R$ 1.234,56", "1234.56", "1200").
func parseCurrency(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		// comma is the decimal separator; dots are thousands
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// DecodeFields turns a raw model response into validated ProposalFields.
// It strips code fences, sanitizes, validates against the schema and
// canonicalizes the proposal type. The sanitized JSON and the list of
// repaired/dropped keys are returned for diagnostics.
func DecodeFields(content string) (ProposalFields, []byte, []string, error) {
	cleaned := []byte(StripCodeFences(content))

	sanitized, dropped, err := sanitizeFieldsJSON(cleaned)
	if err != nil {
		return ProposalFields{}, cleaned, dropped, err
	}
	if err := ValidateJSONAgainstSchema(BuildProposalJSONSchema(), sanitized); err != nil {
		return ProposalFields{}, sanitized, dropped, err
	}

	var out ProposalFields
	if err := json.Unmarshal(sanitized, &out); err != nil {
		return ProposalFields{}, sanitized, dropped, fmt.Errorf("unmarshal fields: %w", err)
	}

	canon, _ := constants.CanonicalizeType(out.ProposalType)
	out.ProposalType = string(canon)
	return out, sanitized, dropped, nil
}
