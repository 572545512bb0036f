package llm

// BuildProposalJSONSchema returns the JSON-Schema the extraction response must
// satisfy after sanitization. All five fields are required; unknown keys are
// stripped before validation, so additionalProperties stays strict.
func BuildProposalJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"nome_cliente":    map[string]any{"type": "string", "minLength": 1},
			"valor_proposta":  map[string]any{"type": "number", "minimum": 0.0},
			"produto_servico": map[string]any{"type": "string"},
			"proposal_type":   map[string]any{"type": "string"},
			"condicoes":       map[string]any{"type": "string"},
		},
		"required": []string{
			"nome_cliente",
			"valor_proposta",
			"produto_servico",
			"proposal_type",
			"condicoes",
		},
	}
}
