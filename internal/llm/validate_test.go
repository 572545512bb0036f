package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJSONAgainstSchemaAccepts(t *testing.T) {
	doc := []byte(`{
		"nome_cliente": "Acme",
		"valor_proposta": 100,
		"produto_servico": "x",
		"proposal_type": "Outros",
		"condicoes": "y"
	}`)
	assert.NoError(t, ValidateJSONAgainstSchema(BuildProposalJSONSchema(), doc))
}

func TestValidateJSONAgainstSchemaRejectsMissingKey(t *testing.T) {
	doc := []byte(`{"nome_cliente": "Acme"}`)
	assert.Error(t, ValidateJSONAgainstSchema(BuildProposalJSONSchema(), doc))
}

func TestValidateJSONAgainstSchemaRejectsWrongType(t *testing.T) {
	doc := []byte(`{
		"nome_cliente": "Acme",
		"valor_proposta": "cem reais",
		"produto_servico": "x",
		"proposal_type": "Outros",
		"condicoes": "y"
	}`)
	assert.Error(t, ValidateJSONAgainstSchema(BuildProposalJSONSchema(), doc))
}

func TestValidateJSONAgainstSchemaRejectsUnknownKey(t *testing.T) {
	doc := []byte(`{
		"nome_cliente": "Acme",
		"valor_proposta": 100,
		"produto_servico": "x",
		"proposal_type": "Outros",
		"condicoes": "y",
		"extra": true
	}`)
	assert.Error(t, ValidateJSONAgainstSchema(BuildProposalJSONSchema(), doc))
}

func TestSchemaRequiredKeys(t *testing.T) {
	schema := BuildProposalJSONSchema()
	required, ok := schema["required"].([]string)
	require.True(t, ok)
	assert.ElementsMatch(t, required,
		[]string{"nome_cliente", "valor_proposta", "produto_servico", "proposal_type", "condicoes"})
}
