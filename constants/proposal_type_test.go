package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeType(t *testing.T) {
	tests := []struct {
		input string
		want  ProposalType
		known bool
	}{
		{"Desenvolvimento de Software", SoftwareDevelopment, true},
		{"desenvolvimento", SoftwareDevelopment, true},
		{"Consultoria", Consulting, true},
		{"consulting", Consulting, true},
		{"Manutenção", Maintenance, true},
		{"manutencao", Maintenance, true},
		{"Licenciamento", Licensing, true},
		{"Outros", OtherType, true},
		{"Software Development", SoftwareDevelopment, true},
		{"  licensing  ", Licensing, true},
		{"banana", OtherType, false},
		{"", OtherType, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, known := CanonicalizeType(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestPromptTypeTagsMatchCatalog(t *testing.T) {
	tags := PromptTypeTags()
	assert.Len(t, tags, len(ProposalTypes()))
	for _, tag := range tags {
		_, known := CanonicalizeType(tag)
		assert.True(t, known, "prompt tag %q must canonicalize", tag)
	}
}

func TestAllowedExt(t *testing.T) {
	assert.True(t, AllowedExt(".pdf"))
	assert.True(t, AllowedExt(".PDF"))
	assert.True(t, AllowedExt("pdf"))
	assert.False(t, AllowedExt(".docx"))
	assert.False(t, AllowedExt(""))
}
