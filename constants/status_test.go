package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Status
		valid bool
	}{
		{"canonical pending", "pending", StatusPending, true},
		{"canonical accepted", "accepted", StatusAccepted, true},
		{"canonical rejected", "rejected", StatusRejected, true},
		{"portuguese accepted", "aceita", StatusAccepted, true},
		{"portuguese rejected", "recusada", StatusRejected, true},
		{"portuguese pending", "pendente", StatusPending, true},
		{"uppercase with newline", "ACEITA\n", StatusAccepted, true},
		{"mixed case padded", "  Recusada  ", StatusRejected, true},
		{"unknown label", "maybe", StatusPending, false},
		{"empty", "", StatusPending, false},
		{"prose answer", "a proposta foi aceita", StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeStatus(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.valid, ok)
		})
	}
}

func TestAllStatuses(t *testing.T) {
	assert.Equal(t, []string{"pending", "accepted", "rejected"}, AllStatuses())
}
