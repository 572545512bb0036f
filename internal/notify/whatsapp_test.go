package notify

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propform/proposals-tracker/internal/entity"
)

func testProposal() *entity.Proposal {
	return &entity.Proposal{
		ClientName:    "Acme Ltda",
		ProposalValue: 15000.50,
		AISummary:     "Proposta de sistema de gestão para a Acme.",
	}
}

func newTestNotifier(baseURL string) *WhatsAppNotifier {
	return NewWhatsAppNotifier(Config{
		PhoneNumber: "+5511999999999",
		APIKey:      "secret",
		BaseURL:     baseURL,
		Timeout:     2 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNotifyProcessedSendsTemplatedMessage(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = w.Write([]byte("Message queued"))
	}))
	defer srv.Close()

	n := newTestNotifier(srv.URL)
	n.NotifyProcessed(context.Background(), testProposal())

	require.NotNil(t, got)
	assert.Equal(t, "+5511999999999", got.Get("phone"))
	assert.Equal(t, "secret", got.Get("apikey"))
	text := got.Get("text")
	assert.Contains(t, text, "Nova Proposta Processada")
	assert.Contains(t, text, "Acme Ltda")
	assert.Contains(t, text, "R$ 15000.50")
	assert.Contains(t, text, "Proposta de sistema de gestão para a Acme.")
}

func TestNotifyProcessedErrorBodyDoesNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ERROR: APIKey is invalid"))
	}))
	defer srv.Close()

	n := newTestNotifier(srv.URL)
	// Delivery failure is logged, never surfaced.
	n.NotifyProcessed(context.Background(), testProposal())
}

func TestNotifyProcessedSkipsWithoutCredentials(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer srv.Close()

	n := NewWhatsAppNotifier(Config{BaseURL: srv.URL}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	n.NotifyProcessed(context.Background(), testProposal())
	assert.False(t, called)
}

func TestNotifyProcessedUnreachableServer(t *testing.T) {
	n := newTestNotifier("http://127.0.0.1:1")
	n.NotifyProcessed(context.Background(), testProposal())
}

func TestBuildMessageFallsBackWithoutSummary(t *testing.T) {
	p := testProposal()
	p.AISummary = "   "
	msg := buildMessage(p)
	assert.Contains(t, msg, "Resumo não disponível.")
}
