package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/propform/proposals-tracker/internal/entity"
)

// Notifier delivers a short message about a stored proposal. Delivery is
// best-effort: implementations log failures and never return them.
type Notifier interface {
	NotifyProcessed(ctx context.Context, p *entity.Proposal)
}

// Config for the WhatsApp (CallMeBot) channel.
type Config struct {
	PhoneNumber string
	APIKey      string
	BaseURL     string // default https://api.callmebot.com/whatsapp.php
	Timeout     time.Duration
}

// WhatsAppNotifier sends a templated message over the CallMeBot HTTP API.
type WhatsAppNotifier struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewWhatsAppNotifier(cfg Config, logger *slog.Logger) *WhatsAppNotifier {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.callmebot.com/whatsapp.php"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WhatsAppNotifier{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

// NotifyProcessed formats and sends the new-proposal message. Missing
// credentials skip the send with a warning; the channel is validated lazily,
// at first use.
func (n *WhatsAppNotifier) NotifyProcessed(ctx context.Context, p *entity.Proposal) {
	if n.cfg.APIKey == "" || n.cfg.PhoneNumber == "" {
		n.log.Warn("notify.skipped", "reason", "whatsapp phone number or api key not configured")
		return
	}
	n.send(ctx, buildMessage(p))
}

func buildMessage(p *entity.Proposal) string {
	summary := p.AISummary
	if strings.TrimSpace(summary) == "" {
		summary = "Resumo não disponível."
	}
	return fmt.Sprintf(
		"🤖 *Nova Proposta Processada* 🤖\n\n"+
			"👤 *Cliente:* %s\n"+
			"💰 *Valor:* R$ %.2f\n\n"+
			"📄 *Resumo Automático:*\n_%s_",
		p.ClientName, p.ProposalValue, summary)
}

// send fires the GET request and inspects the body for the "ERROR" token the
// API uses to signal delivery failure. Nothing propagates to the caller.
func (n *WhatsAppNotifier) send(ctx context.Context, text string) {
	q := url.Values{}
	q.Set("phone", n.cfg.PhoneNumber)
	q.Set("text", text)
	q.Set("apikey", n.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		n.log.Error("notify.build_request_failed", "error", err)
		return
	}

	n.log.Info("notify.sending", "phone", n.cfg.PhoneNumber)
	resp, err := n.http.Do(req)
	if err != nil {
		n.log.Error("notify.send_failed", "error", err)
		return
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			n.log.Warn("notify.body_close_failed", "error", cerr)
		}
	}()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if strings.Contains(strings.ToUpper(string(body)), "ERROR") {
		n.log.Error("notify.delivery_failed", "status", resp.StatusCode, "response", string(body))
		return
	}
	n.log.Info("notify.sent", "status", resp.StatusCode)
}
