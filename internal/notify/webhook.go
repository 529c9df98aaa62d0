package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codefuturist/mailwatch/internal/model"
)

// webhookBody is the JSON document POSTed to the configured endpoint.
type webhookBody struct {
	Event     string   `json:"event"`
	Account   string   `json:"account"`
	Sender    string   `json:"sender"`
	Subject   string   `json:"subject"`
	Priority  string   `json:"priority"`
	Labels    []string `json:"labels,omitempty"`
	Rule      string   `json:"rule,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// sendWebhook posts the alert to the configured URL. Delivery is
// best-effort: validation failures, transport errors, and non-2xx
// responses are logged and dropped, never retried.
func (n *Notifier) sendWebhook(ctx context.Context, p model.AlertPayload) {
	if err := ValidateWebhookURL(n.cfg.WebhookURL); err != nil {
		n.log.Warn("webhook URL rejected", "url", n.cfg.WebhookURL, "error", err)
		return
	}

	body := webhookBody{
		Event:     "mail_alert",
		Account:   p.Account,
		Sender:    p.Sender,
		Subject:   p.Subject,
		Priority:  string(p.Priority),
		Labels:    p.Labels,
		Rule:      p.RuleName,
		Timestamp: n.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		n.log.Warn("encoding webhook payload", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(payload),
	)
	if err != nil {
		n.log.Warn("building webhook request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn("webhook delivery failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.log.Warn("webhook returned non-2xx", "status", resp.StatusCode)
	}
}

// ValidateWebhookURL requires an http or https URL whose host is not a
// loopback, private, or link-local destination.
func ValidateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing webhook URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("missing host")
	}

	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		return fmt.Errorf("loopback host %q not allowed", host)
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
			ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return fmt.Errorf("private or loopback address %q not allowed", host)
		}
	}

	return nil
}
