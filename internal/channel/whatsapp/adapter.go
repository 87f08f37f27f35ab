// Package whatsapp adapts the WhatsApp Cloud API: inbound messages arrive on
// a webhook, outbound text goes out through the Graph API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lucasmaia/atende/internal/channel"
	"github.com/lucasmaia/atende/internal/config"
)

// Adapter implements channel.Adapter over the Cloud API.
type Adapter struct {
	cfg        config.WhatsAppConfig
	httpClient *http.Client
	inbound    chan channel.Inbound
	closeOnce  sync.Once
}

// New creates a Cloud API adapter. Webhook routes must be mounted with
// Routes before messages can arrive.
func New(cfg config.WhatsAppConfig) *Adapter {
	return &Adapter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		inbound:    make(chan channel.Inbound, 64),
	}
}

// Listen returns the stream of webhook-delivered messages.
func (a *Adapter) Listen(_ context.Context) (<-chan channel.Inbound, error) {
	return a.inbound, nil
}

// SendText posts a text message through the Graph API.
func (a *Adapter) SendText(ctx context.Context, destination, text string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                strings.TrimPrefix(destination, "+"),
		"type":              "text",
		"text":              map[string]string{"body": text},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal send payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", a.cfg.APIBase, a.cfg.PhoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send rejected: status %d: %s", resp.StatusCode, detail)
	}

	return nil
}

// Close stops delivering inbound messages.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		close(a.inbound)
	})
	return nil
}
