package push

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/felipemendesbraga/EuLevo/pkg/config"
	"github.com/felipemendesbraga/EuLevo/pkg/log"
	"github.com/felipemendesbraga/EuLevo/pkg/models"
)

// Provider delivers one push message to one device. The bool result reports
// success; the string carries the failure reason for retry bookkeeping.
type Provider interface {
	Send(deviceToken, title, body string, data models.JSON) (bool, string)
	GetName() string
}

// Message is the payload posted to the push gateway.
type Message struct {
	To           string       `json:"to"`
	Notification Notification `json:"notification"`
	Data         models.JSON  `json:"data,omitempty"`
}

type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// HTTPProvider posts messages to an FCM-compatible HTTP endpoint.
type HTTPProvider struct {
	name     string
	endpoint string
	apiKey   string
	logger   *log.Logger
	client   *http.Client
}

// NewHTTPProvider creates a provider for the configured push gateway.
func NewHTTPProvider(cfg *config.PushConfig, logger *log.Logger) *HTTPProvider {
	return &HTTPProvider{
		name:     "http",
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		logger:   logger,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// GetName returns the provider name
func (p *HTTPProvider) GetName() string {
	return p.name
}

// Send posts the message. Delivery beyond the gateway is best-effort and
// never observed here.
func (p *HTTPProvider) Send(deviceToken, title, body string, data models.JSON) (bool, string) {
	if p.endpoint == "" {
		return false, "push endpoint not configured"
	}
	if deviceToken == "" {
		return false, "recipient has no device token"
	}

	message := Message{
		To: deviceToken,
		Notification: Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return false, fmt.Sprintf("failed to marshal message: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Sprintf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "key="+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false, fmt.Sprintf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Sprintf("push gateway returned %d: %s", resp.StatusCode, string(respBody))
	}

	return true, ""
}
