package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/empowersafe/sos_alerting_system/internal/config"
)

// Channel - абстракция одного канала доставки (SMS, push).
// Реализация не обязана быть безопасной к панике: диспетчер
// оборачивает каждый вызов сам.
type Channel interface {
	Name() string
	Configured() bool
	// Address выбирает адрес получателя для этого канала, пустая строка - адреса нет
	Address(r Recipient) string
	Send(ctx context.Context, address, body string) error
}

// SMSChannel отправляет SMS через HTTP-шлюз провайдера
type SMSChannel struct {
	url        string
	apiKey     string
	from       string
	httpClient *http.Client
}

// NewSMSChannel создает SMS-канал по настройкам шлюза
func NewSMSChannel(cfg *config.Config) *SMSChannel {
	return &SMSChannel{
		url:    cfg.SMSGatewayURL,
		apiKey: cfg.SMSGatewayKey,
		from:   cfg.SMSFrom,
		httpClient: &http.Client{
			Timeout: cfg.ChannelTimeout,
		},
	}
}

func (c *SMSChannel) Name() string { return "sms" }

func (c *SMSChannel) Configured() bool { return c.url != "" && c.apiKey != "" }

func (c *SMSChannel) Address(r Recipient) string { return r.Phone }

// Send выполняет один HTTP-вызов шлюза с таймаутом клиента
func (c *SMSChannel) Send(ctx context.Context, address, body string) error {
	payload, err := json.Marshal(map[string]string{
		"to":   address,
		"from": c.from,
		"body": body,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// PushChannel отправляет push-уведомление на устройство по токену
type PushChannel struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewPushChannel создает push-канал по настройкам шлюза
func NewPushChannel(cfg *config.Config) *PushChannel {
	return &PushChannel{
		url:    cfg.PushGatewayURL,
		apiKey: cfg.PushGatewayKey,
		httpClient: &http.Client{
			Timeout: cfg.ChannelTimeout,
		},
	}
}

func (c *PushChannel) Name() string { return "push" }

func (c *PushChannel) Configured() bool { return c.url != "" && c.apiKey != "" }

func (c *PushChannel) Address(r Recipient) string { return r.PushToken }

func (c *PushChannel) Send(ctx context.Context, address, body string) error {
	payload, err := json.Marshal(map[string]any{
		"to": address,
		"notification": map[string]string{
			"title": "Emergency Alert",
			"body":  body,
		},
		"sent_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push gateway call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}
	return nil
}
