package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"dipwatch/internal/models"
)

const defaultTelegramAPI = "https://api.telegram.org"

// TelegramNotifier delivers alerts through the Telegram Bot API
// sendMessage endpoint.
type TelegramNotifier struct {
	token      string
	chatID     string
	apiBase    string
	httpClient *http.Client
}

// TelegramConfig holds Telegram delivery configuration
type TelegramConfig struct {
	Token   string
	ChatID  string
	APIBase string // override for tests; defaults to the public Bot API
	Timeout time.Duration
}

// NewTelegramNotifier creates a Telegram sink
func NewTelegramNotifier(cfg TelegramConfig) (*TelegramNotifier, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram bot token is required")
	}
	if cfg.ChatID == "" {
		return nil, errors.New("telegram chat id is required")
	}

	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = defaultTelegramAPI
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &TelegramNotifier{
		token:   cfg.Token,
		chatID:  cfg.ChatID,
		apiBase: apiBase,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (n *TelegramNotifier) Name() string { return "telegram" }

// sendMessageRequest is the Bot API sendMessage payload
type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// apiResponse is the Bot API result envelope
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// Send posts the rendered alert text to the configured chat
func (n *TelegramNotifier) Send(ctx context.Context, alert *models.Alert) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID: n.chatID,
		Text:   alert.Message(),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("%w: unreadable response (status %d)", ErrRejected, resp.StatusCode)
	}

	if !apiResp.OK {
		return fmt.Errorf("%w: %s", ErrRejected, apiResp.Description)
	}

	return nil
}

func (n *TelegramNotifier) Close() error { return nil }
