// Package newsletter предоставляет клиент API рассылок MailerLite.
package newsletter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/mmeshcher/wellnessreal/internal/model"
)

// ErrNotConfigured возвращается, если ключ API не задан.
var ErrNotConfigured = errors.New("newsletter client not configured")

// Client инкапсулирует HTTP-взаимодействие с MailerLite.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *retryablehttp.Client
}

type countResponse struct {
	Total int `json:"total"`
}

// NewClient создаёт клиента MailerLite. Временные ошибки (429, 5xx) повторяются с backoff.
func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.Logger = leveledLogger{logger.Sugar()}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: rc,
	}
}

// SubscriberCount возвращает число подписчиков по статусам.
func (c *Client) SubscriberCount(ctx context.Context) (*model.SubscriberCount, error) {
	if c == nil || c.baseURL == "" || c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	var res model.SubscriberCount
	for _, item := range []struct {
		status string
		dst    *int
	}{
		{"active", &res.Active},
		{"unsubscribed", &res.Unsubscribed},
		{"bounced", &res.Bounced},
	} {
		n, err := c.countByStatus(ctx, item.status)
		if err != nil {
			return nil, err
		}
		*item.dst = n
	}
	res.Total = res.Active + res.Unsubscribed + res.Bounced

	return &res, nil
}

func (c *Client) countByStatus(ctx context.Context, status string) (int, error) {
	q := url.Values{}
	q.Set("filter[status]", status)
	q.Set("limit", "0")
	endpoint := fmt.Sprintf("%s/api/subscribers?%s", c.baseURL, q.Encode())

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var body countResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	return body.Total, nil
}

// leveledLogger направляет журнал retryablehttp в zap.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
