// Package submit sends compiled strategies to the execution backend.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"strategy-logic-go/internal/models"
)

// BackendError carries a non-2xx answer of the backend verbatim.
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend http %d: %s", e.StatusCode, e.Body)
}

// Request is the strategy creation body. TradeConfig (sizing, risk) is owned by another
// part of the editor and passed through untouched.
type Request struct {
	Name        string                     `json:"name"`
	Symbol      string                     `json:"symbol"`
	LogicConfig models.StrategyLogicConfig `json:"logicConfig"`
	TradeConfig json.RawMessage            `json:"tradeConfig,omitempty"`
}

// Response is the backend's answer to a successful submission.
type Response struct {
	ID  string          `json:"id"`
	Raw json.RawMessage `json:"-"`
}

// Client talks to the strategy backend over HTTP.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Logger  *zap.Logger
}

// NewClient builds a client from the backend config.
func NewClient(cfg models.BackendConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL: cfg.BaseURL,
		Token:   cfg.APIToken,
		HTTP:    &http.Client{Timeout: cfg.Timeout()},
		Logger:  logger,
	}
}

// Submit POSTs req to <base>/api/strategies.
func (c *Client) Submit(ctx context.Context, req Request) (*Response, error) {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return nil, errors.New("backend base url is empty")
	}
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/strategies", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	if tok := strings.TrimSpace(c.Token); tok != "" {
		hreq.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient().Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("submit strategy %q: %w", req.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &BackendError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	out := &Response{Raw: body}
	if len(bytes.TrimSpace(body)) > 0 {
		// 后端返回体不一定包含 id, 解析失败不影响提交结果
		if err := json.Unmarshal(body, out); err != nil {
			c.logger().Debug("backend response is not a JSON object", zap.Error(err))
		}
	}
	c.logger().Info("strategy submitted", zap.String("name", req.Name), zap.String("id", out.ID))
	return out, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (c *Client) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

// StrategySubmitter binds a Client to one strategy name and symbol so that an
// editing session only has to supply the compiled logic.
type StrategySubmitter struct {
	Client      *Client
	Name        string
	Symbol      string
	TradeConfig json.RawMessage
}

// Submit sends logic together with the bound name, symbol and trade config.
func (s *StrategySubmitter) Submit(ctx context.Context, logic models.StrategyLogicConfig) error {
	_, err := s.Client.Submit(ctx, Request{
		Name:        s.Name,
		Symbol:      s.Symbol,
		LogicConfig: logic,
		TradeConfig: s.TradeConfig,
	})
	return err
}
