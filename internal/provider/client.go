// Package provider talks to the SERP and keyword data provider: a low-level
// authenticated JSON client plus the typed submit, poll and metrics operations
// the audit pipeline needs.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-audit/internal/metrics"
)

// StatusOK is the provider's success code for envelopes and finished tasks.
const StatusOK = 20000

const maxResponseBytes = 32 << 20

// Config is the immutable connection configuration of a Client.
type Config struct {
	Login     string
	Password  string
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Pacer spaces outbound requests.
type Pacer interface {
	Wait(ctx context.Context, rawURL string) error
}

// Envelope is the provider's response wrapper.
type Envelope struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	TasksCount    int    `json:"tasks_count"`
	TasksError    int    `json:"tasks_error"`
	Tasks         []Task `json:"tasks"`
}

// Task is one element of Envelope.Tasks.
type Task struct {
	ID            string          `json:"id"`
	StatusCode    int             `json:"status_code"`
	StatusMessage string          `json:"status_message"`
	Data          TaskData        `json:"data"`
	Result        json.RawMessage `json:"result"`
}

// TaskData echoes the request parameters of a task.
type TaskData struct {
	Keyword string `json:"keyword"`
	Tag     string `json:"tag"`
}

// Client issues authenticated calls to provider operations. It keeps no state
// between calls.
type Client struct {
	cfg    Config
	http   *http.Client
	pacer  Pacer
	logger *zap.Logger
}

// NewClient builds a Client. pacer may be nil.
func NewClient(cfg Config, pacer Pacer, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 40 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Transport: newHTTPTransport()},
		pacer:  pacer,
		logger: logger,
	}
}

// Call posts payload to the operation path and decodes the response envelope.
// Failures are returned as *Error.
func (c *Client) Call(ctx context.Context, operationPath string, payload any) (*Envelope, error) {
	start := time.Now()
	env, err := c.call(ctx, operationPath, payload)
	outcome := "ok"
	var perr *Error
	if errors.As(err, &perr) {
		outcome = string(perr.Kind)
	}
	metrics.ObserveProviderCall(operationPath, outcome, time.Since(start))
	if err != nil {
		c.logger.Debug("provider call failed",
			zap.String("operation", operationPath),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}
	return env, nil
}

func (c *Client) call(ctx context.Context, operationPath string, payload any) (*Envelope, error) {
	endpoint := c.endpoint(operationPath)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, rejectedError(operationPath, 0, 0, fmt.Sprintf("encode payload: %v", err))
	}

	if c.pacer != nil {
		if err := c.pacer.Wait(ctx, endpoint); err != nil {
			perr := transportError(operationPath, err)
			perr.Unsent = true
			return nil, perr
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, rejectedError(operationPath, 0, 0, fmt.Sprintf("build request: %v", err))
	}
	req.SetBasicAuth(c.cfg.Login, c.cfg.Password)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(operationPath, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("close provider response", zap.Error(cerr))
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(operationPath, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var env Envelope
		_ = json.Unmarshal(raw, &env)
		msg := env.StatusMessage
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, rejectedError(operationPath, resp.StatusCode, env.StatusCode, msg)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, rejectedError(operationPath, resp.StatusCode, 0, fmt.Sprintf("decode response: %v", err))
	}
	if env.StatusCode != StatusOK {
		return nil, rejectedError(operationPath, resp.StatusCode, env.StatusCode, env.StatusMessage)
	}
	return &env, nil
}

func (c *Client) endpoint(operationPath string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(operationPath, "/")
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
	}
}
