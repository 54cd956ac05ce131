// Package coach talks to the remote coach endpoint and orchestrates a send:
// quota check, context pack, history, request, citation validation and
// persistence.
package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/coach-context/internal/citation"
	"github.com/rcliao/coach-context/internal/history"
	"github.com/rcliao/coach-context/internal/model"
)

// CredentialFunc returns the bearer credential at call time. An empty
// string means none is configured.
type CredentialFunc func() string

// StaticCredential returns a CredentialFunc for a fixed key.
func StaticCredential(key string) CredentialFunc {
	return func() string { return key }
}

// Request is the wire request body.
type Request struct {
	UserMessage string         `json:"userMessage"`
	Messages    []history.Turn `json:"messages"`
	DataPack    string         `json:"dataPack"`
}

// Reply is a fully parsed coach reply.
type Reply struct {
	ReplyText       string                 `json:"replyText"`
	Citations       []citation.ID          `json:"citations"`
	SuggestedAction *model.SuggestedAction `json:"suggestedAction,omitempty"`
}

type wireReply struct {
	ReplyText       *string  `json:"replyText"`
	Citations       []string `json:"citations"`
	SuggestedAction *string  `json:"suggestedAction"`
}

type wireError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// ClientConfig configures a Client.
type ClientConfig struct {
	Endpoint   string
	Credential CredentialFunc
	// Timeout of zero leaves the transport default in place.
	Timeout time.Duration
	// HTTPClient overrides the default client when set.
	HTTPClient *http.Client
}

// Client performs one request/response exchange per call. It never retries.
type Client struct {
	endpoint   string
	credential CredentialFunc
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a coach client.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	cred := cfg.Credential
	if cred == nil {
		cred = StaticCredential("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		credential: cred,
		httpClient: hc,
		logger:     logger,
	}
}

// SendMessage posts the user message, encoded history and raw pack text and
// returns the parsed reply or a classified *Error.
func (c *Client) SendMessage(ctx context.Context, userMessage string, turns []history.Turn, dataPack string) (*Reply, error) {
	key := c.credential()
	if strings.TrimSpace(key) == "" {
		return nil, &Error{Kind: KindMissingConfiguration, Message: "api key not set"}
	}
	if c.endpoint == "" {
		return nil, &Error{Kind: KindMissingConfiguration, Message: "endpoint not set"}
	}
	if turns == nil {
		turns = []history.Turn{}
	}

	body, err := json.Marshal(Request{UserMessage: userMessage, Messages: turns, DataPack: dataPack})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindMissingConfiguration, Message: "invalid endpoint", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: fmt.Errorf("read response: %w", err)}
	}
	c.logger.Info("coach request",
		zap.Int("status", resp.StatusCode),
		zap.Int("history_turns", len(turns)),
		zap.Duration("duration", time.Since(start)))

	return c.classify(resp.StatusCode, raw)
}

func (c *Client) classify(status int, raw []byte) (*Reply, error) {
	switch {
	case status == http.StatusOK:
		return c.parseReply(raw)
	case status == http.StatusTooManyRequests:
		return nil, &Error{Kind: KindRateLimited, Status: status}
	default:
		return nil, &Error{Kind: KindAPI, Status: status, Message: errorText(status, raw)}
	}
}

func (c *Client) parseReply(raw []byte) (*Reply, error) {
	var w wireReply
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &Error{Kind: KindInvalidResponse, Status: http.StatusOK, Err: err}
	}
	if w.ReplyText == nil {
		return nil, &Error{Kind: KindInvalidResponse, Status: http.StatusOK, Message: "missing replyText"}
	}

	reply := &Reply{ReplyText: *w.ReplyText, Citations: citation.FromStrings(w.Citations)}
	if w.SuggestedAction != nil && *w.SuggestedAction != "" {
		reply.SuggestedAction = model.ParseAction(*w.SuggestedAction)
		if reply.SuggestedAction == nil {
			c.logger.Warn("ignoring unknown suggested action", zap.String("action", *w.SuggestedAction))
		}
	}
	return reply, nil
}

// errorText prefers a structured {message} or {error} payload, then the raw
// body, then the status text.
func errorText(status int, raw []byte) string {
	var w wireError
	if err := json.Unmarshal(raw, &w); err == nil {
		if msg := strings.TrimSpace(w.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(w.Error); msg != "" {
			return msg
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" && !strings.HasPrefix(text, "{") {
		return text
	}
	return http.StatusText(status)
}
