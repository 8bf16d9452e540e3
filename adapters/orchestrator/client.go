// Package orchestrator talks to the external dialogue service that turns a
// caller utterance into a reply.
package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/wbernardo-star/listen-client-mobile/adapters/provider"
	"github.com/wbernardo-star/listen-client-mobile/domain/entities"
	"github.com/wbernardo-star/listen-client-mobile/domain/repositories"
)

const (
	defaultTimeout = 30 * time.Second

	// cap on error bodies echoed back to the caller
	maxFailureBody = 64 << 10
)

// Config holds the orchestrator endpoint settings
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client implements repositories.Orchestrator over HTTP
type Client struct {
	url    string
	apiKey string
	client *http.Client
	logger *zap.Logger
}

var _ repositories.Orchestrator = (*Client)(nil)

// request is the wire payload
type request struct {
	Context entities.OrchestratorContext `json:"context"`
	Session sessionPayload               `json:"session"`
	Request utterancePayload             `json:"request"`
}

type sessionPayload struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

type utterancePayload struct {
	Type     string            `json:"type"`
	Text     string            `json:"text"`
	Metadata utteranceMetadata `json:"metadata"`
}

type utteranceMetadata struct {
	RawTranscript string `json:"raw_transcript"`
}

// NewClient creates an orchestrator client
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("orchestrator URL is required")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("orchestrator API key is required")
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		url:    config.URL,
		apiKey: config.APIKey,
		client: provider.NewHTTPClient(timeout),
		logger: logger,
	}, nil
}

// Converse posts one utterance. Failures are returned as an error-shaped reply.
func (c *Client) Converse(ctx context.Context, utterance string, caller entities.OrchestratorContext, session entities.SessionHandle) *entities.OrchestratorReply {
	payload := request{
		Context: caller,
		Session: sessionPayload{
			SessionID: session.SessionID,
			UserID:    session.UserID,
		},
		Request: utterancePayload{
			Type: "text",
			Text: utterance,
			Metadata: utteranceMetadata{
				RawTranscript: utterance,
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return c.fail(entities.OrchestratorTransportError, 0, err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return c.fail(entities.OrchestratorTransportError, 0, err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Error("Orchestrator request failed",
			zap.String("url", c.url),
			zap.Error(err))
		return c.fail(entities.OrchestratorTransportError, 0, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("Failed to read orchestrator response",
			zap.Int("statusCode", resp.StatusCode),
			zap.Error(err))
		return c.fail(entities.OrchestratorTransportError, resp.StatusCode, err.Error())
	}

	if resp.StatusCode >= 400 {
		c.logger.Error("Orchestrator returned error",
			zap.String("url", c.url),
			zap.Int("statusCode", resp.StatusCode),
			zap.ByteString("body", truncate(respBody)),
			zap.String("sessionID", session.SessionID))
		return c.fail(entities.OrchestratorHTTPError, resp.StatusCode, string(truncate(respBody)))
	}

	if !json.Valid(respBody) {
		c.logger.Warn("Orchestrator returned non-JSON body",
			zap.Int("statusCode", resp.StatusCode),
			zap.ByteString("body", truncate(respBody)))
		return c.fail(entities.OrchestratorNonJSON, resp.StatusCode, string(truncate(respBody)))
	}

	c.logger.Info("Orchestrator response OK",
		zap.Int("statusCode", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.String("sessionID", session.SessionID))

	return &entities.OrchestratorReply{
		StatusCode: resp.StatusCode,
		Raw:        respBody,
	}
}

// fail builds an error-shaped reply whose Raw is the encoded failure
func (c *Client) fail(marker string, status int, body string) *entities.OrchestratorReply {
	failure := &entities.OrchestratorFailure{
		Error:      marker,
		StatusCode: status,
		Body:       body,
	}

	raw, err := json.Marshal(failure)
	if err != nil {
		raw = []byte(`{"error":"` + marker + `"}`)
	}

	return &entities.OrchestratorReply{
		StatusCode: status,
		Raw:        raw,
		Failure:    failure,
	}
}

func truncate(b []byte) []byte {
	if len(b) > maxFailureBody {
		return b[:maxFailureBody]
	}
	return b
}
