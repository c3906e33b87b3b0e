// internal/llm/client.go
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"faq-chatbot/internal/common/logger"
	"faq-chatbot/internal/common/metrics"
)

var (
	ErrProviderTimeout = errors.New("LLM_PROVIDER_TIMEOUT")
	ErrProviderFailed  = errors.New("LLM_PROVIDER_FAILED")
)

// Config holds the provider settings treated as fixed for the process lifetime.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Client talks to the hosted chat-completion API. Each call is bounded by the
// configured timeout; there is no internal retry, the boundary owns retries.
type Client struct {
	config Config
	client *http.Client
	logger logger.Logger
}

func NewClient(config Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		client: &http.Client{
			// No client-level timeout; each call carries its own context deadline.
		},
		logger: log.With(map[string]interface{}{
			"component": "llm",
			"model":     config.Model,
		}),
	}
}

// CreateChatCompletion issues one completion call and returns the first
// choice. operation labels the call in logs and metrics ("classify" or
// "synthesize").
func (c *Client) CreateChatCompletion(ctx context.Context, operation string, req CompletionRequest) (*Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	completion, err := c.doRequest(ctx, req)
	elapsed := time.Since(start)

	metrics.LLMCallDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrProviderTimeout) {
			outcome = "timeout"
		}
		metrics.LLMCallsTotal.WithLabelValues(operation, outcome).Inc()
		c.logger.Error("provider call failed", map[string]interface{}{
			"operation": operation,
			"elapsed":   elapsed.Seconds(),
			"error":     err.Error(),
		})
		return nil, err
	}

	metrics.LLMCallsTotal.WithLabelValues(operation, "success").Inc()
	c.logger.Debug("provider call completed", map[string]interface{}{
		"operation": operation,
		"elapsed":   elapsed.Seconds(),
		"toolCalls": len(completion.ToolCalls),
	})
	return completion, nil
}

func (c *Client) doRequest(ctx context.Context, req CompletionRequest) (*Completion, error) {
	wire := wireRequest{
		Model:       c.config.Model,
		Messages:    req.Messages,
		Tools:       req.Tools,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if len(req.Tools) > 0 {
		wire.ToolChoice = "auto"
	}
	if wire.MaxTokens == 0 {
		wire.MaxTokens = c.config.MaxTokens
	}
	if wire.Temperature == 0 {
		wire.Temperature = c.config.Temperature
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrProviderFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrProviderTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	var apiResp wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		if ctx.Err() != nil {
			return nil, ErrProviderTimeout
		}
		return nil, fmt.Errorf("%w: decode error: %v", ErrProviderFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		if apiResp.Error != nil {
			return nil, fmt.Errorf("%w: status %d: %s", ErrProviderFailed, resp.StatusCode, apiResp.Error.Type)
		}
		return nil, fmt.Errorf("%w: status %d", ErrProviderFailed, resp.StatusCode)
	}

	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choices", ErrProviderFailed)
	}

	choice := apiResp.Choices[0]
	return &Completion{
		Content:   choice.Message.Content,
		ToolCalls: choice.Message.ToolCalls,
	}, nil
}
