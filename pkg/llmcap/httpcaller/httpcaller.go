// Package httpcaller implements llmcap.Caller against an OpenAI-compatible
// chat completions endpoint (the shape spoken by OpenAI itself, and by most
// self-hosted gateways such as Ollama's /v1/chat/completions).
package httpcaller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/loomware/memstate/pkg/llmcap"
)

const (
	// DefaultBaseURL points at OpenAI's public API.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout bounds a call with no caller-supplied deadline.
	DefaultTimeout = 10 * time.Second
)

// Config configures a Caller.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Caller calls a chat-completions endpoint over HTTP.
type Caller struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// New builds a Caller. APIKey may be empty for gateways that don't require
// one (e.g. a local Ollama instance).
func New(cfg Config) *Caller {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Caller{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature,omitempty"`
	ResponseFormat *responseFmt  `json:"response_format,omitempty"`
}

type responseFmt struct {
	Type string `json:"type"`
}

// CallJSON sends a single-turn chat request and extracts the assistant's
// reply as raw JSON. If req.JSONMode is set, response_format is requested
// as json_object so providers that support it return well-formed JSON
// directly; when a provider doesn't honor it, the reply is still returned
// verbatim and left for the caller to unmarshal.
func (c *Caller) CallJSON(ctx context.Context, req llmcap.Request) (json.RawMessage, error) {
	deadline := req.Deadline
	if deadline <= 0 {
		deadline = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})

	body := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFmt{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", llmcap.ErrCall, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", llmcap.ErrCall, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", llmcap.ErrCall, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", llmcap.ErrCall, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: upstream returned status %d: %s", llmcap.ErrCall, httpResp.StatusCode, string(respBody))
	}

	content, err := extractContent(respBody)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(content), nil
}

// extractContent tries a handful of common response shapes, in order of
// how likely a chat-completions-style upstream is to produce them, and
// returns ErrNoContent when none of them yields any content.
func extractContent(raw []byte) ([]byte, error) {
	var envelope struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if len(envelope.Choices) > 0 && envelope.Choices[0].Message.Content != "" {
			return []byte(envelope.Choices[0].Message.Content), nil
		}
		if envelope.Message.Content != "" {
			return []byte(envelope.Message.Content), nil
		}
		if envelope.Content != "" {
			return []byte(envelope.Content), nil
		}
	}
	return nil, fmt.Errorf("%w", llmcap.ErrNoContent)
}

var _ llmcap.Caller = (*Caller)(nil)
