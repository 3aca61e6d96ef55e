// Package openrouter implements the chat-completion client used for
// advisory responses.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/krishihq/krishi/internal/upstream"
)

const source = "openrouter"

// Client calls the OpenRouter chat completions API.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// New creates an OpenRouter Client.
func New(apiKey, baseURL, model string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if model == "" {
		model = "openrouter/auto"
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    client,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

// Complete sends a system and user prompt and returns the assistant reply.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", source, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: create request: %w", source, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: do request: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", upstream.ParseAPIError(source, resp)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return "", fmt.Errorf("%s: read response: %w", source, err)
	}

	content := gjson.GetBytes(buf.Bytes(), "choices.0.message.content").String()
	if content == "" {
		return "", fmt.Errorf("%s: empty completion", source)
	}
	return content, nil
}
