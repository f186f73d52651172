// Package advisory asks an OpenAI-compatible chat completion endpoint
// for a final go/no-go on a token that already cleared the mechanical
// gates. The model only ever vetoes; it cannot loosen the earlier gates.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

const systemPrompt = `You are a trading risk screener for newly listed DEX tokens. ` +
	`You receive a JSON summary of a token that passed liquidity and bytecode checks. ` +
	`Reply with exactly one word: BUY to proceed with a small probe trade, or SKIP to stand down. ` +
	`When in doubt, reply SKIP.`

// Client is the chat-completions client implementing domain.Advisor.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates an advisory client.
//
// baseURL is the API root, e.g. "https://api.openai.com/v1". timeout
// bounds each decision call; zero means 30 seconds.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Decide submits the run summary and maps the model's one-word verdict
// to accept/reject. An unparseable verdict is an error, not a reject;
// the caller decides how to treat advisory failures.
func (c *Client) Decide(ctx context.Context, summary domain.EventSummary) (bool, error) {
	payload, err := json.Marshal(summary)
	if err != nil {
		return false, fmt.Errorf("advisory: encode summary: %w", err)
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(payload)},
		},
		Temperature: 0,
		MaxTokens:   8,
	}

	body, err := c.doPost(ctx, "/chat/completions", reqBody)
	if err != nil {
		return false, fmt.Errorf("advisory: decide %s: %w", summary.TokenAddress.Hex(), err)
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("advisory: decode response: %w", err)
	}
	if resp.Error != nil {
		return false, fmt.Errorf("advisory: api error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return false, fmt.Errorf("advisory: empty response")
	}

	verdict := strings.ToUpper(strings.TrimSpace(resp.Choices[0].Message.Content))
	switch {
	case strings.HasPrefix(verdict, "BUY"):
		return true, nil
	case strings.HasPrefix(verdict, "SKIP"):
		return false, nil
	default:
		return false, fmt.Errorf("advisory: unrecognized verdict %q", verdict)
	}
}

// doPost sends an authenticated JSON POST request.
func (c *Client) doPost(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Compile-time interface check.
var _ domain.Advisor = (*Client)(nil)
