// Package hf calls the Hugging Face Inference API for summaries and captions.
package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config points the client at an inference endpoint and its models.
type Config struct {
	// Endpoint is the API base, e.g. https://api-inference.huggingface.co.
	Endpoint string
	// APIToken, when set, is sent as a Bearer token.
	APIToken string
	// TextModel is the summarization model id.
	TextModel string
	// ImageModel is the image-to-text model id.
	ImageModel string
	// Timeout bounds each inference call.
	Timeout time.Duration
}

// Client implements summarize.TextSummarizer and summarize.ImageCaptioner
// over the hosted inference REST API.
type Client struct {
	cfg  Config
	http *http.Client
}

// New builds a Client; httpClient may be nil to use a timeout-bounded default.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("inference endpoint is required")
	}
	if cfg.TextModel == "" || cfg.ImageModel == "" {
		return nil, fmt.Errorf("text and image model ids are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient}, nil
}

type summarizationRequest struct {
	Inputs     string                  `json:"inputs"`
	Parameters summarizationParameters `json:"parameters"`
}

type summarizationParameters struct {
	MaxLength int  `json:"max_length"`
	MinLength int  `json:"min_length"`
	DoSample  bool `json:"do_sample"`
}

// Summarize condenses text via the configured summarization model.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(summarizationRequest{
		Inputs: text,
		Parameters: summarizationParameters{
			MaxLength: 150,
			MinLength: 40,
			DoSample:  false,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal summarization request: %w", err)
	}
	body, err := c.post(ctx, c.cfg.TextModel, "application/json", payload)
	if err != nil {
		return "", err
	}
	var results []struct {
		SummaryText string `json:"summary_text"`
	}
	if err := json.Unmarshal(body, &results); err != nil {
		return "", fmt.Errorf("decode summarization response: %w", err)
	}
	if len(results) == 0 || results[0].SummaryText == "" {
		return "", fmt.Errorf("summarization model %s returned no summary", c.cfg.TextModel)
	}
	return results[0].SummaryText, nil
}

// Caption describes an image via the configured image-to-text model. The API
// takes the raw image bytes as the request body.
func (c *Client) Caption(ctx context.Context, image []byte) (string, error) {
	body, err := c.post(ctx, c.cfg.ImageModel, "application/octet-stream", image)
	if err != nil {
		return "", err
	}
	var results []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(body, &results); err != nil {
		return "", fmt.Errorf("decode caption response: %w", err)
	}
	if len(results) == 0 || results[0].GeneratedText == "" {
		return "", fmt.Errorf("caption model %s returned no caption", c.cfg.ImageModel)
	}
	return results[0].GeneratedText, nil
}

func (c *Client) post(ctx context.Context, model, contentType string, payload []byte) ([]byte, error) {
	url := fmt.Sprintf("%s/models/%s", c.cfg.Endpoint, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build inference request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call model %s: %w", model, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read inference response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model %s returned %d: %s", model, resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
