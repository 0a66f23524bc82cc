package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"immcad-api/internal/domain"
)

// OpenAIProvider calls the OpenAI chat completions API. With no API key
// configured it always fails with a provider_error, letting the router
// fall through to the next configured provider.
type OpenAIProvider struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	BaseURL    string
	HTTPClient *http.Client
}

func (p *OpenAIProvider) Name() string { return "openai" }

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Temperature float64             `json:"temperature"`
	Messages    []openAIChatMessage `json:"messages"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *OpenAIProvider) Generate(message string, citations []domain.Citation, locale domain.Locale) (Result, error) {
	if p.APIKey == "" {
		return Result{}, NewError(p.Name(), ErrorCodeProviderError, "OPENAI_API_KEY not configured")
	}

	systemPrompt, prompt := buildRuntimePrompts(message, citations, locale)

	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr *Error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		answer, err := p.attempt(systemPrompt, prompt)
		if err == nil {
			return Result{Provider: p.Name(), Answer: answer, Citations: citations, Confidence: domain.ConfidenceMedium}, nil
		}

		if IsNonTransient(err) {
			return Result{}, err
		}
		lastErr = err

		if attempt < maxRetries {
			time.Sleep(400 * time.Millisecond * time.Duration(attempt+1))
		}
	}

	return Result{}, lastErr
}

func (p *OpenAIProvider) attempt(systemPrompt, prompt string) (string, *Error) {
	baseURL := p.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	reqBody := openAIChatRequest{
		Model:       p.Model,
		Temperature: 0.2,
		Messages: []openAIChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", NewError(p.Name(), ErrorCodeProviderError, err.Error())
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", NewError(p.Name(), ErrorCodeProviderError, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", NewError(p.Name(), ErrorCodeTimeout, err.Error())
		}
		return "", MapException(p.Name(), err.Error())
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", NewError(p.Name(), ErrorCodeRateLimit, fmt.Sprintf("openai returned 429: %s", string(body)))
	}
	if resp.StatusCode >= 400 {
		return "", MapException(p.Name(), fmt.Sprintf("openai returned %d: %s", resp.StatusCode, string(body)))
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", NewError(p.Name(), ErrorCodeProviderError, "openai response was not valid JSON")
	}
	if len(parsed.Choices) == 0 {
		return "", NewError(p.Name(), ErrorCodeProviderError, "openai response contained no choices")
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", NewError(p.Name(), ErrorCodeProviderError, "openai response contained no message content")
	}

	return content, nil
}
