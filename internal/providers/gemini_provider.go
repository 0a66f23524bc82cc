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

// GeminiProvider calls the Gemini generateContent API as a secondary
// backend behind OpenAI.
type GeminiProvider struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	BaseURL    string
	HTTPClient *http.Client
}

func (p *GeminiProvider) Name() string { return "gemini" }

type geminiGenerateRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (p *GeminiProvider) Generate(message string, citations []domain.Citation, locale domain.Locale) (Result, error) {
	if p.APIKey == "" {
		return Result{}, NewError(p.Name(), ErrorCodeProviderError, "GEMINI_API_KEY not configured")
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

func (p *GeminiProvider) attempt(systemPrompt, prompt string) (string, *Error) {
	baseURL := p.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	}

	reqBody := geminiGenerateRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: systemPrompt + "\n\n" + prompt}}},
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

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", baseURL, p.Model, p.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", NewError(p.Name(), ErrorCodeProviderError, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

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
		return "", NewError(p.Name(), ErrorCodeRateLimit, fmt.Sprintf("gemini returned 429: %s", string(body)))
	}
	if resp.StatusCode >= 400 {
		return "", MapException(p.Name(), fmt.Sprintf("gemini returned %d: %s", resp.StatusCode, string(body)))
	}

	var parsed geminiGenerateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", NewError(p.Name(), ErrorCodeProviderError, "gemini response was not valid JSON")
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", NewError(p.Name(), ErrorCodeProviderError, "gemini response contained no choices")
	}
	content := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if content == "" {
		return "", NewError(p.Name(), ErrorCodeProviderError, "gemini response contained no message content")
	}

	return content, nil
}
