package providers

import (
	"fmt"
	"strings"

	"immcad-api/internal/domain"
)

// ScaffoldProvider is a deterministic local provider for development and
// tests, always last in the routing order so a fully offline environment
// still returns a structured answer.
type ScaffoldProvider struct{}

func (ScaffoldProvider) Name() string { return "scaffold" }

func (ScaffoldProvider) Generate(message string, citations []domain.Citation, locale domain.Locale) (Result, error) {
	answer := fmt.Sprintf(
		"Scaffold response: this environment is using deterministic fallback content. "+
			"Replace provider adapters with production SDK integrations. Query received: %s",
		strings.TrimSpace(message),
	)
	return Result{
		Provider:   "scaffold",
		Answer:     answer,
		Citations:  citations,
		Confidence: domain.ConfidenceLow,
	}, nil
}
