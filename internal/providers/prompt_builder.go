package providers

import (
	"fmt"
	"strings"

	"immcad-api/internal/domain"
)

// buildRuntimePrompts assembles the system and user prompts sent to an LLM
// backend: the system prompt fixes the assistant's role and locale, the
// user prompt carries the question plus its grounding citations so the
// model is steered toward citing only what it was given.
func buildRuntimePrompts(message string, citations []domain.Citation, locale domain.Locale) (systemPrompt, userPrompt string) {
	localeName := "English (Canada)"
	if locale == domain.LocaleFrCA {
		localeName = "French (Canada)"
	}

	systemPrompt = fmt.Sprintf(
		"You are an informational assistant for Canadian immigration and citizenship "+
			"questions. Answer in %s. Cite only the sources provided below. Never claim "+
			"to represent the user, file anything on their behalf, or guarantee an outcome.",
		localeName,
	)

	var citationLines strings.Builder
	for _, c := range citations {
		citationLines.WriteString(fmt.Sprintf("- [%s] %s (%s)\n", c.SourceID, c.Title, c.URL))
	}

	userPrompt = fmt.Sprintf("Question: %s\n\nAvailable sources:\n%s", strings.TrimSpace(message), citationLines.String())
	return systemPrompt, userPrompt
}
