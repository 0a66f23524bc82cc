package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"immcad-api/internal/domain"
)

func TestEnforceCitationRequirement_WithCitations(t *testing.T) {
	citations := []domain.Citation{{SourceID: "IRPA", Title: "IRPA s.3"}}
	answer, out, confidence := EnforceCitationRequirement("Informational answer.", citations)

	assert.Equal(t, "Informational answer.", answer)
	assert.Equal(t, citations, out)
	assert.Equal(t, domain.ConfidenceMedium, confidence)
}

func TestEnforceCitationRequirement_NoCitations(t *testing.T) {
	answer, out, confidence := EnforceCitationRequirement("Informational answer.", nil)

	assert.Equal(t, SafeConstrainedResponse, answer)
	assert.Empty(t, out)
	assert.Equal(t, domain.ConfidenceLow, confidence)
}
