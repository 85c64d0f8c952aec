package polish

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSurnamesEmbedded(t *testing.T) {
	assert.NotEmpty(t, surnames.All)
	assert.NotEmpty(t, surnames.PromptHints)
	assert.Contains(t, surnames.All, "Zhang")
	assert.Contains(t, surnames.PromptHints, "Lee")
}

func TestRepStaffPrompt(t *testing.T) {
	staff := []string{"A One", "B Two", "C Three", "D Four", "E Five", "F Six", "G Seven"}
	prompt := repStaffPrompt("Sunrise Care Team", staff)

	assert.Contains(t, prompt, "Contact: Sunrise Care Team")
	assert.Contains(t, prompt, `JSON: {"chinese_staff": "full name or null"}`)
	// Capped at five staff names.
	assert.Contains(t, prompt, "E Five")
	assert.NotContains(t, prompt, "F Six")
}

func TestValidityPrompt(t *testing.T) {
	prompt := validityPrompt("Next Level Services")
	assert.Contains(t, prompt, `"Next Level Services"`)
	assert.Contains(t, prompt, `JSON: {"valid": true/false}`)
	assert.False(t, strings.Contains(prompt, "chinese_staff"))
}

func TestSystemPrompt(t *testing.T) {
	sys := systemPrompt()
	assert.Contains(t, sys, "data quality assistant")
	assert.Contains(t, sys, "Tsang")
}
