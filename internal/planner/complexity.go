package planner

import (
	"regexp"
	"strings"

	"github.com/agentcore/agentcore/pkg/models"
)

// Advisory-only complexity scoring per §4.2 step 8. Adapted from the
// content-heuristic tagger pattern: instead of tagging, each matched
// dimension contributes to a numeric score thresholded into a Complexity.
var (
	connectiveRegex = regexp.MustCompile(`(?i)\b(then|after that|next|finally|once\s+(?:done|that's)\s+done)\b`)
	numberedListRe  = regexp.MustCompile(`(?m)^\s*\d+[.)]\s`)
	technicalRegex  = regexp.MustCompile(`(?i)\b(database|schema|migration|deploy|refactor|architecture|concurrency|regression)\b`)
	fileOpRegex     = regexp.MustCompile(`(?i)\b(create|write|edit|delete|read)\s+(?:the\s+)?file\b`)
)

// ClassifyPrompt scores a raw prompt and returns its advisory Complexity.
func ClassifyPrompt(prompt string) models.Complexity {
	return models.ClassifyComplexity(scorePrompt(prompt))
}

func scorePrompt(prompt string) int {
	score := 0

	words := strings.Fields(prompt)
	switch {
	case len(words) > 120:
		score += 3
	case len(words) > 40:
		score += 1
	}

	if connectiveRegex.MatchString(prompt) {
		score += 2
	}
	if numberedListRe.MatchString(prompt) {
		score += 2
	}
	if technicalRegex.MatchString(prompt) {
		score += 1
	}
	if fileOpRegex.MatchString(prompt) {
		score += 1
	}

	return score
}
