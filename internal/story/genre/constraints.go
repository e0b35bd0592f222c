package genre

import (
	"fmt"
	"strings"
)

// ValidateConsistency reports whether text avoids every forbidden keyword of
// cfg. Missing tone keywords never fail validation.
func ValidateConsistency(cfg *Config, text string) (bool, []string) {
	if cfg == nil {
		return true, nil
	}
	lower := strings.ToLower(text)
	var violations []string
	for _, forbidden := range cfg.ForbiddenKeywords {
		if strings.Contains(lower, strings.ToLower(forbidden)) {
			violations = append(violations, forbidden)
		}
	}
	return len(violations) == 0, violations
}

// HasTone reports whether text uses at least one tone keyword.
func HasTone(cfg *Config, text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range cfg.ToneKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// StrongerConstraintPrompt restates the genre's vocabulary after prompt for a
// single regeneration attempt.
func StrongerConstraintPrompt(cfg *Config, prompt, beat string) string {
	if cfg == nil {
		return prompt
	}
	return fmt.Sprintf("%s\n\nCRITICAL: This is a %s story. Focus on: %s. FORBIDDEN: %s. Current story beat: %s.",
		prompt,
		strings.ToUpper(cfg.Name),
		strings.Join(head(cfg.ToneKeywords, 5), ", "),
		strings.Join(head(cfg.ForbiddenKeywords, 5), ", "),
		beat,
	)
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
