package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParseModelJSON extracts and parses a JSON document from model output
// that may be:
// - pure JSON
// - JSON wrapped in markdown code fences (```json ... ```)
// - JSON surrounded by conversational prose
// - JSON with common model mistakes (trailing commas, unquoted keys)
func ParseModelJSON(input string, target interface{}) error {
	if input == "" {
		return fmt.Errorf("empty input")
	}

	// Most responses are well-formed, try directly first
	if err := json.Unmarshal([]byte(input), target); err == nil {
		return nil
	}

	if extracted := ExtractJSONObject(input); extracted != "" {
		if err := json.Unmarshal([]byte(extracted), target); err == nil {
			return nil
		}
		// Region found but not valid JSON: attempt repairs
		if cleaned := repairJSON(extracted); cleaned != "" {
			if err := json.Unmarshal([]byte(cleaned), target); err == nil {
				return nil
			}
		}
	}

	if cleaned := repairJSON(input); cleaned != "" {
		if err := json.Unmarshal([]byte(cleaned), target); err == nil {
			return nil
		}
	}

	return fmt.Errorf("no parseable JSON in input: %s", truncate(input, 100))
}

// ExtractJSONObject locates the JSON object region in model output,
// checking markdown code fences first and then scanning for balanced
// braces outside string literals. Returns "" when no region is found.
func ExtractJSONObject(input string) string {
	if fenced := extractFromFence(input); fenced != "" {
		return fenced
	}
	if start := strings.Index(input, "{"); start >= 0 {
		if region := balancedRegion(input[start:], '{', '}'); region != "" {
			return region
		}
	}
	return ""
}

var (
	fenceJSONRe = regexp.MustCompile("(?s)```json\\s*(.+?)\\s*```")
	fenceAnyRe  = regexp.MustCompile("(?s)```\\s*(.+?)\\s*```")
)

// extractFromFence pulls the body out of a markdown code fence when it
// looks like a JSON document.
func extractFromFence(input string) string {
	if matches := fenceJSONRe.FindStringSubmatch(input); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	if matches := fenceAnyRe.FindStringSubmatch(input); len(matches) > 1 {
		body := strings.TrimSpace(matches[1])
		if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
			return body
		}
	}
	return ""
}

// balancedRegion returns the shortest prefix of input with balanced
// open/close delimiters, honoring string literals and escapes.
func balancedRegion(input string, open, close rune) string {
	depth := 0
	inString := false
	escape := false
	start := 0

	for i, ch := range input {
		if escape {
			escape = false
			continue
		}
		switch {
		case ch == '\\':
			escape = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			if depth == 0 {
				start = i
			}
			depth++
		case ch == close:
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyRe   = regexp.MustCompile(`([{,]\s*)(\w+)(\s*:)`)
	controlCharRe   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// repairJSON fixes the JSON mistakes models most often make.
func repairJSON(input string) string {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "\uFEFF")
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = unquotedKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	s = controlCharRe.ReplaceAllString(s, "")
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
