package translate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var codeFence = regexp.MustCompile("```(?:json)?\\s*")

// keys models tend to wrap the array in, tried before any other key
var wrapperKeys = []string{"results", "translations", "data", "items"}

func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	s = codeFence.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// fixes invalid JSON escapes such as \N (ASS newline) by doubling the
// backslash, which keeps the literal \N in the decoded text
func fixInvalidEscapes(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		next := s[i+1]
		switch next {
		case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
			b.WriteByte('\\')
		default:
			b.WriteString("\\\\")
		}
		b.WriteByte(next)
		i++
	}
	return b.String()
}

// finds the first JSON array (bare or wrapped) of translated items in text
func extractTranslationResults(text string) ([]Item, error) {
	text = fixInvalidEscapes(text)

	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&raw); err != nil {
			continue
		}
		if results, ok := tryExtractResults(raw); ok {
			return results, nil
		}
	}
	return nil, fmt.Errorf("no valid translation JSON found in response")
}

func tryExtractResults(raw json.RawMessage) ([]Item, bool) {
	var results []Item
	if err := json.Unmarshal(raw, &results); err == nil && validateResults(results) {
		return results, true
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, false
	}

	for _, key := range wrapperKeys {
		if field, ok := wrapper[key]; ok {
			var fieldResults []Item
			if err := json.Unmarshal(field, &fieldResults); err == nil && validateResults(fieldResults) {
				return fieldResults, true
			}
		}
	}
	for _, field := range wrapper {
		var fieldResults []Item
		if err := json.Unmarshal(field, &fieldResults); err == nil && validateResults(fieldResults) {
			return fieldResults, true
		}
	}
	return nil, false
}

func validateResults(results []Item) bool {
	for _, r := range results {
		if r.Text != "" {
			return true
		}
	}
	return false
}

// cleans and parses one model reply
func parseReply(text string) ([]Item, error) {
	if text == "" {
		return nil, fmt.Errorf("no text in response")
	}
	cleaned := cleanJSONResponse(text)
	results, err := extractTranslationResults(cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w (response: %s)",
			err, truncateString(cleaned, 200))
	}
	return results, nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
