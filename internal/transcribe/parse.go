package transcribe

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strings"
)

// segment from a model's JSON response
type transcriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

var errNoSegments = errors.New("no transcript segments found in response")

var codeFence = regexp.MustCompile("```(?:json)?\\s*")

// keys models tend to wrap the array in, tried before any other key
var wrapperKeys = []string{"segments", "transcript", "data"}

// removes markdown formatting from the response
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	s = codeFence.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// extractTranscriptSegments finds the first JSON value in s that holds
// usable segments. Models add preambles, trailing notes and wrapper
// objects, so every '[' or '{' is tried as a start.
func extractTranscriptSegments(s string) ([]transcriptSegment, error) {
	for i := 0; i < len(s); i++ {
		if s[i] != '[' && s[i] != '{' {
			continue
		}

		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(s[i:])).Decode(&raw); err != nil {
			continue
		}
		if segs, ok := segmentsIn(raw); ok {
			return segs, nil
		}
	}
	return nil, errNoSegments
}

func segmentsIn(raw json.RawMessage) ([]transcriptSegment, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false
	}

	switch raw[0] {
	case '[':
		var segs []transcriptSegment
		if err := json.Unmarshal(raw, &segs); err != nil {
			return nil, false
		}
		return segs, validateSegments(segs)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, false
		}
		for _, key := range wrapperKeys {
			if v, ok := obj[key]; ok {
				if segs, ok := segmentsIn(v); ok {
					return segs, true
				}
			}
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if segs, ok := segmentsIn(obj[k]); ok {
				return segs, true
			}
		}
	}
	return nil, false
}

// at least one segment carries a timestamp or text
func validateSegments(segs []transcriptSegment) bool {
	for _, s := range segs {
		if s.Text != "" || s.Start != 0 || s.End != 0 {
			return true
		}
	}
	return false
}

// truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
