package cli

import (
	"fmt"
	"strings"
)

var geminiModels = []string{
	"gemini-3-pro-preview",
	"gemini-3-flash-preview",
	"gemini-2.5-pro",
	"gemini-2.5-flash",
	"gemini-2.5-flash-lite",
}

var openAIModels = []string{
	"o1",
	"o3-mini",
	"o1-pro",
	"o3",
	"gpt-5",
	"gpt-5-nano",
	"gpt-5-mini",
	"gpt-5-pro",
	"gpt-5.1",
	"gpt-5.2",
	"gpt-5.2-pro",
}

var openAITranscribeModels = []string{
	"whisper-1",
	"gpt-4o-transcribe",
	"gpt-4o-mini-transcribe",
}

var anthropicModels = []string{
	"claude-haiku-4-5",
	"claude-sonnet-4-5",
	"claude-opus-4-1",
}

func contains(list []string, model string) bool {
	for _, m := range list {
		if m == model {
			return true
		}
	}
	return false
}

// the translations endpoint only outputs English
func isValidOpenAITranscriptLanguage(lang string) bool {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "", "native", "english", "en":
		return true
	}
	return false
}

// checks model against provider's list unless override is set
func checkModel(provider, model string, models []string, override bool) error {
	if model == "" || override || contains(models, model) {
		return nil
	}
	return fmt.Errorf(
		"unsupported %s model %q: valid models are %s (use --model-override to bypass)",
		provider,
		model,
		strings.Join(models, ", "),
	)
}
