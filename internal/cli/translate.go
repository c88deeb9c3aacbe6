package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/subtake/internal/frame"
	"github.com/mgpai22/subtake/internal/history"
	"github.com/mgpai22/subtake/internal/subtitle"
	"github.com/mgpai22/subtake/internal/translate"
)

var translateCmd = &cobra.Command{
	Use:   "translate [media_or_subtitle_file]",
	Short: "Translate subtitles to another language using AI",
	Long: `Translate subtitles to another language using AI.

Given a video, the entries of its project are translated in place; each
changed entry is a separate edit that can be undone in 'subtake edit'.
Given an SRT, VTT or ASS file, a translated copy is written next to it.

Examples:
  subtake translate video.mp4 --target-language japanese
  subtake translate video.srt -t ja --provider anthropic
  subtake translate video.vtt -l english -t spanish -o translated.vtt`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().
		StringP("target-language", "t", "", "Target language for translation (required)")
	translateCmd.Flags().
		StringP("api-key", "k", "", "API key (or set GEMINI_API_KEY/OPENAI_API_KEY/ANTHROPIC_API_KEY env var)")
	translateCmd.Flags().
		String("model", "", "Model to use for translation (provider-specific, uses sensible defaults)")
	translateCmd.Flags().
		Bool("model-override", false, "Allow any custom model, bypassing provider model validation")
	translateCmd.Flags().
		String("provider", "", "Translation provider (gemini, openai, anthropic); defaults to the config value")
	translateCmd.Flags().
		String("prompt", "", "Extra instructions for the translation model")
	translateCmd.Flags().
		Int("concurrency", 0, "Number of parallel translation workers (default from config)")
	translateCmd.Flags().
		Int("batch-size", 0, "Number of subtitle entries per API request (default from config)")

	_ = translateCmd.MarkFlagRequired("target-language")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	input := args[0]

	targetLang, _ := cmd.Flags().GetString("target-language")
	model, _ := cmd.Flags().GetString("model")
	modelOverride, _ := cmd.Flags().GetBool("model-override")
	providerStr, _ := cmd.Flags().GetString("provider")
	prompt, _ := cmd.Flags().GetString("prompt")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	inputLang, _ := cmd.Flags().GetString("language")

	targetLang = strings.TrimSpace(targetLang)
	if targetLang == "" {
		return fmt.Errorf("target language is required")
	}
	if inputLang != "" && strings.EqualFold(strings.TrimSpace(inputLang), targetLang) {
		return fmt.Errorf(
			"input language %q and target language %q cannot be the same",
			inputLang,
			targetLang,
		)
	}

	if providerStr == "" {
		providerStr = cfg.Providers.Translate
	}
	provider := translate.Provider(strings.ToLower(providerStr))

	switch provider {
	case translate.ProviderGemini:
		if err := checkModel("Gemini", model, geminiModels, modelOverride); err != nil {
			return err
		}
		if model == "" {
			model = cfg.Providers.GeminiModel
		}
	case translate.ProviderOpenAI:
		if err := checkModel("OpenAI", model, openAIModels, modelOverride); err != nil {
			return err
		}
		if model == "" {
			model = cfg.Providers.OpenAIModel
		}
	case translate.ProviderAnthropic:
		if err := checkModel("Anthropic", model, anthropicModels, modelOverride); err != nil {
			return err
		}
		if model == "" {
			model = cfg.Providers.AnthropicModel
		}
	default:
		return fmt.Errorf("unsupported provider %q: use gemini, openai or anthropic", providerStr)
	}

	if concurrency <= 0 {
		concurrency = cfg.Providers.Concurrency
	}
	if batchSize <= 0 {
		batchSize = cfg.Providers.BatchSize
	}

	key, err := apiKey(cmd, string(provider))
	if err != nil {
		return err
	}

	translator, err := translate.Factory(ctx, provider, key, translate.Options{
		InputLanguage:  inputLang,
		TargetLanguage: targetLang,
		Model:          model,
		Prompt:         prompt,
	})
	if err != nil {
		return fmt.Errorf("failed to create translator: %w", err)
	}

	run := func(ctx context.Context, h *history.History) (int, error) {
		logger.Infow("Translating subtitles",
			"entries", h.Len(),
			"target_language", targetLang,
			"provider", provider,
			"concurrency", concurrency,
			"batch_size", batchSize,
		)
		changed, err := translate.Apply(ctx, h, translator, batchSize, concurrency)
		if err != nil {
			return 0, fmt.Errorf("translation failed: %w", err)
		}
		logger.Infow("Translation complete", "changed", changed)
		return changed, nil
	}

	if isSubtitleFile(input) {
		return translateFile(ctx, cmd, input, targetLang, run)
	}
	return translateProject(ctx, input, targetLang, run)
}

func isSubtitleFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt", ".vtt", ".ass", ".ssa":
		return true
	}
	return false
}

func translateFile(
	ctx context.Context,
	cmd *cobra.Command,
	path, targetLang string,
	run func(context.Context, *history.History) (int, error),
) error {
	doc, err := subtitle.Open(path)
	if err != nil {
		return fmt.Errorf("failed to parse subtitle file: %w", err)
	}
	if len(doc.Entries) == 0 {
		return fmt.Errorf("subtitle file contains no entries")
	}

	h := history.New(history.Config{
		Filename:  filepath.Base(path),
		Entries:   doc.Entries,
		Options:   doc.Options,
		Scheduler: frame.Inline{},
		Logger:    logger,
	})
	changed, err := run(ctx, h)
	if err != nil {
		return err
	}

	format := subtitle.GetFormatFromExtension(path)
	output := outputFor(cmd, path, "."+targetLang+subtitle.GetExtensionForFormat(format))
	out := h.Document()
	out.Language = targetLang
	if err := subtitle.WriteFile(out, output, format); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	absOutput, _ := filepath.Abs(output)
	fmt.Printf("Subtitles translated successfully: %s\n", absOutput)
	fmt.Printf("  Entries: %d (%d changed)\n", h.Len(), changed)
	fmt.Printf("  Target language: %s\n", targetLang)
	return nil
}

func translateProject(
	ctx context.Context,
	input, targetLang string,
	run func(context.Context, *history.History) (int, error),
) error {
	path, err := videoPath(input)
	if err != nil {
		return err
	}

	projects, err := openProjects()
	if err != nil {
		return err
	}
	defer func() { _ = projects.Close() }()

	h, err := loadHistory(ctx, projects, path)
	if err != nil {
		return err
	}
	if h.Len() == 0 {
		return fmt.Errorf("project %s has no entries; run 'subtake draft' or 'subtake import' first", path)
	}

	changed, err := run(ctx, h)
	if err != nil {
		return err
	}
	if err := saveHistory(ctx, projects, path, h); err != nil {
		return err
	}

	fmt.Printf("Subtitles translated successfully: %s\n", path)
	fmt.Printf("  Entries: %d (%d changed)\n", h.Len(), changed)
	fmt.Printf("  Target language: %s\n", targetLang)
	return nil
}
