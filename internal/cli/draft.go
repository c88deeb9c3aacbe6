package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/subtake/internal/audio"
	"github.com/mgpai22/subtake/internal/subtitle"
	"github.com/mgpai22/subtake/internal/transcribe"
)

var draftCmd = &cobra.Command{
	Use:   "draft [media_file]",
	Short: "Draft subtitles for a video from its audio",
	Long: `Transcribe the audio of a video or audio file and append the result to
its project as subtitle entries.

The audio is split into chunks (default 1 minute) and transcribed in
parallel. Every drafted entry is an ordinary edit, so it can be reviewed,
retimed or undone in 'subtake edit'.

Examples:
  subtake draft video.mp4
  subtake draft video.mp4 --provider openai --transcript-language english
  subtake draft podcast.mp3 -d 2 --concurrency 5`,
	Args: cobra.ExactArgs(1),
	RunE: runDraft,
}

func init() {
	rootCmd.AddCommand(draftCmd)

	draftCmd.Flags().
		String("provider", "", "Transcription provider (gemini, openai); defaults to the config value")
	draftCmd.Flags().
		StringP("api-key", "k", "", "API key (or set GEMINI_API_KEY/OPENAI_API_KEY env var)")
	draftCmd.Flags().
		IntP("chunk-duration", "d", 1, "Chunk duration in minutes for splitting audio")
	draftCmd.Flags().
		Int("concurrency", 0, "Number of parallel transcription workers (default from config)")
	draftCmd.Flags().
		String("model", "", "Model to use for transcription (provider-specific, uses sensible defaults)")
	draftCmd.Flags().
		Bool("model-override", false, "Allow any custom model, bypassing provider model validation")
	draftCmd.Flags().
		String("transcript-language", "native", "Output language for transcript (e.g., 'english', 'spanish', or 'native' for original language)")
	draftCmd.Flags().
		String("prompt", "", "Extra instructions for the transcription model")
}

func runDraft(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	path, err := videoPath(args[0])
	if err != nil {
		return err
	}

	providerStr, _ := cmd.Flags().GetString("provider")
	chunkMinutes, _ := cmd.Flags().GetInt("chunk-duration")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	model, _ := cmd.Flags().GetString("model")
	modelOverride, _ := cmd.Flags().GetBool("model-override")
	transcriptLang, _ := cmd.Flags().GetString("transcript-language")
	prompt, _ := cmd.Flags().GetString("prompt")
	language, _ := cmd.Flags().GetString("language")

	if providerStr == "" {
		providerStr = cfg.Providers.Transcribe
	}
	provider := transcribe.Provider(strings.ToLower(providerStr))

	switch provider {
	case transcribe.ProviderGemini:
		if err := checkModel("Gemini", model, geminiModels, modelOverride); err != nil {
			return err
		}
		if model == "" {
			model = cfg.Providers.GeminiModel
		}
	case transcribe.ProviderOpenAI:
		if !isValidOpenAITranscriptLanguage(transcriptLang) {
			return fmt.Errorf(
				"OpenAI transcription only supports 'native' or 'english' transcript language, got %q",
				transcriptLang,
			)
		}
		if err := checkModel("OpenAI", model, openAITranscribeModels, modelOverride); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported provider %q: use gemini or openai", providerStr)
	}

	if chunkMinutes <= 0 {
		return fmt.Errorf("chunk-duration must be positive, got %d", chunkMinutes)
	}
	if concurrency <= 0 {
		concurrency = cfg.Providers.Concurrency
	}

	key, err := apiKey(cmd, string(provider))
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

	logger.Infow("Starting subtitle draft",
		"input", path,
		"provider", provider,
		"chunk_duration", chunkMinutes,
		"concurrency", concurrency,
		"existing_entries", h.Len(),
	)

	tempDir, err := os.MkdirTemp("", "subtake-*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	logger.Infow("Preparing audio")
	audioPath, err := audio.Prepare(ctx, path, tempDir)
	if err != nil {
		return err
	}

	chunks, err := audio.Split(
		ctx,
		audioPath,
		float64(chunkMinutes*60),
		filepath.Join(tempDir, "chunks"),
		concurrency,
	)
	if err != nil {
		return fmt.Errorf("failed to split audio: %w", err)
	}
	logger.Infow("Created audio chunks", "count", len(chunks))

	transcriber, err := transcribe.Factory(ctx, provider, key, transcribe.Options{
		Language:           language,
		TranscriptLanguage: transcriptLang,
		Model:              model,
		Prompt:             prompt,
	})
	if err != nil {
		return fmt.Errorf("failed to create transcriber: %w", err)
	}

	result, err := transcribe.TranscribeChunks(ctx, transcriber, chunks, concurrency)
	if err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}
	logger.Infow("Transcription complete",
		"segments", len(result.Segments),
		"language", result.Language,
	)

	added := transcribe.Draft(h, result.Segments, subtitle.NewDefaultGenerator())
	if err := saveHistory(ctx, projects, path, h); err != nil {
		return err
	}

	fmt.Printf("Subtitles drafted successfully: %s\n", path)
	fmt.Printf("  Entries added: %d\n", added)
	fmt.Printf("  Total entries: %d\n", h.Len())
	fmt.Printf("  Duration: %s\n", subtitle.FormatTime(h.Duration()))

	return nil
}
