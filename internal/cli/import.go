package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgpai22/subtake/internal/history"
	"github.com/mgpai22/subtake/internal/subtitle"
)

var importCmd = &cobra.Command{
	Use:   "import [media_file] [subtitle_file]",
	Short: "Replace a project's entries with an existing subtitle file",
	Long: `Read an SRT, VTT or ASS file into the project of a video. The project's
entries and style table are replaced; entries ending after the video are
kept but cannot be retimed past its end.

Examples:
  subtake import video.mp4 video.srt
  subtake import video.mp4 styled.ass`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	path, err := videoPath(args[0])
	if err != nil {
		return err
	}
	doc, err := subtitle.Open(args[1])
	if err != nil {
		return fmt.Errorf("failed to parse subtitle file: %w", err)
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
	replaced := h.Len()
	h.Restore(history.Snapshot{Entries: doc.Entries, Options: doc.Options})

	if err := saveHistory(ctx, projects, path, h); err != nil {
		return err
	}

	logger.Infow("Imported subtitles",
		"project", path,
		"source", args[1],
		"entries", h.Len(),
		"replaced", replaced,
	)
	fmt.Printf("Subtitles imported successfully: %s\n", path)
	fmt.Printf("  Entries: %d (replaced %d)\n", h.Len(), replaced)
	return nil
}
