package cli

import (
	"fmt"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/mgpai22/subtake/internal/subtitle"
)

var exportCmd = &cobra.Command{
	Use:   "export [media_file]",
	Short: "Write a project's subtitles to SRT, VTT or ASS",
	Long: `Export the saved entries of a video's project as a subtitle file.

Entries without a time range are skipped.

Examples:
  subtake export video.mp4
  subtake export video.mp4 -f ass -o video.ass
  subtake export video.mp4 -f vtt --clipboard`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().
		StringP("format", "f", "srt", "Output subtitle format (srt, vtt, ass)")
	exportCmd.Flags().
		Bool("clipboard", false, "Copy the subtitles to the clipboard instead of writing a file")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}
	formatStr, _ := cmd.Flags().GetString("format")
	toClipboard, _ := cmd.Flags().GetBool("clipboard")
	language, _ := cmd.Flags().GetString("language")

	format, err := subtitle.ParseFormat(formatStr)
	if err != nil {
		return err
	}

	projects, err := openProjects()
	if err != nil {
		return err
	}
	defer func() { _ = projects.Close() }()

	p, err := projects.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to load project for %s: %w", path, err)
	}
	doc := &subtitle.Document{
		Entries:  p.Entries,
		Options:  p.Options,
		Language: language,
	}

	if toClipboard {
		text, err := subtitle.Render(doc, format)
		if err != nil {
			return err
		}
		if err := clipboard.WriteAll(text); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		fmt.Printf("Copied %d entries to the clipboard as %s\n", len(p.Entries), format)
		return nil
	}

	output := outputFor(cmd, path, subtitle.GetExtensionForFormat(format))
	logger.Infow("Exporting subtitles",
		"project", path,
		"output", output,
		"format", format,
		"entries", len(p.Entries),
	)
	if err := subtitle.WriteFile(doc, output, format); err != nil {
		return fmt.Errorf("failed to write subtitles: %w", err)
	}

	absOutput, _ := filepath.Abs(output)
	fmt.Printf("Subtitles exported successfully: %s\n", absOutput)
	fmt.Printf("  Entries: %d\n", len(p.Entries))
	return nil
}
