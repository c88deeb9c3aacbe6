package cli

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mgpai22/subtake/internal/frame"
	"github.com/mgpai22/subtake/internal/media"
	"github.com/mgpai22/subtake/internal/waveform"
)

const pngDataURLPrefix = "data:image/png;base64,"

var waveCmd = &cobra.Command{
	Use:   "wave [media_file]",
	Short: "Render the audio waveform of a media file as a PNG",
	Long: `Extract the audio track of a media file and draw its waveform, the same
image the editor shows, at 20 pixels per second.

Examples:
  subtake wave video.mp4
  subtake wave video.mp4 -o wave.png --spectrum`,
	Args: cobra.ExactArgs(1),
	RunE: runWave,
}

func init() {
	rootCmd.AddCommand(waveCmd)

	waveCmd.Flags().
		Bool("spectrum", false, "Also compute per-frame frequency spectra (slower)")
}

func newPipeline(sched frame.Scheduler, spectrum bool) (*waveform.Pipeline, error) {
	extractor := waveform.NewExtractor(media.NewFFmpegDecoder(logger), logger)
	extractor.Spectrum = spectrum
	extractor.Workers = cfg.Wave.Workers
	return waveform.NewPipeline(extractor, sched, cfg.Wave.CacheSize, logger)
}

func runWave(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	path, err := videoPath(args[0])
	if err != nil {
		return err
	}
	spectrum, _ := cmd.Flags().GetBool("spectrum")
	output := outputFor(cmd, path, ".wave.png")

	logger.Infow("Extracting audio", "input", path)
	wav, _, err := media.ExtractWAV(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to extract audio: %w", err)
	}

	pipeline, err := newPipeline(frame.Inline{}, spectrum || cfg.Wave.Spectrum)
	if err != nil {
		return err
	}
	w, err := pipeline.Build(ctx, wav)
	if err != nil {
		return err
	}
	if w.Failed || w.Bitmap == nil {
		return fmt.Errorf("could not draw a waveform for %s", path)
	}

	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(w.Bitmap.DataURL, pngDataURLPrefix))
	if err != nil {
		return fmt.Errorf("failed to decode waveform image: %w", err)
	}
	if err := os.WriteFile(output, png, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}

	absOutput, _ := filepath.Abs(output)
	fmt.Printf("Waveform written successfully: %s\n", absOutput)
	fmt.Printf("  Width: %dpx\n", w.Bitmap.Width)
	fmt.Printf("  Size: %s\n", humanize.Bytes(uint64(len(png))))
	return nil
}
