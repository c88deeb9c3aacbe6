package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/subtake/internal/config"
	"github.com/mgpai22/subtake/internal/frame"
	"github.com/mgpai22/subtake/internal/history"
	"github.com/mgpai22/subtake/internal/media"
	"github.com/mgpai22/subtake/internal/store"
)

func openProjects() (*store.Store, error) {
	projects, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open project database: %w", err)
	}
	return projects, nil
}

// --api-key, then the environment, then the keyring
func apiKey(cmd *cobra.Command, provider string) (string, error) {
	if key, _ := cmd.Flags().GetString("api-key"); key != "" {
		return key, nil
	}
	key, err := config.APIKey(provider)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf(
			"API key is required: use --api-key flag, set %s environment variable, or run `subtake auth set %s`",
			config.EnvVar(provider),
			provider,
		)
	}
	return key, nil
}

// projects are keyed by the absolute video path
func videoPath(path string) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("file not found: %s", path)
	}
	if !media.IsMediaFile(path) {
		return "", fmt.Errorf("unsupported file type: %s (expected audio or video file)", filepath.Ext(path))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return abs, nil
}

// loadHistory returns the saved entries for path, or an empty History sized
// to the probed duration when nothing is saved yet.
func loadHistory(ctx context.Context, projects *store.Store, path string) (*history.History, error) {
	p, err := projects.Load(ctx, path)
	switch {
	case err == nil:
		memory := p.OperationMemory
		if memory == 0 {
			memory = cfg.OperationMemorySize
		}
		return history.New(history.Config{
			Filename:            p.Filename,
			Duration:            p.Duration,
			Entries:             p.Entries,
			Options:             p.Options,
			OperationMemorySize: memory,
			Scheduler:           frame.Inline{},
			Logger:              logger,
		}), nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	info, err := media.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe media: %w", err)
	}
	return history.New(history.Config{
		Filename:            filepath.Base(path),
		Duration:            info.Duration,
		OperationMemorySize: cfg.OperationMemorySize,
		Scheduler:           frame.Inline{},
		Logger:              logger,
	}), nil
}

func saveHistory(ctx context.Context, projects *store.Store, path string, h *history.History) error {
	snap := h.Snapshot()
	err := projects.Save(ctx, &store.Project{
		VideoPath:       path,
		Filename:        snap.Filename,
		Duration:        snap.Duration,
		OperationMemory: h.OperationMemorySize(),
		Entries:         snap.Entries,
		Options:         snap.Options,
	})
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

// <video>.<ext> next to the input unless --output is set
func outputFor(cmd *cobra.Command, input, suffix string) string {
	if out, _ := cmd.Flags().GetString("output"); out != "" {
		return out
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + suffix
}
