package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgpai22/subtake/internal/blob"
	"github.com/mgpai22/subtake/internal/frame"
	"github.com/mgpai22/subtake/internal/history"
	"github.com/mgpai22/subtake/internal/logging"
	"github.com/mgpai22/subtake/internal/tui"
	"github.com/mgpai22/subtake/internal/workspace"
)

var editCmd = &cobra.Command{
	Use:   "edit [media_file]",
	Short: "Open a video in the terminal subtitle editor",
	Long: `Open a video in the subtitle editor. Saved entries for the video are
restored, and its waveform is drawn in the background.

Keys:
  a         append an untimed entry
  n         preview a range after the last entry; n again adds it
  e, enter  edit the selected entry's text
  t         edit the selected entry's time range
  [ ]       nudge the selected entry by 0.1s
  ctrl+z    undo
  ctrl+y    redo
  ctrl+s    save
  q         close the project

Examples:
  subtake edit video.mp4
  subtake edit video.mp4 --no-autosave`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)

	editCmd.Flags().
		Bool("no-autosave", false, "Only save on ctrl+s")
	editCmd.Flags().
		Bool("free-length", false, "Nudging an entry moves its begin time only")
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	path, err := videoPath(args[0])
	if err != nil {
		return err
	}
	noAutoSave, _ := cmd.Flags().GetBool("no-autosave")
	freeLength, _ := cmd.Flags().GetBool("free-length")

	ticker := frame.NewTicker(cfg.FrameRate)
	ticker.Start(ctx)
	defer ticker.Stop()

	projects, err := openProjects()
	if err != nil {
		return err
	}
	defer func() { _ = projects.Close() }()

	pipeline, err := newPipeline(ticker, cfg.Wave.Spectrum)
	if err != nil {
		return err
	}
	reducer := workspace.NewReducer(blob.NewRegistry(), ticker, logger)
	reducer.OperationMemorySize = cfg.OperationMemorySize

	s := workspace.NewStore(workspace.Options{
		Reducer:  reducer,
		Source:   workspace.FFmpegSource{},
		Pipeline: pipeline,
		Projects: projects,
		Logger:   logger,
	})
	// background work must end before the database closes
	var bg sync.WaitGroup
	defer s.Wait()
	defer bg.Wait()
	defer cancel()

	autoSave := cfg.Editor.AutoSave && !noAutoSave
	if autoSave {
		saver := newAutoSaver(s, logger)
		unsubscribe := s.Subscribe(saver.follow)
		defer unsubscribe()
		bg.Add(1)
		go func() {
			defer bg.Done()
			saver.run(ctx)
		}()
	}

	if err := s.Open(ctx, path); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	return tui.Run(ctx, s, tui.Options{
		Debounce:   time.Duration(cfg.Editor.DebounceMS) * time.Millisecond,
		LockLength: cfg.Editor.LockLength && !freeLength,
		AutoSave:   autoSave,
		Logger:     logger,
	})
}

// autoSaver saves the project after each notified batch of edits, one save
// at a time; edits made during a save trigger one more.
type autoSaver struct {
	store  *workspace.Store
	logger *logging.Logger
	kick   chan struct{}

	mu      sync.Mutex
	history *history.History
	sub     history.Subscription
}

func newAutoSaver(s *workspace.Store, logger *logging.Logger) *autoSaver {
	return &autoSaver{
		store:  s,
		logger: logging.Or(logger).Named("autosave"),
		kick:   make(chan struct{}, 1),
	}
}

// follow tracks the open workspace's History across state changes.
func (a *autoSaver) follow(st workspace.State) {
	var h *history.History
	if st.Workspace != nil {
		h = st.Workspace.History
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if h == a.history {
		return
	}
	if a.history != nil {
		a.history.Unsubscribe(a.sub)
	}
	a.history = h
	if h != nil {
		a.sub = h.Subscribe(func(*history.History) { a.poke() })
	}
}

func (a *autoSaver) poke() {
	select {
	case a.kick <- struct{}{}:
	default:
	}
}

func (a *autoSaver) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.kick:
		}

		saveCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := a.store.Save(saveCtx)
		cancel()
		switch {
		case err == nil:
			a.logger.Debugw("project saved")
		case errors.Is(err, workspace.ErrNoProject), errors.Is(err, context.Canceled):
		default:
			a.logger.Warnw("autosave failed", "error", err)
		}
	}
}
