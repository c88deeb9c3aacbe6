package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mgpai22/subtake/internal/store"
	"github.com/mgpai22/subtake/internal/subtitle"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List saved projects",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

var projectsRemoveCmd = &cobra.Command{
	Use:   "rm [media_file]",
	Short: "Delete the saved project of a video",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsRemove,
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	projectsCmd.AddCommand(projectsRemoveCmd)
}

func runProjects(cmd *cobra.Command, args []string) error {
	projects, err := openProjects()
	if err != nil {
		return err
	}
	defer func() { _ = projects.Close() }()

	list, err := projects.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No saved projects")
		return nil
	}
	for _, p := range list {
		fmt.Printf("%s\n", p.VideoPath)
		fmt.Printf("  %d entries · %s · updated %s\n",
			p.EntryCount,
			subtitle.FormatTime(p.Duration),
			humanize.Time(p.UpdatedAt),
		)
	}
	return nil
}

func runProjectsRemove(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}

	projects, err := openProjects()
	if err != nil {
		return err
	}
	defer func() { _ = projects.Close() }()

	err = projects.Delete(cmd.Context(), path)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no saved project for %s", path)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Deleted project: %s\n", path)
	return nil
}
