package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"tsumugi/internal/review"
	"tsumugi/internal/snapshots"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var startChapter int
	var autoApprove bool

	cmd := &cobra.Command{
		Use:   "process <document-id> <chapter-file>...",
		Short: "Process chapter files into continuity snapshots",
		Long: `Process runs each chapter file through extraction, consolidation, delta
computation, and review, persisting one snapshot per chapter. When every
chapter is approved the document's continuity pack is exported.

Chapter numbering continues from the document's last persisted snapshot
unless --start-chapter is given.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			documentID := args[0]
			files := args[1:]

			// One writer per library root.
			lock := flock.New(filepath.Join(cfg.Paths.LibraryDir, ".tsumugi.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire library lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another tsumugi process is using %s", cfg.Paths.LibraryDir)
			}
			defer lock.Unlock()

			first := startChapter
			if first <= 0 {
				first, err = nextChapter(cmd.Context(), cfg.Paths.LibraryDir, documentID)
				if err != nil {
					return err
				}
			}

			chapters := make([]review.Chapter, 0, len(files))
			for i, file := range files {
				text, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read chapter file %s: %w", file, err)
				}
				chapters = append(chapters, review.Chapter{Number: first + i, Text: string(text)})
			}

			reviewer := review.Reviewer(review.AutoApprover{})
			if !autoApprove && !cfg.Workflow.AutoApprove && isInteractive() {
				reviewer = newInteractiveReviewer(cmd.InOrStdin(), cmd.OutOrStdout())
			}

			workflow := ctx.newWorkflow(cfg, reviewer, logger)
			pack, err := workflow.ProcessDocument(cmd.Context(), documentID, chapters)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Processed %d chapter(s) of %s.\n", len(chapters), documentID)
			fmt.Fprintf(out, "Continuity pack: %s (series %q, volume %d, %d characters)\n",
				snapshots.PackPath(cfg.Paths.LibraryDir, documentID),
				pack.SeriesTitle, pack.Volume, len(pack.Roster))
			return nil
		},
	}

	cmd.Flags().IntVar(&startChapter, "start-chapter", 0, "First chapter number (default: continue after the last snapshot)")
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Persist every chapter without interactive review")
	return cmd
}

func nextChapter(ctx context.Context, root, documentID string) (int, error) {
	store, err := snapshots.Open(root, documentID)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	latest, err := store.Latest(ctx)
	if err != nil {
		return 0, err
	}
	if latest == nil {
		return 1, nil
	}
	return latest.Chapter + 1, nil
}

func isInteractive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
