package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aweary/compiler/internal/log"
	"github.com/aweary/compiler/internal/scanner"
	"github.com/aweary/compiler/pkg/dirty"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Rebuild whenever a ws module changes",
	Long: `Runs a full build, then polls the project for changed modules and
recompiles just those. Deleted modules have their compiled output
removed. Stop with Ctrl-C.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		proj, err := openProject(cmd, dir)
		if err != nil {
			return err
		}
		return runWatch(proj)
	},
}

func runWatch(p *project) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := dirty.New(dirty.WithStatePath(filepath.Join(p.root, ".wsc", "dirty.json")))
	if err := tracker.Load(); err != nil {
		p.logger.Warn("dirty state unreadable, starting fresh", "error", err)
	}

	// Full build first so the output directory starts consistent.
	summary, err := p.build()
	if err != nil {
		return err
	}
	reportWatchBuild(summary)

	// Prime the tracker with the current content so the first poll only
	// sees real edits.
	if _, err := p.checkChanged(tracker); err != nil {
		return err
	}

	interval := time.Duration(p.cfg.WatchIntervalMS) * time.Millisecond
	fmt.Printf("Watching %s for changes (every %s, Ctrl-C to stop)\n", p.root, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := tracker.Flush(); err != nil {
				p.logger.Warn("failed to persist dirty state", "error", err)
			}
			p.flushCache()
			fmt.Println("\nWatch stopped.")
			return nil
		case <-ticker.C:
			changed, err := p.checkChanged(tracker)
			if err != nil {
				p.logger.Error("poll failed", "error", err)
				continue
			}
			p.removeDeletedOutputs(tracker, changed.all)
			if len(changed.files) == 0 {
				continue
			}

			summary, err := p.rebuild(changed.files)
			if err != nil {
				p.logger.Error("rebuild failed", "error", err)
				continue
			}
			reportWatchBuild(summary)
		}
	}
}

// changedSet is one poll's outcome: the modules that changed and every
// module currently present.
type changedSet struct {
	files []scanner.FileInfo
	all   []string
}

// checkChanged scans the project and returns the modules whose content
// hash moved since the last poll.
func (p *project) checkChanged(tracker *dirty.Tracker) (changedSet, error) {
	files, err := p.scan()
	if err != nil {
		return changedSet{}, err
	}

	set := changedSet{all: make([]string, 0, len(files))}
	for _, f := range files {
		set.all = append(set.all, f.Path)
		content, err := os.ReadFile(f.FullPath)
		if err != nil {
			// The file may have vanished between scan and read.
			continue
		}
		if tracker.Check(f.Path, content) {
			set.files = append(set.files, f)
		}
	}
	return set, nil
}

// removeDeletedOutputs drops tracker entries for deleted modules and
// removes their stale .js outputs.
func (p *project) removeDeletedOutputs(tracker *dirty.Tracker, present []string) {
	for _, gone := range tracker.Prune(present) {
		if p.store != nil {
			p.store.Delete(gone)
		}
		out := p.outputPath(gone)
		if err := os.Remove(out); err == nil {
			p.logger.Info("removed output for deleted module", "module", gone)
		}
	}
}

// rebuild compiles just the given modules, showing a spinner while the
// terminal waits.
func (p *project) rebuild(files []scanner.FileInfo) (*buildSummary, error) {
	var spinner *log.ProgressSpinner
	if log.IsTTY() && !p.cfg.LogJSON {
		spinner = log.NewProgressSpinner(fmt.Sprintf("Compiling %d module(s)...", len(files)))
		spinner.Start()
	}

	summary, err := p.buildFiles(files)

	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return nil, err
	}
	p.flushCache()
	return summary, nil
}

// reportWatchBuild prints one rebuild's outcome.
func reportWatchBuild(summary *buildSummary) {
	for _, line := range summary.Diagnostics {
		fmt.Fprintln(os.Stderr, line)
	}
	total := summary.Compiled + summary.Cached
	if summary.Failed > 0 {
		fmt.Printf("✗ Build finished with errors: %d module(s) failed, %d compiled\n", summary.Failed, total)
		return
	}
	fmt.Printf("✓ Compiled successfully (%d module(s) in %s)\n", total, summary.Duration.Round(time.Millisecond))
}

func init() {
	RootCmd.AddCommand(watchCmd)
}
