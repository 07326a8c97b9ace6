package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aweary/compiler/internal/config"
	"github.com/aweary/compiler/internal/log"
	"github.com/aweary/compiler/internal/scanner"
	"github.com/aweary/compiler/pkg/cache"
	"github.com/aweary/compiler/pkg/compiler"
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build [dir]",
	Short: "Compile every ws module in the project",
	Long: `Compiles every ws module found under the project root into
JavaScript, writing one .js file per module to the configured output
directory. Unchanged modules are served from the artifact cache.`,
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

		summary, err := proj.build()
		if err != nil {
			return err
		}

		for _, line := range summary.Diagnostics {
			fmt.Fprintln(os.Stderr, line)
		}
		if summary.Failed > 0 {
			return fmt.Errorf("build failed: %d module(s) with errors", summary.Failed)
		}

		fmt.Printf("✓ Compiled %d module(s) (%d cached) in %s\n",
			summary.Compiled+summary.Cached, summary.Cached, summary.Duration.Round(time.Millisecond))
		return nil
	},
}

// project carries everything a build needs: the resolved root, the
// effective configuration, the logger and the artifact cache.
type project struct {
	root   string
	cfg    *config.Config
	logger *log.DefaultLogger
	store  *cache.Store // nil when caching is disabled
}

// buildSummary reports what one build pass did.
type buildSummary struct {
	Compiled    int
	Cached      int
	Failed      int
	Duration    time.Duration
	Diagnostics []string
}

// openProject resolves the project root (walking up from dir to find
// wsc.yaml), loads the configuration, applies flag overrides and sets
// up logging and the artifact cache.
func openProject(cmd *cobra.Command, dir string) (*project, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}

	root := absDir
	configPath, err := config.FindProjectConfig(absDir)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		root = filepath.Dir(configPath)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// Command line flags beat both wsc.yaml and the environment.
	flags := cmd.Root().PersistentFlags()
	if flags.Changed("minify") {
		cfg.Minify = flagMinify
	}
	if flags.Changed("no-cache") && flagNoCache {
		cfg.CacheEnabled = false
	}
	if flags.Changed("log-level") && flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flags.Changed("log-json") {
		cfg.LogJSON = flagLogJSON
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := log.Default()
	logger.SetLevel(level)
	logger.SetJSONOutput(cfg.LogJSON)

	p := &project{root: root, cfg: cfg, logger: logger}

	if cfg.CacheEnabled {
		p.store = cache.New(
			cache.WithMaxEntries(cfg.CacheMaxEntries),
			cache.WithPath(filepath.Join(root, ".wsc", "cache.msgpack")),
		)
		if err := p.store.Load(); err != nil {
			logger.Warn("artifact cache unreadable, starting empty", "error", err)
			p.store.Clear()
		}
	}

	logger.Debug("project opened", "root", root, "out_dir", cfg.OutDir, "cache", cfg.CacheEnabled)
	return p, nil
}

// scan returns the project's source modules with the entry module
// first.
func (p *project) scan() ([]scanner.FileInfo, error) {
	opts := scanner.DefaultOptions()
	opts.ExcludeDirs = append(opts.ExcludeDirs, p.cfg.OutDir)

	files, err := scanner.New(opts).Scan(p.root)
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}

	for i, f := range files {
		if f.Path == p.cfg.Entry {
			entry := files[i]
			copy(files[1:i+1], files[:i])
			files[0] = entry
			return files, nil
		}
	}
	p.logger.Debug("entry module not found", "entry", p.cfg.Entry)
	return files, nil
}

// build runs a full pass: scan, compile (or reuse cached artifacts),
// write outputs and flush the cache.
func (p *project) build() (*buildSummary, error) {
	files, err := p.scan()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s modules found under %s", scanner.SourceExt, p.root)
	}

	summary, err := p.buildFiles(files)
	if err != nil {
		return nil, err
	}
	p.flushCache()

	if p.store != nil {
		st := p.store.Stats()
		p.logger.Debug("cache summary",
			"entries", st.Entries,
			"hits", st.Hits,
			"misses", st.Misses,
			"hit_rate", fmt.Sprintf("%.2f", p.store.HitRate()))
	}
	return summary, nil
}

// buildFiles compiles the given modules in order. Diagnostics are
// collected rather than printed so callers control when they reach the
// terminal.
func (p *project) buildFiles(files []scanner.FileInfo) (*buildSummary, error) {
	start := time.Now()
	summary := &buildSummary{}

	for _, f := range files {
		content, err := os.ReadFile(f.FullPath)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.Path, err)
		}
		src := string(content)
		hash := compiler.HashSource(src)

		if p.store != nil {
			if art, ok := p.store.Get(f.Path, hash); ok {
				summary.Diagnostics = append(summary.Diagnostics, renderArtifactDiagnostics(f.Path, art)...)
				if art.HasErrors() {
					summary.Failed++
				} else {
					if err := p.writeOutput(f.Path, art.JS); err != nil {
						return nil, err
					}
					summary.Cached++
				}
				p.logger.Debug("cache hit", "module", f.Path)
				continue
			}
		}

		res, err := compiler.Compile(f.Path, src, compiler.Options{Minify: p.cfg.Minify})
		if err != nil {
			return nil, fmt.Errorf("compiling %s: %w", f.Path, err)
		}
		summary.Diagnostics = append(summary.Diagnostics, res.RenderDiagnostics()...)

		if p.store != nil {
			p.store.Put(f.Path, hash, res.Artifact)
		}
		if res.HasErrors() {
			summary.Failed++
			p.logger.Debug("module failed", "module", f.Path)
			continue
		}
		if err := p.writeOutput(f.Path, res.Artifact.JS); err != nil {
			return nil, err
		}
		summary.Compiled++
		p.logger.Debug("module compiled", "module", f.Path)
	}

	summary.Duration = time.Since(start)
	p.logger.Info("build finished",
		"compiled", summary.Compiled,
		"cached", summary.Cached,
		"failed", summary.Failed,
		"ms", summary.Duration.Milliseconds())
	return summary, nil
}

// writeOutput writes one compiled module under the output directory,
// mirroring the source tree layout.
func (p *project) writeOutput(relPath, js string) error {
	outPath := p.outputPath(relPath)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(outPath, []byte(js), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}

// outputPath maps a relative source path to its compiled .js path.
func (p *project) outputPath(relPath string) string {
	rel := strings.TrimSuffix(filepath.FromSlash(relPath), scanner.SourceExt) + ".js"
	return filepath.Join(p.root, p.cfg.OutDir, rel)
}

// flushCache persists the artifact cache, logging instead of failing
// the build when the write goes wrong.
func (p *project) flushCache() {
	if p.store == nil {
		return
	}
	if err := p.store.Flush(); err != nil {
		p.logger.Warn("failed to persist artifact cache", "error", err)
	}
}

// renderArtifactDiagnostics formats diagnostics that came out of the
// cache. The source is not reread, so there is no caret context.
func renderArtifactDiagnostics(path string, art compiler.Artifact) []string {
	var lines []string
	for _, d := range art.Diagnostics {
		line := fmt.Sprintf("%s:%d:%d: %s: %s", path, d.Line, d.Column, d.Severity, d.Message)
		if d.Help != "" {
			line += fmt.Sprintf("\nhelp: %s", d.Help)
		}
		lines = append(lines, line)
	}
	return lines
}

func init() {
	RootCmd.AddCommand(buildCmd)
}
