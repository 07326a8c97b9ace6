package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/aweary/compiler/internal/config"
)

// starterModule is the entry module scaffolded into new projects. The
// %s is the project name.
const starterModule = `# Entry module for %s.

pub const limit = 10

pub fn clamp(value) {
	if value > limit {
		return limit
	}
	return value
}

pub component Counter() {
	state count = 0
	count = count + 1
}
`

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Set up a new ws project interactively",
	Long: `Guides you through creating a wsc.yaml configuration and scaffolds a
starter entry module in the given directory (default: the current one).
Pass --yes to accept every default without prompting.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		yes, _ := cmd.Flags().GetBool("yes")
		return runInit(dir, yes)
	},
}

func runInit(dir string, yes bool) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("creating project directory: %w", err)
	}

	name := filepath.Base(root)
	outDir := "dist"
	minify := false
	cacheEnabled := true

	if !yes {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Project name").
					Placeholder(name).
					Value(&name),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}

		form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Output directory for compiled JavaScript").
					Placeholder(outDir).
					Value(&outDir),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}

		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Minify the emitted JavaScript?").
					Affirmative("Minify").
					Negative("Keep it readable").
					Value(&minify),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}

		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Enable the build cache?").
					Description("Unchanged modules are reused from .wsc/cache.msgpack").
					Affirmative("Enable").
					Negative("Disable").
					Value(&cacheEnabled),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
	}

	configPath := filepath.Join(root, config.FileName)
	if _, err := os.Stat(configPath); err == nil {
		if yes {
			return fmt.Errorf("%s already exists (remove it or run without --yes)", config.FileName)
		}
		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	cfg.OutDir = outDir
	cfg.Minify = minify
	cfg.CacheEnabled = cacheEnabled

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	fmt.Println("\n=== Configuration Preview ===")
	fmt.Printf("Project: %s\n", name)
	fmt.Printf("Config path: %s\n", configPath)
	fmt.Printf("Output directory: %s\n", cfg.OutDir)
	fmt.Printf("Entry module: %s\n", cfg.Entry)
	fmt.Printf("Minify: %t\n", cfg.Minify)
	fmt.Printf("Cache: %t\n", cfg.CacheEnabled)
	fmt.Println("=============================")

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Configuration saved to: %s\n", configPath)

	// Reload the saved file to verify it parses.
	if _, err := config.LoadFromFile(configPath); err != nil {
		return fmt.Errorf("loading saved config: %w", err)
	}

	entryPath := filepath.Join(root, cfg.Entry)
	if _, err := os.Stat(entryPath); os.IsNotExist(err) {
		starter := fmt.Sprintf(starterModule, name)
		if err := os.WriteFile(entryPath, []byte(starter), 0o644); err != nil {
			return fmt.Errorf("writing starter module: %w", err)
		}
		fmt.Printf("Created starter module: %s\n", cfg.Entry)
	}

	fmt.Println("\nNext steps:")
	fmt.Println("  wsc build      compile the project")
	fmt.Println("  wsc watch      recompile on every change")
	return nil
}

func init() {
	initCmd.Flags().BoolP("yes", "y", false, "Accept all defaults without prompting")
	RootCmd.AddCommand(initCmd)
}
