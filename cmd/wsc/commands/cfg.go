package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aweary/compiler/internal/scanner"
	"github.com/aweary/compiler/pkg/cfg"
	"github.com/aweary/compiler/pkg/compiler"
)

// cfgCmd represents the cfg command
var cfgCmd = &cobra.Command{
	Use:   "cfg <file>",
	Short: "Show the control flow graph of a module's definitions",
	Long: `Compiles a single ws module and prints the lowered control flow
graph of each function and component: one line per node, one line per
edge. Useful when debugging why the emitted JavaScript took a shape.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filePath := args[0]

		info, err := os.Stat(filePath)
		if err != nil {
			return fmt.Errorf("stat file: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("path is a directory, expected a file: %s", filePath)
		}
		if filepath.Ext(filePath) != scanner.SourceExt {
			return fmt.Errorf("unsupported file type: %s (only %s files supported)", filePath, scanner.SourceExt)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", filePath, err)
		}

		noFold, _ := cmd.Flags().GetBool("no-fold")
		res, err := compiler.Compile(filePath, string(content), compiler.Options{NoFold: noFold})
		if err != nil {
			return fmt.Errorf("compiling %s: %w", filePath, err)
		}

		for _, line := range res.RenderDiagnostics() {
			fmt.Fprintln(os.Stderr, line)
		}
		if res.HasErrors() {
			return fmt.Errorf("%s failed to compile", filePath)
		}

		fnName, _ := cmd.Flags().GetString("fn")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		var names []string
		if fnName != "" {
			if res.GraphFor(fnName) == nil {
				if suggestion := closestName(fnName, res.DefinitionNames()); suggestion != "" {
					return fmt.Errorf("function %q not found in %s\nDid you mean %q?", fnName, filePath, suggestion)
				}
				return fmt.Errorf("function %q not found in %s", fnName, filePath)
			}
			names = []string{fnName}
		} else {
			names = res.DefinitionNames()
		}

		if jsonOutput {
			infos := make([]cfg.GraphInfo, 0, len(names))
			for _, name := range names {
				if g := res.GraphFor(name); g != nil {
					infos = append(infos, g.ExportInfo(res.Arena, name))
				}
			}
			data, err := json.MarshalIndent(infos, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		for _, name := range names {
			g := res.GraphFor(name)
			if g == nil {
				continue
			}
			fmt.Printf("=== CFG for %s ===\n", name)
			fmt.Print(g.Dump(res.Arena))
			fmt.Println()
		}
		return nil
	},
}

// closestName picks the definition name nearest to the requested one,
// or empty when nothing is close enough to suggest.
func closestName(want string, names []string) string {
	lower := strings.ToLower(want)
	for _, name := range names {
		if strings.ToLower(name) == lower {
			return name
		}
	}
	for _, name := range names {
		if strings.HasPrefix(strings.ToLower(name), lower) || strings.Contains(strings.ToLower(name), lower) {
			return name
		}
	}

	best := ""
	bestDist := 4 // suggestions beyond three edits are noise
	for _, name := range names {
		if d := editDistance(lower, strings.ToLower(name)); d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}

// editDistance is the Levenshtein distance between two strings.
func editDistance(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func init() {
	cfgCmd.Flags().String("fn", "", "Only show the graph for this function or component")
	cfgCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	cfgCmd.Flags().Bool("no-fold", false, "Lower without constant folding")
	RootCmd.AddCommand(cfgCmd)
}
