package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nchapman/tfjsconv/internal/config"
	"github.com/nchapman/tfjsconv/internal/convert"
	"github.com/nchapman/tfjsconv/internal/keras"
	"github.com/nchapman/tfjsconv/internal/tfjs"
	"github.com/nchapman/tfjsconv/internal/ui"
	"github.com/spf13/cobra"
)

var showDigests bool

var inspectCmd = &cobra.Command{
	Use:     "inspect [input]",
	Short:   "Show a model's layer summary",
	GroupID: "model",
	Long: `Print the layer summary of a Keras model without converting it.

Passing a converted TensorFlow.js directory lists its files and weight
manifest instead. No Python packages are needed.

Examples:
  tfjsconv inspect                          # Configured input model
  tfjsconv inspect model.keras              # A specific model
  tfjsconv inspect web/rice_efficientnet_tfjs
  tfjsconv inspect web/rice_efficientnet_tfjs --digest`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := ""
		if len(args) > 0 {
			path = args[0]
		} else {
			cfg, err := config.Load()
			if err != nil {
				ui.Fatal("Failed to load config: %v", err)
			}
			path = cfg.Model.Input
		}

		if err := inspect(cmd.Context(), os.Stdout, path, showDigests); err != nil {
			ui.Fatal("%v", err)
		}
	},
}

// inspect prints a Keras model summary, or the file listing of a converted
// TensorFlow.js directory.
func inspect(ctx context.Context, w io.Writer, path string, digests bool) error {
	if isConvertedDir(path) {
		artifact, err := tfjs.ListArtifacts(path)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, ui.Header(path))
		convert.PrintArtifact(w, artifact)
		if digests {
			return printDigests(ctx, w, artifact)
		}
		return nil
	}

	model, err := keras.Load(path)
	if err != nil {
		return err
	}
	fmt.Fprint(w, model.Summary())
	return nil
}

func printDigests(ctx context.Context, w io.Writer, artifact *tfjs.Artifact) error {
	digests, err := artifact.Digests(ctx)
	if err != nil {
		return fmt.Errorf("digest files: %w", err)
	}

	fmt.Fprintf(w, "\n%s\n", ui.Bold("Digests:"))
	table := ui.NewTable().Indent(4).
		AddColumn("FILE", 32, ui.AlignLeft).
		AddColumn("SHA256", 64, ui.AlignLeft)
	for _, e := range artifact.Entries {
		if d, ok := digests[e.Name]; ok {
			table.AddRow(e.Name, d.Encoded())
		}
	}
	fmt.Fprint(w, table.Render())
	return nil
}

func isConvertedDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	_, err = os.Stat(filepath.Join(path, tfjs.ManifestFile))
	return err == nil
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&showDigests, "digest", false, "Print sha256 digests of converted files")
}
