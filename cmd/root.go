package cmd

import (
	"fmt"
	"os"

	"github.com/nchapman/tfjsconv/internal/config"
	"github.com/nchapman/tfjsconv/internal/ui"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "tfjsconv",
	Short: "Convert Keras models to TensorFlow.js",
	Long: `tfjsconv converts a trained Keras model (.keras archive, legacy .h5 file
or SavedModel directory) into the TensorFlow.js layers format so it can be
served to a browser.

Run without arguments to convert the configured model, installing the
tensorflow and tensorflowjs Python packages first if they are missing.`,
	Args: cobra.NoArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.InitLogger(verbose)
		if err := config.EnsureDirectories(); err != nil {
			fmt.Printf("Error: Failed to create directories: %v\n", err)
			os.Exit(1)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if code := runConvert(cmd.Context(), nil); code != 0 {
			os.Exit(code)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "model", Title: "Model Commands:"},
		&cobra.Group{ID: "setup", Title: "Setup Commands:"},
	)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}
