package cmd

import (
	"fmt"

	"github.com/nchapman/tfjsconv/internal/config"
	"github.com/nchapman/tfjsconv/internal/logs"
	"github.com/nchapman/tfjsconv/internal/toolchain"
	"github.com/nchapman/tfjsconv/internal/ui"
	"github.com/nchapman/tfjsconv/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show tfjsconv version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(ui.Bold(version.String()))

		installed, _ := toolchain.GetInstalledVersion()
		if installed != nil {
			fmt.Printf("tensorflow %s, tensorflowjs %s\n", installed.Tensorflow, installed.TensorflowJS)
		} else {
			fmt.Println(ui.Muted("Converter toolchain not checked yet (run tfjsconv setup)"))
		}

		fmt.Println()
		fmt.Println(ui.Bold("Paths:"))
		fmt.Printf("  Config:    %s\n", ui.Muted(config.ConfigPath()))
		fmt.Printf("  Logs:      %s\n", ui.Muted(config.LogsPath()))
		fmt.Printf("  Bootstrap: %s\n", ui.Muted(logs.BootstrapLogPath()))
		if installed != nil {
			fmt.Printf("  Python:    %s\n", ui.Muted(installed.Python))
			if installed.ConverterPath != "" {
				fmt.Printf("  Converter: %s\n", ui.Muted(installed.ConverterPath))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
