package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nchapman/tfjsconv/internal/config"
	"github.com/nchapman/tfjsconv/internal/fileutil"
	"github.com/nchapman/tfjsconv/internal/logs"
	"github.com/nchapman/tfjsconv/internal/toolchain"
	"github.com/nchapman/tfjsconv/internal/ui"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:     "setup",
	Short:   "Check and install the converter toolchain",
	GroupID: "setup",
	Long: `Check that the Python converter toolchain is usable and that the
configured model paths look right. Missing tensorflow and tensorflowjs
packages are installed with pip unless --skip-install is given.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			ui.Fatal("Failed to load config: %v", err)
		}
		if skipInstallFlag {
			cfg.Toolchain.SkipInstall = true
		}

		tc := toolchain.New(cfg, nil)
		bootstrapLog, err := logs.NewRotatingWriter(logs.BootstrapLogPath())
		if err == nil {
			defer bootstrapLog.Close()
			tc.InstallOutput = bootstrapLog
		}

		var s *ui.Spinner
		tc.OnInstall = func(packages []string) {
			s = ui.NewSpinner()
			s.Start(fmt.Sprintf("Installing %s", strings.Join(packages, " ")))
		}

		info, err := tc.Ensure(cmd.Context())
		if s != nil {
			if err != nil {
				s.Stop(false, "Install failed")
			} else {
				s.Stop(true, "Packages installed")
			}
		}

		if code := reportSetup(os.Stdout, cfg, info, err); code != 0 {
			os.Exit(code)
		}
	},
}

// reportSetup prints the toolchain and path checks and returns the exit code.
func reportSetup(w io.Writer, cfg *config.Config, info *toolchain.VersionInfo, ensureErr error) int {
	fmt.Fprintln(w, ui.Header("Converter toolchain"))
	if ensureErr != nil {
		fmt.Fprintf(w, "  %s %v\n", ui.ErrorMsg(ui.IconCross), ensureErr)
		install := ui.Keyword(cfg.Toolchain.Python + " -m pip install " + strings.Join(cfg.Toolchain.Packages, " "))
		if cfg.Toolchain.SkipInstall {
			fmt.Fprintf(w, "\n  Install skipped. Install with: %s\n", install)
			return 1
		}
		fmt.Fprintf(w, "\n  Install manually with: %s\n", install)
		fmt.Fprintf(w, "  Pip output: %s\n", ui.Muted(logs.BootstrapLogPath()))
		return 1
	}
	fmt.Fprintf(w, "  %s python       %s\n", ui.Success(ui.IconCheck), ui.Muted(info.Python))
	fmt.Fprintf(w, "  %s tensorflow   %s\n", ui.Success(ui.IconCheck), info.Tensorflow)
	fmt.Fprintf(w, "  %s tensorflowjs %s\n", ui.Success(ui.IconCheck), info.TensorflowJS)
	if info.ConverterPath != "" {
		fmt.Fprintf(w, "  %s converter    %s\n", ui.Success(ui.IconCheck), ui.Muted(info.ConverterPath))
	}
	fmt.Fprintf(w, "  Mode: %s\n", ui.Value(cfg.Converter.Mode))

	fmt.Fprintln(w)
	fmt.Fprintln(w, ui.Header("Model paths"))
	reportPath(w, "Input ", cfg.Model.Input, true)
	reportPath(w, "Output", cfg.Model.Output, false)

	return 0
}

func reportPath(w io.Writer, label, path string, required bool) {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		size, _ := fileutil.DirSize(path)
		fmt.Fprintf(w, "  %s %s %s (%s)\n", ui.Success(ui.IconCheck), label, path, ui.FormatBytes(size))
	case err == nil:
		fmt.Fprintf(w, "  %s %s %s (%s)\n", ui.Success(ui.IconCheck), label, path, ui.FormatBytes(info.Size()))
	case required:
		fmt.Fprintf(w, "  %s %s %s %s\n", ui.Warning("!"), label, path, ui.Muted("(missing)"))
	default:
		fmt.Fprintf(w, "  %s %s %s %s\n", ui.Muted("-"), label, path, ui.Muted("(created on first conversion)"))
	}
}

func init() {
	rootCmd.AddCommand(setupCmd)

	setupCmd.Flags().BoolVar(&skipInstallFlag, "skip-install", false, "Only check, do not install missing packages")
}
