package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/nchapman/tfjsconv/internal/config"
	"github.com/nchapman/tfjsconv/internal/convert"
	"github.com/nchapman/tfjsconv/internal/keras"
	"github.com/nchapman/tfjsconv/internal/logs"
	"github.com/nchapman/tfjsconv/internal/tfjs"
	"github.com/nchapman/tfjsconv/internal/toolchain"
	"github.com/nchapman/tfjsconv/internal/ui"
	"github.com/spf13/cobra"
)

var (
	quantizeFlag    string
	shardSizeFlag   int64
	modeFlag        string
	skipInstallFlag bool
)

var convertCmd = &cobra.Command{
	Use:     "convert [input] [output]",
	Short:   "Convert a Keras model to TensorFlow.js",
	GroupID: "model",
	Long: `Convert a Keras model to the TensorFlow.js layers format.

Input and output default to the configured paths. The tensorflow and
tensorflowjs Python packages are installed with pip if they are missing.

Examples:
  tfjsconv convert                                   # Use configured paths
  tfjsconv convert model.keras web/model_tfjs        # Explicit paths
  tfjsconv convert model.h5 out --quantize float16   # Halve weight size
  tfjsconv convert --mode cli --shard-size 8388608   # Use tensorflowjs_converter`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if code := runConvert(cmd.Context(), args); code != 0 {
			os.Exit(code)
		}
	},
}

// bootstrapper is the part of the toolchain a conversion needs.
type bootstrapper interface {
	Ensure(ctx context.Context) (*toolchain.VersionInfo, error)
}

// conversion is one bootstrap plus conversion run.
type conversion struct {
	opts      convert.Options
	toolchain bootstrapper
	pipeline  *convert.Pipeline
	out       io.Writer
	// logPath is mentioned on failure so the converter output can be found.
	logPath string
	// skipInstall means Ensure only checked the toolchain and never ran pip.
	skipInstall bool
}

func runConvert(ctx context.Context, args []string) int {
	cfg, err := loadConvertConfig(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.ErrorMsg("Error:"), err)
		return 1
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	bootstrapLog, err := logs.NewRotatingWriter(logs.BootstrapLogPath())
	if err != nil {
		ui.Warn("Failed to open bootstrap log", "err", err)
	} else {
		defer bootstrapLog.Close()
	}

	convertLogPath := logs.ConvertLogPath(cfg.Model.Input)
	convertLog, err := logs.NewRotatingWriter(convertLogPath)
	if err != nil {
		ui.Warn("Failed to open converter log", "err", err)
		convertLogPath = ""
	} else {
		defer convertLog.Close()
	}

	runner := toolchain.ExecRunner{}

	tc := toolchain.New(cfg, runner)
	if bootstrapLog != nil {
		tc.InstallOutput = bootstrapLog
	}
	tc.OnInstall = func(packages []string) {
		fmt.Printf("Installing required packages: %s\n", strings.Join(packages, " "))
		if bootstrapLog != nil {
			fmt.Printf("  %s\n", ui.Muted("pip output: "+bootstrapLog.Path()))
		}
	}

	opts := convert.Options{
		Input:          cfg.Model.Input,
		Output:         cfg.Model.Output,
		Quantize:       cfg.Converter.Quantize,
		ShardSizeBytes: cfg.Converter.ShardSizeBytes,
	}
	if convertLog != nil {
		opts.Log = convertLog
	}

	c := &conversion{
		opts:      opts,
		toolchain: tc,
		pipeline: &convert.Pipeline{
			Loader:    keras.FileLoader{},
			Converter: tfjs.NewConverter(cfg, runner),
			Out:       os.Stdout,
			Step:      ui.WithSpinner,
		},
		out:         os.Stdout,
		logPath:     convertLogPath,
		skipInstall: cfg.Toolchain.SkipInstall,
	}

	return c.run(ctx)
}

// loadConvertConfig reads the config file and environment, then applies the
// command line. Validation runs once at the end so a flag can correct an
// invalid file or environment setting.
func loadConvertConfig(args []string) (*config.Config, error) {
	cfg, err := config.LoadUnvalidated()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyConvertFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyConvertFlags layers positional arguments and flags over the loaded
// config, then validates the result.
func applyConvertFlags(cfg *config.Config, args []string) error {
	if len(args) > 0 {
		cfg.Model.Input = args[0]
	}
	if len(args) > 1 {
		cfg.Model.Output = args[1]
	}
	if quantizeFlag != "" {
		if quantizeFlag == "none" {
			cfg.Converter.Quantize = ""
		} else {
			cfg.Converter.Quantize = quantizeFlag
		}
	}
	if shardSizeFlag > 0 {
		cfg.Converter.ShardSizeBytes = shardSizeFlag
	}
	if modeFlag != "" {
		cfg.Converter.Mode = modeFlag
	}
	if skipInstallFlag {
		cfg.Toolchain.SkipInstall = true
	}

	if !slices.Contains(config.QuantizeModes, cfg.Converter.Quantize) {
		return fmt.Errorf("unsupported quantization %q (use float16, uint8, uint16 or none)", cfg.Converter.Quantize)
	}
	return cfg.Validate()
}

// run returns the process exit code: 0 only when both the bootstrap and the
// conversion succeed.
func (c *conversion) run(ctx context.Context) int {
	fmt.Fprintln(c.out, ui.Header("Keras to TensorFlow.js Model Converter"))
	fmt.Fprintln(c.out, ui.Muted(strings.Repeat("=", 40)))

	info, err := c.toolchain.Ensure(ctx)
	if err != nil {
		if c.skipInstall {
			fmt.Fprintf(c.out, "%s Required packages are not available (install skipped): %v\n", ui.ErrorMsg(ui.IconCross), err)
		} else {
			fmt.Fprintf(c.out, "%s Failed to install required packages: %v\n", ui.ErrorMsg(ui.IconCross), err)
		}
		if errors.Is(err, toolchain.ErrUnavailable) {
			fmt.Fprintf(c.out, "\nRun %s for details.\n", ui.Keyword("tfjsconv setup"))
		}
		return 1
	}
	if info.Installed {
		fmt.Fprintf(c.out, "%s Packages installed successfully\n", ui.Success(ui.IconCheck))
	} else {
		fmt.Fprintf(c.out, "%s Required packages already installed\n", ui.Success(ui.IconCheck))
	}
	fmt.Fprintln(c.out)

	res, err := c.pipeline.Run(ctx, c.opts)
	if err != nil {
		fmt.Fprintf(c.out, "%s Error during conversion: %v\n", ui.ErrorMsg(ui.IconCross), err)
		if c.logPath != "" && !errors.Is(err, convert.ErrInputNotFound) {
			fmt.Fprintf(c.out, "  %s\n", ui.Muted("Converter output: "+c.logPath))
		}
		return 1
	}

	fmt.Fprintf(c.out, "\n%s in %s\n", ui.Success("Conversion completed successfully!"), res.Elapsed.Round(time.Millisecond))
	fmt.Fprintln(c.out, ui.ConverterCredit(info.TensorflowJS))
	fmt.Fprint(c.out, ui.RenderMarkdown(nextSteps(c.opts.Output)))
	return 0
}

func nextSteps(output string) string {
	return fmt.Sprintf(`## Next steps

1. Serve `+"`%s`"+` with your web application
2. Load it with `+"`tf.loadLayersModel('/path/to/model.json')`"+`
3. Test the application by uploading an image
`, output)
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&quantizeFlag, "quantize", "q", "", "Quantize weights: float16, uint8, uint16 or none")
	convertCmd.Flags().Int64Var(&shardSizeFlag, "shard-size", 0, "Weight shard size in bytes (default from config)")
	convertCmd.Flags().StringVar(&modeFlag, "mode", "", "Converter mode: python or cli (default from config)")
	convertCmd.Flags().BoolVar(&skipInstallFlag, "skip-install", false, "Fail instead of installing missing packages")
}
