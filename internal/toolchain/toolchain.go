// Package toolchain makes sure the Python tensorflowjs converter is usable,
// installing it with pip when it is not.
package toolchain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nchapman/tfjsconv/internal/config"
	"github.com/nchapman/tfjsconv/internal/fileutil"
	"github.com/nchapman/tfjsconv/internal/ui"
)

// ErrUnavailable is returned when the converter toolchain cannot be used,
// even after an install attempt.
var ErrUnavailable = errors.New("converter toolchain unavailable")

const (
	ConverterBinary = "tensorflowjs_converter"
	stateFile       = "toolchain.json"
)

// probeScript imports both libraries and prints their versions, one per line.
const probeScript = "import tensorflow as tf, tensorflowjs as tfjs; print(tf.__version__); print(tfjs.__version__)"

type VersionInfo struct {
	Tensorflow    string `json:"tensorflow"`
	TensorflowJS  string `json:"tensorflowjs"`
	Python        string `json:"python"`
	ConverterPath string `json:"converter_path,omitempty"`
	DetectedAt    string `json:"detected_at"`
	// Installed is set when this run had to install the packages.
	Installed bool `json:"-"`
}

type Toolchain struct {
	cfg    config.Toolchain
	mode   string
	runner Runner
	// InstallOutput receives pip output. Defaults to io.Discard.
	InstallOutput io.Writer
	// OnInstall is called right before pip runs.
	OnInstall func(packages []string)
}

func New(cfg *config.Config, runner Runner) *Toolchain {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Toolchain{
		cfg:    cfg.Toolchain,
		mode:   cfg.Converter.Mode,
		runner: runner,
	}
}

// Probe checks that the python interpreter can import tensorflow and
// tensorflowjs, and in cli mode that the converter executable exists.
func (t *Toolchain) Probe(ctx context.Context) (*VersionInfo, error) {
	python, err := t.runner.LookPath(t.cfg.Python)
	if err != nil {
		return nil, fmt.Errorf("%w: python interpreter %q not found", ErrUnavailable, t.cfg.Python)
	}

	out, err := t.runner.Output(ctx, python, "-c", probeScript)
	if err != nil {
		return nil, fmt.Errorf("%w: %s cannot import tensorflow and tensorflowjs: %v", ErrUnavailable, python, err)
	}

	tfVersion, tfjsVersion, err := parseProbeOutput(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	info := &VersionInfo{
		Tensorflow:   tfVersion,
		TensorflowJS: tfjsVersion,
		Python:       python,
		DetectedAt:   time.Now().Format(time.RFC3339),
	}

	if t.mode == config.ModeCLI {
		converter, err := t.converterPath()
		if err != nil {
			return nil, err
		}
		info.ConverterPath = converter
	}

	ui.Debug("Toolchain probe ok", "python", python, "tensorflow", tfVersion, "tensorflowjs", tfjsVersion)
	return info, nil
}

func (t *Toolchain) converterPath() (string, error) {
	name := t.cfg.ConverterPath
	if name == "" {
		name = ConverterBinary
	}
	path, err := t.runner.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s not found", ErrUnavailable, name)
	}
	return path, nil
}

func parseProbeOutput(out []byte) (string, string, error) {
	var versions []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			versions = append(versions, line)
		}
	}
	// Import-time warnings go to stderr, so the last two stdout lines are ours.
	if len(versions) < 2 {
		return "", "", fmt.Errorf("unexpected probe output %q", strings.TrimSpace(string(out)))
	}
	n := len(versions)
	return versions[n-2], versions[n-1], nil
}

// Install runs pip once for the configured packages.
func (t *Toolchain) Install(ctx context.Context) error {
	if len(t.cfg.Packages) == 0 {
		return fmt.Errorf("no packages configured to install")
	}

	python, err := t.runner.LookPath(t.cfg.Python)
	if err != nil {
		return fmt.Errorf("python interpreter %q not found", t.cfg.Python)
	}

	if t.OnInstall != nil {
		t.OnInstall(t.cfg.Packages)
	}

	args := append([]string{"-m", "pip", "install"}, t.cfg.Packages...)
	ui.Debug("Running pip", "python", python, "packages", strings.Join(t.cfg.Packages, " "))

	if err := t.runner.Run(ctx, t.InstallOutput, python, args...); err != nil {
		return fmt.Errorf("pip install %s: %w", strings.Join(t.cfg.Packages, " "), err)
	}
	return nil
}

// Ensure probes the toolchain and, if it is missing, installs it once and
// probes again. There are no further retries.
func (t *Toolchain) Ensure(ctx context.Context) (*VersionInfo, error) {
	info, probeErr := t.Probe(ctx)
	if probeErr == nil {
		t.remember(info)
		return info, nil
	}

	if t.cfg.SkipInstall {
		return nil, probeErr
	}

	ui.Debug("Toolchain probe failed, installing", "err", probeErr)

	if err := t.Install(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	info, err := t.Probe(ctx)
	if err != nil {
		return nil, fmt.Errorf("after install: %w", err)
	}

	info.Installed = true
	t.remember(info)
	return info, nil
}

func (t *Toolchain) remember(info *VersionInfo) {
	if err := SaveVersionInfo(info); err != nil {
		ui.Warn("Failed to save toolchain state", "err", err)
	}
}

func statePath() string {
	return filepath.Join(config.StatePath(), stateFile)
}

// GetInstalledVersion returns the last successfully probed toolchain, or nil
// if none has been recorded.
func GetInstalledVersion() (*VersionInfo, error) {
	data, err := os.ReadFile(statePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var info VersionInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

func SaveVersionInfo(info *VersionInfo) error {
	path := statePath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal toolchain state: %w", err)
	}

	return fileutil.AtomicWriteFile(path, data, 0644)
}
