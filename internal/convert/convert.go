// Package convert runs the Keras to TensorFlow.js conversion procedure:
// check the input, load and summarise it, create the output directory, run
// the converter and report what it wrote.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nchapman/tfjsconv/internal/keras"
	"github.com/nchapman/tfjsconv/internal/tfjs"
	"github.com/nchapman/tfjsconv/internal/ui"
)

var (
	ErrInputNotFound = errors.New("input file not found")
	// ErrPanic marks a loader or converter that panicked instead of
	// returning an error.
	ErrPanic = errors.New("unexpected failure")
)

type Loader interface {
	Load(path string) (*keras.Model, error)
}

type Options struct {
	Input          string
	Output         string
	Quantize       string
	ShardSizeBytes int64
	// Log receives converter subprocess output.
	Log io.Writer
}

type Result struct {
	Model    *keras.Model
	Artifact *tfjs.Artifact
	Elapsed  time.Duration
}

type Pipeline struct {
	Loader    Loader
	Converter tfjs.Converter
	// Out receives progress text. Defaults to io.Discard.
	Out io.Writer
	// Step wraps long-running steps, e.g. with a spinner. Defaults to
	// calling fn directly.
	Step func(message string, fn func() error) error
}

func (p *Pipeline) out() io.Writer {
	if p.Out == nil {
		return io.Discard
	}
	return p.Out
}

func (p *Pipeline) step(message string, fn func() error) error {
	if p.Step == nil {
		return fn()
	}
	return p.Step(message, fn)
}

// Run performs one conversion. Every failure, including a panic inside the
// loader or converter, comes back as an error.
func (p *Pipeline) Run(ctx context.Context, opts Options) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	start := time.Now()
	w := p.out()

	fmt.Fprintf(w, "Loading Keras model from: %s\n", ui.Value(opts.Input))

	if _, err := os.Stat(opts.Input); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, opts.Input)
		}
		return nil, fmt.Errorf("stat input: %w", err)
	}

	model, err := p.Loader.Load(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	ui.Debug("Model loaded", "format", model.Format, "layers", model.TotalLayers())
	fmt.Fprintf(w, "%s Keras model loaded successfully\n", ui.Success(ui.IconCheck))

	fmt.Fprintf(w, "\n%s\n", ui.Bold("Model Summary:"))
	fmt.Fprint(w, model.Summary())

	fmt.Fprintf(w, "\nConverting to TensorFlow.js format...\n")
	fmt.Fprintf(w, "Output path: %s\n", ui.Value(opts.Output))

	if err := os.MkdirAll(opts.Output, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	req := tfjs.Request{
		Input:          opts.Input,
		InputFormat:    model.Format,
		Output:         opts.Output,
		Quantize:       opts.Quantize,
		ShardSizeBytes: opts.ShardSizeBytes,
		Log:            opts.Log,
	}
	err = p.step("Converting model", func() error {
		return p.Converter.Convert(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}

	artifact, err := tfjs.ListArtifacts(opts.Output)
	if err != nil {
		return nil, fmt.Errorf("list output: %w", err)
	}

	fmt.Fprintf(w, "%s Model converted successfully!\n", ui.Success(ui.IconCheck))
	fmt.Fprintf(w, "%s TensorFlow.js model saved to: %s\n", ui.Success(ui.IconCheck), ui.Value(opts.Output))

	PrintArtifact(w, artifact)

	return &Result{
		Model:    model,
		Artifact: artifact,
		Elapsed:  time.Since(start),
	}, nil
}

// PrintArtifact lists generated files with exact byte counts.
func PrintArtifact(w io.Writer, a *tfjs.Artifact) {
	fmt.Fprintf(w, "\n%s\n", ui.Bold("Generated files:"))
	if len(a.Entries) == 0 {
		fmt.Fprintf(w, "  %s\n", ui.Muted("(none)"))
		return
	}
	for _, e := range a.Entries {
		if e.IsDir {
			fmt.Fprintf(w, "  - %s/\n", e.Name)
			continue
		}
		fmt.Fprintf(w, "  - %s (%s)\n", e.Name, ui.FormatByteCount(e.Size))
	}

	if m := a.Manifest; m != nil {
		fmt.Fprintf(w, "\n  %s\n", ui.Muted(fmt.Sprintf("%s, %s weight tensors in %s shards, %s total",
			m.Format, ui.FormatCount(m.Tensors), ui.FormatCount(m.Shards), ui.FormatBytes(a.TotalSize()))))
	}
}
