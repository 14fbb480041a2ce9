// Package tfjs drives the tensorflowjs converter and inspects what it writes.
package tfjs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nchapman/tfjsconv/internal/config"
	"github.com/nchapman/tfjsconv/internal/keras"
	"github.com/nchapman/tfjsconv/internal/toolchain"
)

// ErrConverterFailed wraps any failure of the external converter process.
var ErrConverterFailed = errors.New("tensorflowjs conversion failed")

const OutputFormatLayers = "tfjs_layers_model"

// Request describes one conversion.
type Request struct {
	Input       string
	InputFormat keras.Format
	Output      string
	// Quantize is "", "float16", "uint8" or "uint16".
	Quantize       string
	ShardSizeBytes int64
	// Log receives the converter's stdout and stderr. May be nil.
	Log io.Writer
}

type Converter interface {
	Convert(ctx context.Context, req Request) error
}

// NewConverter returns the converter selected by cfg.Converter.Mode.
func NewConverter(cfg *config.Config, runner toolchain.Runner) Converter {
	if runner == nil {
		runner = toolchain.ExecRunner{}
	}
	if cfg.Converter.Mode == config.ModeCLI {
		binary := cfg.Toolchain.ConverterPath
		if binary == "" {
			binary = toolchain.ConverterBinary
		}
		return &CLIConverter{Binary: binary, Runner: runner}
	}
	return &PythonConverter{Python: cfg.Toolchain.Python, Runner: runner}
}

// CLIConverter runs the tensorflowjs_converter entry point.
type CLIConverter struct {
	Binary string
	Runner toolchain.Runner
}

// inputFormats maps detected model formats to --input_format values.
var inputFormats = map[keras.Format]string{
	keras.FormatKerasV3:    "keras_keras",
	keras.FormatHDF5:       "keras",
	keras.FormatSavedModel: "keras_saved_model",
}

func (c *CLIConverter) Args(req Request) ([]string, error) {
	inputFormat, ok := inputFormats[req.InputFormat]
	if !ok {
		return nil, fmt.Errorf("%w: no converter input format for %q", ErrConverterFailed, req.InputFormat)
	}

	args := []string{
		"--input_format=" + inputFormat,
		"--output_format=" + OutputFormatLayers,
	}
	if req.ShardSizeBytes > 0 {
		args = append(args, "--weight_shard_size_bytes="+strconv.FormatInt(req.ShardSizeBytes, 10))
	}
	if req.Quantize != "" {
		args = append(args, "--quantize_"+req.Quantize+"=*")
	}
	return append(args, req.Input, req.Output), nil
}

func (c *CLIConverter) Convert(ctx context.Context, req Request) error {
	args, err := c.Args(req)
	if err != nil {
		return err
	}
	return run(ctx, c.Runner, req.Log, c.Binary, args...)
}

// PythonConverter loads the model with tf.keras and saves it with
// tensorflowjs.converters.save_keras_model in a python subprocess.
type PythonConverter struct {
	Python string
	Runner toolchain.Runner
}

// convertScript takes input path, output path, quantize dtype ("" for none)
// and shard size in bytes as argv[1:5].
const convertScript = `import sys
import tensorflow as tf
import tensorflowjs as tfjs

src, dst, quantize, shard = sys.argv[1], sys.argv[2], sys.argv[3], int(sys.argv[4])
model = tf.keras.models.load_model(src)
kwargs = {}
if quantize:
    kwargs["quantization_dtype_map"] = {quantize: True}
if shard > 0:
    kwargs["weight_shard_size_bytes"] = shard
tfjs.converters.save_keras_model(model, dst, **kwargs)
`

func (c *PythonConverter) Args(req Request) []string {
	return []string{
		"-c", convertScript,
		req.Input,
		req.Output,
		req.Quantize,
		strconv.FormatInt(req.ShardSizeBytes, 10),
	}
}

func (c *PythonConverter) Convert(ctx context.Context, req Request) error {
	return run(ctx, c.Runner, req.Log, c.Python, c.Args(req)...)
}

// run executes the converter, copying its output to log. On failure the
// last output line, usually the Python exception, becomes the error text.
func run(ctx context.Context, runner toolchain.Runner, log io.Writer, name string, args ...string) error {
	tail := &tailBuffer{}
	var out io.Writer = tail
	if log != nil {
		out = io.MultiWriter(log, tail)
	}

	if err := runner.Run(ctx, out, name, args...); err != nil {
		if line := tail.lastLine(); line != "" {
			return fmt.Errorf("%w: %s", ErrConverterFailed, line)
		}
		return fmt.Errorf("%w: %s: %v", ErrConverterFailed, name, err)
	}
	return nil
}

const tailSize = 4096

// tailBuffer keeps the last tailSize bytes written to it.
type tailBuffer struct {
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > tailSize {
		t.buf = t.buf[len(t.buf)-tailSize:]
	}
	return len(p), nil
}

func (t *tailBuffer) lastLine() string {
	lines := strings.Split(strings.TrimSpace(string(t.buf)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
