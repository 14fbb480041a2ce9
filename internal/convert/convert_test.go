package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nchapman/tfjsconv/internal/keras"
	"github.com/nchapman/tfjsconv/internal/tfjs"
)

type fakeLoader struct {
	calls int
	err   error
	panic bool
}

func (f *fakeLoader) Load(path string) (*keras.Model, error) {
	f.calls++
	if f.panic {
		panic("h5py: unable to open file")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &keras.Model{
		Path:      path,
		Format:    keras.FormatKerasV3,
		Name:      "rice_classifier",
		ClassName: "Sequential",
		Layers: []keras.Layer{
			{Name: "dense", ClassName: "Dense", Trainable: true, Details: "units=4"},
		},
	}, nil
}

// fakeConverter writes a model.json and one shard, like the real converter.
type fakeConverter struct {
	calls int
	last  tfjs.Request
	err   error
	panic bool
	empty bool
}

func (f *fakeConverter) Convert(ctx context.Context, req tfjs.Request) error {
	f.calls++
	f.last = req
	if f.panic {
		panic("converter crashed")
	}
	if f.err != nil {
		return f.err
	}
	if f.empty {
		return nil
	}
	manifest := `{"format": "layers-model", "weightsManifest": [{"paths": ["group1-shard1of1.bin"], "weights": [{"name": "dense/kernel"}]}]}`
	if err := os.WriteFile(filepath.Join(req.Output, "model.json"), []byte(manifest), 0644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(req.Output, "group1-shard1of1.bin"), make([]byte, 1234), 0644)
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rice_efficientnet.keras")
	if err := os.WriteFile(path, []byte("PK\x03\x04"), 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}
	return path
}

func TestRunMissingInput(t *testing.T) {
	loader := &fakeLoader{}
	conv := &fakeConverter{}
	p := &Pipeline{Loader: loader, Converter: conv}

	_, err := p.Run(context.Background(), Options{
		Input:  filepath.Join(t.TempDir(), "missing.keras"),
		Output: filepath.Join(t.TempDir(), "out"),
	})

	if !errors.Is(err, ErrInputNotFound) {
		t.Fatalf("Run() error = %v, want ErrInputNotFound", err)
	}
	if loader.calls != 0 {
		t.Errorf("loader called %d times, want 0", loader.calls)
	}
	if conv.calls != 0 {
		t.Errorf("converter called %d times, want 0", conv.calls)
	}
}

func TestRunSuccess(t *testing.T) {
	input := writeInput(t)
	output := filepath.Join(t.TempDir(), "nested", "rice_tfjs")

	var out bytes.Buffer
	conv := &fakeConverter{}
	p := &Pipeline{Loader: &fakeLoader{}, Converter: conv, Out: &out}

	res, err := p.Run(context.Background(), Options{
		Input:          input,
		Output:         output,
		Quantize:       "float16",
		ShardSizeBytes: 2048,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	entries, err := os.ReadDir(output)
	if err != nil {
		t.Fatalf("output directory should exist: %v", err)
	}
	if len(entries) == 0 {
		t.Error("output directory should not be empty")
	}

	if conv.last.InputFormat != keras.FormatKerasV3 {
		t.Errorf("InputFormat = %s, want keras_v3", conv.last.InputFormat)
	}
	if conv.last.Quantize != "float16" || conv.last.ShardSizeBytes != 2048 {
		t.Errorf("request = %+v, options not forwarded", conv.last)
	}

	if res.Model.Name != "rice_classifier" {
		t.Errorf("Result.Model.Name = %s", res.Model.Name)
	}
	if len(res.Artifact.Entries) != 2 {
		t.Errorf("len(Artifact.Entries) = %d, want 2", len(res.Artifact.Entries))
	}

	text := out.String()
	for _, want := range []string{
		"Loading Keras model from:",
		"Model Summary:",
		"rice_classifier",
		"Generated files:",
		"group1-shard1of1.bin (1,234 bytes)",
		"model.json (",
		"1 weight tensors in 1 shards",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q\n%s", want, text)
		}
	}
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	input := writeInput(t)
	output := filepath.Join(t.TempDir(), "rice_tfjs")
	p := &Pipeline{Loader: &fakeLoader{}, Converter: &fakeConverter{}}

	for i := 0; i < 2; i++ {
		if _, err := p.Run(context.Background(), Options{Input: input, Output: output}); err != nil {
			t.Fatalf("run %d: Run() error = %v", i+1, err)
		}
	}
}

func TestRunExistingEmptyOutput(t *testing.T) {
	input := writeInput(t)
	output := t.TempDir()
	p := &Pipeline{Loader: &fakeLoader{}, Converter: &fakeConverter{}}

	if _, err := p.Run(context.Background(), Options{Input: input, Output: output}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name      string
		loader    *fakeLoader
		converter *fakeConverter
		wantErr   error
	}{
		{
			name:      "loader error",
			loader:    &fakeLoader{err: keras.ErrInvalidArchive},
			converter: &fakeConverter{},
			wantErr:   keras.ErrInvalidArchive,
		},
		{
			name:      "converter error",
			loader:    &fakeLoader{},
			converter: &fakeConverter{err: tfjs.ErrConverterFailed},
			wantErr:   tfjs.ErrConverterFailed,
		},
		{
			name:      "loader panic",
			loader:    &fakeLoader{panic: true},
			converter: &fakeConverter{},
			wantErr:   ErrPanic,
		},
		{
			name:      "converter panic",
			loader:    &fakeLoader{},
			converter: &fakeConverter{panic: true},
			wantErr:   ErrPanic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Pipeline{Loader: tt.loader, Converter: tt.converter}
			res, err := p.Run(context.Background(), Options{
				Input:  writeInput(t),
				Output: filepath.Join(t.TempDir(), "out"),
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if res != nil {
				t.Errorf("Run() result = %+v, want nil on failure", res)
			}
		})
	}
}

func TestRunLoaderErrorSkipsConverter(t *testing.T) {
	conv := &fakeConverter{}
	p := &Pipeline{Loader: &fakeLoader{err: errors.New("bad file")}, Converter: conv}

	if _, err := p.Run(context.Background(), Options{Input: writeInput(t), Output: t.TempDir()}); err == nil {
		t.Fatal("expected error")
	}
	if conv.calls != 0 {
		t.Errorf("converter called %d times after loader failure", conv.calls)
	}
}

func TestRunUsesStep(t *testing.T) {
	var messages []string
	p := &Pipeline{
		Loader:    &fakeLoader{},
		Converter: &fakeConverter{},
		Step: func(message string, fn func() error) error {
			messages = append(messages, message)
			return fn()
		},
	}

	if _, err := p.Run(context.Background(), Options{Input: writeInput(t), Output: t.TempDir()}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(messages) != 1 {
		t.Errorf("Step called %d times, want 1", len(messages))
	}
}

func TestRunWithRealLoader(t *testing.T) {
	// An HDF5 signature with no embedded config still loads.
	input := filepath.Join(t.TempDir(), "model.h5")
	os.WriteFile(input, append([]byte("\x89HDF\r\n\x1a\n"), make([]byte, 32)...), 0644)

	conv := &fakeConverter{}
	p := &Pipeline{Loader: keras.FileLoader{}, Converter: conv}

	if _, err := p.Run(context.Background(), Options{Input: input, Output: t.TempDir()}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if conv.last.InputFormat != keras.FormatHDF5 {
		t.Errorf("InputFormat = %s, want hdf5", conv.last.InputFormat)
	}
}

func TestRunWithRealLoaderDictInputArchive(t *testing.T) {
	input := filepath.Join(t.TempDir(), "multi_input.keras")
	f, err := os.Create(input)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("config.json")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte(`{"class_name": "Functional", "config": {"name": "multi_input", "layers": []}, ` +
		`"build_config": {"input_shape": {"image": [null, 224, 224, 3]}}}`))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	conv := &fakeConverter{}
	p := &Pipeline{Loader: keras.FileLoader{}, Converter: conv}

	if _, err := p.Run(context.Background(), Options{Input: input, Output: t.TempDir()}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if conv.calls != 1 {
		t.Errorf("converter calls = %d, want 1", conv.calls)
	}
	if conv.last.InputFormat != keras.FormatKerasV3 {
		t.Errorf("InputFormat = %s, want keras_v3", conv.last.InputFormat)
	}
}

func TestPrintArtifactEmpty(t *testing.T) {
	var out bytes.Buffer
	PrintArtifact(&out, &tfjs.Artifact{Dir: "x"})
	if !strings.Contains(out.String(), "(none)") {
		t.Errorf("expected (none) marker, got %q", out.String())
	}
}

func TestPrintArtifactGroupsCounts(t *testing.T) {
	var out bytes.Buffer
	PrintArtifact(&out, &tfjs.Artifact{
		Dir:      "x",
		Entries:  []tfjs.Entry{{Name: "group1-shard1of1200.bin", Size: 4194304}},
		Manifest: &tfjs.Manifest{Format: "layers-model", Shards: 1200, Tensors: 4049},
	})
	if !strings.Contains(out.String(), "4,049 weight tensors in 1,200 shards") {
		t.Errorf("expected grouped counts, got %q", out.String())
	}
}
