package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setHome(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	for _, key := range []string{EnvInput, EnvOutput, EnvPython, EnvMode} {
		t.Setenv(key, "")
	}
	return tmpDir
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model.Input != DefaultInput {
		t.Errorf("Expected Model.Input %s, got %s", DefaultInput, cfg.Model.Input)
	}
	if cfg.Model.Output != DefaultOutput {
		t.Errorf("Expected Model.Output %s, got %s", DefaultOutput, cfg.Model.Output)
	}
	if cfg.Converter.Mode != ModePython {
		t.Errorf("Expected Converter.Mode %s, got %s", ModePython, cfg.Converter.Mode)
	}
	if cfg.Converter.ShardSizeBytes != 4194304 {
		t.Errorf("Expected ShardSizeBytes 4194304, got %d", cfg.Converter.ShardSizeBytes)
	}
	if len(cfg.Toolchain.Packages) != 2 {
		t.Errorf("Expected 2 toolchain packages, got %v", cfg.Toolchain.Packages)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := setHome(t)

	t.Run("returns default config when file does not exist", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.Model.Input != DefaultInput {
			t.Errorf("Expected default input, got %s", cfg.Model.Input)
		}
	})

	t.Run("parses valid config file", func(t *testing.T) {
		configDir := filepath.Join(tmpDir, ".tfjsconv")
		if err := os.MkdirAll(configDir, 0755); err != nil {
			t.Fatalf("Failed to create test config dir: %v", err)
		}

		configContent := `model:
  input: models/leaf.h5
  output: web/leaf_tfjs
converter:
  mode: cli
  quantize: uint8
  weight_shard_size_bytes: 1024
toolchain:
  python: /opt/venv/bin/python
  skip_install: true
`
		if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configContent), 0644); err != nil {
			t.Fatalf("Failed to write test config: %v", err)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		if cfg.Model.Input != "models/leaf.h5" {
			t.Errorf("Expected Model.Input models/leaf.h5, got %s", cfg.Model.Input)
		}
		if cfg.Model.Output != "web/leaf_tfjs" {
			t.Errorf("Expected Model.Output web/leaf_tfjs, got %s", cfg.Model.Output)
		}
		if cfg.Converter.Mode != ModeCLI {
			t.Errorf("Expected Converter.Mode cli, got %s", cfg.Converter.Mode)
		}
		if cfg.Converter.Quantize != "uint8" {
			t.Errorf("Expected Converter.Quantize uint8, got %s", cfg.Converter.Quantize)
		}
		if cfg.Converter.ShardSizeBytes != 1024 {
			t.Errorf("Expected ShardSizeBytes 1024, got %d", cfg.Converter.ShardSizeBytes)
		}
		if cfg.Toolchain.Python != "/opt/venv/bin/python" {
			t.Errorf("Expected Toolchain.Python /opt/venv/bin/python, got %s", cfg.Toolchain.Python)
		}
		if !cfg.Toolchain.SkipInstall {
			t.Error("Expected Toolchain.SkipInstall to be true")
		}
		// Packages not set in the file keep their defaults
		if len(cfg.Toolchain.Packages) != 2 {
			t.Errorf("Expected default packages, got %v", cfg.Toolchain.Packages)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv(EnvInput, "env/model.keras")
		t.Setenv(EnvMode, ModePython)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.Model.Input != "env/model.keras" {
			t.Errorf("Expected env input, got %s", cfg.Model.Input)
		}
		if cfg.Converter.Mode != ModePython {
			t.Errorf("Expected env mode python, got %s", cfg.Converter.Mode)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, ".tfjsconv", "config.yaml")
		if err := os.WriteFile(configPath, []byte("invalid: yaml: content:"), 0644); err != nil {
			t.Fatalf("Failed to write test config: %v", err)
		}

		if _, err := Load(); err == nil {
			t.Error("Expected error for invalid YAML, got nil")
		}
	})

	t.Run("returns error for invalid mode", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, ".tfjsconv", "config.yaml")
		if err := os.WriteFile(configPath, []byte("converter:\n  mode: onnx\n"), 0644); err != nil {
			t.Fatalf("Failed to write test config: %v", err)
		}

		_, err := Load()
		if err == nil || !strings.Contains(err.Error(), "converter.mode") {
			t.Errorf("Expected converter.mode error, got %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty input", func(c *Config) { c.Model.Input = "" }, true},
		{"empty output", func(c *Config) { c.Model.Output = "" }, true},
		{"cli mode", func(c *Config) { c.Converter.Mode = ModeCLI }, false},
		{"unknown mode", func(c *Config) { c.Converter.Mode = "wasm" }, true},
		{"float16", func(c *Config) { c.Converter.Quantize = "float16" }, false},
		{"int4", func(c *Config) { c.Converter.Quantize = "int4" }, true},
		{"negative shard size", func(c *Config) { c.Converter.ShardSizeBytes = -1 }, true},
		{"zero shard size", func(c *Config) { c.Converter.ShardSizeBytes = 0 }, false},
		{"empty python", func(c *Config) { c.Toolchain.Python = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadUnvalidated(t *testing.T) {
	tmpDir := setHome(t)
	configDir := filepath.Join(tmpDir, ".tfjsconv")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatal(err)
	}

	t.Run("keeps invalid file mode for later override", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("converter:\n  mode: onnx\n"), 0644); err != nil {
			t.Fatalf("Failed to write test config: %v", err)
		}

		cfg, err := LoadUnvalidated()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.Converter.Mode != "onnx" {
			t.Errorf("Expected mode onnx, got %s", cfg.Converter.Mode)
		}

		cfg.Converter.Mode = ModeCLI
		if err := cfg.Validate(); err != nil {
			t.Errorf("Expected overridden config to validate, got %v", err)
		}
	})

	t.Run("keeps invalid env mode", func(t *testing.T) {
		os.Remove(filepath.Join(configDir, "config.yaml"))
		t.Setenv(EnvMode, "tflite")

		cfg, err := LoadUnvalidated()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.Converter.Mode != "tflite" {
			t.Errorf("Expected mode tflite, got %s", cfg.Converter.Mode)
		}
		if _, err := Load(); err == nil {
			t.Error("Expected Load to reject the env mode")
		}
	})

	t.Run("still fails on unparseable file", func(t *testing.T) {
		if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("invalid: yaml: content:"), 0644); err != nil {
			t.Fatalf("Failed to write test config: %v", err)
		}
		if _, err := LoadUnvalidated(); err == nil {
			t.Error("Expected error for invalid YAML, got nil")
		}
	})
}

func TestSaveDefault(t *testing.T) {
	tmpDir := setHome(t)

	if err := SaveDefault(); err != nil {
		t.Fatalf("Expected no error saving default config, got %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, ".tfjsconv", "config.yaml"))
	if err != nil {
		t.Fatalf("Failed to read saved config: %v", err)
	}

	content := string(data)
	expectedStrings := []string{
		"model:",
		"converter:",
		"toolchain:",
		"# quantize:",
		"# converter_path:",
		DefaultInput,
	}
	for _, s := range expectedStrings {
		if !strings.Contains(content, s) {
			t.Errorf("Expected config to contain '%s'", s)
		}
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected saved default to load, got %v", err)
	}
	if cfg.Converter.ShardSizeBytes != DefaultShardSize {
		t.Errorf("Expected shard size %d, got %d", DefaultShardSize, cfg.Converter.ShardSizeBytes)
	}
}

func TestEnsureDirectories(t *testing.T) {
	tmpDir := setHome(t)

	if err := EnsureDirectories(); err != nil {
		t.Fatalf("Expected no error creating directories, got %v", err)
	}
	// Idempotent
	if err := EnsureDirectories(); err != nil {
		t.Fatalf("Expected no error on second call, got %v", err)
	}

	baseDir := filepath.Join(tmpDir, ".tfjsconv")
	for _, dir := range []string{baseDir, filepath.Join(baseDir, "logs"), filepath.Join(baseDir, "state")} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Errorf("Expected directory %s to exist", dir)
		}
	}
}

func TestPathHelpers(t *testing.T) {
	tmpDir := setHome(t)

	if got, want := ConfigPath(), filepath.Join(tmpDir, ".tfjsconv", "config.yaml"); got != want {
		t.Errorf("Expected ConfigPath %s, got %s", want, got)
	}
	if got, want := LogsPath(), filepath.Join(tmpDir, ".tfjsconv", "logs"); got != want {
		t.Errorf("Expected LogsPath %s, got %s", want, got)
	}
	if got, want := StatePath(), filepath.Join(tmpDir, ".tfjsconv", "state"); got != want {
		t.Errorf("Expected StatePath %s, got %s", want, got)
	}
}
