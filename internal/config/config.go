package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/nchapman/tfjsconv/internal/fileutil"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Model     Model     `yaml:"model"`
	Converter Converter `yaml:"converter"`
	Toolchain Toolchain `yaml:"toolchain"`
}

// Model holds the input and output locations of a conversion.
type Model struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

type Converter struct {
	Mode           string `yaml:"mode"`
	Quantize       string `yaml:"quantize,omitempty"`
	ShardSizeBytes int64  `yaml:"weight_shard_size_bytes"`
}

type Toolchain struct {
	Python        string   `yaml:"python"`
	ConverterPath string   `yaml:"converter_path,omitempty"`
	Packages      []string `yaml:"packages"`
	SkipInstall   bool     `yaml:"skip_install"`
}

const (
	configDir  = ".tfjsconv"
	configFile = "config.yaml"
	logsDir    = "logs"
	stateDir   = "state"
)

const (
	DefaultInput  = "public/Models/RiceModel/rice_efficientnet.keras"
	DefaultOutput = "public/Models/RiceModel/rice_efficientnet_tfjs"

	// DefaultShardSize matches the tensorflowjs converter default of 4 MiB.
	DefaultShardSize = 4 * 1024 * 1024
)

const (
	ModePython = "python"
	ModeCLI    = "cli"
)

// Quantization modes accepted by the converter. Empty means none.
var QuantizeModes = []string{"", "float16", "uint8", "uint16"}

// Environment overrides, applied after the config file.
const (
	EnvInput  = "TFJSCONV_INPUT"
	EnvOutput = "TFJSCONV_OUTPUT"
	EnvPython = "TFJSCONV_PYTHON"
	EnvMode   = "TFJSCONV_MODE"
)

func GetHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func ConfigPath() string {
	return filepath.Join(GetHomeDir(), configDir, configFile)
}

func LogsPath() string {
	return filepath.Join(GetHomeDir(), configDir, logsDir)
}

func StatePath() string {
	return filepath.Join(GetHomeDir(), configDir, stateDir)
}

func DefaultConfig() *Config {
	return &Config{
		Model: Model{
			Input:  DefaultInput,
			Output: DefaultOutput,
		},
		Converter: Converter{
			Mode:           ModePython,
			ShardSizeBytes: DefaultShardSize,
		},
		Toolchain: Toolchain{
			Python:   "python3",
			Packages: []string{"tensorflow", "tensorflowjs"},
		},
	}
}

// Load reads the config file, falling back to defaults when it is missing,
// then applies environment overrides and validates the result.
func Load() (*Config, error) {
	cfg, err := LoadUnvalidated()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadUnvalidated is Load without Validate, for callers that layer command
// line flags on top and validate once afterwards.
func LoadUnvalidated() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvInput); v != "" {
		c.Model.Input = v
	}
	if v := os.Getenv(EnvOutput); v != "" {
		c.Model.Output = v
	}
	if v := os.Getenv(EnvPython); v != "" {
		c.Toolchain.Python = v
	}
	if v := os.Getenv(EnvMode); v != "" {
		c.Converter.Mode = v
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Model.Input == "" {
		return fmt.Errorf("invalid config: model.input is empty")
	}
	if c.Model.Output == "" {
		return fmt.Errorf("invalid config: model.output is empty")
	}
	if c.Converter.Mode != ModePython && c.Converter.Mode != ModeCLI {
		return fmt.Errorf("invalid config: converter.mode must be %q or %q, got %q", ModePython, ModeCLI, c.Converter.Mode)
	}
	if !slices.Contains(QuantizeModes, c.Converter.Quantize) {
		return fmt.Errorf("invalid config: unsupported converter.quantize %q", c.Converter.Quantize)
	}
	if c.Converter.ShardSizeBytes < 0 {
		return fmt.Errorf("invalid config: converter.weight_shard_size_bytes must not be negative")
	}
	if c.Toolchain.Python == "" {
		return fmt.Errorf("invalid config: toolchain.python is empty")
	}
	return nil
}

const defaultTemplate = `# tfjsconv configuration

model:
  # Keras model to convert (.keras archive, .h5 file or SavedModel directory)
  input: %s
  # Directory that receives model.json and the weight shards
  output: %s

converter:
  # python: load with tf.keras and save with tensorflowjs.converters
  # cli:    run tensorflowjs_converter
  mode: %s
  # quantize: float16   # float16, uint8 or uint16
  weight_shard_size_bytes: %d

toolchain:
  python: %s
  # converter_path: /usr/local/bin/tensorflowjs_converter
  packages:
    - tensorflow
    - tensorflowjs
  # Do not run pip when the toolchain is missing
  skip_install: false
`

// SaveDefault writes the default config with commented optional settings.
func SaveDefault() error {
	cfg := DefaultConfig()
	configPath := ConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(defaultTemplate,
		cfg.Model.Input,
		cfg.Model.Output,
		cfg.Converter.Mode,
		cfg.Converter.ShardSizeBytes,
		cfg.Toolchain.Python,
	)

	if err := fileutil.AtomicWriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func EnsureDirectories() error {
	dirs := []string{
		ConfigPath(),
		LogsPath(),
		StatePath(),
	}

	for _, dir := range dirs {
		if filepath.Ext(dir) != "" {
			dir = filepath.Dir(dir)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
