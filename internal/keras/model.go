package keras

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/nchapman/tfjsconv/internal/fileutil"
)

// Model describes a saved Keras model. Layers is empty when the topology
// could not be decoded from the file.
type Model struct {
	Path         string
	Format       Format
	Name         string
	ClassName    string
	KerasVersion string
	SavedAt      string
	InputShape   string
	Layers       []Layer
	// Size is the on-disk size of the file, or of the top-level files of a
	// SavedModel directory.
	Size int64
	// WeightsSize is the uncompressed size of model.weights.h5 in a .keras archive.
	WeightsSize int64
}

type Layer struct {
	Name      string
	ClassName string
	Trainable bool
	Details   string
	Inbound   []string
	// Nested is the number of layers inside a nested model layer.
	Nested int
}

// HasTopology reports whether layer information was decoded.
func (m *Model) HasTopology() bool {
	return len(m.Layers) > 0
}

// TotalLayers counts top-level layers plus the layers of nested models.
func (m *Model) TotalLayers() int {
	total := 0
	for _, l := range m.Layers {
		total += 1 + l.Nested
	}
	return total
}

// FileLoader loads models from the local filesystem.
type FileLoader struct{}

func (FileLoader) Load(path string) (*Model, error) {
	return Load(path)
}

func Load(path string) (*Model, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	m := &Model{Path: path, Format: format}

	switch format {
	case FormatKerasV3:
		if err := m.readArchive(); err != nil {
			return nil, err
		}
	case FormatHDF5:
		if err := m.readHDF5(); err != nil {
			return nil, err
		}
	case FormatSavedModel:
		size, err := fileutil.DirSize(path)
		if err != nil {
			return nil, err
		}
		m.Size = size
		return m, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	m.Size = info.Size()

	return m, nil
}

type rawModel struct {
	ClassName   string          `json:"class_name"`
	Config      json.RawMessage `json:"config"`
	BuildConfig *struct {
		InputShape json.RawMessage `json:"input_shape"`
	} `json:"build_config"`
}

type rawModelConfig struct {
	Name            string          `json:"name"`
	Layers          []rawLayer      `json:"layers"`
	BuildInputShape json.RawMessage `json:"build_input_shape"`
}

type rawLayer struct {
	ClassName    string                     `json:"class_name"`
	Name         string                     `json:"name"`
	Config       map[string]json.RawMessage `json:"config"`
	InboundNodes json.RawMessage            `json:"inbound_nodes"`
}

// decodeTopology fills the model name, class and layers from a Keras model
// config document (config.json, or the HDF5 model_config attribute).
func (m *Model) decodeTopology(data []byte) error {
	var raw rawModel
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ClassName == "" || len(raw.Config) == 0 {
		return fmt.Errorf("missing class_name or config")
	}

	var cfg rawModelConfig
	if err := json.Unmarshal(raw.Config, &cfg); err != nil {
		return fmt.Errorf("decode %s config: %w", raw.ClassName, err)
	}

	m.ClassName = raw.ClassName
	m.Name = cfg.Name
	m.Layers = decodeLayers(cfg.Layers)

	shape := cfg.BuildInputShape
	if raw.BuildConfig != nil && len(raw.BuildConfig.InputShape) > 0 {
		shape = raw.BuildConfig.InputShape
	}
	m.InputShape = listShape(shape)

	return nil
}

// listShape formats a shape only when it is a JSON list. Multi-input models
// store a dict of shapes keyed by input name, which is left blank.
func listShape(raw json.RawMessage) string {
	var dims []any
	if len(raw) == 0 || json.Unmarshal(raw, &dims) != nil || dims == nil {
		return ""
	}
	return formatShape(dims)
}

func decodeLayers(raws []rawLayer) []Layer {
	layers := make([]Layer, 0, len(raws))
	for _, r := range raws {
		l := Layer{
			Name:      r.Name,
			ClassName: r.ClassName,
			Trainable: true,
			Details:   layerDetails(r.Config),
			Inbound:   inboundLayers(r.InboundNodes),
		}
		if l.Name == "" {
			_ = json.Unmarshal(r.Config["name"], &l.Name)
		}
		if v, ok := r.Config["trainable"]; ok {
			_ = json.Unmarshal(v, &l.Trainable)
		}
		if nested, ok := r.Config["layers"]; ok {
			var inner []rawLayer
			if err := json.Unmarshal(nested, &inner); err == nil {
				l.Nested = countLayers(inner)
			}
		}
		layers = append(layers, l)
	}
	return layers
}

func countLayers(raws []rawLayer) int {
	n := 0
	for _, r := range raws {
		n++
		if nested, ok := r.Config["layers"]; ok {
			var inner []rawLayer
			if err := json.Unmarshal(nested, &inner); err == nil {
				n += countLayers(inner)
			}
		}
	}
	return n
}

// detailKeys are the config fields shown in the summary, in display order.
var detailKeys = []string{"units", "filters", "kernel_size", "strides", "pool_size", "rate", "activation"}

func layerDetails(cfg map[string]json.RawMessage) string {
	var parts []string

	for _, key := range []string{"batch_shape", "batch_input_shape"} {
		if v, ok := cfg[key]; ok {
			var shape []any
			if err := json.Unmarshal(v, &shape); err == nil {
				parts = append(parts, "shape="+formatShape(shape))
				break
			}
		}
	}

	for _, key := range detailKeys {
		v, ok := cfg[key]
		if !ok {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil || val == nil {
			continue
		}
		switch tv := val.(type) {
		case string:
			if key == "activation" && tv == "linear" {
				continue
			}
			parts = append(parts, key+"="+tv)
		case float64:
			parts = append(parts, key+"="+formatNumber(tv))
		case []any:
			parts = append(parts, key+"="+formatDims(tv))
		}
	}

	return strings.Join(parts, " ")
}

// inboundLayers extracts the names of layers feeding a node. It accepts the
// Keras 3 form ({"keras_history": [name, node, tensor]}) and the Keras 2
// form ([[name, node, tensor, kwargs], ...]).
func inboundLayers(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}

	var names []string
	seen := map[string]bool{}
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	var walk func(any)
	walk = func(v any) {
		switch tv := v.(type) {
		case map[string]any:
			if hist, ok := tv["keras_history"].([]any); ok && len(hist) > 0 {
				if name, ok := hist[0].(string); ok {
					add(name)
					return
				}
			}
			keys := make([]string, 0, len(tv))
			for k := range tv {
				keys = append(keys, k)
			}
			// "args" sorts before "kwargs", keeping positional inputs first.
			sort.Strings(keys)
			for _, k := range keys {
				walk(tv[k])
			}
		case []any:
			if len(tv) >= 3 {
				name, isName := tv[0].(string)
				_, isIndex := tv[1].(float64)
				if isName && isIndex {
					add(name)
					return
				}
			}
			for _, child := range tv {
				walk(child)
			}
		}
	}
	walk(v)

	return names
}

// formatShape renders [null, 224, 224, 3] as "(None, 224, 224, 3)".
func formatShape(shape []any) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		switch tv := d.(type) {
		case nil:
			parts[i] = "None"
		case float64:
			parts[i] = formatNumber(tv)
		default:
			parts[i] = fmt.Sprint(tv)
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// formatDims renders [3, 3] as "3x3".
func formatDims(dims []any) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		if f, ok := d.(float64); ok {
			parts[i] = formatNumber(f)
		} else {
			parts[i] = fmt.Sprint(d)
		}
	}
	return strings.Join(parts, "x")
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
