package tfjs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const ManifestFile = "model.json"

type Entry struct {
	Name  string
	Size  int64
	IsDir bool
}

// Artifact is the converter output directory as found on disk.
type Artifact struct {
	Dir     string
	Entries []Entry
	// Manifest is nil when model.json is absent or unreadable.
	Manifest *Manifest
}

// Manifest summarises model.json. The topology itself is not interpreted.
type Manifest struct {
	Format      string `json:"format"`
	GeneratedBy string `json:"generatedBy"`
	ConvertedBy string `json:"convertedBy"`
	// Groups is the number of weight groups; Shards and Tensors are totals
	// across groups.
	Groups  int `json:"-"`
	Shards  int `json:"-"`
	Tensors int `json:"-"`
}

type rawManifest struct {
	Format          string `json:"format"`
	GeneratedBy     string `json:"generatedBy"`
	ConvertedBy     string `json:"convertedBy"`
	WeightsManifest []struct {
		Paths   []string          `json:"paths"`
		Weights []json.RawMessage `json:"weights"`
	} `json:"weightsManifest"`
}

// ListArtifacts lists the immediate entries of dir, sorted by name.
func ListArtifacts(dir string) (*Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	a := &Artifact{Dir: dir}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		a.Entries = append(a.Entries, Entry{Name: e.Name(), Size: info.Size(), IsDir: e.IsDir()})
	}
	sort.Slice(a.Entries, func(i, j int) bool {
		return a.Entries[i].Name < a.Entries[j].Name
	})

	if m, err := ReadManifest(filepath.Join(dir, ManifestFile)); err == nil {
		a.Manifest = m
	}

	return a, nil
}

// TotalSize sums the sizes of regular files.
func (a *Artifact) TotalSize() int64 {
	var total int64
	for _, e := range a.Entries {
		if !e.IsDir {
			total += e.Size
		}
	}
	return total
}

func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	m := &Manifest{
		Format:      raw.Format,
		GeneratedBy: raw.GeneratedBy,
		ConvertedBy: raw.ConvertedBy,
		Groups:      len(raw.WeightsManifest),
	}
	for _, g := range raw.WeightsManifest {
		m.Shards += len(g.Paths)
		m.Tensors += len(g.Weights)
	}
	return m, nil
}
