package keras

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nchapman/tfjsconv/internal/ui"
)

const (
	archiveConfig   = "config.json"
	archiveMetadata = "metadata.json"
	archiveWeights  = "model.weights.h5"

	// maxConfigSize bounds how much of config.json is read into memory.
	maxConfigSize = 64 << 20
)

type archiveMeta struct {
	KerasVersion string `json:"keras_version"`
	DateSaved    string `json:"date_saved"`
}

func (m *Model) readArchive() error {
	zr, err := zip.OpenReader(m.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer zr.Close()

	var configFile, metaFile *zip.File
	for _, f := range zr.File {
		switch f.Name {
		case archiveConfig:
			configFile = f
		case archiveMetadata:
			metaFile = f
		case archiveWeights:
			m.WeightsSize = int64(f.UncompressedSize64)
		}
	}

	if configFile == nil {
		return fmt.Errorf("%w: %s has no %s", ErrInvalidArchive, m.Path, archiveConfig)
	}

	data, err := readZipFile(configFile)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrInvalidArchive, archiveConfig, err)
	}
	// Topology is display only. The converter reads config.json itself.
	if err := m.decodeTopology(data); err != nil {
		ui.Debug("Keras config not decodable", "path", m.Path, "err", err)
	}

	if metaFile != nil {
		data, err := readZipFile(metaFile)
		if err != nil {
			return fmt.Errorf("%w: read %s: %v", ErrInvalidArchive, archiveMetadata, err)
		}
		var meta archiveMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			ui.Debug("Keras metadata not decodable", "path", m.Path, "err", err)
		}
		m.KerasVersion = meta.KerasVersion
		m.SavedAt = meta.DateSaved
	}

	return nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxConfigSize {
		return nil, fmt.Errorf("%s is too large (%d bytes)", f.Name, f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxConfigSize))
}
