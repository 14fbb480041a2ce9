package keras

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/nchapman/tfjsconv/internal/ui"
)

const (
	// maxHDF5Scan bounds how much of an .h5 file is searched for the
	// model_config attribute.
	maxHDF5Scan = 256 << 20
	// maxConfigCandidates bounds decode attempts on "class_name" matches
	// that turn out to be layer configs or noise.
	maxConfigCandidates = 64
	// scanWindow is the read buffer used while searching for a marker.
	scanWindow = 64 << 10
)

var configMarkers = [][]byte{
	[]byte(`{"class_name": "`),
	[]byte(`{"class_name":"`),
}

// readHDF5 looks for the JSON model_config attribute that Keras stores as a
// plain string in the root group. A file where it cannot be found still
// loads, just without topology.
func (m *Model) readHDF5() error {
	f, err := os.Open(m.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	if cfg := findModelConfig(io.LimitReader(f, maxHDF5Scan)); cfg != nil {
		if err := m.decodeTopology(cfg); err != nil {
			ui.Debug("HDF5 model_config not decodable", "path", m.Path, "err", err)
		}
	} else {
		ui.Debug("HDF5 model_config not found", "path", m.Path)
	}

	return nil
}

// findModelConfig streams r and returns the first embedded JSON object that
// looks like a model config (it has a layers list). Only a scanWindow buffer
// plus the candidate being decoded is held in memory.
func findModelConfig(r io.Reader) []byte {
	br := bufio.NewReaderSize(r, scanWindow)
	for attempts := 0; attempts < maxConfigCandidates; attempts++ {
		if !skipToMarker(br) {
			return nil
		}

		// The opening brace was consumed by skipToMarker. Everything the
		// decoder reads after it is kept so a rejected candidate can be
		// rescanned for markers nested inside it.
		var consumed bytes.Buffer
		dec := json.NewDecoder(io.MultiReader(strings.NewReader("{"), io.TeeReader(br, &consumed)))

		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil && isModelConfig(raw) {
			return raw
		}
		br = bufio.NewReaderSize(io.MultiReader(&consumed, br), scanWindow)
	}
	return nil
}

// skipToMarker advances br past the '{' of the next config marker.
func skipToMarker(br *bufio.Reader) bool {
	for {
		if _, err := br.ReadSlice('{'); err != nil {
			if err == bufio.ErrBufferFull {
				continue
			}
			return false
		}
		next, _ := br.Peek(len(configMarkers[0]) - 1)
		for _, marker := range configMarkers {
			if bytes.HasPrefix(next, marker[1:]) {
				return true
			}
		}
	}
}

func isModelConfig(raw json.RawMessage) bool {
	var doc struct {
		Config struct {
			Layers []json.RawMessage `json:"layers"`
		} `json:"config"`
	}
	return json.Unmarshal(raw, &doc) == nil && len(doc.Config.Layers) > 0
}
