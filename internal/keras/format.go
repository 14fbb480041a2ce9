package keras

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type Format string

const (
	FormatKerasV3    Format = "keras_v3"
	FormatHDF5       Format = "hdf5"
	FormatSavedModel Format = "saved_model"
)

var (
	ErrNotFound       = errors.New("model not found")
	ErrUnknownFormat  = errors.New("unrecognised model format")
	ErrInvalidArchive = errors.New("invalid keras archive")
)

var (
	zipMagic  = []byte("PK\x03\x04")
	hdf5Magic = []byte("\x89HDF\r\n\x1a\n")
)

func (f Format) String() string {
	switch f {
	case FormatKerasV3:
		return "Keras v3 archive"
	case FormatHDF5:
		return "Keras HDF5"
	case FormatSavedModel:
		return "SavedModel"
	default:
		return string(f)
	}
}

// DetectFormat sniffs the file signature rather than trusting the extension.
func DetectFormat(path string) (Format, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", err
	}

	if info.IsDir() {
		if _, err := os.Stat(filepath.Join(path, "saved_model.pb")); err == nil {
			return FormatSavedModel, nil
		}
		return "", fmt.Errorf("%w: directory %s has no saved_model.pb", ErrUnknownFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	header := make([]byte, len(hdf5Magic))
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	header = header[:n]

	switch {
	case bytes.HasPrefix(header, zipMagic):
		return FormatKerasV3, nil
	case bytes.HasPrefix(header, hdf5Magic):
		return FormatHDF5, nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}
