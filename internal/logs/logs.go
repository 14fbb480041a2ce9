// Package logs provides log file management with rotation for tfjsconv.
package logs

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/nchapman/tfjsconv/internal/config"
)

const (
	// MaxRotations is the number of rotated files to keep (.log.1, .log.2)
	MaxRotations = 2
	// MaxFileSize is the maximum size of a log file before rotation (10MB)
	MaxFileSize = 10 * 1024 * 1024
)

// Pre-compiled regexes for model name sanitization
var (
	modelExtRe        = regexp.MustCompile(`(?i)\.(keras|h5|hdf5)$`)
	unsafeCharsRe     = regexp.MustCompile(`[^a-z0-9._-]`)
	multipleHyphensRe = regexp.MustCompile(`-+`)
)

// SanitizeModelName converts a model path to a safe log file name.
// Example: "public/Models/RiceModel/rice_efficientnet.keras" -> "rice_efficientnet"
func SanitizeModelName(modelPath string) string {
	name := strings.TrimRight(modelPath, "/\\")
	if idx := strings.LastIndexAny(name, "/\\"); idx >= 0 {
		name = name[idx+1:]
	}

	name = modelExtRe.ReplaceAllString(name, "")
	name = strings.ToLower(name)
	name = unsafeCharsRe.ReplaceAllString(name, "-")
	name = multipleHyphensRe.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")

	if name == "" {
		return "model"
	}
	return name
}

// ConvertLogPath returns the converter log file path for the given model.
func ConvertLogPath(modelPath string) string {
	return filepath.Join(config.LogsPath(), "convert-"+SanitizeModelName(modelPath)+".log")
}

// BootstrapLogPath returns the log file path for toolchain installs.
func BootstrapLogPath() string {
	return filepath.Join(config.LogsPath(), "bootstrap.log")
}

// rotateLogs shifts basePath -> .1 -> .2, dropping anything past MaxRotations.
func rotateLogs(basePath string) error {
	os.Remove(fmt.Sprintf("%s.%d", basePath, MaxRotations))

	for i := MaxRotations; i >= 1; i-- {
		src := basePath
		if i > 1 {
			src = fmt.Sprintf("%s.%d", basePath, i-1)
		}
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := os.Rename(src, fmt.Sprintf("%s.%d", basePath, i)); err != nil {
			return err
		}
	}

	return nil
}

// RotatingWriter is an io.WriteCloser over a log file that rotates once
// maxSize bytes have been written to it.
type RotatingWriter struct {
	mu       sync.Mutex
	basePath string
	maxSize  int64
	file     *os.File
	written  int64
}

// NewRotatingWriter rotates any existing log at basePath and opens a fresh one.
func NewRotatingWriter(basePath string) (*RotatingWriter, error) {
	if err := os.MkdirAll(filepath.Dir(basePath), 0755); err != nil {
		return nil, err
	}

	w := &RotatingWriter{basePath: basePath, maxSize: MaxFileSize}
	if err := w.reopen(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}

	if w.written+int64(len(p)) > w.maxSize {
		if err := w.reopen(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.written += int64(n)
	return n, err
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// reopen closes the current file, rotates, and truncates a new one.
// Caller must hold w.mu or own w exclusively.
func (w *RotatingWriter) reopen() error {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}

	if err := rotateLogs(w.basePath); err != nil {
		return err
	}

	file, err := os.OpenFile(w.basePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	w.file = file
	w.written = 0
	return nil
}

// Path returns the active log file path.
func (w *RotatingWriter) Path() string {
	return w.basePath
}
