package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/badgegraph/internal/model"
)

// Writer persists graph documents to a file.
//
// Each write goes to a temporary file in the same directory and is renamed
// over the target, so readers never see a half-written document. The
// previous document is copied to the backup path first.
type Writer struct {
	path       string
	backupPath string
}

// NewWriter creates a Writer for path. The backup path is derived from
// path: graph.json is backed up as graph.bak.json.
func NewWriter(path string) *Writer {
	return &Writer{path: path, backupPath: BackupPath(path)}
}

// BackupPath returns the backup file name used for path.
func BackupPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".bak" + ext
}

// Path returns the output path.
func (w *Writer) Path() string {
	return w.path
}

// Write stores g as compact JSON.
func (w *Writer) Write(g *model.Graph) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".graph-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write graph: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync graph: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close graph: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil { //nolint:gosec // the document is public
		return fmt.Errorf("failed to set graph permissions: %w", err)
	}

	if err := w.backup(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("failed to replace graph: %w", err)
	}
	return nil
}

func (w *Writer) backup() error {
	prev, err := os.ReadFile(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read previous graph: %w", err)
	}
	if err := os.WriteFile(w.backupPath, prev, 0644); err != nil { //nolint:gosec // the document is public
		return fmt.Errorf("failed to write graph backup: %w", err)
	}
	return nil
}

// Read loads a graph document from path.
func Read(path string) (*model.Graph, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read graph: %w", err)
	}
	g := model.NewGraph()
	if err := json.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	return g, nil
}
