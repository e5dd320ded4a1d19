package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/docketrocket/internal/model"
)

// File is the on-disk ledger.
type File struct {
	path   string
	logger *slog.Logger
}

// NewFile returns a ledger stored at path.
func NewFile(path string, logger *slog.Logger) *File {
	if logger == nil {
		logger = slog.Default()
	}
	return &File{path: path, logger: logger}
}

// Path returns the ledger location.
func (f *File) Path() string {
	return f.path
}

// Read parses the ledger strictly. A missing file yields fs.ErrNotExist.
func (f *File) Read() ([]model.DocumentRecord, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	var records []model.DocumentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse ledger %s: %w", f.path, err)
	}
	return records, nil
}

// Load returns the stored records. A missing, unreadable or corrupt ledger
// is logged and treated as empty; the next Save overwrites it.
func (f *File) Load() []model.DocumentRecord {
	records, err := f.Read()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		f.logger.Info("no ledger found, starting fresh", "path", f.path)
		return []model.DocumentRecord{}
	case err != nil:
		f.logger.Warn("ledger unreadable, starting fresh", "path", f.path, "error", err)
		return []model.DocumentRecord{}
	}
	if records == nil {
		records = []model.DocumentRecord{}
	}
	f.logger.Info("loaded ledger", "path", f.path, "records", len(records))
	return records
}

// Save writes records as indented JSON. The write goes to a temporary file
// in the same directory which then replaces the ledger, so readers never see
// a partial file.
func (f *File) Save(records []model.DocumentRecord) (err error) {
	if records == nil {
		records = []model.DocumentRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary ledger: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync ledger: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close ledger: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil { //nolint:gosec // ledger is not secret
		return fmt.Errorf("failed to set ledger permissions: %w", err)
	}
	if err = os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace ledger: %w", err)
	}

	f.logger.Debug("ledger saved", "path", f.path, "records", len(records))
	return nil
}
