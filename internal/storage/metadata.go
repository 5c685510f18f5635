package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"gpx_viewer/internal/models"
)

// MetadataStore persists the filename -> record mapping as one JSON document.
// Every mutation is a read-modify-write of the whole mapping.
type MetadataStore struct {
	path string
	log  logrus.FieldLogger
}

// NewMetadataStore returns a store backed by the JSON file at path.
func NewMetadataStore(path string, log logrus.FieldLogger) *MetadataStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MetadataStore{path: path, log: log}
}

// Path returns the backing file location.
func (s *MetadataStore) Path() string {
	return s.path
}

// ReadAll returns the full mapping. A missing, unreadable or corrupt file
// yields an empty mapping; the fault is logged, never returned.
func (s *MetadataStore) ReadAll() models.Metadata {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.WithError(err).WithField("path", s.path).Warn("ReadAll: failed to read metadata, using defaults")
		}
		return models.Metadata{}
	}

	meta := models.Metadata{}
	if err := json.Unmarshal(data, &meta); err != nil {
		s.log.WithError(err).WithField("path", s.path).Warn("ReadAll: metadata is not valid JSON, using defaults")
		return models.Metadata{}
	}
	if meta == nil {
		// the document was a literal null
		meta = models.Metadata{}
	}
	return meta
}

// WriteAll replaces the backing file with meta. The document is written to a
// temp file in the same directory and renamed into place.
func (s *MetadataStore) WriteAll(meta models.Metadata) error {
	if meta == nil {
		meta = models.Metadata{}
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".metadata-*.json")
	if err != nil {
		return fmt.Errorf("create temp metadata file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod metadata: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close metadata: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace metadata: %w", err)
	}
	return nil
}
