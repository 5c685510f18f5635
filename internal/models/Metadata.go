package models

// MetadataRecord is the persisted sidecar entry for one GPX file, keyed by filename.
// The snake_case keys match metadata documents written by earlier releases.
type MetadataRecord struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	RouteType   string `json:"route_type,omitempty"`
	IsFavorite  bool   `json:"is_favorite"`
	CreatedAt   string `json:"created_at,omitempty"`
	ModifiedAt  string `json:"modified_at,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`

	// Set only on version snapshots
	IsVersion    bool   `json:"is_version,omitempty"`
	OriginalFile string `json:"original_file,omitempty"`
}

// Metadata maps filename to record.
type Metadata map[string]MetadataRecord
