package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore is the production Store: one directory per report id, one artifact
// file per stage plus a metadata.json sibling. Payloads are written to a temp
// file and renamed into place so a reader never sees a torn artifact.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem-backed store rooted at dir.
func NewFSStore(dir string) *FSStore {
	return &FSStore{root: dir}
}

// Has reports whether a checkpoint exists for the key.
func (s *FSStore) Has(reportID string, stage Stage) bool {
	if !stage.Valid() {
		return false
	}
	_, err := os.Stat(s.artifactPath(reportID, stage))
	return err == nil
}

// Load reads and unmarshals the stage artifact into v.
func (s *FSStore) Load(reportID string, stage Stage, v any) error {
	if !stage.Valid() {
		return fmt.Errorf("unknown stage: %s", stage)
	}
	data, err := os.ReadFile(s.artifactPath(reportID, stage))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, reportID, stage)
		}
		return fmt.Errorf("read checkpoint: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode checkpoint %s/%s: %w", reportID, stage, err)
	}
	return nil
}

// Save writes the payload and metadata, creating parent directories as needed.
func (s *FSStore) Save(reportID string, stage Stage, payload any, meta Metadata) error {
	if !stage.Valid() {
		return fmt.Errorf("unknown stage: %s", stage)
	}

	dir := filepath.Join(s.root, reportID, string(stage))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint payload: %w", err)
	}
	if err := writeAtomic(s.artifactPath(reportID, stage), data); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}

	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint metadata: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, "metadata.json"), metaData); err != nil {
		return fmt.Errorf("write checkpoint metadata: %w", err)
	}

	return nil
}

// LoadMetadata reads the metadata sibling for a stage, if present.
func (s *FSStore) LoadMetadata(reportID string, stage Stage) (Metadata, error) {
	var meta Metadata
	data, err := os.ReadFile(filepath.Join(s.root, reportID, string(stage), "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return meta, fmt.Errorf("%w: %s/%s metadata", ErrNotFound, reportID, stage)
		}
		return meta, fmt.Errorf("read checkpoint metadata: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("decode checkpoint metadata: %w", err)
	}
	return meta, nil
}

func (s *FSStore) artifactPath(reportID string, stage Stage) string {
	return filepath.Join(s.root, reportID, string(stage), stage.ArtifactFile())
}

// writeAtomic writes data to a temp file in the target directory and renames
// it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}
