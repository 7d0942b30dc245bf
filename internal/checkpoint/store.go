package checkpoint

import (
	"errors"
	"time"
)

// Stage names one pipeline stage whose output can be checkpointed.
type Stage string

const (
	StageExtracted  Stage = "extracted"
	StageClassified Stage = "classified"
	StageMatched    Stage = "matched"
	StageEvaluated  Stage = "evaluated"
)

// artifactFiles maps each stage to its on-disk artifact name.
var artifactFiles = map[Stage]string{
	StageExtracted:  "extracted_sections.json",
	StageClassified: "classified_sentences.json",
	StageMatched:    "query_results.json",
	StageEvaluated:  "evaluations.json",
}

// ArtifactFile returns the artifact filename for a stage, or "" for an
// unknown stage.
func (s Stage) ArtifactFile() string {
	return artifactFiles[s]
}

// Valid reports whether s is a known checkpointable stage.
func (s Stage) Valid() bool {
	_, ok := artifactFiles[s]
	return ok
}

// Metadata is the sibling record written next to every stage artifact. It is
// the only place where silent data-level degradation (dropped batches, missing
// evidence) stays visible for post-hoc auditing.
type Metadata struct {
	ReportID      string                    `json:"report_id"`
	Stage         string                    `json:"stage"`
	CreatedAt     time.Time                 `json:"created_at"`
	Model         string                    `json:"model,omitempty"`
	Counts        map[string]int            `json:"counts,omitempty"`
	Distributions map[string]map[string]int `json:"distributions,omitempty"`
}

// ErrNotFound is returned by Load for an absent (report, stage) checkpoint.
var ErrNotFound = errors.New("checkpoint not found")

// Store persists stage artifacts keyed by (report id, stage). Checkpoints are
// write-once per key in normal operation; a re-run either reuses them verbatim
// or the caller disables caching. Concurrent writers to the same key are
// undefined behavior — single-writer use is an operational constraint, not
// something the store resolves.
type Store interface {
	// Has reports whether a checkpoint exists for the key.
	Has(reportID string, stage Stage) bool

	// Load unmarshals the stored payload into v. Returns ErrNotFound if the
	// checkpoint is absent.
	Load(reportID string, stage Stage, v any) error

	// Save writes the payload and its metadata record. A concurrent reader in
	// single-writer use never observes a partially written payload.
	Save(reportID string, stage Stage, payload any, meta Metadata) error
}
