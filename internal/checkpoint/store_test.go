package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type payload struct {
	Sections map[string][]string `json:"sections"`
}

func samplePayload() payload {
	return payload{Sections: map[string][]string{
		"Overview": {"Revenue grew 12%.", "Margins held steady."},
		"Risks":    {"Supply chain exposure remains."},
	}}
}

func sampleMeta(reportID string, stage Stage) Metadata {
	return Metadata{
		ReportID:  reportID,
		Stage:     string(stage),
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Model:     "gpt-4o-mini",
		Counts:    map[string]int{"sections": 2, "sentences": 3},
	}
}

func TestFSStoreRoundTrip(t *testing.T) {
	store := NewFSStore(t.TempDir())
	const reportID = "acme_q3"

	if store.Has(reportID, StageExtracted) {
		t.Error("empty store must not report a checkpoint")
	}

	want := samplePayload()
	if err := store.Save(reportID, StageExtracted, want, sampleMeta(reportID, StageExtracted)); err != nil {
		t.Fatalf("save: %v", err)
	}

	if !store.Has(reportID, StageExtracted) {
		t.Error("expected checkpoint after save")
	}

	var got payload
	if err := store.Load(reportID, StageExtracted, &got); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Sections) != 2 || got.Sections["Risks"][0] != "Supply chain exposure remains." {
		t.Errorf("unexpected payload after round trip: %+v", got)
	}
}

func TestFSStoreLayout(t *testing.T) {
	root := t.TempDir()
	store := NewFSStore(root)
	const reportID = "acme_q3"

	if err := store.Save(reportID, StageClassified, samplePayload(), sampleMeta(reportID, StageClassified)); err != nil {
		t.Fatalf("save: %v", err)
	}

	artifact := filepath.Join(root, reportID, "classified", "classified_sentences.json")
	if _, err := os.Stat(artifact); err != nil {
		t.Errorf("expected artifact at %s: %v", artifact, err)
	}
	sibling := filepath.Join(root, reportID, "classified", "metadata.json")
	if _, err := os.Stat(sibling); err != nil {
		t.Errorf("expected metadata sibling at %s: %v", sibling, err)
	}

	// no leftover temp files
	entries, err := os.ReadDir(filepath.Join(root, reportID, "classified"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected exactly artifact and metadata, found %d entries", len(entries))
	}
}

func TestFSStoreLoadMissing(t *testing.T) {
	store := NewFSStore(t.TempDir())

	var got payload
	err := store.Load("nobody", StageEvaluated, &got)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFSStoreMetadata(t *testing.T) {
	store := NewFSStore(t.TempDir())
	const reportID = "acme_q3"

	want := sampleMeta(reportID, StageMatched)
	if err := store.Save(reportID, StageMatched, samplePayload(), want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.LoadMetadata(reportID, StageMatched)
	if err != nil {
		t.Fatalf("load metadata: %v", err)
	}
	if got.Model != want.Model || got.Counts["sentences"] != 3 || !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("metadata mismatch: got %+v", got)
	}
}

func TestFSStoreUnknownStage(t *testing.T) {
	store := NewFSStore(t.TempDir())

	if err := store.Save("r", Stage("bogus"), samplePayload(), Metadata{}); err == nil {
		t.Error("expected error saving an unknown stage")
	}
	if store.Has("r", Stage("bogus")) {
		t.Error("unknown stage must not report a checkpoint")
	}
}

func TestFSStoreIsolatesReports(t *testing.T) {
	store := NewFSStore(t.TempDir())

	if err := store.Save("a", StageExtracted, samplePayload(), sampleMeta("a", StageExtracted)); err != nil {
		t.Fatal(err)
	}
	if store.Has("b", StageExtracted) {
		t.Error("checkpoint for report a must not leak to report b")
	}
}

func TestMemStoreRoundTrip(t *testing.T) {
	store := NewMemStore()
	const reportID = "acme_q3"

	if err := store.Save(reportID, StageEvaluated, samplePayload(), sampleMeta(reportID, StageEvaluated)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !store.Has(reportID, StageEvaluated) {
		t.Error("expected checkpoint after save")
	}

	var got payload
	if err := store.Load(reportID, StageEvaluated, &got); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Sections["Overview"][1] != "Margins held steady." {
		t.Errorf("unexpected payload: %+v", got)
	}

	var missing payload
	if err := store.Load("other", StageEvaluated, &missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemStoreIdempotentBytes(t *testing.T) {
	store := NewMemStore()
	const reportID = "acme_q3"

	if err := store.Save(reportID, StageClassified, samplePayload(), Metadata{}); err != nil {
		t.Fatal(err)
	}
	first, _ := store.Raw(reportID, StageClassified)

	if err := store.Save(reportID, StageClassified, samplePayload(), Metadata{}); err != nil {
		t.Fatal(err)
	}
	second, _ := store.Raw(reportID, StageClassified)

	if string(first) != string(second) {
		t.Error("identical payloads must serialize to identical bytes")
	}
}

func TestStageArtifactFiles(t *testing.T) {
	want := map[Stage]string{
		StageExtracted:  "extracted_sections.json",
		StageClassified: "classified_sentences.json",
		StageMatched:    "query_results.json",
		StageEvaluated:  "evaluations.json",
	}
	for stage, file := range want {
		if got := stage.ArtifactFile(); got != file {
			t.Errorf("stage %s: expected %s, got %s", stage, file, got)
		}
		if !stage.Valid() {
			t.Errorf("stage %s should be valid", stage)
		}
	}
	if Stage("analyzed").Valid() {
		t.Error("analysis output is not a checkpointable stage")
	}
}
