package report

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/claimlens/claimlens/internal/checkpoint"
	"github.com/claimlens/claimlens/internal/model"
)

func evaluation(section string, index int, claimType model.ClaimType, label model.EvaluationLabel, score, conf float64) model.Evaluation {
	snip := model.UnclassifiedSnippet("claim", section, index)
	snip.ClaimType = claimType
	snip.ClaimTypeConfidence = conf
	return model.Evaluation{
		Snippet:      snip,
		Evidence:     []string{},
		Evaluation:   label,
		SupportScore: score,
		Reason:       "r",
	}
}

func sampleEvaluations() map[string][]model.Evaluation {
	return map[string][]model.Evaluation{
		"Overview": {
			evaluation("Overview", 0, model.ClaimFact, model.Supported, 0.95, 0.9),
			evaluation("Overview", 1, model.ClaimFact, model.PartiallySupported, 0.5, 0.8),
			evaluation("Overview", 2, model.ClaimForecast, model.NotSupported, 0.1, 0.6),
		},
		"Risks": {
			evaluation("Risks", 0, model.ClaimHypothesis, model.NoEvidence, 0.0, 0.7),
		},
	}
}

func TestAnalyzeCounts(t *testing.T) {
	stats := Analyze("acme_q3", sampleEvaluations())

	if stats.TotalSnippets != 4 {
		t.Errorf("expected 4 snippets, got %d", stats.TotalSnippets)
	}
	if stats.ByEvaluation["Supported"] != 1 || stats.ByEvaluation["No Evidence"] != 1 {
		t.Errorf("unexpected evaluation distribution: %v", stats.ByEvaluation)
	}
	if stats.ByClaimType["fact"] != 2 {
		t.Errorf("expected 2 fact claims, got %d", stats.ByClaimType["fact"])
	}
	if stats.BySection["Overview"] != 3 || stats.BySection["Risks"] != 1 {
		t.Errorf("unexpected section distribution: %v", stats.BySection)
	}
}

func TestAnalyzeCoverage(t *testing.T) {
	stats := Analyze("acme_q3", sampleEvaluations())

	// Supported + Partially Supported = 2 of 4
	if stats.Coverage.Supported != 2 || stats.Coverage.Total != 4 {
		t.Errorf("unexpected coverage bucket: %+v", stats.Coverage)
	}
	if math.Abs(stats.Coverage.Coverage-0.5) > 1e-9 {
		t.Errorf("expected coverage 0.5, got %v", stats.Coverage.Coverage)
	}

	fact := stats.ByTypeCoverage["fact"]
	if fact.Supported != 2 || fact.Total != 2 || fact.Coverage != 1.0 {
		t.Errorf("unexpected fact coverage: %+v", fact)
	}
	risks := stats.BySectCoverage["Risks"]
	if risks.Supported != 0 || risks.Coverage != 0.0 {
		t.Errorf("unexpected Risks coverage: %+v", risks)
	}
}

func TestAnalyzeConfidenceStats(t *testing.T) {
	stats := Analyze("acme_q3", sampleEvaluations())

	cs := stats.Confidence
	if math.Abs(cs.Mean-0.75) > 1e-9 {
		t.Errorf("expected mean 0.75, got %v", cs.Mean)
	}
	if cs.Min != 0.6 || cs.Max != 0.9 {
		t.Errorf("expected min 0.6 max 0.9, got %v %v", cs.Min, cs.Max)
	}
	// population std of {0.9, 0.8, 0.6, 0.7}
	want := math.Sqrt((0.15*0.15 + 0.05*0.05 + 0.15*0.15 + 0.05*0.05) / 4)
	if math.Abs(cs.Std-want) > 1e-9 {
		t.Errorf("expected std %v, got %v", want, cs.Std)
	}
}

func TestAnalyzeMeanSupport(t *testing.T) {
	stats := Analyze("acme_q3", sampleEvaluations())
	want := (0.95 + 0.5 + 0.1 + 0.0) / 4
	if math.Abs(stats.MeanSupport-want) > 1e-9 {
		t.Errorf("expected mean support %v, got %v", want, stats.MeanSupport)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	stats := Analyze("empty", map[string][]model.Evaluation{})
	if stats.TotalSnippets != 0 || stats.Coverage.Coverage != 0 {
		t.Errorf("empty input must produce zeroed stats: %+v", stats)
	}
}

func TestWriteArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "acme_q3")
	stats := Analyze("acme_q3", sampleEvaluations())

	if err := WriteArtifacts(dir, stats); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var loaded Statistics
	data, err := os.ReadFile(filepath.Join(dir, "statistics.json"))
	if err != nil {
		t.Fatalf("read statistics.json: %v", err)
	}
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("decode statistics.json: %v", err)
	}
	if loaded.TotalSnippets != 4 || loaded.ReportID != "acme_q3" {
		t.Errorf("statistics round trip mismatch: %+v", loaded)
	}

	var summary struct {
		ReportID string         `json:"report_id"`
		Coverage CoverageBucket `json:"coverage"`
	}
	data, err = os.ReadFile(filepath.Join(dir, "coverage_summary.json"))
	if err != nil {
		t.Fatalf("read coverage_summary.json: %v", err)
	}
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("decode coverage_summary.json: %v", err)
	}
	if summary.Coverage.Supported != 2 {
		t.Errorf("unexpected coverage summary: %+v", summary)
	}

	var meta checkpoint.Metadata
	data, err = os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		t.Fatalf("read metadata.json: %v", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("decode metadata.json: %v", err)
	}
	if meta.ReportID != "acme_q3" || meta.Stage != "analyzed" {
		t.Errorf("unexpected metadata record: %+v", meta)
	}
	if meta.CreatedAt.IsZero() {
		t.Error("metadata record missing timestamp")
	}
	if meta.Counts["snippets"] != 4 {
		t.Errorf("unexpected metadata counts: %v", meta.Counts)
	}
	if len(meta.Distributions["evaluation"]) == 0 {
		t.Error("metadata record missing evaluation distribution")
	}

	text, err := os.ReadFile(filepath.Join(dir, "analysis_report.txt"))
	if err != nil {
		t.Fatalf("read analysis_report.txt: %v", err)
	}
	report := string(text)
	if !strings.Contains(report, "acme_q3") || !strings.Contains(report, "Snippets evaluated: 4") {
		t.Errorf("unexpected text report:\n%s", report)
	}
	if !strings.Contains(report, "By claim type:") || !strings.Contains(report, "By section:") {
		t.Errorf("text report missing breakdowns:\n%s", report)
	}
}
