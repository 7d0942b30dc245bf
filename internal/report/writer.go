package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/claimlens/claimlens/internal/checkpoint"
)

// coverageSummary is the compact file consumed by downstream dashboards.
type coverageSummary struct {
	ReportID    string                    `json:"report_id"`
	Coverage    CoverageBucket            `json:"coverage"`
	ByClaimType map[string]CoverageBucket `json:"by_claim_type"`
	BySection   map[string]CoverageBucket `json:"by_section"`
}

// WriteArtifacts writes statistics.json, coverage_summary.json, and
// analysis_report.txt into dir, creating it as needed.
func WriteArtifacts(dir string, stats Statistics) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create analysis dir: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, "statistics.json"), stats); err != nil {
		return err
	}

	summary := coverageSummary{
		ReportID:    stats.ReportID,
		Coverage:    stats.Coverage,
		ByClaimType: stats.ByTypeCoverage,
		BySection:   stats.BySectCoverage,
	}
	if err := writeJSON(filepath.Join(dir, "coverage_summary.json"), summary); err != nil {
		return err
	}

	// The analysis directory carries the same metadata record as the
	// stage checkpoints so an audit covers the final artifacts too.
	meta := checkpoint.Metadata{
		ReportID:  stats.ReportID,
		Stage:     "analyzed",
		CreatedAt: time.Now().UTC(),
		Counts: map[string]int{
			"snippets": stats.TotalSnippets,
		},
		Distributions: map[string]map[string]int{
			"evaluation": stats.ByEvaluation,
		},
	}
	if err := writeJSON(filepath.Join(dir, "metadata.json"), meta); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(dir, "analysis_report.txt"))
	if err != nil {
		return fmt.Errorf("create analysis report: %w", err)
	}
	defer f.Close()
	return renderText(f, stats)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// renderText writes the human-readable report.
func renderText(w io.Writer, stats Statistics) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Claim verification report: %s\n", stats.ReportID)
	fmt.Fprintf(&b, "%s\n\n", strings.Repeat("=", 40))
	fmt.Fprintf(&b, "Snippets evaluated: %d\n", stats.TotalSnippets)
	fmt.Fprintf(&b, "Coverage (at least partially supported): %.1f%%\n", stats.Coverage.Coverage*100)
	fmt.Fprintf(&b, "Mean support score: %.3f\n\n", stats.MeanSupport)

	fmt.Fprintf(&b, "By evaluation:\n")
	for _, k := range sortedKeys(stats.ByEvaluation) {
		fmt.Fprintf(&b, "  %-20s %d\n", k, stats.ByEvaluation[k])
	}
	fmt.Fprintf(&b, "\nBy claim type:\n")
	for _, k := range sortedKeys(stats.ByTypeCoverage) {
		cb := stats.ByTypeCoverage[k]
		fmt.Fprintf(&b, "  %-20s %d/%d covered (%.1f%%)\n", k, cb.Supported, cb.Total, cb.Coverage*100)
	}
	fmt.Fprintf(&b, "\nBy section:\n")
	for _, k := range sortedKeys(stats.BySectCoverage) {
		cb := stats.BySectCoverage[k]
		fmt.Fprintf(&b, "  %-30s %d/%d covered (%.1f%%)\n", k, cb.Supported, cb.Total, cb.Coverage*100)
	}
	fmt.Fprintf(&b, "\nClaim-type confidence: mean=%.3f std=%.3f min=%.3f max=%.3f\n",
		stats.Confidence.Mean, stats.Confidence.Std, stats.Confidence.Min, stats.Confidence.Max)

	_, err := io.WriteString(w, b.String())
	return err
}

// PrintSummary writes a short colored summary to stdout.
func PrintSummary(stats Statistics) {
	bold := color.New(color.Bold)
	bold.Printf("\n%s: %d snippets evaluated\n", stats.ReportID, stats.TotalSnippets)

	pct := stats.Coverage.Coverage * 100
	switch {
	case pct >= 70:
		color.Green("Coverage: %.1f%%", pct)
	case pct >= 40:
		color.Yellow("Coverage: %.1f%%", pct)
	default:
		color.Red("Coverage: %.1f%%", pct)
	}

	for _, k := range sortedKeys(stats.ByEvaluation) {
		fmt.Printf("  %-20s %d\n", k, stats.ByEvaluation[k])
	}
}
