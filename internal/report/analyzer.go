// Package report aggregates evaluations into the run's statistical outputs.
package report

import (
	"math"
	"sort"

	"github.com/claimlens/claimlens/internal/model"
)

// ConfidenceStats describes a confidence distribution.
type ConfidenceStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// CoverageBucket is the supported share within one slice of the data.
type CoverageBucket struct {
	Total     int     `json:"total"`
	Supported int     `json:"supported"`
	Coverage  float64 `json:"coverage"`
}

// Statistics is the full aggregation written to statistics.json.
type Statistics struct {
	ReportID       string                    `json:"report_id"`
	TotalSnippets  int                       `json:"total_snippets"`
	ByEvaluation   map[string]int            `json:"by_evaluation"`
	ByClaimType    map[string]int            `json:"by_claim_type"`
	BySection      map[string]int            `json:"by_section"`
	MeanSupport    float64                   `json:"mean_support_score"`
	Confidence     ConfidenceStats           `json:"claim_type_confidence"`
	Coverage       CoverageBucket            `json:"coverage"`
	ByTypeCoverage map[string]CoverageBucket `json:"coverage_by_claim_type"`
	BySectCoverage map[string]CoverageBucket `json:"coverage_by_section"`
}

// Analyze computes statistics over all sections' evaluations. Supported and
// Partially Supported both count toward coverage; coverage is the fraction of
// snippets with at least partial backing.
func Analyze(reportID string, sections map[string][]model.Evaluation) Statistics {
	stats := Statistics{
		ReportID:       reportID,
		ByEvaluation:   make(map[string]int),
		ByClaimType:    make(map[string]int),
		BySection:      make(map[string]int),
		ByTypeCoverage: make(map[string]CoverageBucket),
		BySectCoverage: make(map[string]CoverageBucket),
	}

	var (
		confidences []float64
		scoreSum    float64
	)
	for name, evals := range sections {
		for _, ev := range evals {
			stats.TotalSnippets++
			stats.ByEvaluation[string(ev.Evaluation)]++
			stats.ByClaimType[string(ev.ClaimType)]++
			stats.BySection[name]++
			scoreSum += ev.SupportScore
			confidences = append(confidences, ev.ClaimTypeConfidence)

			covered := ev.Evaluation == model.Supported || ev.Evaluation == model.PartiallySupported
			bump(&stats.Coverage, covered)
			bumpMap(stats.ByTypeCoverage, string(ev.ClaimType), covered)
			bumpMap(stats.BySectCoverage, name, covered)
		}
	}

	if stats.TotalSnippets > 0 {
		stats.MeanSupport = scoreSum / float64(stats.TotalSnippets)
	}
	stats.Confidence = confidenceStats(confidences)
	finish(&stats.Coverage)
	for k, b := range stats.ByTypeCoverage {
		finish(&b)
		stats.ByTypeCoverage[k] = b
	}
	for k, b := range stats.BySectCoverage {
		finish(&b)
		stats.BySectCoverage[k] = b
	}
	return stats
}

func bump(b *CoverageBucket, covered bool) {
	b.Total++
	if covered {
		b.Supported++
	}
}

func bumpMap(m map[string]CoverageBucket, key string, covered bool) {
	b := m[key]
	bump(&b, covered)
	m[key] = b
}

func finish(b *CoverageBucket) {
	if b.Total > 0 {
		b.Coverage = float64(b.Supported) / float64(b.Total)
	}
}

func confidenceStats(vals []float64) ConfidenceStats {
	if len(vals) == 0 {
		return ConfidenceStats{}
	}
	cs := ConfidenceStats{Min: vals[0], Max: vals[0]}
	var sum float64
	for _, v := range vals {
		sum += v
		if v < cs.Min {
			cs.Min = v
		}
		if v > cs.Max {
			cs.Max = v
		}
	}
	cs.Mean = sum / float64(len(vals))

	var sq float64
	for _, v := range vals {
		d := v - cs.Mean
		sq += d * d
	}
	cs.Std = math.Sqrt(sq / float64(len(vals)))
	return cs
}

// sortedKeys returns map keys in deterministic order for rendering.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
