// Package extract turns a report document into named sections of sentences.
// OCR happens upstream; the input here is either the extractor's markdown
// output or a JSON map of section name to text.
package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// defaultSection holds text appearing before the first heading.
const defaultSection = "Preamble"

// Sections maps a section name to its ordered sentences.
type Sections map[string][]string

// FromFile loads sections from path, dispatching on extension: .json is
// parsed as map[section]text, anything else as markdown.
func FromFile(path string) (Sections, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FromJSON(data)
	}
	return FromMarkdown(string(data)), nil
}

// FromJSON parses a map of section name to body text and splits each body
// into sentences.
func FromJSON(data []byte) (Sections, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse sections json: %w", err)
	}
	out := make(Sections, len(raw))
	for name, body := range raw {
		if sents := SplitSentences(body); len(sents) > 0 {
			out[name] = sents
		}
	}
	return out, nil
}

// FromMarkdown splits a markdown document on "## " headings, one section per
// heading, and splits each section body into sentences. Text before the first
// heading lands in a preamble section.
func FromMarkdown(text string) Sections {
	out := make(Sections)
	current := defaultSection
	var body strings.Builder

	flush := func() {
		if sents := SplitSentences(body.String()); len(sents) > 0 {
			out[current] = append(out[current], sents...)
		}
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			flush()
			current = strings.TrimSpace(strings.TrimPrefix(trimmed, "## "))
			if current == "" {
				current = defaultSection
			}
			continue
		}
		if strings.HasPrefix(trimmed, "# ") {
			// document title, not a section
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()
	return out
}

// SplitSentences breaks text into sentences on terminal punctuation,
// dropping blanks. Abbreviation handling is deliberately minimal; the
// classifier tolerates imperfect splits better than dropped text.
func SplitSentences(text string) []string {
	var (
		out []string
		cur strings.Builder
	)
	runes := []rune(strings.ReplaceAll(text, "\n", " "))
	for i, r := range runes {
		cur.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// don't split inside a number like 3.5
		if r == '.' && i+1 < len(runes) && runes[i+1] >= '0' && runes[i+1] <= '9' {
			continue
		}
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}
