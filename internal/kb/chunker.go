package kb

import "strings"

// Chunker splits document text into overlapping word windows before
// embedding.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with size and overlap measured in words.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 200
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk splits text into overlapping windows. Empty input yields nil.
func (c *Chunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := c.size - c.overlap
	if step <= 0 {
		step = 1
	}

	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end >= len(words) {
			break
		}
	}
	return chunks
}
