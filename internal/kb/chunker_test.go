package kb

import (
	"fmt"
	"strings"
	"testing"
)

func words(n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(out, " ")
}

func TestChunkerEmpty(t *testing.T) {
	c := NewChunker(10, 2)
	if got := c.Chunk("   \n\t "); got != nil {
		t.Errorf("expected nil for blank input, got %v", got)
	}
}

func TestChunkerSingleWindow(t *testing.T) {
	c := NewChunker(10, 2)
	got := c.Chunk(words(7))
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
	if len(strings.Fields(got[0])) != 7 {
		t.Errorf("short input should be one whole chunk, got %q", got[0])
	}
}

func TestChunkerOverlap(t *testing.T) {
	c := NewChunker(10, 3)
	got := c.Chunk(words(20))

	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}
	first := strings.Fields(got[0])
	second := strings.Fields(got[1])
	if len(first) != 10 {
		t.Errorf("expected full window of 10 words, got %d", len(first))
	}
	// last 3 words of chunk N are the first 3 of chunk N+1
	for i := 0; i < 3; i++ {
		if first[7+i] != second[i] {
			t.Errorf("overlap word %d: expected %s, got %s", i, first[7+i], second[i])
		}
	}
}

func TestChunkerCoversAllWords(t *testing.T) {
	c := NewChunker(8, 2)
	input := words(50)
	got := c.Chunk(input)

	last := strings.Fields(got[len(got)-1])
	if last[len(last)-1] != "w49" {
		t.Errorf("final chunk must reach the last word, ends with %s", last[len(last)-1])
	}
}

func TestChunkerDefaults(t *testing.T) {
	c := NewChunker(0, -1)
	if c.size != 200 || c.overlap != 40 {
		t.Errorf("expected defaults 200/40, got %d/%d", c.size, c.overlap)
	}

	c2 := NewChunker(10, 10) // overlap >= size is invalid
	if c2.overlap != 2 {
		t.Errorf("invalid overlap should fall back to size/5, got %d", c2.overlap)
	}
}
