package chunking

import (
	"strings"
	"testing"
)

func TestSplitRespectsSizeAndOverlap(t *testing.T) {
	s := NewSplitter(100, 20)
	text := strings.Repeat("a", 250)

	chunks := s.Split(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len([]rune(chunk)) > 100 {
			t.Fatalf("chunk %d exceeds size: %d", i, len(chunk))
		}
	}
	// Steps of 80: the chunk starting at 160 reaches the end of the text.
	if len(chunks[2]) != 90 {
		t.Fatalf("tail chunk length = %d, want 90", len(chunks[2]))
	}
}

func TestSplitHandlesMultibyteRunes(t *testing.T) {
	s := NewSplitter(5, 1)
	chunks := s.Split("áéíóúñ¿?¡!")
	for _, chunk := range chunks {
		for _, r := range chunk {
			if r == '�' {
				t.Fatalf("rune split produced replacement char in %q", chunk)
			}
		}
	}
}

func TestSplitEmptyText(t *testing.T) {
	s := NewSplitter(1500, 400)
	if chunks := s.Split(""); chunks != nil {
		t.Fatalf("expected nil for empty text, got %v", chunks)
	}
}

func TestNewSplitterNormalizesBadOverlap(t *testing.T) {
	s := NewSplitter(100, 100)
	if s.Overlap != 25 {
		t.Fatalf("overlap = %d, want 25", s.Overlap)
	}
}
