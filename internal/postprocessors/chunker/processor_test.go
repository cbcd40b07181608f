package chunker

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.overlap)
		}
	})

	t.Run("custom values", func(t *testing.T) {
		p := New(WithChunkSize(500), WithOverlap(100))
		if p.ChunkSize() != 500 || p.Overlap() != 100 {
			t.Errorf("expected 500/100, got %d/%d", p.ChunkSize(), p.Overlap())
		}
	})

	t.Run("overlap clamped below chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		if p.overlap != 99 {
			t.Errorf("expected overlap 99, got %d", p.overlap)
		}
	})

	t.Run("non-positive values clamped", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		if p.chunkSize != 1 {
			t.Errorf("expected chunkSize 1, got %d", p.chunkSize)
		}
		if p.overlap != 0 {
			t.Errorf("expected overlap 0, got %d", p.overlap)
		}
	})
}

func TestNewStrict(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{"defaults", nil, false},
		{"zero overlap", []Option{WithChunkSize(10), WithOverlap(0)}, false},
		{"overlap equals size", []Option{WithChunkSize(10), WithOverlap(10)}, true},
		{"overlap exceeds size", []Option{WithChunkSize(10), WithOverlap(20)}, true},
		{"negative overlap", []Option{WithOverlap(-1)}, true},
		{"zero size", []Option{WithChunkSize(0)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewStrict(tt.opts...)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrConfiguration) {
					t.Errorf("expected configuration error, got %v", err)
				}
				return
			}
			if err != nil || p == nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestProcessor_Name(t *testing.T) {
	p := New()
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func contents(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

func TestChunk_Scenario(t *testing.T) {
	p := New(WithChunkSize(4), WithOverlap(1))

	chunks := p.Chunk("doc", "ABCDEFGHIJ")

	want := []string{"ABCD", "DEFG", "GHIJ"}
	if !reflect.DeepEqual(contents(chunks), want) {
		t.Fatalf("expected %v, got %v", want, contents(chunks))
	}
	for i, c := range chunks {
		if c.Index != i+1 {
			t.Errorf("chunk %d: expected index %d, got %d", i, i+1, c.Index)
		}
		if c.ID != domain.ChunkID(i+1) {
			t.Errorf("chunk %d: expected id %s, got %s", i, domain.ChunkID(i+1), c.ID)
		}
		if c.Start != i*3 {
			t.Errorf("chunk %d: expected start %d, got %d", i, i*3, c.Start)
		}
		if c.DocumentID != "doc" {
			t.Errorf("chunk %d: unexpected document id %q", i, c.DocumentID)
		}
	}
}

func TestChunk_EmptyText(t *testing.T) {
	if chunks := New().Chunk("doc", ""); len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestChunk_DropsBlankWindowsAndRenumbers(t *testing.T) {
	p := New(WithChunkSize(4), WithOverlap(0))

	chunks := p.Chunk("doc", "ab      cd")

	want := []string{"ab", "cd"}
	if !reflect.DeepEqual(contents(chunks), want) {
		t.Fatalf("expected %v, got %v", want, contents(chunks))
	}
	if chunks[1].ID != "0002" {
		t.Errorf("expected gapless ids, got %s", chunks[1].ID)
	}
}

func TestChunk_CountsRunesNotBytes(t *testing.T) {
	p := New(WithChunkSize(3), WithOverlap(0))

	chunks := p.Chunk("doc", "ñañaña")

	want := []string{"ñañ", "aña"}
	if !reflect.DeepEqual(contents(chunks), want) {
		t.Errorf("expected %v, got %v", want, contents(chunks))
	}
}

func TestChunk_ExactChunkSize(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(3))

	chunks := p.Chunk("doc", "0123456789")

	if len(chunks) != 1 || chunks[0].Content != "0123456789" {
		t.Errorf("expected a single full chunk, got %v", contents(chunks))
	}
}

func TestChunk_CoverageProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	alphabet := []rune("abcdefghij é\nxyz")

	for round := 0; round < 200; round++ {
		size := 1 + rng.Intn(40)
		overlap := rng.Intn(size)
		n := rng.Intn(300)
		runes := make([]rune, n)
		for i := range runes {
			// no whitespace so every window is kept
			runes[i] = alphabet[rng.Intn(10)]
		}
		text := string(runes)

		chunks := New(WithChunkSize(size), WithOverlap(overlap)).Chunk("doc", text)
		if n == 0 {
			if len(chunks) != 0 {
				t.Fatalf("round %d: expected no chunks", round)
			}
			continue
		}

		if chunks[0].Start != 0 {
			t.Fatalf("round %d: first window starts at %d", round, chunks[0].Start)
		}
		if last := chunks[len(chunks)-1]; last.End != n {
			t.Fatalf("round %d: last window ends at %d, want %d", round, last.End, n)
		}
		for i := 1; i < len(chunks); i++ {
			prev, cur := chunks[i-1], chunks[i]
			if cur.Start > prev.End {
				t.Fatalf("round %d: gap between %d and %d", round, prev.End, cur.Start)
			}
			if i < len(chunks)-1 || cur.End-cur.Start == size {
				if prev.End-cur.Start != overlap {
					t.Fatalf("round %d: overlap %d, want %d", round, prev.End-cur.Start, overlap)
				}
			}
			if string(runes[cur.Start:cur.End]) != cur.Content {
				t.Fatalf("round %d: content does not match window", round)
			}
		}
	}
}

func TestChunk_Deterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 120)
	p := New(WithChunkSize(256), WithOverlap(40))

	first := p.Chunk("doc", text)
	second := New(WithChunkSize(256), WithOverlap(40)).Chunk("doc", text)

	if !reflect.DeepEqual(first, second) {
		t.Error("re-chunking identical input produced different chunks")
	}
}

func TestProcessor_Process(t *testing.T) {
	p := New(WithChunkSize(4), WithOverlap(1))
	doc := &domain.DocumentText{DocumentID: "doc-1", Text: "ABCDEFGHIJ"}
	input := []domain.Chunk{{ID: "stale"}}

	chunks, err := p.Process(context.Background(), doc, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 || chunks[0].DocumentID != "doc-1" {
		t.Errorf("expected 3 chunks for doc-1, got %v", chunks)
	}
}

func TestProcessor_Process_NilDocument(t *testing.T) {
	_, err := New().Process(context.Background(), nil, nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}
