package normaliser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

func TestNormalise(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"form feed", "page one\fpage two", "page one\npage two"},
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"nbsp", "a\u00a0b", "a b"},
		{"soft hyphen", "hy\u00adphen", "hyphen"},
		{"nfc", "e\u0301", "\u00e9"},
		{"unchanged", "plain text", "plain text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalise(tt.in))
		})
	}
}

func TestProcessor_PassesChunksThrough(t *testing.T) {
	p := New()
	doc := &domain.DocumentText{DocumentID: "d", Text: "x\fy"}
	in := []domain.Chunk{{ID: "0001"}}

	out, err := p.Process(context.Background(), doc, in)

	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, "x\ny", doc.Text)
	assert.Equal(t, "normaliser", p.Name())
}

func TestProcessor_NilDocument(t *testing.T) {
	_, err := New().Process(context.Background(), nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
