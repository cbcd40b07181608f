package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

func sampleHits() []domain.SearchHit {
	return []domain.SearchHit{
		{ID: "0003", Type: domain.HitTypeChunk, Order: 3, Score: 2.5, Text: "the relay\nwiring   diagram"},
		{ID: "page2_img1", Type: domain.HitTypeImageCaption, PageIndex: 1, Path: "/data/doc/page2_img1.png", Score: 1.25, Text: "Figure 2: relay"},
	}
}

func TestSearchCmd_DefaultsToHybrid(t *testing.T) {
	ts := setupTestServices(t)
	ts.retrieval.hybrid = []domain.HybridHit{
		{SearchHit: sampleHits()[0], LexicalScore: 1, VectorScore: 0.5, HybridScore: 0.65},
	}

	out, err := execute(t, "search", "relay wiring")

	require.NoError(t, err)
	assert.Equal(t, []string{"hybrid"}, ts.retrieval.calls)
	assert.Equal(t, "relay wiring", ts.retrieval.query)
	assert.Equal(t, "", ts.retrieval.docID)
	assert.Equal(t, 10, ts.retrieval.opts.K)
	assert.Equal(t, domain.SearchTargetChunks, ts.retrieval.opts.Target)
	assert.Nil(t, ts.retrieval.opts.Weights)
	assert.Contains(t, out, "[1] chunk 0003 (0.650 (lex 1.00, vec 0.50))")
	assert.Contains(t, out, "the relay wiring diagram")
}

func TestSearchCmd_WeightsAndTarget(t *testing.T) {
	ts := setupTestServices(t)

	_, err := execute(t, "search", "relay", "--doc", testDocID, "-n", "3", "--target", "captions", "-w", "0.5,0.5")

	require.NoError(t, err)
	assert.Equal(t, testDocID, ts.retrieval.docID)
	assert.Equal(t, 3, ts.retrieval.opts.K)
	assert.Equal(t, domain.SearchTargetCaptions, ts.retrieval.opts.Target)
	require.NotNil(t, ts.retrieval.opts.Weights)
	assert.Equal(t, domain.HybridWeights{Lexical: 0.5, Vector: 0.5}, *ts.retrieval.opts.Weights)
}

func TestSearchCmd_BadWeights(t *testing.T) {
	ts := setupTestServices(t)

	_, err := execute(t, "search", "hybrid", "relay", "--weights", "abc")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, ts.retrieval.calls)
}

func TestSearchLexicalCmd(t *testing.T) {
	ts := setupTestServices(t)
	ts.retrieval.hits = sampleHits()

	out, err := execute(t, "search", "lexical", "relay", "--type", "image_caption", "--limit", "5")

	require.NoError(t, err)
	assert.Equal(t, []string{"lexical"}, ts.retrieval.calls)
	assert.Equal(t, domain.HitTypeImageCaption, ts.retrieval.typ)
	assert.Equal(t, 5, ts.retrieval.limit)
	assert.Contains(t, out, "[2] image_caption page2_img1 (1.250)")
	assert.Contains(t, out, "Page: 2  Image: /data/doc/page2_img1.png")
}

func TestSearchLexicalCmd_BadType(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "search", "lexical", "relay", "-t", "table")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchVectorAndCaptionsCmds(t *testing.T) {
	ts := setupTestServices(t)

	_, err := execute(t, "search", "vector", "relay", "-d", testDocID)
	require.NoError(t, err)
	_, err = execute(t, "search", "captions", "relay")
	require.NoError(t, err)

	assert.Equal(t, []string{"vector", "captions"}, ts.retrieval.calls)
	assert.Equal(t, "", ts.retrieval.docID, "flags reset between runs")
}

func TestSearchCmd_NoResults(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "search", "vector", "nothing")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	ts := setupTestServices(t)
	ts.retrieval.hits = sampleHits()

	out, err := execute(t, "--json", "search", "lexical", "relay")

	require.NoError(t, err)
	var hits []domain.SearchHit
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	assert.Equal(t, sampleHits(), hits)
}

func TestSearchCmd_ServiceError(t *testing.T) {
	ts := setupTestServices(t)
	ts.retrieval.err = domain.ErrNoActiveDocument

	_, err := execute(t, "search", "relay")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoActiveDocument)
	assert.Contains(t, err.Error(), "search failed")
}

func TestParseWeights(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    domain.HybridWeights
		wantErr bool
	}{
		{"default split", "0.3,0.7", domain.HybridWeights{Lexical: 0.3, Vector: 0.7}, false},
		{"spaces", " 1 , 0 ", domain.HybridWeights{Lexical: 1, Vector: 0}, false},
		{"one value", "0.5", domain.HybridWeights{}, true},
		{"not numbers", "a,b", domain.HybridWeights{}, true},
		{"negative", "-1,2", domain.HybridWeights{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWeights(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChunksCmd(t *testing.T) {
	ts := setupTestServices(t)
	ts.retrieval.chunks = []domain.Chunk{
		{ID: "0001", Content: "first chunk"},
		{ID: "0002", Content: "second chunk"},
	}

	out, err := execute(t, "chunks", "1", "chunk_0002", "--doc", testDocID)

	require.NoError(t, err)
	assert.Equal(t, testDocID, ts.retrieval.docID)
	assert.Equal(t, []string{"1", "chunk_0002"}, ts.retrieval.ids)
	assert.Contains(t, out, "chunk_0001.txt\nfirst chunk")
	assert.Contains(t, out, "chunk_0002.txt\nsecond chunk")
}

func TestChunksCmd_NoneFound(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "chunks", "99")

	require.NoError(t, err)
	assert.Contains(t, out, "No chunks found.")
}
