package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-pdf/internal/core/domain"
)

func TestFiguresListCmd_UsesActiveDocument(t *testing.T) {
	ts := setupTestServices(t)
	ts.retrieval.active = testDocID
	ts.documents.figures[testDocID] = []domain.FigureRecord{
		{ID: "page1_img1", Kind: domain.FigureKindBitmap, PageIndex: 0, Width: 640, Height: 480, HasCaption: true, Caption: "Figure 1: overview"},
		{ID: "page3_vec1", Kind: domain.FigureKindVector, PageIndex: 2, Width: 900, Height: 300, Caption: "Relay panel"},
		{ID: "page4_img1", Kind: domain.FigureKindBitmap, PageIndex: 3, Width: 10, Height: 10},
	}

	out, err := execute(t, "figures", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "page1_img1  bitmap page 1  640x480")
	assert.Contains(t, out, "Figure 1: overview\n")
	assert.Contains(t, out, "Relay panel (label)")
	assert.Contains(t, out, "(no caption)")
	assert.Contains(t, out, "Total: 3 figures")
}

func TestFiguresListCmd_NoActiveDocument(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "figures", "list")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoActiveDocument)
}

func TestFiguresListCmd_ExplicitDocument(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "figures", "list", "doc-2")

	require.NoError(t, err)
	assert.Contains(t, out, "No figures found.")
}

func TestFiguresDetectCmd(t *testing.T) {
	ts := setupTestServices(t)
	region := domain.FigureRegion{
		Score:       42.5,
		WordsInside: 3,
		HasCaption:  true,
		Caption:     "Figure 3: schematic",
		PageIndex:   1,
	}
	region.Rect = domain.Rect{X0: 10, Y0: 20, X1: 300, Y1: 200}
	region.Segments = 120
	ts.ingestion.regions = []domain.FigureRegion{region}

	out, err := execute(t, "figures", "detect", "manual.pdf", "--pages", "2, 5")

	require.NoError(t, err)
	assert.Equal(t, "manual.pdf", ts.ingestion.detectPath)
	assert.Equal(t, []int{1, 4}, ts.ingestion.detectPages)
	assert.Contains(t, out, "page 2  score 42.5  segments 120  words 3")
	assert.Contains(t, out, "rect [10.0 20.0 300.0 200.0]")
	assert.Contains(t, out, "caption: Figure 3: schematic")
}

func TestFiguresDetectCmd_NothingFound(t *testing.T) {
	ts := setupTestServices(t)

	out, err := execute(t, "figures", "detect", "manual.pdf")

	require.NoError(t, err)
	assert.Nil(t, ts.ingestion.detectPages)
	assert.Contains(t, out, "No vector figures detected.")
}

func TestParsePages(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int
		wantErr bool
	}{
		{"empty means all", "", nil, false},
		{"blank means all", "  ", nil, false},
		{"one based to zero based", "1,3", []int{0, 2}, false},
		{"zero rejected", "0", nil, true},
		{"word rejected", "1,two", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePages(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
