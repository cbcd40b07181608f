// Package domain defines the core business entities for sercha-pdf.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Rect, WordBox, DrawingGroup, PageLayout: page geometry
//   - FigureCandidate, FigureRegion, FigureRecord: detected figures
//   - Document, Chunk: ingested documents and their text windows
//   - SearchHit, HybridHit: retrieval results
//   - CachedUpload: remote file ids for figure images
//
// # Coordinates
//
// All rectangles use page space with the origin at the top-left corner
// and y growing downward, in PDF points.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
