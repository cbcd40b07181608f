// Package driven lists everything the core needs from the outside world.
//
// Extraction goes through PDFToolkit. Indices are built and opened through
// LexicalEngine and SimilarityEngine, the latter fed by an EmbeddingService.
// Artifacts land in a BlobStore and metadata in the Document, Chunk and
// Figure stores. Settings come from a ConfigStore.
//
// FileUploader may be nil. prepare_images then fails with
// ErrUploaderUnavailable while everything else keeps working.
//
// This package imports domain only.
package driven
