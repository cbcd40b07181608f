// Package local implements the similarity engine on a single SQLite file.
//
// Vectors are stored as little-endian float32 BLOBs keyed by document and
// collection, together with the embedding model that produced them. Loading
// a collection whose model differs from the current embedder fails with
// domain.ErrCorruptResource rather than returning meaningless scores.
package local
