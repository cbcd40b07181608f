// Package fts implements the lexical engine on SQLite FTS5.
//
// Each document gets its own database file with porter-stemmed content and
// unindexed metadata columns. Scores are negated bm25, so higher is better.
package fts
