// Package migrations holds the versioned schema for documents, chunks,
// figures and the upload cache.
package migrations

import "embed"

// FS is applied in file name order by the sqlite store.
//
//go:embed *.sql
var FS embed.FS
