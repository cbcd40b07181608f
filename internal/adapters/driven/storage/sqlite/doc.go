// Package sqlite keeps sercha-pdf metadata in one pure-Go SQLite database
// (modernc.org/sqlite) at <data dir>/metadata.db, opened in WAL mode.
//
// Store hands out four views over the same connection: documents with
// their ingest status, chunk windows, the figure-metadata table
// (id, page_index, image_index, image_path, has_caption, caption, width,
// height) and the upload cache. Deleting a document cascades to the rest.
//
// The schema lives in migrations/ as numbered .up.sql/.down.sql pairs;
// applied versions are tracked in schema_migrations.
package sqlite
