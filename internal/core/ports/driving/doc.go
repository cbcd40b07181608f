// Package driving declares what the CLI and the MCP server may ask of the
// core: ingest PDFs, manage documents and settings, search the active
// document and prepare figure uploads.
//
// internal/core/services implements every interface here.
package driving
