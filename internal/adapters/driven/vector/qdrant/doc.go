// Package qdrant implements the similarity engine against a Qdrant server
// over its REST API.
//
// Each document collection maps to a Qdrant collection named
// <prefix><document id>_<collection>. Point payloads carry the record id,
// text, metadata and embedding model name; Load rejects collections built
// with a different model. All requests share one HTTP session routed
// through an asyncbridge.Bridge.
package qdrant
