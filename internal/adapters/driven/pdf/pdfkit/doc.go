// Package pdfkit implements the PDF toolkit port on top of tabula.
//
// Page content streams are interpreted to recover painted vector paths and
// XObject placements in a top-left page space measured in points. Word boxes
// come from tabula's positioned text fragments; plain page text comes from
// ledongthuc/pdf with a word-box fallback. Regions are rasterised with
// golang.org/x/image.
//
// tabula's content-stream parser keeps shared state, so all parsing within
// this package is serialised.
package pdfkit
