// Package figures finds figure regions inside a page's vector graphics
// and links them to captions.
//
// The pipeline for one page is:
//
//  1. Detector filters drawing groups by area, segment count and stroke
//     width, then merges overlapping rectangles to a fixed point.
//  2. CaptionLinker looks for caption keywords in a band below (then
//     above) each rectangle.
//  3. Scorer ranks candidates and drops word-heavy ones without captions.
//
// Everything here is pure and works on domain.PageLayout snapshots, so
// pages of different documents can be processed in parallel.
package figures
