// Package services holds the core of sercha-pdf: the resource registry,
// hybrid fusion, index building, and the ingestion, retrieval, document,
// upload and settings services behind the driving ports.
//
// Everything here talks to infrastructure through driven ports only.
package services
