// Package sqlite contains the SQLite asset library: built motion assets
// stored as encoded artifacts alongside per-clip summary rows.
//
// The schema is owned by the embedded golang-migrate migrations and is
// brought up to date when a library is opened.
package sqlite
