// Package store provides the single-file storage layer for TideDB.
//
// A Store holds the catalog (schemas and table definitions) and all
// rows in memory, keyed by an internal row id. Every mutating call
// rewrites the database file atomically (temp file, sync, rename), so
// each statement either persists completely or leaves the file
// untouched.
//
// # File Format
//
// The file starts with the magic "TDB1", a format version, and a CRC32
// of the lz4-compressed payload. The payload is columnar: each table
// stores a roaring bitmap of null positions per column followed by the
// non-null values, fixed-width types as raw little-endian words and
// variable-width types length prefixed.
//
// # Locking
//
// Open takes a sidecar <path>.lock file with O_CREATE|O_EXCL, which
// makes a second writer fail with core.KindFileLocked until the first
// Store is closed. The filesystem is abstracted behind billy, so tests
// run against memfs while production code uses osfs.
package store
