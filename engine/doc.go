// Package engine provides the SQL execution layer for TideDB.
//
// The Executor type is the main entry point. It parses SQL, runs the
// statement against a store.Store, and returns either an affected row
// count or a Result cursor.
//
//	executor := engine.New(st, logger, engine.RemoteOptions{})
//	count, err := executor.ExecuteCommand(`UPDATE "Customer" SET points = points + 50`)
//
// # Execution model
//
// Queries materialize their output before the Result is returned:
// filtering, ORDER BY, LIMIT and OFFSET all run eagerly, and the
// Result then streams rows from the snapshot. Every mutating statement
// maps to one atomic store commit, so a failure mid-statement never
// leaves partial rows behind.
//
// ANY subqueries are resolved once per statement into a value set and
// then probed per row.
//
// # Bulk loading
//
// COPY parses CSV through simdcsv and supports local paths, file://,
// http(s):// and s3:// sources; S3 credentials come from the
// connection settings via RemoteOptions. InsertMapped is the push-down
// path used by inserters: each target column is computed from an
// expression over the caller's input columns.
package engine
