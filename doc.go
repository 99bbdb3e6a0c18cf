// Package tidedb provides an embedded analytical SQL engine that
// stores each database in a single file.
//
// A Process is the engine runtime; a Connection is a session against
// one database file. The file is columnar, compressed, and rewritten
// atomically per statement, and a sidecar lock enforces one writer at
// a time.
//
// # Quick Start
//
//	process, _ := tidedb.StartProcess(tidedb.DoNotSendUsageStatistics)
//	defer process.Close()
//
//	connection, _ := tidedb.Open(process, "trips.tdb", tidedb.CreateModeCreateAndReplace)
//	defer connection.Close()
//
//	connection.ExecuteCommand(`CREATE TABLE trips (city TEXT NOT NULL, riders INT)`)
//	connection.ExecuteCommand(`INSERT INTO trips VALUES ('Berlin', 12), ('Oslo', 4)`)
//
//	count, _ := tidedb.ExecuteScalarQuery[int64](connection, "SELECT COUNT(*) FROM trips")
//
// # Bulk loading
//
// The Inserter buffers rows and commits them in one atomic batch, with
// optional SQL expressions computing target columns from input
// columns:
//
//	inserter, _ := tidedb.NewInserter(connection, core.UnqualifiedTableName("trips"))
//	inserter.Add("Madrid", 31)
//	inserter.Execute()
//
// COPY loads CSV files from local paths, http(s):// or s3:// sources.
//
// # Supported SQL
//
// TideDB supports a subset of SQL including:
//   - CREATE/DROP SCHEMA, CREATE/DROP TABLE (IF [NOT] EXISTS, OR REPLACE, CASCADE)
//   - INSERT, SELECT, UPDATE, DELETE, COPY
//   - WHERE with three-valued logic, = ANY(subquery), IS [NOT] NULL
//   - ORDER BY, LIMIT, OFFSET, COUNT(*)
//   - CASE, CAST, string and datetime functions
//
// Scalar types: BOOLEAN, SMALLINT, INTEGER, BIGINT, REAL, DOUBLE
// PRECISION, NUMERIC(p,s), TEXT, BYTES, DATE, TIME, TIMESTAMP [WITH
// TIME ZONE], GEOGRAPHY.
package tidedb
