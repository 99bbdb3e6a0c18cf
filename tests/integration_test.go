package tests

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nholden/tidedb"
	"github.com/nholden/tidedb/core"
)

func startProcess(t *testing.T) *tidedb.Process {
	t.Helper()
	process, err := tidedb.StartProcess(tidedb.DoNotSendUsageStatistics, tidedb.Settings{"log_dir": t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to start process: %v", err)
	}
	t.Cleanup(func() { process.Close() })
	return process
}

func execute(t *testing.T, connection *tidedb.Connection, statement string) int64 {
	t.Helper()
	count, err := connection.ExecuteCommand(statement)
	if err != nil {
		t.Fatalf("Failed to execute %q: %v", statement, err)
	}
	return count
}

func countOf(t *testing.T, connection *tidedb.Connection, query string) int64 {
	t.Helper()
	count, err := tidedb.ExecuteScalarQuery[int64](connection, query)
	if err != nil {
		t.Fatalf("Failed to run %q: %v", query, err)
	}
	return count
}

// TestEndToEndWorkflow drives a load-analyze-mutate cycle across two
// connections to the same file.
func TestEndToEndWorkflow(t *testing.T) {
	process := startProcess(t)
	path := filepath.Join(t.TempDir(), "superstore.tdb")

	csvPath := filepath.Join(t.TempDir(), "orders.csv")
	csv := "Order ID,Customer ID,Amount,Ship Date\n" +
		"O-1,DK-13375,120.50,2024-01-03\n" +
		"O-2,EB-13705,80.00,2024-01-04\n" +
		"O-3,DK-13375,NULL,2024-01-05\n" +
		"O-4,JW-15220,42.75,NULL\n"
	if err := os.WriteFile(csvPath, []byte(csv), 0644); err != nil {
		t.Fatalf("Failed to write CSV: %v", err)
	}

	connection, err := tidedb.Open(process, path, tidedb.CreateModeCreate)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}

	execute(t, connection, `CREATE SCHEMA "Extract"`)
	execute(t, connection, `CREATE TABLE "Extract"."Orders" (
		"Order ID" TEXT NOT NULL,
		"Customer ID" TEXT NOT NULL,
		"Amount" NUMERIC(10, 2),
		"Ship Date" DATE)`)
	execute(t, connection, `CREATE TABLE "Extract"."Customer" (
		"Customer ID" TEXT NOT NULL,
		"Customer Name" TEXT NOT NULL)`)
	execute(t, connection, `INSERT INTO "Extract"."Customer" VALUES
		('DK-13375', 'Dennis Kane'),
		('EB-13705', 'Ed Braxton'),
		('JW-15220', 'Jane Waco')`)

	loaded := execute(t, connection,
		`COPY "Extract"."Orders" FROM '`+csvPath+`' WITH (format csv, header, NULL 'NULL')`)
	if loaded != 4 {
		t.Errorf("Expected 4 rows loaded, got %d", loaded)
	}

	if got := countOf(t, connection, `SELECT COUNT(*) FROM "Extract"."Orders" WHERE "Amount" IS NULL`); got != 1 {
		t.Errorf("Expected 1 NULL amount, got %d", got)
	}
	if got := countOf(t, connection, `SELECT COUNT(*) FROM "Extract"."Orders" WHERE "Ship Date" IS NULL`); got != 1 {
		t.Errorf("Expected 1 NULL ship date, got %d", got)
	}

	deleted := execute(t, connection, `DELETE FROM "Extract"."Orders" WHERE "Customer ID" = ANY(
		SELECT "Customer ID" FROM "Extract"."Customer" WHERE "Customer Name" = 'Dennis Kane')`)
	if deleted != 2 {
		t.Errorf("Expected 2 orders deleted, got %d", deleted)
	}

	if err := connection.Close(); err != nil {
		t.Fatalf("Failed to close connection: %v", err)
	}

	// Reopen and verify the mutations persisted
	connection, err = tidedb.Open(process, path, tidedb.CreateModeNone)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer connection.Close()

	if got := countOf(t, connection, `SELECT COUNT(*) FROM "Extract"."Orders"`); got != 2 {
		t.Errorf("Expected 2 orders after reopen, got %d", got)
	}
	amount, err := tidedb.ExecuteScalarQuery[float64](connection,
		`SELECT CAST("Amount" AS DOUBLE PRECISION) FROM "Extract"."Orders" WHERE "Order ID" = 'O-2'`)
	if err != nil {
		t.Fatalf("Failed to read amount: %v", err)
	}
	if amount != 80.0 {
		t.Errorf("Expected amount 80.00, got %v", amount)
	}

	schemas, err := connection.Catalog().SchemaNames()
	if err != nil {
		t.Fatalf("Failed to list schemas: %v", err)
	}
	if len(schemas) != 2 || schemas[0] != "Extract" || schemas[1] != "public" {
		t.Errorf("Expected [Extract public], got %v", schemas)
	}
}

// TestSingleWriterLock verifies that a second connection cannot open a
// database that is already held.
func TestSingleWriterLock(t *testing.T) {
	process := startProcess(t)
	path := filepath.Join(t.TempDir(), "locked.tdb")

	first, err := tidedb.Open(process, path, tidedb.CreateModeCreate)
	if err != nil {
		t.Fatalf("Failed to open first connection: %v", err)
	}

	if _, err := tidedb.Open(process, path, tidedb.CreateModeNone); !errors.Is(err, core.ErrFileLocked) {
		t.Errorf("Expected file locked, got %v", err)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Failed to close first connection: %v", err)
	}
	second, err := tidedb.Open(process, path, tidedb.CreateModeNone)
	if err != nil {
		t.Fatalf("Failed to open after release: %v", err)
	}
	if err := second.Close(); err != nil {
		t.Fatalf("Failed to close second connection: %v", err)
	}
}

// TestOpenModesOnDisk exercises each create mode against a real file.
func TestOpenModesOnDisk(t *testing.T) {
	process := startProcess(t)
	path := filepath.Join(t.TempDir(), "modes.tdb")

	if _, err := tidedb.Open(process, path, tidedb.CreateModeNone); !errors.Is(err, core.ErrFileNotFound) {
		t.Errorf("Expected file not found, got %v", err)
	}

	connection, err := tidedb.Open(process, path, tidedb.CreateModeCreateIfNotExists)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	execute(t, connection, "CREATE TABLE t (x INT)")
	execute(t, connection, "INSERT INTO t VALUES (7)")
	if err := connection.Close(); err != nil {
		t.Fatalf("Failed to close connection: %v", err)
	}

	if _, err := tidedb.Open(process, path, tidedb.CreateModeCreate); !errors.Is(err, core.ErrAlreadyExists) {
		t.Errorf("Expected already exists, got %v", err)
	}

	// CreateIfNotExists keeps existing data
	connection, err = tidedb.Open(process, path, tidedb.CreateModeCreateIfNotExists)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	if got := countOf(t, connection, "SELECT COUNT(*) FROM t"); got != 1 {
		t.Errorf("Expected 1 row preserved, got %d", got)
	}
	if err := connection.Close(); err != nil {
		t.Fatalf("Failed to close connection: %v", err)
	}
}

// TestResultStreaming walks a result set row by row.
func TestResultStreaming(t *testing.T) {
	process := startProcess(t)
	connection, err := tidedb.Open(process, filepath.Join(t.TempDir(), "stream.tdb"), tidedb.CreateModeCreate)
	if err != nil {
		t.Fatalf("Failed to open connection: %v", err)
	}
	defer connection.Close()

	execute(t, connection, "CREATE TABLE readings (sensor TEXT NOT NULL, value DOUBLE PRECISION)")
	execute(t, connection, "INSERT INTO readings VALUES ('a', 1.5), ('b', 2.5), ('c', NULL)")

	result, err := connection.ExecuteQuery("SELECT sensor, value FROM readings ORDER BY sensor")
	if err != nil {
		t.Fatalf("Failed to execute query: %v", err)
	}
	defer result.Close()

	columns := result.Schema()
	if len(columns) != 2 || columns[0].Name != "sensor" || columns[1].Name != "value" {
		t.Fatalf("Unexpected schema: %v", columns)
	}

	var sensors []string
	nulls := 0
	for result.Next() {
		row := result.Row()
		sensor, err := row[0].Text()
		if err != nil {
			t.Fatalf("Failed to read sensor: %v", err)
		}
		sensors = append(sensors, sensor)
		if row[1].IsNull() {
			nulls++
		}
	}
	if err := result.Err(); err != nil {
		t.Fatalf("Result error: %v", err)
	}
	if len(sensors) != 3 || sensors[0] != "a" || sensors[2] != "c" {
		t.Errorf("Expected [a b c], got %v", sensors)
	}
	if nulls != 1 {
		t.Errorf("Expected 1 NULL value, got %d", nulls)
	}
}
