//go:build comparative

package tests

import (
	"database/sql"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/nholden/tidedb"
	"github.com/nholden/tidedb/core"

	_ "github.com/duckdb/duckdb-go/v2"
)

// ============================================================================
// SETUP FUNCTIONS
// ============================================================================

// setupTideDB creates a TideDB database with test data
func setupTideDB(b *testing.B) *tidedb.Connection {
	process, err := tidedb.StartProcess(tidedb.DoNotSendUsageStatistics, tidedb.Settings{"log_dir": b.TempDir()})
	if err != nil {
		b.Fatalf("Failed to start process: %v", err)
	}
	path := filepath.Join(b.TempDir(), "bench.tdb")
	connection, err := tidedb.Open(process, path, tidedb.CreateModeCreate)
	if err != nil {
		b.Fatalf("Failed to open connection: %v", err)
	}
	b.Cleanup(func() {
		connection.Close()
		process.Close()
	})

	_, err = connection.ExecuteCommand("CREATE TABLE users (id INT NOT NULL, name TEXT NOT NULL, age INT NOT NULL, city TEXT NOT NULL)")
	if err != nil {
		b.Fatalf("Failed to create table: %v", err)
	}

	inserter, err := tidedb.NewInserter(connection, core.UnqualifiedTableName("users"))
	if err != nil {
		b.Fatalf("Failed to create inserter: %v", err)
	}
	defer inserter.Close()
	for i := 1; i <= 1000; i++ {
		if err := inserter.Add(i, "User"+strconv.Itoa(i), 20+i%50, "City"+strconv.Itoa(i%10)); err != nil {
			b.Fatalf("Failed to add row: %v", err)
		}
	}
	if _, err := inserter.Execute(); err != nil {
		b.Fatalf("Failed to insert: %v", err)
	}

	return connection
}

// setupDuckDB creates a DuckDB instance with identical test data
func setupDuckDB(b *testing.B) *sql.DB {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		b.Fatalf("Failed to open DuckDB: %v", err)
	}

	_, err = db.Exec("CREATE TABLE users (id INTEGER NOT NULL, name VARCHAR NOT NULL, age INTEGER NOT NULL, city VARCHAR NOT NULL)")
	if err != nil {
		b.Fatalf("Failed to create table: %v", err)
	}

	// Insert 1000 records
	for i := 1; i <= 1000; i++ {
		_, err = db.Exec("INSERT INTO users VALUES (?, ?, ?, ?)",
			i, "User"+strconv.Itoa(i), 20+i%50, "City"+strconv.Itoa(i%10))
		if err != nil {
			b.Fatalf("Failed to insert: %v", err)
		}
	}

	return db
}

func drainTideDB(b *testing.B, connection *tidedb.Connection, query string) {
	result, err := connection.ExecuteQuery(query)
	if err != nil {
		b.Fatalf("Query error: %v", err)
	}
	for result.Next() {
	}
	if err := result.Err(); err != nil {
		b.Fatalf("Result error: %v", err)
	}
	result.Close()
}

// ============================================================================
// SELECT ALL BENCHMARKS
// ============================================================================

func BenchmarkTideDB_SelectAll(b *testing.B) {
	connection := setupTideDB(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		drainTideDB(b, connection, "SELECT * FROM users")
	}
}

func BenchmarkDuckDB_SelectAll(b *testing.B) {
	db := setupDuckDB(b)
	defer db.Close()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		rows, err := db.Query("SELECT * FROM users")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
		// Consume all rows to match TideDB behavior
		for rows.Next() {
			var id, age int
			var name, city string
			rows.Scan(&id, &name, &age, &city)
		}
		rows.Close()
	}
}

// ============================================================================
// SELECT WITH WHERE BENCHMARKS
// ============================================================================

func BenchmarkTideDB_SelectWhere(b *testing.B) {
	connection := setupTideDB(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		drainTideDB(b, connection, "SELECT * FROM users WHERE age > 40")
	}
}

func BenchmarkDuckDB_SelectWhere(b *testing.B) {
	db := setupDuckDB(b)
	defer db.Close()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		rows, err := db.Query("SELECT * FROM users WHERE age > 40")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
		for rows.Next() {
			var id, age int
			var name, city string
			rows.Scan(&id, &name, &age, &city)
		}
		rows.Close()
	}
}

// ============================================================================
// ORDER BY BENCHMARKS
// ============================================================================

func BenchmarkTideDB_OrderBy(b *testing.B) {
	connection := setupTideDB(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		drainTideDB(b, connection, "SELECT * FROM users ORDER BY age DESC")
	}
}

func BenchmarkDuckDB_OrderBy(b *testing.B) {
	db := setupDuckDB(b)
	defer db.Close()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		rows, err := db.Query("SELECT * FROM users ORDER BY age DESC")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
		for rows.Next() {
			var id, age int
			var name, city string
			rows.Scan(&id, &name, &age, &city)
		}
		rows.Close()
	}
}

// ============================================================================
// COUNT BENCHMARKS
// ============================================================================

func BenchmarkTideDB_Count(b *testing.B) {
	connection := setupTideDB(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := tidedb.ExecuteScalarQuery[int64](connection, "SELECT COUNT(*) FROM users")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
	}
}

func BenchmarkDuckDB_Count(b *testing.B) {
	db := setupDuckDB(b)
	defer db.Close()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
	}
}

// ============================================================================
// INSERT BENCHMARKS
// ============================================================================

func BenchmarkTideDB_Insert(b *testing.B) {
	process, _ := tidedb.StartProcess(tidedb.DoNotSendUsageStatistics, tidedb.Settings{"log_dir": b.TempDir()})
	connection, err := tidedb.Open(process, filepath.Join(b.TempDir(), "insert.tdb"), tidedb.CreateModeCreate)
	if err != nil {
		b.Fatalf("Failed to open connection: %v", err)
	}
	b.Cleanup(func() {
		connection.Close()
		process.Close()
	})
	connection.ExecuteCommand("CREATE TABLE items (id INT NOT NULL, value TEXT NOT NULL)")

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := connection.ExecuteCommand("INSERT INTO items VALUES (" +
			strconv.Itoa(i) + ", 'value" + strconv.Itoa(i) + "')")
		if err != nil {
			b.Fatalf("Insert error: %v", err)
		}
	}
}

func BenchmarkDuckDB_Insert(b *testing.B) {
	db, _ := sql.Open("duckdb", "")
	defer db.Close()
	db.Exec("CREATE TABLE items (id INTEGER NOT NULL, value VARCHAR NOT NULL)")

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := db.Exec("INSERT INTO items VALUES (?, ?)", i, "value"+strconv.Itoa(i))
		if err != nil {
			b.Fatalf("Insert error: %v", err)
		}
	}
}

// ============================================================================
// BULK INSERT BENCHMARKS
// ============================================================================

func BenchmarkTideDB_BulkInsert(b *testing.B) {
	process, _ := tidedb.StartProcess(tidedb.DoNotSendUsageStatistics, tidedb.Settings{"log_dir": b.TempDir()})
	connection, err := tidedb.Open(process, filepath.Join(b.TempDir(), "bulk.tdb"), tidedb.CreateModeCreate)
	if err != nil {
		b.Fatalf("Failed to open connection: %v", err)
	}
	b.Cleanup(func() {
		connection.Close()
		process.Close()
	})
	connection.ExecuteCommand("CREATE TABLE items (id INT NOT NULL, value TEXT NOT NULL)")

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		inserter, err := tidedb.NewInserter(connection, core.UnqualifiedTableName("items"))
		if err != nil {
			b.Fatalf("Failed to create inserter: %v", err)
		}
		for j := 0; j < 100; j++ {
			inserter.Add(i*100+j, "value"+strconv.Itoa(j))
		}
		if _, err := inserter.Execute(); err != nil {
			b.Fatalf("Insert error: %v", err)
		}
		inserter.Close()
	}
}

func BenchmarkDuckDB_BulkInsert(b *testing.B) {
	db, _ := sql.Open("duckdb", "")
	defer db.Close()
	db.Exec("CREATE TABLE items (id INTEGER NOT NULL, value VARCHAR NOT NULL)")

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		tx, err := db.Begin()
		if err != nil {
			b.Fatalf("Begin error: %v", err)
		}
		for j := 0; j < 100; j++ {
			tx.Exec("INSERT INTO items VALUES (?, ?)", i*100+j, "value"+strconv.Itoa(j))
		}
		if err := tx.Commit(); err != nil {
			b.Fatalf("Commit error: %v", err)
		}
	}
}

// ============================================================================
// LIMIT BENCHMARKS
// ============================================================================

func BenchmarkTideDB_Limit(b *testing.B) {
	connection := setupTideDB(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		drainTideDB(b, connection, "SELECT * FROM users LIMIT 10")
	}
}

func BenchmarkDuckDB_Limit(b *testing.B) {
	db := setupDuckDB(b)
	defer db.Close()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		rows, err := db.Query("SELECT * FROM users LIMIT 10")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
		for rows.Next() {
			var id, age int
			var name, city string
			rows.Scan(&id, &name, &age, &city)
		}
		rows.Close()
	}
}

// ============================================================================
// COMPLEX QUERY BENCHMARKS
// ============================================================================

func BenchmarkTideDB_Complex(b *testing.B) {
	connection := setupTideDB(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		drainTideDB(b, connection, "SELECT * FROM users WHERE age > 30 AND city = 'City5' ORDER BY age DESC LIMIT 20")
	}
}

func BenchmarkDuckDB_Complex(b *testing.B) {
	db := setupDuckDB(b)
	defer db.Close()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		rows, err := db.Query("SELECT * FROM users WHERE age > 30 AND city = 'City5' ORDER BY age DESC LIMIT 20")
		if err != nil {
			b.Fatalf("Query error: %v", err)
		}
		for rows.Next() {
			var id, age int
			var name, city string
			rows.Scan(&id, &name, &age, &city)
		}
		rows.Close()
	}
}
