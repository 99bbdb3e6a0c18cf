package tests

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/nholden/tidedb"
	"github.com/nholden/tidedb/core"
	"github.com/nholden/tidedb/sql"
)

// setupBenchmarkDB creates a database with test data for benchmarks
func setupBenchmarkDB(b *testing.B) *tidedb.Connection {
	process, err := tidedb.StartProcess(tidedb.DoNotSendUsageStatistics, tidedb.Settings{"log_dir": b.TempDir()})
	if err != nil {
		b.Fatalf("Failed to start process: %v", err)
	}
	connection, err := tidedb.Open(process, filepath.Join(b.TempDir(), "bench.tdb"), tidedb.CreateModeCreate)
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

	// Insert 1000 records in one batch
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

func runQuery(b *testing.B, connection *tidedb.Connection, query string) {
	result, err := connection.ExecuteQuery(query)
	if err != nil {
		b.Fatalf("Execute error: %v", err)
	}
	for result.Next() {
	}
	if err := result.Err(); err != nil {
		b.Fatalf("Result error: %v", err)
	}
	result.Close()
}

// BenchmarkSQLParsing benchmarks SQL parsing performance
func BenchmarkSQLParsing(b *testing.B) {
	queries := []struct {
		name  string
		query string
	}{
		{"SimpleSelect", "SELECT * FROM users"},
		{"SelectWithWhere", "SELECT * FROM users WHERE age > 30"},
		{"SelectWithOrderBy", "SELECT * FROM users ORDER BY age DESC"},
		{"SelectWithSubquery", "SELECT * FROM orders WHERE customer_id = ANY(SELECT id FROM users WHERE age > 30)"},
		{"SelectComplex", "SELECT * FROM users WHERE age > 25 AND city = 'City5' ORDER BY name ASC LIMIT 10"},
		{"Insert", "INSERT INTO users (id, name, age, city) VALUES (1, 'Test', 25, 'NYC')"},
		{"Update", "UPDATE users SET age = 30 WHERE id = 1"},
		{"Delete", "DELETE FROM users WHERE id = 1"},
	}

	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				parser := sql.NewParser(q.query)
				_, err := parser.Parse()
				if err != nil {
					b.Fatalf("Parse error: %v", err)
				}
			}
		})
	}
}

// BenchmarkLexer benchmarks lexer performance
func BenchmarkLexer(b *testing.B) {
	query := "SELECT id, name, age FROM users WHERE age > 25 AND city = 'NYC' ORDER BY name ASC LIMIT 100 OFFSET 10"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		lexer := sql.NewLexer(query)
		for {
			token := lexer.NextToken()
			if token.Type == sql.EOF {
				break
			}
		}
	}
}

// BenchmarkSelectAll benchmarks SELECT * FROM table
func BenchmarkSelectAll(b *testing.B) {
	connection := setupBenchmarkDB(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		runQuery(b, connection, "SELECT * FROM users")
	}
}

// BenchmarkSelectWithWhere benchmarks SELECT with WHERE clause
func BenchmarkSelectWithWhere(b *testing.B) {
	connection := setupBenchmarkDB(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		runQuery(b, connection, "SELECT * FROM users WHERE age > 40")
	}
}

// BenchmarkSelectWithFunction benchmarks a WHERE clause calling a
// scalar function per row
func BenchmarkSelectWithFunction(b *testing.B) {
	connection := setupBenchmarkDB(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		runQuery(b, connection, "SELECT name FROM users WHERE upper(city) = 'CITY5'")
	}
}

// BenchmarkSelectWithOrderBy benchmarks SELECT with ORDER BY
func BenchmarkSelectWithOrderBy(b *testing.B) {
	connection := setupBenchmarkDB(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		runQuery(b, connection, "SELECT * FROM users ORDER BY age DESC")
	}
}

// BenchmarkSelectWithLimit benchmarks SELECT with LIMIT
func BenchmarkSelectWithLimit(b *testing.B) {
	connection := setupBenchmarkDB(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		runQuery(b, connection, "SELECT * FROM users LIMIT 10")
	}
}

// BenchmarkCount benchmarks COUNT(*)
func BenchmarkCount(b *testing.B) {
	connection := setupBenchmarkDB(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := tidedb.ExecuteScalarQuery[int64](connection, "SELECT COUNT(*) FROM users")
		if err != nil {
			b.Fatalf("Execute error: %v", err)
		}
	}
}

// BenchmarkInsert benchmarks single-row INSERT performance, each
// statement committing a full file rewrite
func BenchmarkInsert(b *testing.B) {
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

// BenchmarkUpdate benchmarks UPDATE performance
func BenchmarkUpdate(b *testing.B) {
	connection := setupBenchmarkDB(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		id := (i % 1000) + 1
		_, err := connection.ExecuteCommand("UPDATE users SET age = 99 WHERE id = " + strconv.Itoa(id))
		if err != nil {
			b.Fatalf("Update error: %v", err)
		}
	}
}

// BenchmarkComplexQuery benchmarks a complex query
func BenchmarkComplexQuery(b *testing.B) {
	connection := setupBenchmarkDB(b)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		runQuery(b, connection, "SELECT * FROM users WHERE age > 30 AND city = 'City5' ORDER BY age DESC LIMIT 20")
	}
}

// BenchmarkBulkInsertSQL benchmarks bulk INSERT with a VALUES list
func BenchmarkBulkInsertSQL(b *testing.B) {
	connection := setupBenchmarkDB(b)
	connection.ExecuteCommand("CREATE TABLE bulk_test (id INT NOT NULL, name TEXT NOT NULL, value INT NOT NULL)")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Build a bulk insert with 100 values
		var values strings.Builder
		for j := 0; j < 100; j++ {
			if j > 0 {
				values.WriteString(", ")
			}
			id := i*100 + j
			fmt.Fprintf(&values, "(%d, 'Name%d', %d)", id, id, id*10)
		}
		_, err := connection.ExecuteCommand("INSERT INTO bulk_test (id, name, value) VALUES " + values.String())
		if err != nil {
			b.Fatalf("Bulk insert error: %v", err)
		}
	}
}

// BenchmarkBulkInsertBuffered benchmarks bulk insertion through the
// Inserter, which skips SQL parsing per row
func BenchmarkBulkInsertBuffered(b *testing.B) {
	connection := setupBenchmarkDB(b)
	connection.ExecuteCommand("CREATE TABLE bulk_buffered (id INT NOT NULL, name TEXT NOT NULL, value INT NOT NULL)")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		inserter, err := tidedb.NewInserter(connection, core.UnqualifiedTableName("bulk_buffered"))
		if err != nil {
			b.Fatalf("Failed to create inserter: %v", err)
		}
		for j := 0; j < 100; j++ {
			id := i*100 + j
			if err := inserter.Add(id, "Name"+strconv.Itoa(id), id*10); err != nil {
				b.Fatalf("Failed to add row: %v", err)
			}
		}
		if _, err := inserter.Execute(); err != nil {
			b.Fatalf("Bulk insert error: %v", err)
		}
		inserter.Close()
	}
}

// BenchmarkCopyImport benchmarks COPY FROM a local CSV file
func BenchmarkCopyImport(b *testing.B) {
	connection := setupBenchmarkDB(b)

	// Build the CSV once
	var csv strings.Builder
	csv.WriteString("id,name,age,city\n")
	for i := 1; i <= 1000; i++ {
		fmt.Fprintf(&csv, "%d,User%d,%d,City%d\n", i, i, 20+i%50, i%10)
	}
	csvPath := filepath.Join(b.TempDir(), "import_bench.csv")
	if err := os.WriteFile(csvPath, []byte(csv.String()), 0644); err != nil {
		b.Fatalf("Failed to write CSV: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Fresh table per import
		tableName := fmt.Sprintf("import_test_%d", i)
		_, err := connection.ExecuteCommand("CREATE TABLE " + tableName +
			" (id INT NOT NULL, name TEXT NOT NULL, age INT NOT NULL, city TEXT NOT NULL)")
		if err != nil {
			b.Fatalf("Create table error: %v", err)
		}
		_, err = connection.ExecuteCommand("COPY " + tableName + " FROM '" + csvPath + "' WITH (format csv, header)")
		if err != nil {
			b.Fatalf("Copy import error: %v", err)
		}
	}
}
