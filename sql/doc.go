// Package sql provides SQL lexing and parsing for TideDB.
//
// The package includes a lexer that tokenizes SQL strings and a parser
// that produces abstract syntax trees for SQL statements and scalar
// expressions.
//
// # Parser Usage
//
//	parser := sql.NewParser(`SELECT COUNT(*) FROM "Extract"."Extract"`)
//	statement, err := parser.Parse()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Standalone expressions, as used in mapped inserter definitions, parse
// through ParseExpression:
//
//	expr, err := sql.ParseExpression(`to_timestamp("Timestamp", 'YYYY-MM-DD HH24:MI:SS')`)
//
// # Supported Statements
//
// The parser supports the following statement types:
//   - SelectStatement (column projection, COUNT(*), WHERE, ORDER BY, LIMIT, OFFSET)
//   - InsertStatement
//   - UpdateStatement
//   - DeleteStatement
//   - CreateSchemaStatement, DropSchemaStatement
//   - CreateTableStatement, DropTableStatement
//   - CopyStatement
//
// Identifiers follow the double-quote convention: bare identifiers are
// case preserving, quoted identifiers may contain any character with
// embedded double quotes doubled. String literals use single quotes
// with embedded single quotes doubled.
//
// All parse failures carry core.KindSyntax and the byte offset of the
// offending token.
package sql
