package tidedb

import (
	"github.com/nholden/tidedb/core"
	"github.com/nholden/tidedb/engine"
	"github.com/nholden/tidedb/sql"
)

// ColumnMapping binds one target column of a bulk insert to a SQL
// expression over the inserter's input columns. An empty Expression
// passes the same-named input column through unchanged.
type ColumnMapping struct {
	TargetColumn string
	Expression   string
}

func MapColumn(target, expression string) ColumnMapping {
	return ColumnMapping{TargetColumn: target, Expression: expression}
}

// Inserter buffers rows and appends them to a table in one atomic
// batch per Execute call. Rows are validated as they are added;
// nothing reaches the table until Execute.
type Inserter struct {
	connection   *Connection
	table        core.TableName
	inputColumns []core.Column
	mappings     []engine.MappedColumn
	buffer       []core.Row
	closed       bool
}

// NewInserter creates a plain inserter: input rows have the table's
// own columns and are stored as given.
func NewInserter(connection *Connection, table core.TableName) (*Inserter, error) {
	if err := connection.ensureOpen(); err != nil {
		return nil, err
	}
	definition, err := connection.store.TableDefinition(table)
	if err != nil {
		return nil, err
	}
	mappings := make([]ColumnMapping, len(definition.Columns))
	for i, column := range definition.Columns {
		mappings[i] = ColumnMapping{TargetColumn: column.Name}
	}
	return NewMappedInserter(connection, table, mappings, definition.Columns)
}

// NewMappedInserter creates an inserter whose input rows are shaped
// like inputColumns; each target column is computed from its mapping's
// expression. Every target column must be mapped exactly once.
func NewMappedInserter(connection *Connection, table core.TableName, mappings []ColumnMapping, inputColumns []core.Column) (*Inserter, error) {
	if err := connection.ensureOpen(); err != nil {
		return nil, err
	}
	definition, err := connection.store.TableDefinition(table)
	if err != nil {
		return nil, err
	}
	if len(mappings) != len(definition.Columns) {
		return nil, core.Errorf(core.KindInvalidColumnDefinition,
			"table %s has %d columns, %d mapped", definition.Name, len(definition.Columns), len(mappings))
	}

	compiled := make([]engine.MappedColumn, len(mappings))
	for i, mapping := range mappings {
		expression := mapping.Expression
		if expression == "" {
			expression = core.EscapeName(mapping.TargetColumn)
		}
		expr, err := sql.ParseExpression(expression)
		if err != nil {
			return nil, err
		}
		compiled[i] = engine.MappedColumn{Target: mapping.TargetColumn, Expr: expr}
	}

	columns := make([]core.Column, len(inputColumns))
	copy(columns, inputColumns)
	return &Inserter{
		connection:   connection,
		table:        table,
		inputColumns: columns,
		mappings:     compiled,
	}, nil
}

func (inserter *Inserter) ensureOpen() error {
	if inserter.closed {
		return core.Errorf(core.KindUseAfterClose, "inserter is closed")
	}
	return inserter.connection.ensureOpen()
}

// Add buffers one input row. Values are coerced against the input
// column types immediately, so shape and type problems surface at the
// offending Add, not at Execute.
func (inserter *Inserter) Add(values ...any) error {
	if err := inserter.ensureOpen(); err != nil {
		return err
	}
	if len(values) != len(inserter.inputColumns) {
		return core.Errorf(core.KindRowShape,
			"inserter expects %d values per row, got %d", len(inserter.inputColumns), len(values))
	}
	row := make(core.Row, len(values))
	for i, value := range values {
		column := inserter.inputColumns[i]
		coerced, err := core.CoerceValue(value, column.Type)
		if err != nil {
			return core.Errorf(core.KindTypeMismatch,
				"column %s: %v", core.EscapeName(column.Name), err)
		}
		row[i] = coerced
	}
	inserter.buffer = append(inserter.buffer, row)
	return nil
}

// AddRow buffers one already-typed input row.
func (inserter *Inserter) AddRow(row core.Row) error {
	if err := inserter.ensureOpen(); err != nil {
		return err
	}
	if len(row) != len(inserter.inputColumns) {
		return core.Errorf(core.KindRowShape,
			"inserter expects %d values per row, got %d", len(inserter.inputColumns), len(row))
	}
	for i, value := range row {
		column := inserter.inputColumns[i]
		if !value.IsNull() && !value.Type().Equal(column.Type) {
			return core.Errorf(core.KindTypeMismatch,
				"column %s is %s, value is %s", core.EscapeName(column.Name), column.Type, value.Type())
		}
	}
	inserter.buffer = append(inserter.buffer, core.CloneRow(row))
	return nil
}

// Pending reports how many rows are buffered.
func (inserter *Inserter) Pending() int {
	return len(inserter.buffer)
}

// Execute commits the buffered rows in one atomic batch. On success
// the buffer is cleared and the inserter can keep adding; on failure
// the buffer is kept and the table is untouched.
func (inserter *Inserter) Execute() (int64, error) {
	if err := inserter.ensureOpen(); err != nil {
		return 0, err
	}
	count, err := inserter.connection.executor.InsertMapped(
		inserter.table, inserter.mappings, inserter.inputColumns, inserter.buffer)
	if err != nil {
		return 0, err
	}
	inserter.buffer = nil
	return count, nil
}

// Close discards any buffered rows. A closed inserter rejects further
// use.
func (inserter *Inserter) Close() {
	inserter.buffer = nil
	inserter.closed = true
}
