package core

// Column is one column of a table: name, scalar type, nullability.
// Column order within a table is significant and fixed at creation.
type Column struct {
	Name        string
	Type        SqlType
	Nullability Nullability
}

// TableDefinition is the structural contract of a table. Once created
// in the catalog it is immutable; changing structure means dropping
// and recreating the table.
type TableDefinition struct {
	Name    TableName
	Columns []Column
}

func NewTableDefinition(name TableName, columns ...Column) *TableDefinition {
	return &TableDefinition{Name: name, Columns: columns}
}

// AddColumn appends a column and returns the definition for chaining.
func (d *TableDefinition) AddColumn(name string, t SqlType, n Nullability) *TableDefinition {
	d.Columns = append(d.Columns, Column{Name: name, Type: t, Nullability: n})
	return d
}

// ColumnIndex returns the position of the named column, or -1.
// Column names match case-sensitively, like quoted SQL identifiers.
func (d *TableDefinition) ColumnIndex(name string) int {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return i
		}
	}
	return -1
}

// Validate rejects definitions with no columns or duplicate column
// names.
func (d *TableDefinition) Validate() error {
	if len(d.Columns) == 0 {
		return Errorf(KindInvalidColumnDefinition, "table %s has no columns", d.Name)
	}
	seen := make(map[string]bool, len(d.Columns))
	for _, col := range d.Columns {
		if col.Name == "" {
			return Errorf(KindInvalidColumnDefinition, "table %s has an unnamed column", d.Name)
		}
		if seen[col.Name] {
			return Errorf(KindInvalidColumnDefinition, "duplicate column %q in table %s", col.Name, d.Name)
		}
		seen[col.Name] = true
	}
	return nil
}

// Clone deep-copies the definition so catalog entries stay immutable.
func (d *TableDefinition) Clone() *TableDefinition {
	cols := make([]Column, len(d.Columns))
	copy(cols, d.Columns)
	return &TableDefinition{Name: d.Name, Columns: cols}
}
