package tidedb

import (
	"github.com/nholden/tidedb/core"
	"github.com/nholden/tidedb/store"
)

// Catalog inspects and manipulates the schemas and tables of the
// connected database without going through SQL text.
type Catalog struct {
	connection *Connection
}

func (catalog *Catalog) CreateSchema(name string) error {
	if err := catalog.connection.ensureOpen(); err != nil {
		return err
	}
	return catalog.connection.store.CreateSchema(name, false)
}

func (catalog *Catalog) CreateSchemaIfNotExists(name string) error {
	if err := catalog.connection.ensureOpen(); err != nil {
		return err
	}
	return catalog.connection.store.CreateSchema(name, true)
}

// SchemaNames lists all schemas, the default "public" included.
func (catalog *Catalog) SchemaNames() ([]string, error) {
	if err := catalog.connection.ensureOpen(); err != nil {
		return nil, err
	}
	return catalog.connection.store.SchemaNames()
}

func (catalog *Catalog) DropSchema(name string, cascade bool) error {
	if err := catalog.connection.ensureOpen(); err != nil {
		return err
	}
	return catalog.connection.store.DropSchema(name, false, cascade)
}

func (catalog *Catalog) CreateTable(definition *core.TableDefinition) error {
	if err := catalog.connection.ensureOpen(); err != nil {
		return err
	}
	return catalog.connection.store.CreateTable(definition, store.FailIfExists)
}

func (catalog *Catalog) CreateTableIfNotExists(definition *core.TableDefinition) error {
	if err := catalog.connection.ensureOpen(); err != nil {
		return err
	}
	return catalog.connection.store.CreateTable(definition, store.SkipIfExists)
}

// GetTableDefinition returns a copy of the table's definition.
func (catalog *Catalog) GetTableDefinition(name core.TableName) (*core.TableDefinition, error) {
	if err := catalog.connection.ensureOpen(); err != nil {
		return nil, err
	}
	return catalog.connection.store.TableDefinition(name)
}

// GetTableNames lists the tables of one schema.
func (catalog *Catalog) GetTableNames(schema string) ([]core.TableName, error) {
	if err := catalog.connection.ensureOpen(); err != nil {
		return nil, err
	}
	return catalog.connection.store.TableNames(schema)
}

func (catalog *Catalog) HasTable(name core.TableName) (bool, error) {
	if err := catalog.connection.ensureOpen(); err != nil {
		return false, err
	}
	return catalog.connection.store.HasTable(name)
}

func (catalog *Catalog) DropTable(name core.TableName) error {
	if err := catalog.connection.ensureOpen(); err != nil {
		return err
	}
	return catalog.connection.store.DropTable(name, false)
}
