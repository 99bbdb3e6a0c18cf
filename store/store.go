package store

import (
	"io"
	"iter"
	"os"
	"sort"
	"sync"

	"github.com/go-git/go-billy/v6"
	"github.com/google/btree"

	"github.com/nholden/tidedb/core"
)

// OpenMode controls how Open treats an existing database file.
type OpenMode int

const (
	// OpenExisting fails when the file does not exist.
	OpenExisting OpenMode = iota
	// CreateNew fails when the file already exists.
	CreateNew
	// CreateIfAbsent opens the file, creating it when missing.
	CreateIfAbsent
	// CreateOrReplace discards any existing file and starts empty.
	CreateOrReplace
)

// OnExists selects the behavior of CreateTable when the table is
// already in the catalog.
type OnExists int

const (
	FailIfExists OnExists = iota
	ReplaceIfExists
	SkipIfExists
)

const lockSuffix = ".lock"

type rowEntry struct {
	id  uint64
	row core.Row
}

func lessRowEntry(a, b rowEntry) bool { return a.id < b.id }

const btreeDegree = 32

type tableData struct {
	definition *core.TableDefinition
	rows       *btree.BTreeG[rowEntry]
	nextRowID  uint64
}

func newTableData(definition *core.TableDefinition) *tableData {
	return &tableData{
		definition: definition.Clone(),
		rows:       btree.NewG(btreeDegree, lessRowEntry),
		nextRowID:  1,
	}
}

// Store is the single-file storage layer. All catalog and row state
// lives in memory; every mutating call rewrites the file atomically
// before returning, so a statement either persists completely or not
// at all.
//
// A sidecar lock file enforces the single-writer rule across
// processes for the lifetime of the Store.
type Store struct {
	fs   billy.Filesystem
	path string

	mu      sync.RWMutex
	lock    billy.File
	schemas map[string]bool
	tables  map[string]*tableData
	closed  bool
}

// Open attaches to the database file at path on the given filesystem.
func Open(fs billy.Filesystem, path string, mode OpenMode) (*Store, error) {
	lock, err := fs.OpenFile(path+lockSuffix, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, core.Errorf(core.KindFileLocked, "database %q is locked by another process", path)
	}

	store := &Store{
		fs:      fs,
		path:    path,
		lock:    lock,
		schemas: map[string]bool{core.DefaultSchema: true},
		tables:  map[string]*tableData{},
	}

	_, statErr := fs.Stat(path)
	exists := statErr == nil

	switch mode {
	case OpenExisting:
		if !exists {
			store.releaseLock()
			return nil, core.Errorf(core.KindFileNotFound, "database %q does not exist", path)
		}
		if err := store.load(); err != nil {
			store.releaseLock()
			return nil, err
		}
		return store, nil
	case CreateNew:
		if exists {
			store.releaseLock()
			return nil, core.Errorf(core.KindAlreadyExists, "database %q already exists", path)
		}
	case CreateIfAbsent:
		if exists {
			if err := store.load(); err != nil {
				store.releaseLock()
				return nil, err
			}
			return store, nil
		}
	case CreateOrReplace:
	}

	if err := store.commit(); err != nil {
		store.releaseLock()
		return nil, err
	}
	return store, nil
}

// Close releases the lock file. The Store is unusable afterwards.
func (store *Store) Close() error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.closed {
		return core.Errorf(core.KindUseAfterClose, "store already closed")
	}
	store.closed = true
	store.releaseLock()
	return nil
}

func (store *Store) releaseLock() {
	if store.lock != nil {
		store.lock.Close()
		store.fs.Remove(store.path + lockSuffix)
		store.lock = nil
	}
}

func (store *Store) load() error {
	f, err := store.fs.Open(store.path)
	if err != nil {
		return core.Errorf(core.KindFileNotFound, "open %q: %v", store.path, err)
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return core.Errorf(core.KindIncompatibleFormat, "read %q: %v", store.path, err)
	}
	snapshot, err := decodeFile(data)
	if err != nil {
		return err
	}
	for _, schema := range snapshot.schemas {
		store.schemas[schema] = true
	}
	for _, table := range snapshot.tables {
		data := newTableData(table.definition)
		data.nextRowID = table.nextRowID
		for i, row := range table.rows {
			data.rows.ReplaceOrInsert(rowEntry{id: table.rowIDs[i], row: row})
		}
		store.schemas[table.definition.Name.ResolvedSchema()] = true
		store.tables[table.definition.Name.Key()] = data
	}
	return nil
}

// commit serializes the full state and swaps it into place: write to a
// temp file, sync, rename over the target. Callers hold the write lock.
func (store *Store) commit() error {
	snapshot := fileSnapshot{}
	for schema := range store.schemas {
		snapshot.schemas = append(snapshot.schemas, schema)
	}
	sort.Strings(snapshot.schemas)

	keys := make([]string, 0, len(store.tables))
	for key := range store.tables {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		data := store.tables[key]
		table := tableSnapshot{definition: data.definition, nextRowID: data.nextRowID}
		data.rows.Ascend(func(entry rowEntry) bool {
			table.rowIDs = append(table.rowIDs, entry.id)
			table.rows = append(table.rows, entry.row)
			return true
		})
		snapshot.tables = append(snapshot.tables, table)
	}

	encoded, err := encodeFile(snapshot)
	if err != nil {
		return err
	}

	temp, err := store.fs.TempFile("", "tidedb-commit-")
	if err != nil {
		return err
	}
	tempName := temp.Name()
	if _, err := temp.Write(encoded); err != nil {
		temp.Close()
		store.fs.Remove(tempName)
		return err
	}
	if syncer, ok := temp.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			temp.Close()
			store.fs.Remove(tempName)
			return err
		}
	}
	if err := temp.Close(); err != nil {
		store.fs.Remove(tempName)
		return err
	}
	if err := store.fs.Rename(tempName, store.path); err != nil {
		store.fs.Remove(tempName)
		return err
	}
	return nil
}

func (store *Store) ensureOpen() error {
	if store.closed {
		return core.Errorf(core.KindUseAfterClose, "store is closed")
	}
	return nil
}

func (store *Store) CreateSchema(name string, ifNotExists bool) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.ensureOpen(); err != nil {
		return err
	}
	if store.schemas[name] {
		if ifNotExists {
			return nil
		}
		return core.Errorf(core.KindDuplicateSchema, "schema %s already exists", core.EscapeName(name))
	}
	store.schemas[name] = true
	if err := store.commit(); err != nil {
		delete(store.schemas, name)
		return err
	}
	return nil
}

// DropSchema removes a schema and, with cascade, the tables inside it.
// The default schema cannot be dropped.
func (store *Store) DropSchema(name string, ifExists, cascade bool) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.ensureOpen(); err != nil {
		return err
	}
	if name == core.DefaultSchema {
		return core.Errorf(core.KindConstraintViolation,
			"schema %s cannot be dropped", core.EscapeName(name))
	}
	if !store.schemas[name] {
		if ifExists {
			return nil
		}
		return core.Errorf(core.KindSchemaNotFound, "schema %s does not exist", core.EscapeName(name))
	}

	var contained []string
	for key, data := range store.tables {
		if data.definition.Name.ResolvedSchema() == name {
			contained = append(contained, key)
		}
	}
	if len(contained) > 0 && !cascade {
		return core.Errorf(core.KindConstraintViolation, "schema %s is not empty", core.EscapeName(name))
	}

	removed := map[string]*tableData{}
	for _, key := range contained {
		removed[key] = store.tables[key]
		delete(store.tables, key)
	}
	delete(store.schemas, name)
	if err := store.commit(); err != nil {
		store.schemas[name] = true
		for key, data := range removed {
			store.tables[key] = data
		}
		return err
	}
	return nil
}

// SchemaNames lists the schemas in sorted order.
func (store *Store) SchemaNames() ([]string, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	if err := store.ensureOpen(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(store.schemas))
	for name := range store.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (store *Store) CreateTable(definition *core.TableDefinition, onExists OnExists) error {
	if err := definition.Validate(); err != nil {
		return err
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.ensureOpen(); err != nil {
		return err
	}
	name := definition.Name
	if !store.schemas[name.ResolvedSchema()] {
		return core.Errorf(core.KindSchemaNotFound, "schema %s does not exist", core.EscapeName(name.ResolvedSchema()))
	}
	previous, exists := store.tables[name.Key()]
	if exists {
		switch onExists {
		case SkipIfExists:
			return nil
		case FailIfExists:
			return core.Errorf(core.KindDuplicateTable, "table %s already exists", name)
		}
	}
	store.tables[name.Key()] = newTableData(definition)
	if err := store.commit(); err != nil {
		if exists {
			store.tables[name.Key()] = previous
		} else {
			delete(store.tables, name.Key())
		}
		return err
	}
	return nil
}

func (store *Store) DropTable(name core.TableName, ifExists bool) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.ensureOpen(); err != nil {
		return err
	}
	previous, exists := store.tables[name.Key()]
	if !exists {
		if ifExists {
			return nil
		}
		return core.Errorf(core.KindTableNotFound, "table %s does not exist", name)
	}
	delete(store.tables, name.Key())
	if err := store.commit(); err != nil {
		store.tables[name.Key()] = previous
		return err
	}
	return nil
}

// TableDefinition returns a copy of the definition of the named table.
func (store *Store) TableDefinition(name core.TableName) (*core.TableDefinition, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	if err := store.ensureOpen(); err != nil {
		return nil, err
	}
	data, ok := store.tables[name.Key()]
	if !ok {
		return nil, core.Errorf(core.KindTableNotFound, "table %s does not exist", name)
	}
	return data.definition.Clone(), nil
}

func (store *Store) HasTable(name core.TableName) (bool, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	if err := store.ensureOpen(); err != nil {
		return false, err
	}
	_, ok := store.tables[name.Key()]
	return ok, nil
}

// TableNames lists the tables of one schema sorted by name.
func (store *Store) TableNames(schema string) ([]core.TableName, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	if err := store.ensureOpen(); err != nil {
		return nil, err
	}
	if !store.schemas[schema] {
		return nil, core.Errorf(core.KindSchemaNotFound, "schema %s does not exist", core.EscapeName(schema))
	}
	var names []core.TableName
	for _, data := range store.tables {
		if data.definition.Name.ResolvedSchema() == schema {
			names = append(names, data.definition.Name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Name < names[j].Name })
	return names, nil
}

// AppendRows validates rows against the table definition and persists
// them in one atomic commit. Values must already have the exact column
// type; the executor performs widening before it calls down here.
func (store *Store) AppendRows(name core.TableName, rows []core.Row) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.ensureOpen(); err != nil {
		return 0, err
	}
	data, ok := store.tables[name.Key()]
	if !ok {
		return 0, core.Errorf(core.KindTableNotFound, "table %s does not exist", name)
	}
	for _, row := range rows {
		if err := validateRow(data.definition, row); err != nil {
			return 0, err
		}
	}

	inserted := make([]rowEntry, 0, len(rows))
	for _, row := range rows {
		entry := rowEntry{id: data.nextRowID, row: core.CloneRow(row)}
		data.nextRowID++
		data.rows.ReplaceOrInsert(entry)
		inserted = append(inserted, entry)
	}
	if err := store.commit(); err != nil {
		for _, entry := range inserted {
			data.rows.Delete(entry)
		}
		data.nextRowID -= uint64(len(inserted))
		return 0, err
	}
	return int64(len(rows)), nil
}

func validateRow(definition *core.TableDefinition, row core.Row) error {
	if len(row) != len(definition.Columns) {
		return core.Errorf(core.KindRowShape, "table %s has %d columns, row has %d values",
			definition.Name, len(definition.Columns), len(row))
	}
	for i, column := range definition.Columns {
		value := row[i]
		if value.IsNull() {
			if column.Nullability == core.NotNullable {
				return core.Errorf(core.KindConstraintViolation, "column %s of table %s is NOT NULL",
					core.EscapeName(column.Name), definition.Name)
			}
			continue
		}
		if !value.Type().Equal(column.Type) {
			return core.Errorf(core.KindTypeMismatch, "column %s of table %s is %s, value is %s",
				core.EscapeName(column.Name), definition.Name, column.Type, value.Type())
		}
	}
	return nil
}

// Scan returns the table definition and an iterator over a consistent
// snapshot of the rows in row id order. The snapshot is taken when
// Scan returns; later writes do not affect an iteration in progress.
func (store *Store) Scan(name core.TableName) (*core.TableDefinition, iter.Seq2[uint64, core.Row], error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	if err := store.ensureOpen(); err != nil {
		return nil, nil, err
	}
	data, ok := store.tables[name.Key()]
	if !ok {
		return nil, nil, core.Errorf(core.KindTableNotFound, "table %s does not exist", name)
	}
	snapshot := data.rows.Clone()
	seq := func(yield func(uint64, core.Row) bool) {
		snapshot.Ascend(func(entry rowEntry) bool {
			return yield(entry.id, entry.row)
		})
	}
	return data.definition.Clone(), seq, nil
}

// RowCount returns the number of rows without materializing them.
func (store *Store) RowCount(name core.TableName) (int64, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	if err := store.ensureOpen(); err != nil {
		return 0, err
	}
	data, ok := store.tables[name.Key()]
	if !ok {
		return 0, core.Errorf(core.KindTableNotFound, "table %s does not exist", name)
	}
	return int64(data.rows.Len()), nil
}

// DeleteRows removes the identified rows in one atomic commit and
// returns how many existed.
func (store *Store) DeleteRows(name core.TableName, ids []uint64) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.ensureOpen(); err != nil {
		return 0, err
	}
	data, ok := store.tables[name.Key()]
	if !ok {
		return 0, core.Errorf(core.KindTableNotFound, "table %s does not exist", name)
	}
	var removed []rowEntry
	for _, id := range ids {
		if entry, ok := data.rows.Delete(rowEntry{id: id}); ok {
			removed = append(removed, entry)
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}
	if err := store.commit(); err != nil {
		for _, entry := range removed {
			data.rows.ReplaceOrInsert(entry)
		}
		return 0, err
	}
	return int64(len(removed)), nil
}

// UpdateRows replaces the identified rows in one atomic commit and
// returns how many existed. Replacement rows are validated like
// appends.
func (store *Store) UpdateRows(name core.TableName, updated map[uint64]core.Row) (int64, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if err := store.ensureOpen(); err != nil {
		return 0, err
	}
	data, ok := store.tables[name.Key()]
	if !ok {
		return 0, core.Errorf(core.KindTableNotFound, "table %s does not exist", name)
	}
	for _, row := range updated {
		if err := validateRow(data.definition, row); err != nil {
			return 0, err
		}
	}
	previous := map[uint64]rowEntry{}
	for id, row := range updated {
		entry, ok := data.rows.Get(rowEntry{id: id})
		if !ok {
			continue
		}
		previous[id] = entry
		data.rows.ReplaceOrInsert(rowEntry{id: id, row: core.CloneRow(row)})
	}
	if len(previous) == 0 {
		return 0, nil
	}
	if err := store.commit(); err != nil {
		for _, entry := range previous {
			data.rows.ReplaceOrInsert(entry)
		}
		return 0, err
	}
	return int64(len(previous)), nil
}
