package tidedb

import (
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v6/osfs"
	"go.uber.org/zap"

	"github.com/nholden/tidedb/core"
	"github.com/nholden/tidedb/engine"
	"github.com/nholden/tidedb/store"
)

// CreateMode states what Open does about the database file.
type CreateMode int

const (
	// CreateModeNone opens an existing database and fails otherwise.
	CreateModeNone CreateMode = iota
	// CreateModeCreate creates the database and fails if it exists.
	CreateModeCreate
	// CreateModeCreateIfNotExists opens the database, creating it when
	// missing.
	CreateModeCreateIfNotExists
	// CreateModeCreateAndReplace discards any existing database and
	// starts with an empty catalog.
	CreateModeCreateAndReplace
)

func (mode CreateMode) storeMode() store.OpenMode {
	switch mode {
	case CreateModeCreate:
		return store.CreateNew
	case CreateModeCreateIfNotExists:
		return store.CreateIfAbsent
	case CreateModeCreateAndReplace:
		return store.CreateOrReplace
	default:
		return store.OpenExisting
	}
}

// Connection is a session against one database file. A connection owns
// the file's writer lock until closed.
type Connection struct {
	process  *Process
	store    *store.Store
	executor *engine.Executor
	path     string
	closed   bool
}

// Open attaches a connection to the database file at path. Connection
// settings override process settings.
func Open(process *Process, path string, mode CreateMode, settings ...Settings) (*Connection, error) {
	merged := mergeSettings(append([]Settings{process.settings}, settings...)...)

	absolute, err := filepath.Abs(path)
	if err != nil {
		return nil, core.Errorf(core.KindFileNotFound, "resolve %q: %v", path, err)
	}
	fs := osfs.New(filepath.Dir(absolute))
	st, err := store.Open(fs, filepath.Base(absolute), mode.storeMode())
	if err != nil {
		return nil, err
	}

	remote := engine.RemoteOptions{
		AccessKeyID:     merged.get("s3_access_key_id", ""),
		SecretAccessKey: merged.get("s3_secret_access_key", ""),
		Region:          merged.get("s3_region", ""),
		Endpoint:        merged.get("s3_endpoint", ""),
	}
	connection := &Connection{
		process:  process,
		store:    st,
		executor: engine.New(st, process.logger, remote),
		path:     absolute,
	}
	if err := process.attach(connection); err != nil {
		st.Close()
		return nil, err
	}
	process.logger.Info("connection opened", zap.String("database", absolute))
	return connection, nil
}

func (connection *Connection) ensureOpen() error {
	if connection.closed {
		return core.Errorf(core.KindUseAfterClose, "connection is closed")
	}
	return nil
}

// Catalog returns the schema inspection and manipulation interface.
func (connection *Connection) Catalog() *Catalog {
	return &Catalog{connection: connection}
}

// ExecuteCommand runs a statement and returns the affected row count.
func (connection *Connection) ExecuteCommand(query string) (int64, error) {
	if err := connection.ensureOpen(); err != nil {
		return 0, err
	}
	return connection.executor.ExecuteCommand(query)
}

// ExecuteQuery runs a statement and returns a Result cursor. The
// result must be closed before the connection can close.
func (connection *Connection) ExecuteQuery(query string) (*engine.Result, error) {
	if err := connection.ensureOpen(); err != nil {
		return nil, err
	}
	return connection.executor.ExecuteQuery(query)
}

// ExecuteScalar runs a query that must produce exactly one row with
// one column.
func (connection *Connection) ExecuteScalar(query string) (core.Value, error) {
	if err := connection.ensureOpen(); err != nil {
		return core.Value{}, err
	}
	return connection.executor.ExecuteScalar(query)
}

// Close releases the connection and the database file lock. It fails
// while results are still open.
func (connection *Connection) Close() error {
	if connection.closed {
		return core.Errorf(core.KindUseAfterClose, "connection already closed")
	}
	if open := connection.executor.OpenResults(); open > 0 {
		return core.Errorf(core.KindUseAfterClose, "%d results still open", open)
	}
	connection.closed = true
	connection.process.detach(connection)
	connection.process.logger.Info("connection closed", zap.String("database", connection.path))
	return connection.store.Close()
}

// ExecuteScalarQuery runs a scalar query and converts the value to T.
// Supported result types: bool, int64, float64, string, time.Time.
func ExecuteScalarQuery[T any](connection *Connection, query string) (T, error) {
	var zero T
	value, err := connection.ExecuteScalar(query)
	if err != nil {
		return zero, err
	}
	var converted any
	switch any(zero).(type) {
	case bool:
		converted, err = value.Bool()
	case int64:
		// Int64 exposes the raw slot of every integer-backed type, so
		// NUMERIC and the date/time types must not take this path.
		switch value.Type().Tag {
		case core.SmallIntTag, core.IntTag, core.BigIntTag:
			converted, err = value.Int64()
		default:
			return zero, core.Errorf(core.KindTypeMismatch,
				"cannot read %s as int64", value.Type())
		}
	case float64:
		converted, err = value.Float64()
	case string:
		converted, err = value.Text()
	case time.Time:
		converted, err = value.TimeValue()
	default:
		return zero, core.Errorf(core.KindTypeMismatch, "unsupported scalar type %T", zero)
	}
	if err != nil {
		return zero, err
	}
	return converted.(T), nil
}
