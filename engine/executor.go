package engine

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/nholden/tidedb/core"
	"github.com/nholden/tidedb/sql"
	"github.com/nholden/tidedb/store"
)

// RemoteOptions carries credentials for COPY sources that live behind
// a remote scheme. Empty fields fall back to ambient AWS configuration.
type RemoteOptions struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
}

// Executor runs SQL statements against a Store. It tracks the results
// it hands out so the owning connection can refuse to close while a
// cursor is still open.
type Executor struct {
	store  *store.Store
	logger *zap.Logger
	remote RemoteOptions

	mu   sync.Mutex
	open map[*Result]struct{}
}

func New(st *store.Store, logger *zap.Logger, remote RemoteOptions) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		store:  st,
		logger: logger,
		remote: remote,
		open:   map[*Result]struct{}{},
	}
}

// OpenResults reports how many results are still open.
func (executor *Executor) OpenResults() int {
	executor.mu.Lock()
	defer executor.mu.Unlock()
	return len(executor.open)
}

func (executor *Executor) track(columns []core.Column, rows []core.Row) *Result {
	result := &Result{executor: executor, columns: columns, rows: rows}
	executor.mu.Lock()
	executor.open[result] = struct{}{}
	executor.mu.Unlock()
	return result
}

func (executor *Executor) forget(result *Result) {
	executor.mu.Lock()
	delete(executor.open, result)
	executor.mu.Unlock()
}

// ExecuteCommand runs any statement and returns the affected row
// count. DDL statements report zero; a SELECT reports the number of
// rows it produced.
func (executor *Executor) ExecuteCommand(query string) (int64, error) {
	statement, err := sql.NewParser(query).Parse()
	if err != nil {
		return 0, err
	}
	executor.logger.Debug("execute command", zap.String("sql", query))
	if statement.Type() == sql.SelectStatementType {
		_, rows, err := executor.executeSelect(statement.(sql.SelectStatement))
		if err != nil {
			return 0, err
		}
		return int64(len(rows)), nil
	}
	return executor.executeCommand(statement)
}

// ExecuteQuery runs a statement and returns a Result cursor. For a
// statement without output rows the Result has no columns.
func (executor *Executor) ExecuteQuery(query string) (*Result, error) {
	statement, err := sql.NewParser(query).Parse()
	if err != nil {
		return nil, err
	}
	executor.logger.Debug("execute query", zap.String("sql", query))
	if statement.Type() == sql.SelectStatementType {
		columns, rows, err := executor.executeSelect(statement.(sql.SelectStatement))
		if err != nil {
			return nil, err
		}
		return executor.track(columns, rows), nil
	}
	if _, err := executor.executeCommand(statement); err != nil {
		return nil, err
	}
	return executor.track(nil, nil), nil
}

// ExecuteScalar runs a query that must produce exactly one row with
// one column and returns that value.
func (executor *Executor) ExecuteScalar(query string) (core.Value, error) {
	result, err := executor.ExecuteQuery(query)
	if err != nil {
		return core.Value{}, err
	}
	defer result.Close()
	if len(result.Schema()) != 1 {
		return core.Value{}, core.Errorf(core.KindCardinality,
			"scalar query must produce one column, got %d", len(result.Schema()))
	}
	if !result.Next() {
		return core.Value{}, core.Errorf(core.KindCardinality, "scalar query produced no rows")
	}
	value := result.Row()[0]
	if result.Next() {
		return core.Value{}, core.Errorf(core.KindCardinality, "scalar query produced more than one row")
	}
	return value, nil
}

func (executor *Executor) executeCommand(statement sql.Statement) (int64, error) {
	switch s := statement.(type) {
	case sql.InsertStatement:
		return executor.executeInsert(s)
	case sql.UpdateStatement:
		return executor.executeUpdate(s)
	case sql.DeleteStatement:
		return executor.executeDelete(s)
	case sql.CreateSchemaStatement:
		return 0, executor.store.CreateSchema(s.Name, s.IfNotExists)
	case sql.DropSchemaStatement:
		return 0, executor.store.DropSchema(s.Name, s.IfExists, s.Cascade)
	case sql.CreateTableStatement:
		onExists := store.FailIfExists
		switch {
		case s.OrReplace:
			onExists = store.ReplaceIfExists
		case s.IfNotExists:
			onExists = store.SkipIfExists
		}
		return 0, executor.store.CreateTable(&s.Definition, onExists)
	case sql.DropTableStatement:
		return 0, executor.store.DropTable(s.Table, s.IfExists)
	case sql.CopyStatement:
		return executor.executeCopy(s)
	default:
		return 0, core.Errorf(core.KindSyntax, "unsupported statement type %d", statement.Type())
	}
}

func (executor *Executor) executeSelect(statement sql.SelectStatement) ([]core.Column, []core.Row, error) {
	definition, scan, err := executor.store.Scan(statement.Table)
	if err != nil {
		return nil, nil, err
	}

	ev := newEvaluator(definition.Columns)
	if err := executor.resolveSubqueries(ev, statement.Where); err != nil {
		return nil, nil, err
	}

	var matched []core.Row
	for _, row := range scan {
		ok, err := matches(ev, statement.Where, row)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			matched = append(matched, row)
		}
	}

	if statement.CountAll {
		columns := []core.Column{{Name: "count", Type: core.BigInt(), Nullability: core.NotNullable}}
		rows := []core.Row{{core.NewBigInt(int64(len(matched)))}}
		return columns, rows, nil
	}

	if len(statement.OrderBy) > 0 {
		if err := sortRows(definition, matched, statement.OrderBy); err != nil {
			return nil, nil, err
		}
	}
	matched = applyLimit(matched, statement.Limit, statement.Offset)

	indices := make([]int, 0, len(definition.Columns))
	if len(statement.Columns) == 0 {
		for i := range definition.Columns {
			indices = append(indices, i)
		}
	} else {
		for _, name := range statement.Columns {
			index := definition.ColumnIndex(name)
			if index < 0 {
				return nil, nil, core.Errorf(core.KindColumnNotFound,
					"column %s does not exist in table %s", core.EscapeName(name), definition.Name)
			}
			indices = append(indices, index)
		}
	}

	columns := make([]core.Column, len(indices))
	for i, index := range indices {
		columns[i] = definition.Columns[index]
	}
	rows := make([]core.Row, len(matched))
	for i, row := range matched {
		projected := make(core.Row, len(indices))
		for j, index := range indices {
			projected[j] = row[index]
		}
		rows[i] = projected
	}
	return columns, rows, nil
}

func matches(ev *evaluator, where sql.Expr, row core.Row) (bool, error) {
	if where == nil {
		return true, nil
	}
	value, err := ev.eval(where, row)
	if err != nil {
		return false, err
	}
	if !value.IsNull() {
		if _, err := value.Bool(); err != nil {
			return false, core.ErrorfAt(core.KindTypeMismatch, where.Pos(),
				"WHERE requires a BOOLEAN, got %s", value.Type())
		}
	}
	return truthy(value), nil
}

func sortRows(definition *core.TableDefinition, rows []core.Row, clauses []sql.OrderByClause) error {
	indices := make([]int, len(clauses))
	for i, clause := range clauses {
		index := definition.ColumnIndex(clause.Column)
		if index < 0 {
			return core.Errorf(core.KindColumnNotFound,
				"column %s does not exist in table %s", core.EscapeName(clause.Column), definition.Name)
		}
		indices[i] = index
	}
	var sortErr error
	sort.SliceStable(rows, func(a, b int) bool {
		if sortErr != nil {
			return false
		}
		for i, index := range indices {
			cmp, err := rows[a][index].Compare(rows[b][index])
			if err != nil {
				sortErr = err
				return false
			}
			if cmp == 0 {
				continue
			}
			if clauses[i].Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return sortErr
}

func applyLimit(rows []core.Row, limit, offset int) []core.Row {
	if offset > 0 {
		if offset >= len(rows) {
			return nil
		}
		rows = rows[offset:]
	}
	if limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

// resolveSubqueries runs every ANY subquery in the given expressions
// once and caches the value sets on the evaluator.
func (executor *Executor) resolveSubqueries(ev *evaluator, exprs ...sql.Expr) error {
	var subqueries []*sql.SelectStatement
	for _, expr := range exprs {
		if expr == nil {
			continue
		}
		collectSubqueries(expr, func(sub *sql.SelectStatement) {
			subqueries = append(subqueries, sub)
		})
	}
	for _, sub := range subqueries {
		columns, rows, err := executor.executeSelect(*sub)
		if err != nil {
			return err
		}
		if len(columns) != 1 {
			return core.Errorf(core.KindCardinality,
				"ANY subquery must produce one column, got %d", len(columns))
		}
		values := make([]core.Value, len(rows))
		for i, row := range rows {
			values[i] = row[0]
		}
		ev.anyValues[sub] = values
	}
	return nil
}

// targetIndices maps an optional explicit column list onto positions
// in the table definition. An empty list means all columns in order.
func targetIndices(definition *core.TableDefinition, columns []string) ([]int, error) {
	if len(columns) == 0 {
		indices := make([]int, len(definition.Columns))
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}
	indices := make([]int, len(columns))
	seen := make(map[int]bool, len(columns))
	for i, name := range columns {
		index := definition.ColumnIndex(name)
		if index < 0 {
			return nil, core.Errorf(core.KindColumnNotFound,
				"column %s does not exist in table %s", core.EscapeName(name), definition.Name)
		}
		if seen[index] {
			return nil, core.Errorf(core.KindInvalidColumnDefinition,
				"column %s named twice", core.EscapeName(name))
		}
		seen[index] = true
		indices[i] = index
	}
	return indices, nil
}

func (executor *Executor) executeInsert(statement sql.InsertStatement) (int64, error) {
	definition, err := executor.store.TableDefinition(statement.Table)
	if err != nil {
		return 0, err
	}
	indices, err := targetIndices(definition, statement.Columns)
	if err != nil {
		return 0, err
	}

	ev := newEvaluator(nil)
	var exprs []sql.Expr
	for _, row := range statement.Rows {
		exprs = append(exprs, row...)
	}
	if err := executor.resolveSubqueries(ev, exprs...); err != nil {
		return 0, err
	}

	rows := make([]core.Row, 0, len(statement.Rows))
	for _, exprRow := range statement.Rows {
		if len(exprRow) != len(indices) {
			return 0, core.Errorf(core.KindRowShape,
				"INSERT expects %d values per row, got %d", len(indices), len(exprRow))
		}
		row := make(core.Row, len(definition.Columns))
		for i := range row {
			row[i] = core.NullValue(definition.Columns[i].Type)
		}
		for i, expr := range exprRow {
			value, err := ev.eval(expr, nil)
			if err != nil {
				return 0, err
			}
			column := definition.Columns[indices[i]]
			converted, err := value.Convert(column.Type)
			if err != nil {
				return 0, core.ErrorfAt(core.KindTypeMismatch, expr.Pos(),
					"column %s is %s: %v", core.EscapeName(column.Name), column.Type, err)
			}
			row[indices[i]] = converted
		}
		rows = append(rows, row)
	}
	return executor.store.AppendRows(statement.Table, rows)
}

func (executor *Executor) executeUpdate(statement sql.UpdateStatement) (int64, error) {
	definition, scan, err := executor.store.Scan(statement.Table)
	if err != nil {
		return 0, err
	}

	setIndices := make([]int, len(statement.Sets))
	for i, set := range statement.Sets {
		index := definition.ColumnIndex(set.Column)
		if index < 0 {
			return 0, core.Errorf(core.KindColumnNotFound,
				"column %s does not exist in table %s", core.EscapeName(set.Column), definition.Name)
		}
		setIndices[i] = index
	}

	ev := newEvaluator(definition.Columns)
	exprs := []sql.Expr{statement.Where}
	for _, set := range statement.Sets {
		exprs = append(exprs, set.Value)
	}
	if err := executor.resolveSubqueries(ev, exprs...); err != nil {
		return 0, err
	}

	updated := map[uint64]core.Row{}
	for id, row := range scan {
		ok, err := matches(ev, statement.Where, row)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		next := core.CloneRow(row)
		for i, set := range statement.Sets {
			value, err := ev.eval(set.Value, row)
			if err != nil {
				return 0, err
			}
			column := definition.Columns[setIndices[i]]
			converted, err := value.Convert(column.Type)
			if err != nil {
				return 0, core.ErrorfAt(core.KindTypeMismatch, set.Value.Pos(),
					"column %s is %s: %v", core.EscapeName(column.Name), column.Type, err)
			}
			next[setIndices[i]] = converted
		}
		updated[id] = next
	}
	if len(updated) == 0 {
		return 0, nil
	}
	return executor.store.UpdateRows(statement.Table, updated)
}

func (executor *Executor) executeDelete(statement sql.DeleteStatement) (int64, error) {
	definition, scan, err := executor.store.Scan(statement.Table)
	if err != nil {
		return 0, err
	}
	ev := newEvaluator(definition.Columns)
	if err := executor.resolveSubqueries(ev, statement.Where); err != nil {
		return 0, err
	}
	var ids []uint64
	for id, row := range scan {
		ok, err := matches(ev, statement.Where, row)
		if err != nil {
			return 0, err
		}
		if ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return executor.store.DeleteRows(statement.Table, ids)
}

// MappedColumn binds one target column to an expression over the input
// columns of a bulk insert.
type MappedColumn struct {
	Target string
	Expr   sql.Expr
}

// InsertMapped appends rows shaped like inputColumns, computing each
// target column from its mapped expression. The whole batch commits
// atomically. Every target column must be mapped exactly once.
func (executor *Executor) InsertMapped(table core.TableName, mappings []MappedColumn, inputColumns []core.Column, rows []core.Row) (int64, error) {
	definition, err := executor.store.TableDefinition(table)
	if err != nil {
		return 0, err
	}
	if len(mappings) != len(definition.Columns) {
		return 0, core.Errorf(core.KindInvalidColumnDefinition,
			"table %s has %d columns, %d mapped", definition.Name, len(definition.Columns), len(mappings))
	}
	targets := make([]string, len(mappings))
	for i, mapping := range mappings {
		targets[i] = mapping.Target
	}
	indices, err := targetIndices(definition, targets)
	if err != nil {
		return 0, err
	}

	ev := newEvaluator(inputColumns)
	exprs := make([]sql.Expr, len(mappings))
	for i, mapping := range mappings {
		exprs[i] = mapping.Expr
	}
	if err := executor.resolveSubqueries(ev, exprs...); err != nil {
		return 0, err
	}

	out := make([]core.Row, len(rows))
	for r, input := range rows {
		if len(input) != len(inputColumns) {
			return 0, core.Errorf(core.KindRowShape,
				"input row has %d values, expected %d", len(input), len(inputColumns))
		}
		row := make(core.Row, len(definition.Columns))
		for i, mapping := range mappings {
			value, err := ev.eval(mapping.Expr, input)
			if err != nil {
				return 0, err
			}
			column := definition.Columns[indices[i]]
			converted, err := value.Convert(column.Type)
			if err != nil {
				return 0, core.Errorf(core.KindTypeMismatch,
					"column %s is %s: %v", core.EscapeName(column.Name), column.Type, err)
			}
			row[indices[i]] = converted
		}
		out[r] = row
	}
	count, err := executor.store.AppendRows(table, out)
	if err != nil {
		return 0, err
	}
	executor.logger.Debug("bulk insert committed",
		zap.String("table", table.String()), zap.Int64("rows", count))
	return count, nil
}
