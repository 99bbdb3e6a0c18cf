package engine

import (
	"context"

	"github.com/matrixorigin/simdcsv"
	"go.uber.org/zap"

	"github.com/nholden/tidedb/core"
	"github.com/nholden/tidedb/sql"
)

// copyBatchRows is how many CSV records one parser call hands back.
const copyBatchRows = 4000

// executeCopy bulk-loads a CSV source into a table. The whole load is
// buffered and appended in one commit, so a malformed record anywhere
// in the file leaves the table untouched.
func (executor *Executor) executeCopy(statement sql.CopyStatement) (int64, error) {
	if statement.Format != "csv" {
		return 0, core.Errorf(core.KindIncompatibleFormat,
			"unsupported COPY format %q", statement.Format)
	}
	definition, err := executor.store.TableDefinition(statement.Table)
	if err != nil {
		return 0, err
	}

	source, err := executor.openSource(statement.Source)
	if err != nil {
		return 0, err
	}
	defer source.Close()

	reader := simdcsv.NewReaderWithOptions(source, statement.Delimiter, '#', true, true)
	ctx := context.Background()

	var rows []core.Row
	records := make([][]string, copyBatchRows)
	skipHeader := statement.Header
	line := 0
	for {
		var count int
		records, count, err = reader.Read(copyBatchRows, ctx, records)
		if err != nil {
			return 0, core.Errorf(core.KindIncompatibleFormat,
				"parse %q: %v", statement.Source, err)
		}
		for _, record := range records[:count] {
			line++
			if skipHeader {
				skipHeader = false
				continue
			}
			row, err := parseRecord(definition, record, statement.NullToken, line)
			if err != nil {
				return 0, err
			}
			rows = append(rows, row)
		}
		if count < copyBatchRows {
			break
		}
	}

	affected, err := executor.store.AppendRows(statement.Table, rows)
	if err != nil {
		return 0, err
	}
	executor.logger.Info("copy completed",
		zap.String("table", statement.Table.String()),
		zap.String("source", statement.Source),
		zap.Int64("rows", affected))
	return affected, nil
}

func parseRecord(definition *core.TableDefinition, record []string, nullToken string, line int) (core.Row, error) {
	if len(record) != len(definition.Columns) {
		return nil, core.Errorf(core.KindRowShape,
			"line %d: table %s has %d columns, record has %d fields",
			line, definition.Name, len(definition.Columns), len(record))
	}
	row := make(core.Row, len(record))
	for i, field := range record {
		column := definition.Columns[i]
		if field == nullToken {
			row[i] = core.NullValue(column.Type)
			continue
		}
		value, err := core.ParseValueText(field, column.Type)
		if err != nil {
			return nil, core.Errorf(core.KindTypeMismatch,
				"line %d: column %s: %v", line, core.EscapeName(column.Name), err)
		}
		row[i] = value
	}
	return row, nil
}
