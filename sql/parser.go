package sql

import (
	"math"
	"strconv"
	"strings"

	"github.com/nholden/tidedb/core"
)

type StatementType int

const (
	SelectStatementType StatementType = iota
	InsertStatementType
	UpdateStatementType
	DeleteStatementType
	CreateSchemaStatementType
	CreateTableStatementType
	DropTableStatementType
	DropSchemaStatementType
	CopyStatementType
)

type Statement interface {
	Type() StatementType
}

type SelectStatement struct {
	Table    core.TableName
	Columns  []string // empty means * unless CountAll is set
	CountAll bool
	Where    Expr
	OrderBy  []OrderByClause
	Limit    int // -1 when absent
	Offset   int
}

type OrderByClause struct {
	Column     string
	Descending bool
}

type InsertStatement struct {
	Table   core.TableName
	Columns []string // empty means all columns in table order
	Rows    [][]Expr
}

type UpdateStatement struct {
	Table core.TableName
	Sets  []SetClause
	Where Expr
}

type SetClause struct {
	Column string
	Value  Expr
}

type DeleteStatement struct {
	Table core.TableName
	Where Expr
}

type CreateSchemaStatement struct {
	Name        string
	IfNotExists bool
}

type CreateTableStatement struct {
	Definition  core.TableDefinition
	IfNotExists bool
	OrReplace   bool
}

type DropTableStatement struct {
	Table    core.TableName
	IfExists bool
}

type DropSchemaStatement struct {
	Name     string
	IfExists bool
	Cascade  bool
}

type CopyStatement struct {
	Table     core.TableName
	Source    string
	Format    string
	NullToken string
	Delimiter rune
	Header    bool
}

func (s SelectStatement) Type() StatementType       { return SelectStatementType }
func (s InsertStatement) Type() StatementType       { return InsertStatementType }
func (s UpdateStatement) Type() StatementType       { return UpdateStatementType }
func (s DeleteStatement) Type() StatementType       { return DeleteStatementType }
func (s CreateSchemaStatement) Type() StatementType { return CreateSchemaStatementType }
func (s CreateTableStatement) Type() StatementType  { return CreateTableStatementType }
func (s DropTableStatement) Type() StatementType    { return DropTableStatementType }
func (s DropSchemaStatement) Type() StatementType   { return DropSchemaStatementType }
func (s CopyStatement) Type() StatementType         { return CopyStatementType }

// Expr is a parsed SQL expression. Every node keeps the byte offset of
// its first token for diagnostics.
type Expr interface {
	Pos() int
}

// Literal is a typed constant. IsNull marks the untyped NULL literal;
// Value is then meaningless until the evaluator assigns a type.
type Literal struct {
	Position int
	Value    core.Value
	IsNull   bool
}

type ColumnRef struct {
	Position int
	Name     string
}

type Unary struct {
	Position int
	Op       TokenType
	Operand  Expr
}

type Binary struct {
	Position int
	Op       TokenType
	Left     Expr
	Right    Expr
}

type IsNullExpr struct {
	Position int
	Operand  Expr
	Negated  bool
}

// AnyExpr is `left = ANY (SELECT ...)`. The subquery must produce a
// single column; the evaluator runs it once per statement.
type AnyExpr struct {
	Position int
	Left     Expr
	Subquery *SelectStatement
}

type WhenClause struct {
	When Expr
	Then Expr
}

type CaseExpr struct {
	Position int
	Operand  Expr // nil for the searched form
	Whens    []WhenClause
	Else     Expr
}

type CastExpr struct {
	Position int
	Operand  Expr
	Target   core.SqlType
}

type FuncCall struct {
	Position int
	Name     string
	Args     []Expr
}

func (e Literal) Pos() int    { return e.Position }
func (e ColumnRef) Pos() int  { return e.Position }
func (e Unary) Pos() int      { return e.Position }
func (e Binary) Pos() int     { return e.Position }
func (e IsNullExpr) Pos() int { return e.Position }
func (e AnyExpr) Pos() int    { return e.Position }
func (e CaseExpr) Pos() int   { return e.Position }
func (e CastExpr) Pos() int   { return e.Position }
func (e FuncCall) Pos() int   { return e.Position }

type Parser struct {
	lexer *Lexer
	cur   Token
	peek  Token
}

func NewParser(sqlText string) *Parser {
	parser := &Parser{lexer: NewLexer(sqlText)}
	parser.next()
	parser.next()
	return parser
}

// ParseExpression parses a standalone SQL expression, as supplied in
// inserter column mappings.
func ParseExpression(text string) (Expr, error) {
	parser := NewParser(text)
	expr, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	if parser.cur.Type != EOF {
		return nil, parser.errf("unexpected %s after expression", parser.cur)
	}
	return expr, nil
}

func (parser *Parser) next() {
	parser.cur = parser.peek
	parser.peek = parser.lexer.NextToken()
}

func (parser *Parser) errf(format string, args ...any) error {
	return core.ErrorfAt(core.KindSyntax, parser.cur.Pos, format, args...)
}

func (parser *Parser) expect(t TokenType) (Token, error) {
	if parser.cur.Type != t {
		return Token{}, parser.errf("expected %s, found %s", tokenNames[t], parser.cur)
	}
	token := parser.cur
	parser.next()
	return token, nil
}

func (parser *Parser) accept(t TokenType) bool {
	if parser.cur.Type == t {
		parser.next()
		return true
	}
	return false
}

// identifier accepts a bare or quoted identifier and returns its
// unescaped value.
func (parser *Parser) identifier() (string, error) {
	switch parser.cur.Type {
	case Identifier, QuotedIdentifier:
		value := parser.cur.Value
		parser.next()
		return value, nil
	}
	return "", parser.errf("expected identifier, found %s", parser.cur)
}

func (parser *Parser) tableName() (core.TableName, error) {
	first, err := parser.identifier()
	if err != nil {
		return core.TableName{}, err
	}
	if parser.accept(Dot) {
		second, err := parser.identifier()
		if err != nil {
			return core.TableName{}, err
		}
		return core.NewTableName(first, second), nil
	}
	return core.UnqualifiedTableName(first), nil
}

func (parser *Parser) Parse() (Statement, error) {
	statement, err := parser.parseStatement()
	if err != nil {
		return nil, err
	}
	parser.accept(Semicolon)
	if parser.cur.Type != EOF {
		return nil, parser.errf("unexpected %s after statement", parser.cur)
	}
	return statement, nil
}

func (parser *Parser) parseStatement() (Statement, error) {
	switch parser.cur.Type {
	case Select:
		return parser.parseSelect()
	case Insert:
		return parser.parseInsert()
	case Update:
		return parser.parseUpdate()
	case Delete:
		return parser.parseDelete()
	case Create:
		return parser.parseCreate()
	case Drop:
		return parser.parseDrop()
	case Copy:
		return parser.parseCopy()
	default:
		return nil, parser.errf("unexpected %s at start of statement", parser.cur)
	}
}

func (parser *Parser) parseSelect() (Statement, error) {
	statement := SelectStatement{Limit: -1}
	parser.next() // SELECT

	switch {
	case parser.cur.Type == Count:
		parser.next()
		if _, err := parser.expect(ParenOpen); err != nil {
			return nil, err
		}
		if _, err := parser.expect(Star); err != nil {
			return nil, err
		}
		if _, err := parser.expect(ParenClose); err != nil {
			return nil, err
		}
		statement.CountAll = true
	case parser.accept(Star):
	default:
		for {
			column, err := parser.identifier()
			if err != nil {
				return nil, err
			}
			statement.Columns = append(statement.Columns, column)
			if !parser.accept(Comma) {
				break
			}
		}
	}

	if _, err := parser.expect(From); err != nil {
		return nil, err
	}
	table, err := parser.tableName()
	if err != nil {
		return nil, err
	}
	statement.Table = table

	if parser.accept(Where) {
		if statement.Where, err = parser.parseExpression(); err != nil {
			return nil, err
		}
	}
	if parser.accept(Order) {
		if _, err := parser.expect(By); err != nil {
			return nil, err
		}
		for {
			column, err := parser.identifier()
			if err != nil {
				return nil, err
			}
			clause := OrderByClause{Column: column}
			if parser.accept(Desc) {
				clause.Descending = true
			} else {
				parser.accept(Asc)
			}
			statement.OrderBy = append(statement.OrderBy, clause)
			if !parser.accept(Comma) {
				break
			}
		}
	}
	if parser.accept(Limit) {
		if statement.Limit, err = parser.intLiteral(); err != nil {
			return nil, err
		}
	}
	if parser.accept(Offset) {
		if statement.Offset, err = parser.intLiteral(); err != nil {
			return nil, err
		}
	}
	return statement, nil
}

func (parser *Parser) intLiteral() (int, error) {
	token, err := parser.expect(Int)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(token.Value)
	if err != nil {
		return 0, core.ErrorfAt(core.KindSyntax, token.Pos, "invalid integer %q", token.Value)
	}
	return n, nil
}

func (parser *Parser) parseInsert() (Statement, error) {
	statement := InsertStatement{}
	parser.next() // INSERT
	if _, err := parser.expect(Into); err != nil {
		return nil, err
	}
	table, err := parser.tableName()
	if err != nil {
		return nil, err
	}
	statement.Table = table

	if parser.accept(ParenOpen) {
		for {
			column, err := parser.identifier()
			if err != nil {
				return nil, err
			}
			statement.Columns = append(statement.Columns, column)
			if !parser.accept(Comma) {
				break
			}
		}
		if _, err := parser.expect(ParenClose); err != nil {
			return nil, err
		}
	}

	if _, err := parser.expect(Values); err != nil {
		return nil, err
	}
	for {
		if _, err := parser.expect(ParenOpen); err != nil {
			return nil, err
		}
		var row []Expr
		for {
			expr, err := parser.parseExpression()
			if err != nil {
				return nil, err
			}
			row = append(row, expr)
			if !parser.accept(Comma) {
				break
			}
		}
		if _, err := parser.expect(ParenClose); err != nil {
			return nil, err
		}
		statement.Rows = append(statement.Rows, row)
		if !parser.accept(Comma) {
			break
		}
	}
	return statement, nil
}

func (parser *Parser) parseUpdate() (Statement, error) {
	statement := UpdateStatement{}
	parser.next() // UPDATE
	table, err := parser.tableName()
	if err != nil {
		return nil, err
	}
	statement.Table = table
	if _, err := parser.expect(Set); err != nil {
		return nil, err
	}
	for {
		column, err := parser.identifier()
		if err != nil {
			return nil, err
		}
		if _, err := parser.expect(Equals); err != nil {
			return nil, err
		}
		value, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		statement.Sets = append(statement.Sets, SetClause{Column: column, Value: value})
		if !parser.accept(Comma) {
			break
		}
	}
	if parser.accept(Where) {
		if statement.Where, err = parser.parseExpression(); err != nil {
			return nil, err
		}
	}
	return statement, nil
}

func (parser *Parser) parseDelete() (Statement, error) {
	statement := DeleteStatement{}
	parser.next() // DELETE
	if _, err := parser.expect(From); err != nil {
		return nil, err
	}
	table, err := parser.tableName()
	if err != nil {
		return nil, err
	}
	statement.Table = table
	if parser.accept(Where) {
		if statement.Where, err = parser.parseExpression(); err != nil {
			return nil, err
		}
	}
	return statement, nil
}

func (parser *Parser) parseCreate() (Statement, error) {
	parser.next() // CREATE
	orReplace := false
	if parser.accept(Or) {
		if _, err := parser.expect(Replace); err != nil {
			return nil, err
		}
		orReplace = true
	}
	switch parser.cur.Type {
	case Schema:
		if orReplace {
			return nil, parser.errf("OR REPLACE cannot be used with CREATE SCHEMA")
		}
		parser.next()
		ifNotExists, err := parser.parseIfNotExists()
		if err != nil {
			return nil, err
		}
		name, err := parser.identifier()
		if err != nil {
			return nil, err
		}
		return CreateSchemaStatement{Name: name, IfNotExists: ifNotExists}, nil
	case Table:
		parser.next()
		ifNotExists, err := parser.parseIfNotExists()
		if err != nil {
			return nil, err
		}
		table, err := parser.tableName()
		if err != nil {
			return nil, err
		}
		definition := core.TableDefinition{Name: table}
		if _, err := parser.expect(ParenOpen); err != nil {
			return nil, err
		}
		for {
			column, err := parser.parseColumnDefinition()
			if err != nil {
				return nil, err
			}
			definition.Columns = append(definition.Columns, column)
			if !parser.accept(Comma) {
				break
			}
		}
		if _, err := parser.expect(ParenClose); err != nil {
			return nil, err
		}
		return CreateTableStatement{Definition: definition, IfNotExists: ifNotExists, OrReplace: orReplace}, nil
	default:
		return nil, parser.errf("expected SCHEMA or TABLE, found %s", parser.cur)
	}
}

func (parser *Parser) parseIfNotExists() (bool, error) {
	if !parser.accept(If) {
		return false, nil
	}
	if _, err := parser.expect(Not); err != nil {
		return false, err
	}
	if _, err := parser.expect(Exists); err != nil {
		return false, err
	}
	return true, nil
}

func (parser *Parser) parseColumnDefinition() (core.Column, error) {
	name, err := parser.identifier()
	if err != nil {
		return core.Column{}, err
	}
	sqlType, err := parser.parseType()
	if err != nil {
		return core.Column{}, err
	}
	column := core.Column{Name: name, Type: sqlType, Nullability: core.Nullable}
	if parser.accept(Not) {
		if _, err := parser.expect(Null); err != nil {
			return core.Column{}, err
		}
		column.Nullability = core.NotNullable
	} else {
		parser.accept(Null)
	}
	return column, nil
}

// parseType reads a type name as produced by core.SqlType.String,
// plus the common aliases.
func (parser *Parser) parseType() (core.SqlType, error) {
	token := parser.cur
	if token.Type != Identifier {
		return core.SqlType{}, parser.errf("expected type name, found %s", parser.cur)
	}
	parser.next()
	switch strings.ToUpper(token.Value) {
	case "BOOLEAN", "BOOL":
		return core.Bool(), nil
	case "SMALLINT", "INT2":
		return core.SmallInt(), nil
	case "INT", "INTEGER", "INT4":
		return core.Int(), nil
	case "BIGINT", "INT8":
		return core.BigInt(), nil
	case "REAL", "FLOAT4":
		return core.Float(), nil
	case "DOUBLE":
		if parser.cur.Type == Identifier && strings.EqualFold(parser.cur.Value, "PRECISION") {
			parser.next()
		}
		return core.Double(), nil
	case "FLOAT", "FLOAT8":
		return core.Double(), nil
	case "NUMERIC", "DECIMAL":
		precision, scale := 18, 0
		if parser.accept(ParenOpen) {
			var err error
			if precision, err = parser.intLiteral(); err != nil {
				return core.SqlType{}, err
			}
			if parser.accept(Comma) {
				if scale, err = parser.intLiteral(); err != nil {
					return core.SqlType{}, err
				}
			}
			if _, err := parser.expect(ParenClose); err != nil {
				return core.SqlType{}, err
			}
		}
		return core.Numeric(precision, scale), nil
	case "TEXT", "VARCHAR", "CHARACTER":
		if parser.accept(ParenOpen) { // length limits are accepted and ignored
			if _, err := parser.intLiteral(); err != nil {
				return core.SqlType{}, err
			}
			if _, err := parser.expect(ParenClose); err != nil {
				return core.SqlType{}, err
			}
		}
		return core.Text(), nil
	case "BYTES", "BYTEA", "VARBINARY":
		return core.Bytes(), nil
	case "DATE":
		return core.Date(), nil
	case "TIME":
		return core.Time(), nil
	case "TIMESTAMPTZ":
		return core.TimestampTZ(), nil
	case "TIMESTAMP":
		if parser.accept(With) {
			if err := parser.expectIdent("TIME"); err != nil {
				return core.SqlType{}, err
			}
			if err := parser.expectIdent("ZONE"); err != nil {
				return core.SqlType{}, err
			}
			return core.TimestampTZ(), nil
		}
		if parser.cur.Type == Identifier && strings.EqualFold(parser.cur.Value, "WITHOUT") {
			parser.next()
			if err := parser.expectIdent("TIME"); err != nil {
				return core.SqlType{}, err
			}
			if err := parser.expectIdent("ZONE"); err != nil {
				return core.SqlType{}, err
			}
		}
		return core.Timestamp(), nil
	case "GEOGRAPHY":
		return core.Geography(), nil
	default:
		return core.SqlType{}, core.ErrorfAt(core.KindSyntax, token.Pos, "unknown type %q", token.Value)
	}
}

func (parser *Parser) expectIdent(upper string) error {
	if parser.cur.Type != Identifier || !strings.EqualFold(parser.cur.Value, upper) {
		return parser.errf("expected %s, found %s", upper, parser.cur)
	}
	parser.next()
	return nil
}

func (parser *Parser) parseDrop() (Statement, error) {
	parser.next() // DROP
	switch parser.cur.Type {
	case Table:
		parser.next()
		ifExists, err := parser.parseIfExists()
		if err != nil {
			return nil, err
		}
		table, err := parser.tableName()
		if err != nil {
			return nil, err
		}
		return DropTableStatement{Table: table, IfExists: ifExists}, nil
	case Schema:
		parser.next()
		ifExists, err := parser.parseIfExists()
		if err != nil {
			return nil, err
		}
		name, err := parser.identifier()
		if err != nil {
			return nil, err
		}
		return DropSchemaStatement{Name: name, IfExists: ifExists, Cascade: parser.accept(Cascade)}, nil
	default:
		return nil, parser.errf("expected TABLE or SCHEMA, found %s", parser.cur)
	}
}

func (parser *Parser) parseIfExists() (bool, error) {
	if !parser.accept(If) {
		return false, nil
	}
	if _, err := parser.expect(Exists); err != nil {
		return false, err
	}
	return true, nil
}

func (parser *Parser) parseCopy() (Statement, error) {
	statement := CopyStatement{Format: "csv", Delimiter: ','}
	parser.next() // COPY
	table, err := parser.tableName()
	if err != nil {
		return nil, err
	}
	statement.Table = table
	if _, err := parser.expect(From); err != nil {
		return nil, err
	}
	source, err := parser.expect(String)
	if err != nil {
		return nil, err
	}
	statement.Source = source.Value

	if !parser.accept(With) {
		return statement, nil
	}
	if _, err := parser.expect(ParenOpen); err != nil {
		return nil, err
	}
	for {
		switch {
		case parser.cur.Type == Null:
			parser.next()
			token, err := parser.expect(String)
			if err != nil {
				return nil, err
			}
			statement.NullToken = token.Value
		case parser.cur.Type == Identifier:
			option := strings.ToLower(parser.cur.Value)
			optionPos := parser.cur.Pos
			parser.next()
			switch option {
			case "format":
				format, err := parser.identifier()
				if err != nil {
					return nil, err
				}
				statement.Format = strings.ToLower(format)
			case "delimiter":
				token, err := parser.expect(String)
				if err != nil {
					return nil, err
				}
				runes := []rune(token.Value)
				if len(runes) != 1 {
					return nil, core.ErrorfAt(core.KindSyntax, token.Pos, "delimiter must be a single character")
				}
				statement.Delimiter = runes[0]
			case "header":
				statement.Header = true
			default:
				return nil, core.ErrorfAt(core.KindSyntax, optionPos, "unknown COPY option %q", option)
			}
		default:
			return nil, parser.errf("expected COPY option, found %s", parser.cur)
		}
		if !parser.accept(Comma) {
			break
		}
	}
	if _, err := parser.expect(ParenClose); err != nil {
		return nil, err
	}
	return statement, nil
}

// Expression parsing, loosest to tightest binding.

func (parser *Parser) parseExpression() (Expr, error) {
	return parser.parseOr()
}

func (parser *Parser) parseOr() (Expr, error) {
	left, err := parser.parseAnd()
	if err != nil {
		return nil, err
	}
	for parser.cur.Type == Or {
		pos := parser.cur.Pos
		parser.next()
		right, err := parser.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Binary{Position: pos, Op: Or, Left: left, Right: right}
	}
	return left, nil
}

func (parser *Parser) parseAnd() (Expr, error) {
	left, err := parser.parseNot()
	if err != nil {
		return nil, err
	}
	for parser.cur.Type == And {
		pos := parser.cur.Pos
		parser.next()
		right, err := parser.parseNot()
		if err != nil {
			return nil, err
		}
		left = Binary{Position: pos, Op: And, Left: left, Right: right}
	}
	return left, nil
}

func (parser *Parser) parseNot() (Expr, error) {
	if parser.cur.Type == Not {
		pos := parser.cur.Pos
		parser.next()
		operand, err := parser.parseNot()
		if err != nil {
			return nil, err
		}
		return Unary{Position: pos, Op: Not, Operand: operand}, nil
	}
	return parser.parseComparison()
}

func (parser *Parser) parseComparison() (Expr, error) {
	left, err := parser.parseAdditive()
	if err != nil {
		return nil, err
	}
	switch parser.cur.Type {
	case Equals, NotEquals, LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual:
		op := parser.cur.Type
		pos := parser.cur.Pos
		parser.next()
		if parser.cur.Type == Any {
			if op != Equals {
				return nil, parser.errf("ANY requires the = operator")
			}
			parser.next()
			if _, err := parser.expect(ParenOpen); err != nil {
				return nil, err
			}
			sub, err := parser.parseSelect()
			if err != nil {
				return nil, err
			}
			if _, err := parser.expect(ParenClose); err != nil {
				return nil, err
			}
			subquery := sub.(SelectStatement)
			return AnyExpr{Position: pos, Left: left, Subquery: &subquery}, nil
		}
		right, err := parser.parseAdditive()
		if err != nil {
			return nil, err
		}
		return Binary{Position: pos, Op: op, Left: left, Right: right}, nil
	case Is:
		pos := parser.cur.Pos
		parser.next()
		negated := parser.accept(Not)
		if _, err := parser.expect(Null); err != nil {
			return nil, err
		}
		return IsNullExpr{Position: pos, Operand: left, Negated: negated}, nil
	}
	return left, nil
}

func (parser *Parser) parseAdditive() (Expr, error) {
	left, err := parser.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for parser.cur.Type == Plus || parser.cur.Type == Minus || parser.cur.Type == Concat {
		op := parser.cur.Type
		pos := parser.cur.Pos
		parser.next()
		right, err := parser.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = Binary{Position: pos, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (parser *Parser) parseMultiplicative() (Expr, error) {
	left, err := parser.parseUnary()
	if err != nil {
		return nil, err
	}
	for parser.cur.Type == Star || parser.cur.Type == Slash {
		op := parser.cur.Type
		pos := parser.cur.Pos
		parser.next()
		right, err := parser.parseUnary()
		if err != nil {
			return nil, err
		}
		left = Binary{Position: pos, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (parser *Parser) parseUnary() (Expr, error) {
	if parser.cur.Type == Minus {
		pos := parser.cur.Pos
		parser.next()
		operand, err := parser.parseUnary()
		if err != nil {
			return nil, err
		}
		return Unary{Position: pos, Op: Minus, Operand: operand}, nil
	}
	return parser.parsePrimary()
}

func (parser *Parser) parsePrimary() (Expr, error) {
	token := parser.cur
	switch token.Type {
	case Int:
		parser.next()
		i, err := strconv.ParseInt(token.Value, 10, 64)
		if err != nil {
			return nil, core.ErrorfAt(core.KindSyntax, token.Pos, "invalid integer %q", token.Value)
		}
		return Literal{Position: token.Pos, Value: smallestInt(i)}, nil
	case Float:
		parser.next()
		f, err := strconv.ParseFloat(token.Value, 64)
		if err != nil {
			return nil, core.ErrorfAt(core.KindSyntax, token.Pos, "invalid number %q", token.Value)
		}
		return Literal{Position: token.Pos, Value: core.NewDouble(f)}, nil
	case String:
		parser.next()
		return Literal{Position: token.Pos, Value: core.NewText(token.Value)}, nil
	case True:
		parser.next()
		return Literal{Position: token.Pos, Value: core.NewBool(true)}, nil
	case False:
		parser.next()
		return Literal{Position: token.Pos, Value: core.NewBool(false)}, nil
	case Null:
		parser.next()
		return Literal{Position: token.Pos, IsNull: true}, nil
	case Case:
		return parser.parseCase()
	case Cast:
		return parser.parseCast()
	case ParenOpen:
		parser.next()
		expr, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := parser.expect(ParenClose); err != nil {
			return nil, err
		}
		return expr, nil
	case Identifier, QuotedIdentifier:
		if token.Type == Identifier && parser.peek.Type == ParenOpen {
			return parser.parseFuncCall()
		}
		parser.next()
		return ColumnRef{Position: token.Pos, Name: token.Value}, nil
	}
	return nil, parser.errf("unexpected %s in expression", parser.cur)
}

// smallestInt picks the narrowest integer type holding the literal, so
// lossless widening can place it in any wider column.
func smallestInt(i int64) core.Value {
	switch {
	case i >= math.MinInt16 && i <= math.MaxInt16:
		return core.NewSmallInt(int16(i))
	case i >= math.MinInt32 && i <= math.MaxInt32:
		return core.NewInt(int32(i))
	default:
		return core.NewBigInt(i)
	}
}

func (parser *Parser) parseCase() (Expr, error) {
	expr := CaseExpr{Position: parser.cur.Pos}
	parser.next() // CASE
	if parser.cur.Type != When {
		operand, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		expr.Operand = operand
	}
	for parser.accept(When) {
		when, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := parser.expect(Then); err != nil {
			return nil, err
		}
		then, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		expr.Whens = append(expr.Whens, WhenClause{When: when, Then: then})
	}
	if len(expr.Whens) == 0 {
		return nil, parser.errf("CASE requires at least one WHEN clause")
	}
	if parser.accept(Else) {
		elseExpr, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		expr.Else = elseExpr
	}
	if _, err := parser.expect(End); err != nil {
		return nil, err
	}
	return expr, nil
}

func (parser *Parser) parseCast() (Expr, error) {
	pos := parser.cur.Pos
	parser.next() // CAST
	if _, err := parser.expect(ParenOpen); err != nil {
		return nil, err
	}
	operand, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := parser.expect(As); err != nil {
		return nil, err
	}
	target, err := parser.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := parser.expect(ParenClose); err != nil {
		return nil, err
	}
	return CastExpr{Position: pos, Operand: operand, Target: target}, nil
}

func (parser *Parser) parseFuncCall() (Expr, error) {
	name := parser.cur.Value
	pos := parser.cur.Pos
	parser.next() // function name
	parser.next() // (
	call := FuncCall{Position: pos, Name: strings.ToLower(name)}
	if parser.cur.Type != ParenClose {
		for {
			arg, err := parser.parseExpression()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if !parser.accept(Comma) {
				break
			}
		}
	}
	if _, err := parser.expect(ParenClose); err != nil {
		return nil, err
	}
	return call, nil
}
