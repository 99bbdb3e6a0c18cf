package engine

import (
	"strings"
	"time"

	"github.com/nholden/tidedb/core"
	"github.com/nholden/tidedb/sql"
)

// evaluator computes scalar expressions against a row layout. Subquery
// results are resolved once per statement and looked up by AST node
// during row evaluation.
type evaluator struct {
	columns   []core.Column
	anyValues map[*sql.SelectStatement][]core.Value
}

func newEvaluator(columns []core.Column) *evaluator {
	return &evaluator{columns: columns, anyValues: map[*sql.SelectStatement][]core.Value{}}
}

// nullValue is the untyped NULL literal. It converts losslessly to the
// NULL of any target type.
func nullValue() core.Value {
	return core.NullValue(core.Text())
}

func (ev *evaluator) eval(expr sql.Expr, row core.Row) (core.Value, error) {
	switch e := expr.(type) {
	case sql.Literal:
		if e.IsNull {
			return nullValue(), nil
		}
		return e.Value, nil
	case sql.ColumnRef:
		for i := range ev.columns {
			if ev.columns[i].Name == e.Name {
				return row[i], nil
			}
		}
		return core.Value{}, core.ErrorfAt(core.KindColumnNotFound, e.Position,
			"column %s does not exist", core.EscapeName(e.Name))
	case sql.Unary:
		return ev.evalUnary(e, row)
	case sql.Binary:
		return ev.evalBinary(e, row)
	case sql.IsNullExpr:
		operand, err := ev.eval(e.Operand, row)
		if err != nil {
			return core.Value{}, err
		}
		return core.NewBool(operand.IsNull() != e.Negated), nil
	case sql.AnyExpr:
		return ev.evalAny(e, row)
	case sql.CaseExpr:
		return ev.evalCase(e, row)
	case sql.CastExpr:
		operand, err := ev.eval(e.Operand, row)
		if err != nil {
			return core.Value{}, err
		}
		return castValue(operand, e.Target, e.Position)
	case sql.FuncCall:
		return ev.evalFunc(e, row)
	}
	return core.Value{}, core.ErrorfAt(core.KindSyntax, expr.Pos(), "unsupported expression")
}

func (ev *evaluator) evalUnary(e sql.Unary, row core.Row) (core.Value, error) {
	operand, err := ev.eval(e.Operand, row)
	if err != nil {
		return core.Value{}, err
	}
	switch e.Op {
	case sql.Minus:
		return negate(operand, e.Position)
	case sql.Not:
		if operand.IsNull() {
			return core.NullValue(core.Bool()), nil
		}
		b, err := operand.Bool()
		if err != nil {
			return core.Value{}, core.ErrorfAt(core.KindTypeMismatch, e.Position,
				"NOT requires a BOOLEAN, got %s", operand.Type())
		}
		return core.NewBool(!b), nil
	}
	return core.Value{}, core.ErrorfAt(core.KindSyntax, e.Position, "unsupported unary operator")
}

func negate(v core.Value, pos int) (core.Value, error) {
	if v.IsNull() {
		return v, nil
	}
	switch v.Type().Tag {
	case core.SmallIntTag, core.IntTag, core.BigIntTag:
		i, err := v.Int64()
		if err != nil {
			return core.Value{}, err
		}
		return smallestIntValue(-i), nil
	case core.NumericTag:
		i, err := v.Int64()
		if err != nil {
			return core.Value{}, err
		}
		return core.NewNumeric(-i, v.Type().Precision, v.Type().Scale), nil
	case core.FloatTag:
		f, err := v.Float64()
		if err != nil {
			return core.Value{}, err
		}
		return core.NewFloat(float32(-f)), nil
	case core.DoubleTag:
		f, err := v.Float64()
		if err != nil {
			return core.Value{}, err
		}
		return core.NewDouble(-f), nil
	}
	return core.Value{}, core.ErrorfAt(core.KindTypeMismatch, pos, "cannot negate %s", v.Type())
}

func (ev *evaluator) evalBinary(e sql.Binary, row core.Row) (core.Value, error) {
	left, err := ev.eval(e.Left, row)
	if err != nil {
		return core.Value{}, err
	}
	right, err := ev.eval(e.Right, row)
	if err != nil {
		return core.Value{}, err
	}

	switch e.Op {
	case sql.And, sql.Or:
		return evalLogical(e.Op, left, right, e.Position)
	case sql.Equals, sql.NotEquals, sql.LessThan, sql.LessThanOrEqual, sql.GreaterThan, sql.GreaterThanOrEqual:
		return evalComparison(e.Op, left, right, e.Position)
	case sql.Concat:
		return evalConcat(left, right, e.Position)
	case sql.Plus, sql.Minus, sql.Star, sql.Slash:
		return evalArithmetic(e.Op, left, right, e.Position)
	}
	return core.Value{}, core.ErrorfAt(core.KindSyntax, e.Position, "unsupported binary operator")
}

// evalLogical applies three-valued AND/OR: NULL is unknown, and an
// operand that decides the outcome on its own wins over unknown.
func evalLogical(op sql.TokenType, left, right core.Value, pos int) (core.Value, error) {
	operand := func(v core.Value) (known bool, value bool, err error) {
		if v.IsNull() {
			return false, false, nil
		}
		b, err := v.Bool()
		if err != nil {
			return false, false, core.ErrorfAt(core.KindTypeMismatch, pos,
				"logical operator requires BOOLEAN, got %s", v.Type())
		}
		return true, b, nil
	}
	leftKnown, leftValue, err := operand(left)
	if err != nil {
		return core.Value{}, err
	}
	rightKnown, rightValue, err := operand(right)
	if err != nil {
		return core.Value{}, err
	}
	if op == sql.And {
		if leftKnown && !leftValue || rightKnown && !rightValue {
			return core.NewBool(false), nil
		}
		if leftKnown && rightKnown {
			return core.NewBool(true), nil
		}
		return core.NullValue(core.Bool()), nil
	}
	if leftKnown && leftValue || rightKnown && rightValue {
		return core.NewBool(true), nil
	}
	if leftKnown && rightKnown {
		return core.NewBool(false), nil
	}
	return core.NullValue(core.Bool()), nil
}

func evalComparison(op sql.TokenType, left, right core.Value, pos int) (core.Value, error) {
	if left.IsNull() || right.IsNull() {
		return core.NullValue(core.Bool()), nil
	}
	cmp, err := left.Compare(right)
	if err != nil {
		return core.Value{}, core.ErrorfAt(core.KindTypeMismatch, pos,
			"cannot compare %s with %s", left.Type(), right.Type())
	}
	switch op {
	case sql.Equals:
		return core.NewBool(cmp == 0), nil
	case sql.NotEquals:
		return core.NewBool(cmp != 0), nil
	case sql.LessThan:
		return core.NewBool(cmp < 0), nil
	case sql.LessThanOrEqual:
		return core.NewBool(cmp <= 0), nil
	case sql.GreaterThan:
		return core.NewBool(cmp > 0), nil
	default:
		return core.NewBool(cmp >= 0), nil
	}
}

func evalConcat(left, right core.Value, pos int) (core.Value, error) {
	if left.IsNull() || right.IsNull() {
		return core.NullValue(core.Text()), nil
	}
	a, err := left.Text()
	if err != nil {
		return core.Value{}, core.ErrorfAt(core.KindTypeMismatch, pos,
			"|| requires TEXT operands, got %s", left.Type())
	}
	b, err := right.Text()
	if err != nil {
		return core.Value{}, core.ErrorfAt(core.KindTypeMismatch, pos,
			"|| requires TEXT operands, got %s", right.Type())
	}
	return core.NewText(a + b), nil
}

// evalArithmetic computes +, -, *, / with numeric promotion. Integer
// operands stay exact in int64 and the result takes the narrowest
// integer type that holds it. NUMERIC addition and subtraction stay
// exact when both operands share a scale; every other mix runs in
// float64 and yields DOUBLE PRECISION.
func evalArithmetic(op sql.TokenType, left, right core.Value, pos int) (core.Value, error) {
	if left.IsNull() || right.IsNull() {
		return nullValue(), nil
	}
	leftTag, rightTag := left.Type().Tag, right.Type().Tag
	if !isNumericTag(leftTag) || !isNumericTag(rightTag) {
		return core.Value{}, core.ErrorfAt(core.KindTypeMismatch, pos,
			"arithmetic requires numeric operands, got %s and %s", left.Type(), right.Type())
	}

	if isIntegerTag(leftTag) && isIntegerTag(rightTag) {
		a, err := left.Int64()
		if err != nil {
			return core.Value{}, err
		}
		b, err := right.Int64()
		if err != nil {
			return core.Value{}, err
		}
		switch op {
		case sql.Plus:
			return smallestIntValue(a + b), nil
		case sql.Minus:
			return smallestIntValue(a - b), nil
		case sql.Star:
			return smallestIntValue(a * b), nil
		default:
			if b == 0 {
				return core.Value{}, core.ErrorfAt(core.KindConstraintViolation, pos, "division by zero")
			}
			return smallestIntValue(a / b), nil
		}
	}

	if leftTag == core.NumericTag && rightTag == core.NumericTag &&
		left.Type().Scale == right.Type().Scale && (op == sql.Plus || op == sql.Minus) {
		a, err := left.Int64()
		if err != nil {
			return core.Value{}, err
		}
		b, err := right.Int64()
		if err != nil {
			return core.Value{}, err
		}
		if op == sql.Minus {
			b = -b
		}
		t := left.Type()
		return core.NewNumeric(a+b, t.Precision, t.Scale), nil
	}

	a, err := left.Float64()
	if err != nil {
		return core.Value{}, err
	}
	b, err := right.Float64()
	if err != nil {
		return core.Value{}, err
	}
	switch op {
	case sql.Plus:
		return core.NewDouble(a + b), nil
	case sql.Minus:
		return core.NewDouble(a - b), nil
	case sql.Star:
		return core.NewDouble(a * b), nil
	default:
		if b == 0 {
			return core.Value{}, core.ErrorfAt(core.KindConstraintViolation, pos, "division by zero")
		}
		return core.NewDouble(a / b), nil
	}
}

func isNumericTag(tag core.TypeTag) bool {
	switch tag {
	case core.SmallIntTag, core.IntTag, core.BigIntTag, core.FloatTag, core.DoubleTag, core.NumericTag:
		return true
	}
	return false
}

func isIntegerTag(tag core.TypeTag) bool {
	switch tag {
	case core.SmallIntTag, core.IntTag, core.BigIntTag:
		return true
	}
	return false
}

func smallestIntValue(i int64) core.Value {
	switch {
	case i >= -32768 && i <= 32767:
		return core.NewSmallInt(int16(i))
	case i >= -2147483648 && i <= 2147483647:
		return core.NewInt(int32(i))
	default:
		return core.NewBigInt(i)
	}
}

func (ev *evaluator) evalAny(e sql.AnyExpr, row core.Row) (core.Value, error) {
	left, err := ev.eval(e.Left, row)
	if err != nil {
		return core.Value{}, err
	}
	if left.IsNull() {
		return core.NullValue(core.Bool()), nil
	}
	for _, candidate := range ev.anyValues[e.Subquery] {
		if candidate.IsNull() {
			continue
		}
		cmp, err := left.Compare(candidate)
		if err != nil {
			return core.Value{}, core.ErrorfAt(core.KindTypeMismatch, e.Position,
				"cannot compare %s with %s", left.Type(), candidate.Type())
		}
		if cmp == 0 {
			return core.NewBool(true), nil
		}
	}
	return core.NewBool(false), nil
}

func (ev *evaluator) evalCase(e sql.CaseExpr, row core.Row) (core.Value, error) {
	var operand core.Value
	if e.Operand != nil {
		var err error
		operand, err = ev.eval(e.Operand, row)
		if err != nil {
			return core.Value{}, err
		}
	}
	for _, clause := range e.Whens {
		when, err := ev.eval(clause.When, row)
		if err != nil {
			return core.Value{}, err
		}
		matched := false
		if e.Operand != nil {
			if !operand.IsNull() && !when.IsNull() {
				cmp, err := operand.Compare(when)
				if err != nil {
					return core.Value{}, core.ErrorfAt(core.KindTypeMismatch, e.Position,
						"cannot compare %s with %s", operand.Type(), when.Type())
				}
				matched = cmp == 0
			}
		} else {
			matched = truthy(when)
		}
		if matched {
			return ev.eval(clause.Then, row)
		}
	}
	if e.Else != nil {
		return ev.eval(e.Else, row)
	}
	return nullValue(), nil
}

// castValue implements CAST, which is wider than implicit conversion:
// any type renders to TEXT, and TEXT parses into any type.
func castValue(v core.Value, target core.SqlType, pos int) (core.Value, error) {
	if v.IsNull() {
		return core.NullValue(target), nil
	}
	if v.Type().Equal(target) {
		return v, nil
	}
	if converted, err := v.Convert(target); err == nil {
		return converted, nil
	}
	if target.Tag == core.TextTag {
		return core.NewText(v.String()), nil
	}
	if v.Type().Tag == core.TextTag {
		s, err := v.Text()
		if err != nil {
			return core.Value{}, err
		}
		parsed, err := core.ParseValueText(s, target)
		if err != nil {
			return core.Value{}, core.ErrorfAt(core.KindTypeMismatch, pos,
				"cannot cast %q to %s", s, target)
		}
		return parsed, nil
	}
	return core.Value{}, core.ErrorfAt(core.KindTypeMismatch, pos,
		"cannot cast %s to %s", v.Type(), target)
}

func (ev *evaluator) evalFunc(e sql.FuncCall, row core.Row) (core.Value, error) {
	args := make([]core.Value, len(e.Args))
	for i, arg := range e.Args {
		value, err := ev.eval(arg, row)
		if err != nil {
			return core.Value{}, err
		}
		args[i] = value
	}

	argCount := func(n int) error {
		if len(args) != n {
			return core.ErrorfAt(core.KindSyntax, e.Position,
				"%s takes %d arguments, got %d", e.Name, n, len(args))
		}
		return nil
	}

	switch e.Name {
	case "upper", "lower":
		if err := argCount(1); err != nil {
			return core.Value{}, err
		}
		if args[0].IsNull() {
			return core.NullValue(core.Text()), nil
		}
		s, err := args[0].Text()
		if err != nil {
			return core.Value{}, core.ErrorfAt(core.KindTypeMismatch, e.Position,
				"%s requires TEXT, got %s", e.Name, args[0].Type())
		}
		if e.Name == "upper" {
			return core.NewText(strings.ToUpper(s)), nil
		}
		return core.NewText(strings.ToLower(s)), nil
	case "length":
		if err := argCount(1); err != nil {
			return core.Value{}, err
		}
		if args[0].IsNull() {
			return core.NullValue(core.Int()), nil
		}
		s, err := args[0].Text()
		if err != nil {
			return core.Value{}, core.ErrorfAt(core.KindTypeMismatch, e.Position,
				"length requires TEXT, got %s", args[0].Type())
		}
		return core.NewInt(int32(len([]rune(s)))), nil
	case "abs":
		if err := argCount(1); err != nil {
			return core.Value{}, err
		}
		if args[0].IsNull() {
			return args[0], nil
		}
		cmp, err := args[0].Compare(smallestIntValue(0))
		if err != nil {
			return core.Value{}, core.ErrorfAt(core.KindTypeMismatch, e.Position,
				"abs requires a numeric argument, got %s", args[0].Type())
		}
		if cmp >= 0 {
			return args[0], nil
		}
		return negate(args[0], e.Position)
	case "coalesce":
		for _, arg := range args {
			if !arg.IsNull() {
				return arg, nil
			}
		}
		return nullValue(), nil
	case "to_timestamp":
		return evalParseTime(args, e.Position, "to_timestamp", func(t time.Time) core.Value {
			return core.NewTimestamp(t)
		})
	case "to_date":
		return evalParseTime(args, e.Position, "to_date", func(t time.Time) core.Value {
			return core.NewDate(t.Year(), t.Month(), t.Day())
		})
	}
	return core.Value{}, core.ErrorfAt(core.KindSyntax, e.Position, "unknown function %s", e.Name)
}

func evalParseTime(args []core.Value, pos int, name string, build func(time.Time) core.Value) (core.Value, error) {
	if len(args) != 2 {
		return core.Value{}, core.ErrorfAt(core.KindSyntax, pos,
			"%s takes 2 arguments, got %d", name, len(args))
	}
	if args[0].IsNull() {
		if name == "to_date" {
			return core.NullValue(core.Date()), nil
		}
		return core.NullValue(core.Timestamp()), nil
	}
	input, err := args[0].Text()
	if err != nil {
		return core.Value{}, core.ErrorfAt(core.KindTypeMismatch, pos,
			"%s requires TEXT input, got %s", name, args[0].Type())
	}
	pattern, err := args[1].Text()
	if err != nil {
		return core.Value{}, core.ErrorfAt(core.KindTypeMismatch, pos,
			"%s requires a TEXT format, got %s", name, args[1].Type())
	}
	layout := translateTimePattern(pattern)
	t, err := time.Parse(layout, input)
	if err != nil {
		return core.Value{}, core.ErrorfAt(core.KindTypeMismatch, pos,
			"%q does not match format %q", input, pattern)
	}
	return build(t), nil
}

// translateTimePattern rewrites a Postgres-style datetime format into a
// Go reference layout: YYYY-MM-DD HH24:MI:SS becomes 2006-01-02 15:04:05.
func translateTimePattern(pattern string) string {
	replacements := []struct{ from, to string }{
		{"HH24", "15"},
		{"HH12", "03"},
		{"YYYY", "2006"},
		{"MM", "01"},
		{"DD", "02"},
		{"MI", "04"},
		{"SS", "05"},
		{"MS", "000"},
	}
	var sb strings.Builder
	for i := 0; i < len(pattern); {
		matched := false
		for _, r := range replacements {
			if strings.HasPrefix(pattern[i:], r.from) {
				sb.WriteString(r.to)
				i += len(r.from)
				matched = true
				break
			}
		}
		if !matched {
			sb.WriteByte(pattern[i])
			i++
		}
	}
	return sb.String()
}

func truthy(v core.Value) bool {
	if v.IsNull() {
		return false
	}
	b, err := v.Bool()
	return err == nil && b
}

// collectSubqueries walks an expression tree and reports every ANY
// subquery, so the executor can resolve each one once per statement.
func collectSubqueries(expr sql.Expr, visit func(*sql.SelectStatement)) {
	switch e := expr.(type) {
	case sql.Unary:
		collectSubqueries(e.Operand, visit)
	case sql.Binary:
		collectSubqueries(e.Left, visit)
		collectSubqueries(e.Right, visit)
	case sql.IsNullExpr:
		collectSubqueries(e.Operand, visit)
	case sql.AnyExpr:
		collectSubqueries(e.Left, visit)
		visit(e.Subquery)
	case sql.CaseExpr:
		if e.Operand != nil {
			collectSubqueries(e.Operand, visit)
		}
		for _, clause := range e.Whens {
			collectSubqueries(clause.When, visit)
			collectSubqueries(clause.Then, visit)
		}
		if e.Else != nil {
			collectSubqueries(e.Else, visit)
		}
	case sql.CastExpr:
		collectSubqueries(e.Operand, visit)
	case sql.FuncCall:
		for _, arg := range e.Args {
			collectSubqueries(arg, visit)
		}
	}
}
