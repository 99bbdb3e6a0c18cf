package core

import "fmt"

// TypeTag identifies one of the scalar types the engine can store.
// The set is closed: the columnar encoder switches over it exhaustively.
type TypeTag int

const (
	BoolTag TypeTag = iota
	SmallIntTag
	IntTag
	BigIntTag
	FloatTag
	DoubleTag
	NumericTag
	TextTag
	BytesTag
	DateTag
	TimeTag
	TimestampTag
	TimestampTZTag
	GeographyTag
)

// SqlType is a scalar column type. Precision and Scale are only
// meaningful for NumericTag.
type SqlType struct {
	Tag       TypeTag
	Precision int
	Scale     int
}

func Bool() SqlType        { return SqlType{Tag: BoolTag} }
func SmallInt() SqlType    { return SqlType{Tag: SmallIntTag} }
func Int() SqlType         { return SqlType{Tag: IntTag} }
func BigInt() SqlType      { return SqlType{Tag: BigIntTag} }
func Float() SqlType       { return SqlType{Tag: FloatTag} }
func Double() SqlType      { return SqlType{Tag: DoubleTag} }
func Text() SqlType        { return SqlType{Tag: TextTag} }
func Bytes() SqlType       { return SqlType{Tag: BytesTag} }
func Date() SqlType        { return SqlType{Tag: DateTag} }
func Time() SqlType        { return SqlType{Tag: TimeTag} }
func Timestamp() SqlType   { return SqlType{Tag: TimestampTag} }
func TimestampTZ() SqlType { return SqlType{Tag: TimestampTZTag} }
func Geography() SqlType   { return SqlType{Tag: GeographyTag} }

// Numeric is a fixed-point decimal with the given precision and scale.
func Numeric(precision, scale int) SqlType {
	return SqlType{Tag: NumericTag, Precision: precision, Scale: scale}
}

// String renders the canonical SQL spelling of the type. The parser
// accepts this spelling back, so rendered DDL round-trips.
func (t SqlType) String() string {
	switch t.Tag {
	case BoolTag:
		return "BOOLEAN"
	case SmallIntTag:
		return "SMALLINT"
	case IntTag:
		return "INTEGER"
	case BigIntTag:
		return "BIGINT"
	case FloatTag:
		return "REAL"
	case DoubleTag:
		return "DOUBLE PRECISION"
	case NumericTag:
		return fmt.Sprintf("NUMERIC(%d,%d)", t.Precision, t.Scale)
	case TextTag:
		return "TEXT"
	case BytesTag:
		return "BYTES"
	case DateTag:
		return "DATE"
	case TimeTag:
		return "TIME"
	case TimestampTag:
		return "TIMESTAMP"
	case TimestampTZTag:
		return "TIMESTAMP WITH TIME ZONE"
	case GeographyTag:
		return "GEOGRAPHY"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(t.Tag))
	}
}

// FixedWidth reports the on-disk encoding width in bytes, or 0 for
// variable-width types (TEXT, BYTES, GEOGRAPHY).
func (t SqlType) FixedWidth() int {
	switch t.Tag {
	case BoolTag:
		return 1
	case SmallIntTag:
		return 2
	case IntTag, FloatTag, DateTag:
		return 4
	case BigIntTag, DoubleTag, NumericTag, TimeTag, TimestampTag, TimestampTZTag:
		return 8
	default:
		return 0
	}
}

func (t SqlType) Equal(o SqlType) bool {
	if t.Tag != o.Tag {
		return false
	}
	if t.Tag == NumericTag {
		return t.Precision == o.Precision && t.Scale == o.Scale
	}
	return true
}

// isNumeric reports whether the type participates in numeric widening.
func (t SqlType) isNumeric() bool {
	switch t.Tag {
	case SmallIntTag, IntTag, BigIntTag, FloatTag, DoubleTag, NumericTag:
		return true
	}
	return false
}

// Nullability declares whether a column admits NULL. It is enforced
// when rows are committed, not when they are buffered.
type Nullability int

const (
	NotNullable Nullability = iota
	Nullable
)

func (n Nullability) String() string {
	if n == Nullable {
		return "NULL"
	}
	return "NOT NULL"
}
