package core

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Value is a tagged scalar over the SqlType domain plus a null marker.
// Integer-backed types (integers, NUMERIC, DATE, TIME, TIMESTAMP) share
// one int64 slot; the tag decides its interpretation:
//
//	SMALLINT/INTEGER/BIGINT  the integer itself
//	NUMERIC(p,s)             the value scaled by 10^s
//	DATE                     days since 1970-01-01
//	TIME                     microseconds since midnight
//	TIMESTAMP[TZ]            microseconds since the Unix epoch, UTC
type Value struct {
	typ  SqlType
	null bool
	b    bool
	i    int64
	f    float64
	s    string
	raw  []byte
}

// NullValue is the NULL of the given type.
func NullValue(t SqlType) Value {
	return Value{typ: t, null: true}
}

func NewBool(v bool) Value       { return Value{typ: Bool(), b: v} }
func NewSmallInt(v int16) Value  { return Value{typ: SmallInt(), i: int64(v)} }
func NewInt(v int32) Value       { return Value{typ: Int(), i: int64(v)} }
func NewBigInt(v int64) Value    { return Value{typ: BigInt(), i: v} }
func NewFloat(v float32) Value   { return Value{typ: Float(), f: float64(v)} }
func NewDouble(v float64) Value  { return Value{typ: Double(), f: v} }
func NewText(v string) Value     { return Value{typ: Text(), s: v} }
func NewBytes(v []byte) Value    { return Value{typ: Bytes(), raw: v} }
func NewGeography(wkt string) Value {
	return Value{typ: Geography(), s: wkt}
}

func NewDate(year int, month time.Month, day int) Value {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Value{typ: Date(), i: t.Unix() / 86400}
}

func NewTimeOfDay(hour, min, sec, micro int) Value {
	us := int64(hour)*3600e6 + int64(min)*60e6 + int64(sec)*1e6 + int64(micro)
	return Value{typ: Time(), i: us}
}

func NewTimestamp(t time.Time) Value {
	return Value{typ: Timestamp(), i: t.UTC().UnixMicro()}
}

func NewTimestampTZ(t time.Time) Value {
	return Value{typ: TimestampTZ(), i: t.UTC().UnixMicro()}
}

// NewNumeric takes the already-scaled integer representation, i.e.
// NewNumeric(12345, 18, 3) is the numeric value 12.345.
func NewNumeric(scaled int64, precision, scale int) Value {
	return Value{typ: Numeric(precision, scale), i: scaled}
}

// Raw constructors used by the columnar decoder.

func NewDateFromDays(days int32) Value { return Value{typ: Date(), i: int64(days)} }
func NewTimeFromMicros(us int64) Value { return Value{typ: Time(), i: us} }
func NewTimestampFromMicros(us int64, withZone bool) Value {
	if withZone {
		return Value{typ: TimestampTZ(), i: us}
	}
	return Value{typ: Timestamp(), i: us}
}

func (v Value) Type() SqlType { return v.typ }
func (v Value) IsNull() bool  { return v.null }

// Int64 returns the raw int64 slot for integer-backed types.
func (v Value) Int64() (int64, error) {
	switch v.typ.Tag {
	case SmallIntTag, IntTag, BigIntTag, NumericTag, DateTag, TimeTag, TimestampTag, TimestampTZTag:
		if v.null {
			return 0, Errorf(KindTypeMismatch, "value is NULL")
		}
		return v.i, nil
	}
	return 0, Errorf(KindTypeMismatch, "%s is not integer-backed", v.typ)
}

func (v Value) Float64() (float64, error) {
	if v.null {
		return 0, Errorf(KindTypeMismatch, "value is NULL")
	}
	switch v.typ.Tag {
	case FloatTag, DoubleTag:
		return v.f, nil
	case SmallIntTag, IntTag, BigIntTag:
		return float64(v.i), nil
	case NumericTag:
		return float64(v.i) / math.Pow10(v.typ.Scale), nil
	}
	return 0, Errorf(KindTypeMismatch, "%s is not numeric", v.typ)
}

func (v Value) Bool() (bool, error) {
	if v.typ.Tag != BoolTag || v.null {
		return false, Errorf(KindTypeMismatch, "%s is not BOOLEAN", v.typ)
	}
	return v.b, nil
}

func (v Value) Text() (string, error) {
	switch v.typ.Tag {
	case TextTag, GeographyTag:
		if v.null {
			return "", Errorf(KindTypeMismatch, "value is NULL")
		}
		return v.s, nil
	}
	return "", Errorf(KindTypeMismatch, "%s is not textual", v.typ)
}

func (v Value) BytesValue() ([]byte, error) {
	if v.typ.Tag != BytesTag || v.null {
		return nil, Errorf(KindTypeMismatch, "%s is not BYTES", v.typ)
	}
	return v.raw, nil
}

// TimeValue materializes DATE and TIMESTAMP values as a time.Time in UTC.
func (v Value) TimeValue() (time.Time, error) {
	if v.null {
		return time.Time{}, Errorf(KindTypeMismatch, "value is NULL")
	}
	switch v.typ.Tag {
	case DateTag:
		return time.Unix(v.i*86400, 0).UTC(), nil
	case TimestampTag, TimestampTZTag:
		return time.UnixMicro(v.i).UTC(), nil
	}
	return time.Time{}, Errorf(KindTypeMismatch, "%s has no time representation", v.typ)
}

// Convert coerces the value to another type, allowing only lossless
// numeric widening: SMALLINT < INTEGER < BIGINT, REAL < DOUBLE, and
// integers into NUMERIC and DOUBLE where no digits can be lost. NULL
// converts to the NULL of any type; nullability is a column property
// checked at commit time, not here.
func (v Value) Convert(to SqlType) (Value, error) {
	if v.null {
		return NullValue(to), nil
	}
	if v.typ.Equal(to) {
		return v, nil
	}
	mismatch := func() (Value, error) {
		return Value{}, Errorf(KindTypeMismatch, "cannot convert %s to %s", v.typ, to)
	}
	switch v.typ.Tag {
	case SmallIntTag:
		switch to.Tag {
		case IntTag, BigIntTag:
			return Value{typ: to, i: v.i}, nil
		case FloatTag, DoubleTag:
			return Value{typ: to, f: float64(v.i)}, nil
		case NumericTag:
			return intToNumeric(v.i, to)
		}
	case IntTag:
		switch to.Tag {
		case BigIntTag:
			return Value{typ: to, i: v.i}, nil
		case DoubleTag:
			return Value{typ: to, f: float64(v.i)}, nil
		case NumericTag:
			return intToNumeric(v.i, to)
		}
	case BigIntTag:
		switch to.Tag {
		case NumericTag:
			return intToNumeric(v.i, to)
		case DoubleTag:
			// Lossless only within the double mantissa.
			if v.i >= -(1<<53) && v.i <= 1<<53 {
				return Value{typ: to, f: float64(v.i)}, nil
			}
		}
	case FloatTag:
		if to.Tag == DoubleTag {
			return Value{typ: to, f: v.f}, nil
		}
	case NumericTag:
		if to.Tag == NumericTag && to.Scale >= v.typ.Scale {
			scaled, ok := mulPow10(v.i, to.Scale-v.typ.Scale)
			if ok && numericFits(scaled, to.Precision) {
				return Value{typ: to, i: scaled}, nil
			}
		}
		if to.Tag == DoubleTag {
			f, _ := v.Float64()
			return Value{typ: to, f: f}, nil
		}
	case TextTag:
		if to.Tag == GeographyTag {
			return Value{typ: to, s: v.s}, nil
		}
	case TimestampTag:
		if to.Tag == TimestampTZTag {
			return Value{typ: to, i: v.i}, nil
		}
	}
	return mismatch()
}

func intToNumeric(i int64, to SqlType) (Value, error) {
	scaled, ok := mulPow10(i, to.Scale)
	if !ok || !numericFits(scaled, to.Precision) {
		return Value{}, Errorf(KindTypeMismatch, "%d does not fit NUMERIC(%d,%d)", i, to.Precision, to.Scale)
	}
	return Value{typ: to, i: scaled}, nil
}

func mulPow10(i int64, n int) (int64, bool) {
	for ; n > 0; n-- {
		next := i * 10
		if i != 0 && next/10 != i {
			return 0, false
		}
		i = next
	}
	return i, true
}

func numericFits(scaled int64, precision int) bool {
	if precision <= 0 || precision >= 19 {
		return true
	}
	limit := int64(1)
	for i := 0; i < precision; i++ {
		limit *= 10
	}
	return scaled > -limit && scaled < limit
}

// Compare orders two values. NULL sorts before every non-NULL value.
// Values of different types compare when both are numeric; otherwise
// the comparison is a type mismatch.
func (v Value) Compare(o Value) (int, error) {
	if v.null || o.null {
		switch {
		case v.null && o.null:
			return 0, nil
		case v.null:
			return -1, nil
		default:
			return 1, nil
		}
	}
	if v.typ.isNumeric() && o.typ.isNumeric() {
		if intBacked(v.typ) && intBacked(o.typ) && v.typ.Scale == o.typ.Scale {
			return cmpInt(v.i, o.i), nil
		}
		vf, _ := v.Float64()
		of, _ := o.Float64()
		return cmpFloat(vf, of), nil
	}
	if v.typ.Tag != o.typ.Tag {
		// Timestamps with and without zone share an instant encoding.
		if isInstant(v.typ.Tag) && isInstant(o.typ.Tag) {
			return cmpInt(v.i, o.i), nil
		}
		return 0, Errorf(KindTypeMismatch, "cannot compare %s with %s", v.typ, o.typ)
	}
	switch v.typ.Tag {
	case BoolTag:
		return cmpInt(boolToInt(v.b), boolToInt(o.b)), nil
	case TextTag, GeographyTag:
		return strings.Compare(v.s, o.s), nil
	case BytesTag:
		return bytes.Compare(v.raw, o.raw), nil
	case DateTag, TimeTag, TimestampTag, TimestampTZTag:
		return cmpInt(v.i, o.i), nil
	}
	return 0, Errorf(KindTypeMismatch, "cannot compare %s values", v.typ)
}

func (v Value) Equal(o Value) bool {
	c, err := v.Compare(o)
	return err == nil && c == 0
}

func intBacked(t SqlType) bool {
	switch t.Tag {
	case SmallIntTag, IntTag, BigIntTag, NumericTag:
		return true
	}
	return false
}

func isInstant(tag TypeTag) bool {
	return tag == TimestampTag || tag == TimestampTZTag
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// String renders the canonical textual form of the value. It is the
// form ParseValueText accepts back for the same type.
func (v Value) String() string {
	if v.null {
		return "NULL"
	}
	switch v.typ.Tag {
	case BoolTag:
		return strconv.FormatBool(v.b)
	case SmallIntTag, IntTag, BigIntTag:
		return strconv.FormatInt(v.i, 10)
	case FloatTag, DoubleTag:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case NumericTag:
		return formatNumeric(v.i, v.typ.Scale)
	case TextTag, GeographyTag:
		return v.s
	case BytesTag:
		return `\x` + fmt.Sprintf("%x", v.raw)
	case DateTag:
		t, _ := v.TimeValue()
		return t.Format("2006-01-02")
	case TimeTag:
		return formatTimeOfDay(v.i)
	case TimestampTag:
		t, _ := v.TimeValue()
		return t.Format("2006-01-02 15:04:05.999999")
	case TimestampTZTag:
		t, _ := v.TimeValue()
		return t.Format("2006-01-02 15:04:05.999999+00")
	}
	return fmt.Sprintf("<%s>", v.typ)
}

func formatNumeric(scaled int64, scale int) string {
	if scale <= 0 {
		return strconv.FormatInt(scaled, 10)
	}
	sign := ""
	if scaled < 0 {
		sign = "-"
		scaled = -scaled
	}
	digits := strconv.FormatInt(scaled, 10)
	for len(digits) <= scale {
		digits = "0" + digits
	}
	cut := len(digits) - scale
	return sign + digits[:cut] + "." + digits[cut:]
}

func formatTimeOfDay(us int64) string {
	h := us / 3600e6
	us -= h * 3600e6
	m := us / 60e6
	us -= m * 60e6
	s := us / 1e6
	us -= s * 1e6
	if us == 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d:%02d.%06d", h, m, s, us)
}

// ParseValueText parses the canonical textual rendering of a value of
// the given type. It backs CSV ingestion and text casts.
func ParseValueText(s string, t SqlType) (Value, error) {
	mismatch := func(err error) (Value, error) {
		return Value{}, Errorf(KindTypeMismatch, "cannot parse %q as %s: %v", s, t, err)
	}
	switch t.Tag {
	case BoolTag:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "t", "1", "yes":
			return NewBool(true), nil
		case "false", "f", "0", "no":
			return NewBool(false), nil
		}
		return Value{}, Errorf(KindTypeMismatch, "cannot parse %q as BOOLEAN", s)
	case SmallIntTag, IntTag, BigIntTag:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return mismatch(err)
		}
		if t.Tag == SmallIntTag && (i < math.MinInt16 || i > math.MaxInt16) ||
			t.Tag == IntTag && (i < math.MinInt32 || i > math.MaxInt32) {
			return Value{}, Errorf(KindTypeMismatch, "%d out of range for %s", i, t)
		}
		return Value{typ: t, i: i}, nil
	case FloatTag, DoubleTag:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return mismatch(err)
		}
		return Value{typ: t, f: f}, nil
	case NumericTag:
		return ParseNumeric(s, t.Precision, t.Scale)
	case TextTag:
		return NewText(s), nil
	case GeographyTag:
		return NewGeography(s), nil
	case BytesTag:
		trimmed := strings.TrimPrefix(s, `\x`)
		raw := make([]byte, len(trimmed)/2)
		if _, err := fmt.Sscanf(trimmed, "%x", &raw); err != nil {
			return mismatch(err)
		}
		return NewBytes(raw), nil
	case DateTag:
		tt, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), time.UTC)
		if err != nil {
			return mismatch(err)
		}
		return NewDate(tt.Year(), tt.Month(), tt.Day()), nil
	case TimeTag:
		tt, err := parseClock(strings.TrimSpace(s))
		if err != nil {
			return mismatch(err)
		}
		return tt, nil
	case TimestampTag, TimestampTZTag:
		tt, err := parseTimestampText(strings.TrimSpace(s))
		if err != nil {
			return mismatch(err)
		}
		return NewTimestampFromMicros(tt.UnixMicro(), t.Tag == TimestampTZTag), nil
	}
	return Value{}, Errorf(KindTypeMismatch, "cannot parse text as %s", t)
}

func parseClock(s string) (Value, error) {
	for _, layout := range []string{"15:04:05.999999", "15:04:05", "15:04"} {
		if tt, err := time.Parse(layout, s); err == nil {
			return NewTimeOfDay(tt.Hour(), tt.Minute(), tt.Second(), tt.Nanosecond()/1000), nil
		}
	}
	return Value{}, fmt.Errorf("unrecognized time %q", s)
}

func parseTimestampText(s string) (time.Time, error) {
	layouts := []string{
		"2006-01-02 15:04:05.999999-07:00",
		"2006-01-02 15:04:05.999999-07",
		"2006-01-02 15:04:05.999999",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if tt, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return tt, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseNumeric parses a decimal string into a NUMERIC(p,s) value,
// rejecting excess fractional digits rather than rounding them.
func ParseNumeric(s string, precision, scale int) (Value, error) {
	text := strings.TrimSpace(s)
	neg := strings.HasPrefix(text, "-")
	text = strings.TrimPrefix(strings.TrimPrefix(text, "-"), "+")
	intPart, fracPart, _ := strings.Cut(text, ".")
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > scale {
		return Value{}, Errorf(KindTypeMismatch, "%q has more than %d fractional digits", s, scale)
	}
	for len(fracPart) < scale {
		fracPart += "0"
	}
	scaled, err := strconv.ParseInt(intPart+fracPart, 10, 64)
	if err != nil {
		return Value{}, Errorf(KindTypeMismatch, "cannot parse %q as NUMERIC(%d,%d)", s, precision, scale)
	}
	if neg {
		scaled = -scaled
	}
	if !numericFits(scaled, precision) {
		return Value{}, Errorf(KindTypeMismatch, "%q does not fit NUMERIC(%d,%d)", s, precision, scale)
	}
	return NewNumeric(scaled, precision, scale), nil
}

// CoerceValue turns a native Go value into a Value of the target type,
// applying range checks and the same lossless-widening rules Convert
// uses. It is how the bulk inserter accepts caller-supplied rows.
func CoerceValue(v any, t SqlType) (Value, error) {
	if v == nil {
		return NullValue(t), nil
	}
	if val, ok := v.(Value); ok {
		return val.Convert(t)
	}
	switch t.Tag {
	case BoolTag:
		if b, ok := v.(bool); ok {
			return NewBool(b), nil
		}
	case SmallIntTag, IntTag, BigIntTag:
		if i, ok := asInt64(v); ok {
			if t.Tag == SmallIntTag && (i < math.MinInt16 || i > math.MaxInt16) ||
				t.Tag == IntTag && (i < math.MinInt32 || i > math.MaxInt32) {
				return Value{}, Errorf(KindTypeMismatch, "%d out of range for %s", i, t)
			}
			return Value{typ: t, i: i}, nil
		}
	case FloatTag:
		if f, ok := v.(float32); ok {
			return NewFloat(f), nil
		}
		if i, ok := asInt64(v); ok && i >= -(1<<24) && i <= 1<<24 {
			return Value{typ: t, f: float64(i)}, nil
		}
	case DoubleTag:
		switch f := v.(type) {
		case float64:
			return NewDouble(f), nil
		case float32:
			return NewDouble(float64(f)), nil
		}
		if i, ok := asInt64(v); ok {
			return NewBigInt(i).Convert(t)
		}
	case NumericTag:
		if s, ok := v.(string); ok {
			return ParseNumeric(s, t.Precision, t.Scale)
		}
		if i, ok := asInt64(v); ok {
			return intToNumeric(i, t)
		}
	case TextTag:
		if s, ok := v.(string); ok {
			return NewText(s), nil
		}
	case GeographyTag:
		if s, ok := v.(string); ok {
			return NewGeography(s), nil
		}
	case BytesTag:
		if b, ok := v.([]byte); ok {
			return NewBytes(b), nil
		}
	case DateTag:
		if tt, ok := v.(time.Time); ok {
			return NewDate(tt.Year(), tt.Month(), tt.Day()), nil
		}
		if s, ok := v.(string); ok {
			return ParseValueText(s, t)
		}
	case TimeTag:
		if tt, ok := v.(time.Time); ok {
			return NewTimeOfDay(tt.Hour(), tt.Minute(), tt.Second(), tt.Nanosecond()/1000), nil
		}
		if s, ok := v.(string); ok {
			return ParseValueText(s, t)
		}
	case TimestampTag, TimestampTZTag:
		if tt, ok := v.(time.Time); ok {
			return NewTimestampFromMicros(tt.UTC().UnixMicro(), t.Tag == TimestampTZTag), nil
		}
		if s, ok := v.(string); ok {
			return ParseValueText(s, t)
		}
	}
	return Value{}, Errorf(KindTypeMismatch, "cannot use %T as %s", v, t)
}

func asInt64(v any) (int64, bool) {
	switch i := v.(type) {
	case int:
		return int64(i), true
	case int8:
		return int64(i), true
	case int16:
		return int64(i), true
	case int32:
		return int64(i), true
	case int64:
		return i, true
	}
	return 0, false
}

// Row is an ordered sequence of values, one per column of its
// insertion or result context.
type Row []Value

// CloneRow copies the row's backing slice (values are immutable).
func CloneRow(r Row) Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}
