package store

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"math"

	"github.com/RoaringBitmap/roaring"
	"github.com/pierrec/lz4/v4"

	"github.com/nholden/tidedb/core"
)

// File layout, little endian:
//
//	magic "TDB1" | version u16 | crc32 u32 | lz4 frame
//
// The checksum covers the compressed payload. The payload holds the
// schema list followed by one block per table: definition, row ids,
// then one column block per column. A column block is a roaring bitmap
// of null positions followed by the non-null values in row order,
// fixed-width types as raw little-endian words and variable-width
// types as length-prefixed bytes.

const (
	formatMagic   = "TDB1"
	formatVersion = 1
)

// tableSnapshot is the serialized form of one table: its definition,
// the row id sequence, and the rows ordered by row id.
type tableSnapshot struct {
	definition *core.TableDefinition
	nextRowID  uint64
	rowIDs     []uint64
	rows       []core.Row
}

type fileSnapshot struct {
	schemas []string
	tables  []tableSnapshot
}

func encodeFile(snapshot fileSnapshot) ([]byte, error) {
	var payload encoder
	payload.uint32(uint32(len(snapshot.schemas)))
	for _, schema := range snapshot.schemas {
		payload.string(schema)
	}
	payload.uint32(uint32(len(snapshot.tables)))
	for _, table := range snapshot.tables {
		if err := encodeTable(&payload, table); err != nil {
			return nil, err
		}
	}

	var compressed bytes.Buffer
	zw := lz4.NewWriter(&compressed)
	if _, err := zw.Write(payload.buf.Bytes()); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	var out encoder
	out.buf.WriteString(formatMagic)
	out.uint16(formatVersion)
	out.uint32(crc32.ChecksumIEEE(compressed.Bytes()))
	out.buf.Write(compressed.Bytes())
	return out.buf.Bytes(), nil
}

func decodeFile(data []byte) (fileSnapshot, error) {
	if len(data) < len(formatMagic)+6 {
		return fileSnapshot{}, core.Errorf(core.KindIncompatibleFormat, "file too short to be a database")
	}
	if string(data[:len(formatMagic)]) != formatMagic {
		return fileSnapshot{}, core.Errorf(core.KindIncompatibleFormat, "not a database file")
	}
	version := binary.LittleEndian.Uint16(data[4:6])
	if version != formatVersion {
		return fileSnapshot{}, core.Errorf(core.KindIncompatibleFormat, "unsupported format version %d", version)
	}
	checksum := binary.LittleEndian.Uint32(data[6:10])
	compressed := data[10:]
	if crc32.ChecksumIEEE(compressed) != checksum {
		return fileSnapshot{}, core.Errorf(core.KindIncompatibleFormat, "checksum mismatch, file is corrupt")
	}

	payload, err := io.ReadAll(lz4.NewReader(bytes.NewReader(compressed)))
	if err != nil {
		return fileSnapshot{}, core.Errorf(core.KindIncompatibleFormat, "decompress: %v", err)
	}

	dec := decoder{data: payload}
	var snapshot fileSnapshot
	for range dec.uint32() {
		snapshot.schemas = append(snapshot.schemas, dec.string())
	}
	for range dec.uint32() {
		table, err := decodeTable(&dec)
		if err != nil {
			return fileSnapshot{}, err
		}
		snapshot.tables = append(snapshot.tables, table)
	}
	if dec.err != nil {
		return fileSnapshot{}, dec.err
	}
	return snapshot, nil
}

func encodeTable(enc *encoder, table tableSnapshot) error {
	definition := table.definition
	enc.string(definition.Name.ResolvedSchema())
	enc.string(definition.Name.Name)
	enc.uint32(uint32(len(definition.Columns)))
	for _, column := range definition.Columns {
		enc.string(column.Name)
		enc.byte(byte(column.Type.Tag))
		enc.uint16(uint16(column.Type.Precision))
		enc.uint16(uint16(column.Type.Scale))
		enc.byte(byte(column.Nullability))
	}
	enc.uint64(table.nextRowID)
	enc.uint32(uint32(len(table.rows)))
	for _, id := range table.rowIDs {
		enc.uint64(id)
	}
	for i, column := range definition.Columns {
		if err := encodeColumn(enc, column.Type, table.rows, i); err != nil {
			return err
		}
	}
	return nil
}

func decodeTable(dec *decoder) (tableSnapshot, error) {
	schema := dec.string()
	name := dec.string()
	definition := &core.TableDefinition{Name: core.NewTableName(schema, name)}
	for range dec.uint32() {
		column := core.Column{Name: dec.string()}
		column.Type.Tag = core.TypeTag(dec.byte())
		column.Type.Precision = int(dec.uint16())
		column.Type.Scale = int(dec.uint16())
		column.Nullability = core.Nullability(dec.byte())
		definition.Columns = append(definition.Columns, column)
	}
	table := tableSnapshot{definition: definition, nextRowID: dec.uint64()}
	rowCount := int(dec.uint32())
	if dec.err != nil {
		return tableSnapshot{}, dec.err
	}
	table.rowIDs = make([]uint64, rowCount)
	for i := range table.rowIDs {
		table.rowIDs[i] = dec.uint64()
	}
	table.rows = make([]core.Row, rowCount)
	for i := range table.rows {
		table.rows[i] = make(core.Row, len(definition.Columns))
	}
	for i, column := range definition.Columns {
		values, err := decodeColumn(dec, column.Type, rowCount)
		if err != nil {
			return tableSnapshot{}, err
		}
		for r := range rowCount {
			table.rows[r][i] = values[r]
		}
	}
	return table, dec.err
}

// encodeColumn writes one column block: the null bitmap, then the
// non-null values in row order.
func encodeColumn(enc *encoder, t core.SqlType, rows []core.Row, idx int) error {
	nulls := roaring.New()
	for i := range rows {
		if rows[i][idx].IsNull() {
			nulls.Add(uint32(i))
		}
	}
	bitmap, err := nulls.ToBytes()
	if err != nil {
		return err
	}
	enc.bytes(bitmap)

	for i := range rows {
		value := rows[i][idx]
		if value.IsNull() {
			continue
		}
		switch t.Tag {
		case core.BoolTag:
			b, err := value.Bool()
			if err != nil {
				return err
			}
			if b {
				enc.byte(1)
			} else {
				enc.byte(0)
			}
		case core.SmallIntTag:
			i64, err := value.Int64()
			if err != nil {
				return err
			}
			enc.uint16(uint16(int16(i64)))
		case core.IntTag, core.DateTag:
			i64, err := value.Int64()
			if err != nil {
				return err
			}
			enc.uint32(uint32(int32(i64)))
		case core.BigIntTag, core.NumericTag, core.TimeTag, core.TimestampTag, core.TimestampTZTag:
			i64, err := value.Int64()
			if err != nil {
				return err
			}
			enc.uint64(uint64(i64))
		case core.FloatTag:
			f, err := value.Float64()
			if err != nil {
				return err
			}
			enc.uint32(math.Float32bits(float32(f)))
		case core.DoubleTag:
			f, err := value.Float64()
			if err != nil {
				return err
			}
			enc.uint64(math.Float64bits(f))
		case core.TextTag, core.GeographyTag:
			s, err := value.Text()
			if err != nil {
				return err
			}
			enc.string(s)
		case core.BytesTag:
			raw, err := value.BytesValue()
			if err != nil {
				return err
			}
			enc.bytes(raw)
		default:
			return core.Errorf(core.KindIncompatibleFormat, "cannot encode type %s", t)
		}
	}
	return nil
}

func decodeColumn(dec *decoder, t core.SqlType, rowCount int) ([]core.Value, error) {
	nulls := roaring.New()
	if err := nulls.UnmarshalBinary(dec.bytes()); err != nil {
		return nil, core.Errorf(core.KindIncompatibleFormat, "null bitmap: %v", err)
	}
	values := make([]core.Value, rowCount)
	for i := range rowCount {
		if nulls.ContainsInt(i) {
			values[i] = core.NullValue(t)
			continue
		}
		switch t.Tag {
		case core.BoolTag:
			values[i] = core.NewBool(dec.byte() != 0)
		case core.SmallIntTag:
			values[i] = core.NewSmallInt(int16(dec.uint16()))
		case core.IntTag:
			values[i] = core.NewInt(int32(dec.uint32()))
		case core.DateTag:
			values[i] = core.NewDateFromDays(int32(dec.uint32()))
		case core.BigIntTag:
			values[i] = core.NewBigInt(int64(dec.uint64()))
		case core.NumericTag:
			values[i] = core.NewNumeric(int64(dec.uint64()), t.Precision, t.Scale)
		case core.TimeTag:
			values[i] = core.NewTimeFromMicros(int64(dec.uint64()))
		case core.TimestampTag:
			values[i] = core.NewTimestampFromMicros(int64(dec.uint64()), false)
		case core.TimestampTZTag:
			values[i] = core.NewTimestampFromMicros(int64(dec.uint64()), true)
		case core.FloatTag:
			values[i] = core.NewFloat(math.Float32frombits(dec.uint32()))
		case core.DoubleTag:
			values[i] = core.NewDouble(math.Float64frombits(dec.uint64()))
		case core.TextTag:
			values[i] = core.NewText(dec.string())
		case core.GeographyTag:
			values[i] = core.NewGeography(dec.string())
		case core.BytesTag:
			values[i] = core.NewBytes(bytes.Clone(dec.bytes()))
		default:
			return nil, core.Errorf(core.KindIncompatibleFormat, "cannot decode type tag %d", int(t.Tag))
		}
	}
	return values, dec.err
}

type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) byte(b byte) { e.buf.WriteByte(b) }

func (e *encoder) uint16(v uint16) {
	var scratch [2]byte
	binary.LittleEndian.PutUint16(scratch[:], v)
	e.buf.Write(scratch[:])
}

func (e *encoder) uint32(v uint32) {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], v)
	e.buf.Write(scratch[:])
}

func (e *encoder) uint64(v uint64) {
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], v)
	e.buf.Write(scratch[:])
}

func (e *encoder) bytes(b []byte) {
	e.uint32(uint32(len(b)))
	e.buf.Write(b)
}

func (e *encoder) string(s string) {
	e.uint32(uint32(len(s)))
	e.buf.WriteString(s)
}

// decoder reads the payload with a sticky error: after the first
// truncation every read returns zero values and decode bails out at
// the next checkpoint.
type decoder struct {
	data []byte
	off  int
	err  error
}

func (d *decoder) truncated() {
	if d.err == nil {
		d.err = core.Errorf(core.KindIncompatibleFormat, "unexpected end of file at offset %d", d.off)
	}
}

func (d *decoder) take(n int) []byte {
	if d.err != nil || d.off+n > len(d.data) {
		d.truncated()
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) byte() byte {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) uint16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (d *decoder) uint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) uint64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *decoder) bytes() []byte {
	return d.take(int(d.uint32()))
}

func (d *decoder) string() string {
	return string(d.bytes())
}
