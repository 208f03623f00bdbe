// Package sqltypes defines the column type descriptors understood by the
// query execution engine and the binary encoding of individual column
// values inside a row.
package sqltypes

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Type identifies the type of a single output column. Values are
// represented in Go as bool, int32, int64, float64, string, and []byte
// respectively; a nil value represents SQL NULL for any type.
type Type int

const (
	Boolean Type = iota
	Integer
	Bigint
	Double
	Varchar
	Varbinary
)

func (t Type) String() string {
	switch t {
	case Boolean:
		return "boolean"
	case Integer:
		return "integer"
	case Bigint:
		return "bigint"
	case Double:
		return "double"
	case Varchar:
		return "varchar"
	case Varbinary:
		return "varbinary"
	default:
		return fmt.Sprintf("Type(%d)", t)
	}
}

const (
	notNullFlag = 0
	nullFlag    = 1
)

// AppendValue appends the encoded form of v to buf and returns the extended
// buffer. A nil v encodes NULL. AppendValue returns an error if v does not
// match the Go representation of t.
func AppendValue(buf []byte, t Type, v any) ([]byte, error) {
	if v == nil {
		return append(buf, nullFlag), nil
	}
	buf = append(buf, notNullFlag)

	switch t {
	case Boolean:
		b, ok := v.(bool)
		if !ok {
			return nil, typeMismatch(t, v)
		}
		if b {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil

	case Integer:
		i, ok := v.(int32)
		if !ok {
			return nil, typeMismatch(t, v)
		}
		return binary.LittleEndian.AppendUint32(buf, uint32(i)), nil

	case Bigint:
		i, ok := v.(int64)
		if !ok {
			return nil, typeMismatch(t, v)
		}
		return binary.LittleEndian.AppendUint64(buf, uint64(i)), nil

	case Double:
		f, ok := v.(float64)
		if !ok {
			return nil, typeMismatch(t, v)
		}
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(f)), nil

	case Varchar:
		s, ok := v.(string)
		if !ok {
			return nil, typeMismatch(t, v)
		}
		buf = binary.AppendUvarint(buf, uint64(len(s)))
		return append(buf, s...), nil

	case Varbinary:
		b, ok := v.([]byte)
		if !ok {
			return nil, typeMismatch(t, v)
		}
		buf = binary.AppendUvarint(buf, uint64(len(b)))
		return append(buf, b...), nil

	default:
		return nil, fmt.Errorf("unsupported type %s", t)
	}
}

// DecodeValue decodes a single value of type t from the front of b. It
// returns the decoded value (nil for NULL) and the number of bytes consumed.
func DecodeValue(t Type, b []byte) (any, int, error) {
	if len(b) == 0 {
		return nil, 0, fmt.Errorf("decoding %s: empty input", t)
	}
	if b[0] == nullFlag {
		return nil, 1, nil
	}
	b = b[1:]

	switch t {
	case Boolean:
		if len(b) < 1 {
			return nil, 0, truncated(t)
		}
		return b[0] != 0, 2, nil

	case Integer:
		if len(b) < 4 {
			return nil, 0, truncated(t)
		}
		return int32(binary.LittleEndian.Uint32(b)), 5, nil

	case Bigint:
		if len(b) < 8 {
			return nil, 0, truncated(t)
		}
		return int64(binary.LittleEndian.Uint64(b)), 9, nil

	case Double:
		if len(b) < 8 {
			return nil, 0, truncated(t)
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), 9, nil

	case Varchar:
		n, sz := binary.Uvarint(b)
		if sz <= 0 || uint64(len(b)-sz) < n {
			return nil, 0, truncated(t)
		}
		return string(b[sz : sz+int(n)]), 1 + sz + int(n), nil

	case Varbinary:
		n, sz := binary.Uvarint(b)
		if sz <= 0 || uint64(len(b)-sz) < n {
			return nil, 0, truncated(t)
		}
		out := make([]byte, n)
		copy(out, b[sz:sz+int(n)])
		return out, 1 + sz + int(n), nil

	default:
		return nil, 0, fmt.Errorf("unsupported type %s", t)
	}
}

// ValueSize reports the encoded size of the value of type t at the front of
// b without decoding it.
func ValueSize(t Type, b []byte) (int, error) {
	if len(b) == 0 {
		return 0, fmt.Errorf("sizing %s: empty input", t)
	}
	if b[0] == nullFlag {
		return 1, nil
	}
	b = b[1:]

	switch t {
	case Boolean:
		if len(b) < 1 {
			return 0, truncated(t)
		}
		return 2, nil
	case Integer:
		if len(b) < 4 {
			return 0, truncated(t)
		}
		return 5, nil
	case Bigint, Double:
		if len(b) < 8 {
			return 0, truncated(t)
		}
		return 9, nil
	case Varchar, Varbinary:
		n, sz := binary.Uvarint(b)
		if sz <= 0 || uint64(len(b)-sz) < n {
			return 0, truncated(t)
		}
		return 1 + sz + int(n), nil
	default:
		return 0, fmt.Errorf("unsupported type %s", t)
	}
}

func typeMismatch(t Type, v any) error {
	return fmt.Errorf("encoding %s: unexpected value of type %T", t, v)
}

func truncated(t Type) error {
	return fmt.Errorf("decoding %s: truncated input", t)
}
