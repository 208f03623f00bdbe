// Package serde defines the binary row representation produced by remote
// tasks, the columnar page format used for broadcasts, and the conversions
// between the two.
package serde

import (
	"fmt"

	"github.com/fornaix/presto-db/pkg/sqltypes"
)

// Row is a single row in its binary representation. Only Data[:Length] is
// valid; the slice may have extra capacity past Length.
type Row struct {
	Data   []byte
	Length int
}

// KeyedRow pairs a row with the partition it was produced for. It is the
// unit of data exchanged with the distributed runtime.
type KeyedRow struct {
	Partition int32
	Row       Row
}

// EncodeRow encodes one value per type into a Row. A nil value encodes NULL.
func EncodeRow(types []sqltypes.Type, values []any) (Row, error) {
	if len(values) != len(types) {
		return Row{}, fmt.Errorf("encoding row: got %d values for %d columns", len(values), len(types))
	}
	var buf []byte
	for i, t := range types {
		var err error
		buf, err = sqltypes.AppendValue(buf, t, values[i])
		if err != nil {
			return Row{}, err
		}
	}
	return Row{Data: buf, Length: len(buf)}, nil
}

// DecodeRow decodes a Row back into one value per type, in type order.
// Decoding consumes exactly Data[:Length]; bytes past Length are ignored.
func DecodeRow(row Row, types []sqltypes.Type) ([]any, error) {
	if row.Length > len(row.Data) {
		return nil, fmt.Errorf("decoding row: length %d exceeds %d available bytes", row.Length, len(row.Data))
	}
	var (
		buf    = row.Data[:row.Length]
		values = make([]any, 0, len(types))
	)
	for _, t := range types {
		v, n, err := sqltypes.DecodeValue(t, buf)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		buf = buf[n:]
	}
	if len(buf) != 0 {
		return nil, fmt.Errorf("decoding row: %d trailing bytes after %d columns", len(buf), len(types))
	}
	return values, nil
}
