package serde

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/s2"

	"github.com/fornaix/presto-db/pkg/sqltypes"
)

// SerializedPage is the envelope in which a page travels to remote
// consumers: an s2-compressed payload with a checksum over the uncompressed
// bytes.
type SerializedPage struct {
	NumRows          int32
	UncompressedSize int32
	Checksum         uint64
	Data             []byte
}

// Size reports the compressed payload size in bytes.
func (p SerializedPage) Size() int { return len(p.Data) }

// Serialize encodes a page into its wire envelope. The uncompressed layout
// is: u32 row count, u32 column count, u32 length per column block, then the
// blocks themselves.
func Serialize(page Page) (SerializedPage, error) {
	size := 8 + 4*len(page.Columns) + page.size()
	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(page.NumRows))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(page.Columns)))
	for _, col := range page.Columns {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(col)))
	}
	for _, col := range page.Columns {
		buf = append(buf, col...)
	}

	// The envelope carries 32-bit sizes; page byte caps keep pages far
	// below this, but an oversized page must fail rather than truncate.
	if len(buf) > math.MaxInt32 {
		return SerializedPage{}, fmt.Errorf("serializing page: %d bytes exceeds the envelope limit", len(buf))
	}

	return SerializedPage{
		NumRows:          int32(page.NumRows),
		UncompressedSize: int32(len(buf)),
		Checksum:         xxhash.Sum64(buf),
		Data:             s2.Encode(nil, buf),
	}, nil
}

// Deserialize decodes a wire envelope back into a page with the given column
// types. It fails if the checksum or declared sizes do not match.
func Deserialize(sp SerializedPage, types []sqltypes.Type) (Page, error) {
	buf, err := s2.Decode(nil, sp.Data)
	if err != nil {
		return Page{}, fmt.Errorf("decompressing page: %w", err)
	}
	if len(buf) != int(sp.UncompressedSize) {
		return Page{}, fmt.Errorf("deserializing page: got %d uncompressed bytes, expected %d", len(buf), sp.UncompressedSize)
	}
	if sum := xxhash.Sum64(buf); sum != sp.Checksum {
		return Page{}, fmt.Errorf("deserializing page: checksum mismatch")
	}
	if len(buf) < 8 {
		return Page{}, fmt.Errorf("deserializing page: truncated header")
	}

	numRows := int(binary.LittleEndian.Uint32(buf))
	numCols := int(binary.LittleEndian.Uint32(buf[4:]))
	if numRows != int(sp.NumRows) {
		return Page{}, fmt.Errorf("deserializing page: got %d rows, expected %d", numRows, sp.NumRows)
	}
	if numCols != len(types) {
		return Page{}, fmt.Errorf("deserializing page: got %d columns for %d types", numCols, len(types))
	}
	buf = buf[8:]

	if len(buf) < 4*numCols {
		return Page{}, fmt.Errorf("deserializing page: truncated column lengths")
	}
	lengths := make([]int, numCols)
	for i := range lengths {
		lengths[i] = int(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	buf = buf[4*numCols:]

	page := newPage(types)
	page.NumRows = numRows
	for i, n := range lengths {
		if len(buf) < n {
			return Page{}, fmt.Errorf("deserializing page: truncated column %d", i)
		}
		page.Columns[i] = buf[:n:n]
		buf = buf[n:]
	}
	if len(buf) != 0 {
		return Page{}, fmt.Errorf("deserializing page: %d trailing bytes", len(buf))
	}
	return page, nil
}
