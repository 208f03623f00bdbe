package engine

import (
	"fmt"

	"github.com/fornaix/presto-db/pkg/serde"
	"github.com/fornaix/presto-db/pkg/sqltypes"
)

// decodeOutput decodes the collected rows into one record per row, each an
// ordered list of typed column values, preserving input order. Only the
// declared byte range of each row is consumed.
func decodeOutput(rows []serde.KeyedRow, types []sqltypes.Type) ([][]any, error) {
	records := make([][]any, 0, len(rows))
	for i, kr := range rows {
		values, err := serde.DecodeRow(kr.Row, types)
		if err != nil {
			return nil, fmt.Errorf("decoding output row %d: %w", i, err)
		}
		records = append(records, values)
	}
	return records, nil
}
