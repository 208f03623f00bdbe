package serde

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fornaix/presto-db/pkg/sqltypes"
)

var testTypes = []sqltypes.Type{sqltypes.Integer, sqltypes.Varchar, sqltypes.Double}

func testRows(t *testing.T) []Row {
	t.Helper()
	values := [][]any{
		{int32(1), "one", 1.0},
		{int32(2), nil, 2.0},
		{nil, "three", nil},
		{int32(4), "four", 4.0},
		{int32(5), "", 5.0},
	}
	rows := make([]Row, len(values))
	for i, vs := range values {
		row, err := EncodeRow(testTypes, vs)
		require.NoError(t, err)
		rows[i] = row
	}
	return rows
}

func Test_EncodeRow_DecodeRow(t *testing.T) {
	row, err := EncodeRow(testTypes, []any{int32(7), "seven", nil})
	require.NoError(t, err)

	got, err := DecodeRow(row, testTypes)
	require.NoError(t, err)
	require.Equal(t, []any{int32(7), "seven", nil}, got)
}

func Test_DecodeRow_respectsLength(t *testing.T) {
	row, err := EncodeRow(testTypes, []any{int32(7), "seven", 7.0})
	require.NoError(t, err)

	// Bytes past the declared length must be ignored.
	row.Data = append(row.Data, 0xde, 0xad, 0xbe, 0xef)
	got, err := DecodeRow(row, testTypes)
	require.NoError(t, err)
	require.Equal(t, []any{int32(7), "seven", 7.0}, got)

	// Bytes inside the declared length past the last column must not be.
	row.Length += 4
	_, err = DecodeRow(row, testTypes)
	require.ErrorContains(t, err, "trailing bytes")
}

func Test_TransformRowsToPages_roundTrip(t *testing.T) {
	rows := testRows(t)

	pages, err := TransformRowsToPages(rows, testTypes, BatchingPolicy{MaxRowsPerPage: 2})
	require.NoError(t, err)
	require.Len(t, pages, 3)
	require.Equal(t, 2, pages[0].NumRows)
	require.Equal(t, 2, pages[1].NumRows)
	require.Equal(t, 1, pages[2].NumRows)

	back, err := TransformPagesToRows(pages)
	require.NoError(t, err)
	require.Len(t, back, len(rows))
	for i := range rows {
		want, err := DecodeRow(rows[i], testTypes)
		require.NoError(t, err)
		got, err := DecodeRow(back[i], testTypes)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func Test_TransformRowsToPages_empty(t *testing.T) {
	pages, err := TransformRowsToPages(nil, testTypes, BatchingPolicy{})
	require.NoError(t, err)
	require.Empty(t, pages)
}

func Test_Serialize_Deserialize(t *testing.T) {
	pages, err := TransformRowsToPages(testRows(t), testTypes, BatchingPolicy{})
	require.NoError(t, err)
	require.Len(t, pages, 1)

	sp, err := Serialize(pages[0])
	require.NoError(t, err)
	require.Equal(t, int32(5), sp.NumRows)

	got, err := Deserialize(sp, testTypes)
	require.NoError(t, err)
	require.Equal(t, pages[0], got)
}

func Test_Deserialize_corrupt(t *testing.T) {
	pages, err := TransformRowsToPages(testRows(t), testTypes, BatchingPolicy{})
	require.NoError(t, err)

	sp, err := Serialize(pages[0])
	require.NoError(t, err)

	sp.Checksum++
	_, err = Deserialize(sp, testTypes)
	require.ErrorContains(t, err, "checksum mismatch")
}
