package sqltypes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_AppendValue_DecodeValue(t *testing.T) {
	tt := []struct {
		name  string
		typ   Type
		value any
	}{
		{"boolean", Boolean, true},
		{"boolean false", Boolean, false},
		{"integer", Integer, int32(-42)},
		{"bigint", Bigint, int64(1) << 40},
		{"double", Double, 3.25},
		{"varchar", Varchar, "hello"},
		{"varchar empty", Varchar, ""},
		{"varbinary", Varbinary, []byte{0x00, 0xff, 0x10}},
		{"null boolean", Boolean, nil},
		{"null integer", Integer, nil},
		{"null bigint", Bigint, nil},
		{"null double", Double, nil},
		{"null varchar", Varchar, nil},
		{"null varbinary", Varbinary, nil},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			buf, err := AppendValue(nil, tc.typ, tc.value)
			require.NoError(t, err)

			got, n, err := DecodeValue(tc.typ, buf)
			require.NoError(t, err)
			require.Equal(t, len(buf), n)
			require.Equal(t, tc.value, got)

			size, err := ValueSize(tc.typ, buf)
			require.NoError(t, err)
			require.Equal(t, len(buf), size)
		})
	}
}

func Test_DecodeValue_truncated(t *testing.T) {
	buf, err := AppendValue(nil, Bigint, int64(7))
	require.NoError(t, err)

	_, _, err = DecodeValue(Bigint, buf[:len(buf)-1])
	require.ErrorContains(t, err, "truncated")

	_, _, err = DecodeValue(Bigint, nil)
	require.ErrorContains(t, err, "empty input")
}

func Test_AppendValue_typeMismatch(t *testing.T) {
	_, err := AppendValue(nil, Integer, int64(1))
	require.ErrorContains(t, err, "unexpected value of type int64")
}
