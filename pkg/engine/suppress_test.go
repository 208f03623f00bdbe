package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_withSuppressed(t *testing.T) {
	var (
		primary   = errors.New("primary")
		secondary = errors.New("secondary")
		tertiary  = errors.New("tertiary")
	)

	t.Run("nil primary yields secondary", func(t *testing.T) {
		require.Equal(t, secondary, withSuppressed(nil, secondary))
	})

	t.Run("nil secondary is a no-op", func(t *testing.T) {
		require.Equal(t, primary, withSuppressed(primary, nil))
	})

	t.Run("identical failure is not attached twice", func(t *testing.T) {
		err := withSuppressed(primary, primary)
		require.Equal(t, primary, err)
		require.Empty(t, SuppressedCauses(err))
	})

	t.Run("primary stays primary", func(t *testing.T) {
		err := withSuppressed(primary, secondary)
		require.EqualError(t, err, "primary (suppressed: secondary)")
		require.ErrorIs(t, err, primary)
		require.ErrorIs(t, err, secondary)
		require.Equal(t, []error{secondary}, SuppressedCauses(err))
	})

	t.Run("suppressed causes accumulate", func(t *testing.T) {
		err := withSuppressed(withSuppressed(primary, secondary), tertiary)
		require.ErrorIs(t, err, primary)
		require.Equal(t, []error{secondary, tertiary}, SuppressedCauses(err))
	})
}
