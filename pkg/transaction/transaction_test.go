package transaction

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_InMemoryManager_commit(t *testing.T) {
	m := NewInMemoryManager(nil)

	id := m.Begin(true)
	info, ok := m.Info(id)
	require.True(t, ok)
	require.True(t, info.AutoCommit)
	require.Equal(t, id, info.ID)

	require.NoError(t, <-m.AsyncCommit(id))

	// Settled transactions are forgotten.
	_, ok = m.Info(id)
	require.False(t, ok)
}

func Test_InMemoryManager_abort(t *testing.T) {
	m := NewInMemoryManager(nil)

	id := m.Begin(false)
	info, ok := m.Info(id)
	require.True(t, ok)
	require.False(t, info.AutoCommit)

	require.NoError(t, <-m.AsyncAbort(id))
	_, ok = m.Info(id)
	require.False(t, ok)
}

func Test_InMemoryManager_settleTwice(t *testing.T) {
	m := NewInMemoryManager(nil)

	id := m.Begin(true)
	require.NoError(t, <-m.AsyncCommit(id))

	err := <-m.AsyncCommit(id)
	require.ErrorIs(t, err, ErrUnknownTransaction)

	err = <-m.AsyncAbort(id)
	require.ErrorIs(t, err, ErrUnknownTransaction)
}
