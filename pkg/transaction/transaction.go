// Package transaction defines the narrow transaction-manager contract the
// execution engine depends on, and an in-memory implementation of it.
package transaction

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/oklog/ulid/v2"
)

// ID identifies a transaction.
type ID ulid.ULID

func (id ID) String() string { return ulid.ULID(id).String() }

// Info describes a registered transaction.
type Info struct {
	ID         ID
	AutoCommit bool
	Created    time.Time
}

// ErrUnknownTransaction is returned by commit or abort of a transaction that
// is not registered, typically because it was already committed or aborted.
var ErrUnknownTransaction = errors.New("unknown transaction")

// Manager begins and settles transactions. Commit and abort are
// asynchronous; the returned channel resolves with the outcome exactly once.
type Manager interface {
	Begin(autoCommit bool) ID
	AsyncCommit(id ID) <-chan error
	AsyncAbort(id ID) <-chan error
	Info(id ID) (Info, bool)
}

// InMemoryManager is a Manager backed by process memory. It tracks open
// transactions only; settled transactions are forgotten.
type InMemoryManager struct {
	logger log.Logger

	mut  sync.Mutex
	open map[ID]Info
}

// NewInMemoryManager creates a new InMemoryManager.
func NewInMemoryManager(logger log.Logger) *InMemoryManager {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &InMemoryManager{
		logger: logger,
		open:   make(map[ID]Info),
	}
}

// Begin registers a new transaction and returns its id.
func (m *InMemoryManager) Begin(autoCommit bool) ID {
	id := ID(ulid.Make())

	m.mut.Lock()
	m.open[id] = Info{ID: id, AutoCommit: autoCommit, Created: time.Now()}
	m.mut.Unlock()

	level.Debug(m.logger).Log("msg", "transaction started", "txn_id", id, "auto_commit", autoCommit)
	return id
}

// AsyncCommit settles the transaction as committed.
func (m *InMemoryManager) AsyncCommit(id ID) <-chan error {
	return m.settle(id, "committed")
}

// AsyncAbort settles the transaction as aborted.
func (m *InMemoryManager) AsyncAbort(id ID) <-chan error {
	return m.settle(id, "aborted")
}

// Info reports the transaction with the given id, if it is still open.
func (m *InMemoryManager) Info(id ID) (Info, bool) {
	m.mut.Lock()
	defer m.mut.Unlock()
	info, ok := m.open[id]
	return info, ok
}

func (m *InMemoryManager) settle(id ID, outcome string) <-chan error {
	done := make(chan error, 1)

	m.mut.Lock()
	_, ok := m.open[id]
	delete(m.open, id)
	m.mut.Unlock()

	if !ok {
		done <- fmt.Errorf("%w: %s", ErrUnknownTransaction, id)
		return done
	}

	level.Debug(m.logger).Log("msg", "transaction settled", "txn_id", id, "outcome", outcome)
	done <- nil
	return done
}
