// Package session carries per-query session state across the planning and
// execution collaborators.
package session

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fornaix/presto-db/pkg/transaction"
)

// Session identifies a single query and the context it runs in. Sessions
// are treated as immutable; derivations return a copy.
type Session struct {
	QueryID ulid.ULID
	User    string
	Catalog string
	Schema  string
	Start   time.Time

	// TransactionID is the transaction the session is bound to, nil before
	// the query's transaction has been started.
	TransactionID *transaction.ID
}

// New creates a session for a new query.
func New(user, catalog, schema string) *Session {
	return &Session{
		QueryID: ulid.Make(),
		User:    user,
		Catalog: catalog,
		Schema:  schema,
		Start:   time.Now(),
	}
}

// WithTransaction returns a copy of the session bound to the given
// transaction.
func (s *Session) WithTransaction(id transaction.ID) *Session {
	out := *s
	out.TransactionID = &id
	return &out
}
