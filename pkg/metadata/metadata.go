// Package metadata exposes the connector capability registry and the writer
// targets a query plan may carry.
package metadata

import (
	"github.com/fornaix/presto-db/pkg/session"
)

// ConnectorID identifies a connector (catalog) known to the system.
type ConnectorID string

// Capability is an optional feature a connector may support.
type Capability int

const (
	// SupportsPartialResultCommit marks connectors whose write sinks can
	// commit in partial-result units, a requirement for distributed writes
	// where each task commits its own output.
	SupportsPartialResultCommit Capability = iota

	// SupportsNotNullColumns marks connectors that enforce NOT NULL
	// constraints on write.
	SupportsNotNullColumns
)

func (c Capability) String() string {
	switch c {
	case SupportsPartialResultCommit:
		return "partial_result_commit"
	case SupportsNotNullColumns:
		return "not_null_columns"
	default:
		return "unknown"
	}
}

// CapabilitySet is the set of capabilities reported for a connector.
type CapabilitySet map[Capability]struct{}

// Has reports whether the set contains c.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// NewCapabilitySet builds a set from the listed capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

// Metadata is the registry consulted for connector capabilities.
type Metadata interface {
	ConnectorCapabilities(sess *session.Session, connector ConnectorID) (CapabilitySet, error)
}

// WriterTarget describes the single table-write destination reachable in a
// query plan.
type WriterTarget interface {
	Connector() ConnectorID
	isWriterTarget()
}

// CreateTarget is a CREATE TABLE AS write destination.
type CreateTarget struct {
	ConnectorID ConnectorID
	Table       string
}

// InsertTarget is an INSERT write destination.
type InsertTarget struct {
	ConnectorID ConnectorID
	Table       string
}

// DeleteTarget is a DELETE destination.
type DeleteTarget struct {
	ConnectorID ConnectorID
	Table       string
}

func (t *CreateTarget) Connector() ConnectorID { return t.ConnectorID }
func (t *InsertTarget) Connector() ConnectorID { return t.ConnectorID }
func (t *DeleteTarget) Connector() ConnectorID { return t.ConnectorID }

func (*CreateTarget) isWriterTarget() {}
func (*InsertTarget) isWriterTarget() {}
func (*DeleteTarget) isWriterTarget() {}
