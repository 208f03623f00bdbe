package engine

import (
	"fmt"

	"github.com/fornaix/presto-db/pkg/metadata"
	"github.com/fornaix/presto-db/pkg/session"
)

// TableWriteInfo describes the single table-write destination reachable in
// the plan, if any. It is computed once per query, before any task is
// submitted.
type TableWriteInfo struct {
	// Target is nil for read-only queries.
	Target metadata.WriterTarget
}

// computeTableWriteInfo validates the plan's writer target against the
// target connector's capabilities. Distributed writes require the connector
// to commit in partial-result units; a target that cannot is rejected here,
// fatally and before execution starts.
func computeTableWriteInfo(sess *session.Session, md metadata.Metadata, target metadata.WriterTarget) (*TableWriteInfo, error) {
	if target == nil {
		return &TableWriteInfo{}, nil
	}

	switch target.(type) {
	case *metadata.DeleteTarget:
		return nil, fmt.Errorf("%w: delete queries", ErrNotSupported)
	case *metadata.CreateTarget, *metadata.InsertTarget:
	default:
		return nil, fmt.Errorf("unexpected writer target type: %T", target)
	}

	caps, err := md.ConnectorCapabilities(sess, target.Connector())
	if err != nil {
		return nil, fmt.Errorf("resolving capabilities of connector %s: %w", target.Connector(), err)
	}
	if !caps.Has(metadata.SupportsPartialResultCommit) {
		return nil, fmt.Errorf("%w: connector %s does not support partial result commit", ErrNotSupported, target.Connector())
	}
	return &TableWriteInfo{Target: target}, nil
}
