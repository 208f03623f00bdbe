// Package runtime defines the boundary to the distributed-execution
// runtime: distributed collections, broadcast resources, and the task
// executors that run individual fragment tasks.
//
// The engine only declares work through this boundary; scheduling, retries
// of individual tasks, and shuffle transport are the runtime's concern.
package runtime

import (
	"context"
	"fmt"

	"github.com/fornaix/presto-db/pkg/plan"
	"github.com/fornaix/presto-db/pkg/serde"
	"github.com/fornaix/presto-db/pkg/session"
	"github.com/fornaix/presto-db/pkg/stats"
)

// Collection is a handle to data computed across many remote tasks.
// Collect is a synchronous barrier: it submits any outstanding work and
// blocks until every contributing task has finished.
type Collection interface {
	Collect(ctx context.Context) ([]serde.KeyedRow, error)
}

// Broadcast is an immutable snapshot of serialized pages made available to
// every task of the consuming fragments. A broadcast is destroyed exactly
// once, after its final consumer has finished collecting.
type Broadcast interface {
	Pages() ([]serde.SerializedPage, error)
	Destroy() error
}

// TaskID identifies one task attempt within a fragment.
type TaskID struct {
	Partition int32
	Attempt   int32
}

func (id TaskID) String() string { return fmt.Sprintf("%d.%d", id.Partition, id.Attempt) }

// TaskInputs carries the input data for a single task: materialized rows per
// upstream partitioned fragment, and broadcast snapshots per upstream
// broadcast fragment.
type TaskInputs struct {
	Partitioned map[plan.FragmentID][]serde.KeyedRow
	Broadcasts  map[plan.FragmentID]Broadcast
}

// TaskExecutor runs a single task of a fragment and produces its keyed
// output rows.
type TaskExecutor interface {
	Run(ctx context.Context) ([]serde.KeyedRow, error)
}

// TaskExecutorFactory creates the executor for one task attempt. The
// factory is supplied by the host system; the engine and the runtime are
// agnostic to what the fragment's operators actually compute.
type TaskExecutorFactory interface {
	New(id TaskID, fragment *plan.Fragment, inputs TaskInputs, collector *stats.Collector) (TaskExecutor, error)
}

// Runtime is the distributed-execution runtime the engine schedules
// fragments on.
type Runtime interface {
	// CreateBroadcast pushes a snapshot of serialized pages to all workers.
	CreateBroadcast(ctx context.Context, pages []serde.SerializedPage) (Broadcast, error)

	// CreateCollection declares the distributed computation of one fragment.
	// Partitioned inputs stay lazy until the returned collection (or an
	// ancestor of it) is collected; broadcast inputs must already be
	// materialized. The returned collection is not collected by the runtime
	// itself.
	CreateCollection(
		ctx context.Context,
		sess *session.Session,
		fragment *plan.Fragment,
		partitionedInputs map[plan.FragmentID]Collection,
		broadcastInputs map[plan.FragmentID]Broadcast,
		factory TaskExecutorFactory,
		collector *stats.Collector,
	) (Collection, error)
}
