package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fornaix/presto-db/pkg/plan"
	"github.com/fornaix/presto-db/pkg/runtime"
	"github.com/fornaix/presto-db/pkg/serde"
	"github.com/fornaix/presto-db/pkg/session"
	"github.com/fornaix/presto-db/pkg/sqltypes"
	"github.com/fornaix/presto-db/pkg/stats"
	"github.com/fornaix/presto-db/pkg/transaction"
)

// ErrAlreadyCollected reports a second materialization of an execution node
// that has already been collected. This is an internal invariant violation.
var ErrAlreadyCollected = errors.New("already collected")

// ErrAlreadyExecuted reports a second Execute call on a single-use
// QueryExecution.
var ErrAlreadyExecuted = errors.New("query execution already started")

// QueryExecution runs one query against the distributed runtime. It is
// bound to a single transaction and a single fragment tree, and may be
// executed at most once.
type QueryExecution struct {
	logger  log.Logger
	metrics *metrics

	session         *session.Session
	transactions    transaction.Manager
	runtime         runtime.Runtime
	executorFactory runtime.TaskExecutorFactory
	monitor         QueryMonitor

	plan       *plan.SubPlan
	updateType string
	tableWrite *TableWriteInfo
	collector  *stats.Collector
	batching   serde.BatchingPolicy

	started atomic.Bool
}

// OutputTypes returns the declared types of the query's output columns.
func (e *QueryExecution) OutputTypes() []sqltypes.Type {
	return e.plan.Fragment.Types
}

// UpdateType classifies DML statements; it is empty for plain SELECT
// queries.
func (e *QueryExecution) UpdateType() string {
	return e.updateType
}

// TableWriteInfo returns the table-write metadata computed for the query.
func (e *QueryExecution) TableWriteInfo() *TableWriteInfo {
	return e.tableWrite
}

// Execute runs the query and returns one record per output row, each an
// ordered list of typed column values. The transaction commits on success
// and rolls back on any failure; exactly one error is returned per failed
// query, with secondary cleanup failures attached as suppressed causes.
//
// Execute may be called at most once.
func (e *QueryExecution) Execute(ctx context.Context) ([][]any, error) {
	if !e.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyExecuted
	}

	start := time.Now()
	timer := prometheus.NewTimer(e.metrics.executionSeconds)
	defer timer.ObserveDuration()

	rows, err := e.runInTransaction(ctx, start)
	if err != nil {
		return nil, err
	}
	return decodeOutput(rows, e.plan.Fragment.Types)
}

// runInTransaction executes the fragment graph and settles the query's
// transaction exactly once: commit on success, rollback on any failure. A
// commit failure becomes the primary failure and still triggers a rollback
// attempt. The completion hook runs after the transaction is settled; its
// failure never overrides the query outcome.
func (e *QueryExecution) runInTransaction(ctx context.Context, start time.Time) ([]serde.KeyedRow, error) {
	rows, err := e.doExecute(ctx)
	if err == nil {
		err = commit(ctx, e.session, e.transactions)
	}

	if err != nil {
		if rbErr := rollback(ctx, e.session, e.transactions); rbErr != nil {
			err = withSuppressed(err, rbErr)
		}
		if evErr := e.notifyCompleted(start, err); evErr != nil {
			err = withSuppressed(err, evErr)
		}
		e.metrics.queriesTotal.WithLabelValues(outcomeRolledBack).Inc()
		return nil, err
	}

	if evErr := e.notifyCompleted(start, nil); evErr != nil {
		level.Warn(e.logger).Log("msg", "query completion hook failed", "err", evErr)
	}
	e.metrics.queriesTotal.WithLabelValues(outcomeCommitted).Inc()
	return rows, nil
}

func (e *QueryExecution) notifyCompleted(start time.Time, failure error) error {
	return e.monitor.QueryCompleted(QueryOutcome{
		QueryID:    e.session.QueryID,
		UpdateType: e.updateType,
		Elapsed:    time.Since(start),
		Err:        failure,
		Tasks:      e.collector.Snapshot(),
	})
}

// doExecute materializes the fragment graph and returns the root fragment's
// keyed output rows.
//
// A root with coordinator partitioning must run as exactly one task on the
// control point: its only child is built and collected here, and the root
// task runs explicitly with the child rows as its sole input.
func (e *QueryExecution) doExecute(ctx context.Context) ([]serde.KeyedRow, error) {
	root := e.plan

	if root.Fragment.Partitioning == plan.CoordinatorDistribution {
		if got := len(root.Children); got != 1 {
			return nil, fmt.Errorf("exactly one child fragment is expected for a coordinator fragment, got %d", got)
		}
		child := root.Children[0]

		node, err := e.buildNode(ctx, child)
		if err != nil {
			return nil, err
		}
		childRows, err := node.collectAndReleaseBroadcasts(ctx)
		if err != nil {
			return nil, err
		}

		inputs := runtime.TaskInputs{
			Partitioned: map[plan.FragmentID][]serde.KeyedRow{child.Fragment.ID: childRows},
		}
		exec, err := e.executorFactory.New(runtime.TaskID{Partition: 0, Attempt: 0}, root.Fragment, inputs, e.collector)
		if err != nil {
			return nil, err
		}
		return exec.Run(ctx)
	}

	node, err := e.buildNode(ctx, root)
	if err != nil {
		return nil, err
	}
	return node.collectAndReleaseBroadcasts(ctx)
}

// buildNode recursively converts a fragment subtree into an execution node.
//
// Children with broadcast partitioning are materialized now: their rows are
// transformed into serialized pages and pushed as a broadcast resource,
// which becomes a broadcast dependency of the node being built. All other
// children stay lazy; their collection handles feed the fragment's shuffle
// inputs, and their own broadcast dependencies propagate upward so they are
// released once an ancestor is finally collected.
func (e *QueryExecution) buildNode(ctx context.Context, subPlan *plan.SubPlan) (*executionNode, error) {
	var (
		partitionedInputs = make(map[plan.FragmentID]runtime.Collection)
		broadcastInputs   = make(map[plan.FragmentID]runtime.Broadcast)
		broadcastDeps     []runtime.Broadcast
	)

	for _, child := range subPlan.Children {
		childNode, err := e.buildNode(ctx, child)
		if err != nil {
			return nil, err
		}

		if child.Fragment.Partitioning == plan.FixedBroadcastDistribution {
			b, err := e.createBroadcast(ctx, child.Fragment, childNode)
			if err != nil {
				return nil, err
			}
			broadcastInputs[child.Fragment.ID] = b
			broadcastDeps = append(broadcastDeps, b)
		} else {
			partitionedInputs[child.Fragment.ID] = childNode.collection
			broadcastDeps = append(broadcastDeps, childNode.broadcasts...)
		}
	}

	level.Debug(e.logger).Log(
		"msg", "submitting fragment",
		"fragment_id", subPlan.Fragment.ID,
		"partitioning", subPlan.Fragment.Partitioning,
		"shuffle_inputs", len(partitionedInputs),
		"broadcast_inputs", len(broadcastInputs),
	)

	collection, err := e.runtime.CreateCollection(ctx, e.session, subPlan.Fragment, partitionedInputs, broadcastInputs, e.executorFactory, e.collector)
	if err != nil {
		return nil, fmt.Errorf("submitting fragment %s: %w", subPlan.Fragment.ID, err)
	}
	return &executionNode{
		metrics:    e.metrics,
		collection: collection,
		broadcasts: broadcastDeps,
	}, nil
}

// createBroadcast collects a broadcast child and pushes its output as one
// complete snapshot of serialized pages.
//
// Rows are transformed to pages on the control point, so rows and pages are
// both held in memory at the same time. TODO: transform rows to pages on
// the remote tasks instead.
func (e *QueryExecution) createBroadcast(ctx context.Context, fragment *plan.Fragment, node *executionNode) (runtime.Broadcast, error) {
	keyedRows, err := node.collectAndReleaseBroadcasts(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]serde.Row, len(keyedRows))
	for i, kr := range keyedRows {
		rows[i] = kr.Row
	}
	pages, err := serde.TransformRowsToPages(rows, fragment.Types, e.batching)
	if err != nil {
		return nil, fmt.Errorf("paginating fragment %s output: %w", fragment.ID, err)
	}

	var (
		serialized = make([]serde.SerializedPage, len(pages))
		totalBytes int
	)
	for i, page := range pages {
		sp, err := serde.Serialize(page)
		if err != nil {
			return nil, fmt.Errorf("serializing fragment %s page: %w", fragment.ID, err)
		}
		serialized[i] = sp
		totalBytes += sp.Size()
	}

	b, err := e.runtime.CreateBroadcast(ctx, serialized)
	if err != nil {
		return nil, fmt.Errorf("broadcasting fragment %s output: %w", fragment.ID, err)
	}

	e.metrics.broadcastsTotal.Inc()
	e.metrics.broadcastBytesTotal.Add(float64(totalBytes))
	level.Debug(e.logger).Log(
		"msg", "broadcast created",
		"fragment_id", fragment.ID,
		"rows", len(keyedRows),
		"pages", len(serialized),
		"size", humanize.Bytes(uint64(totalBytes)),
	)
	return b, nil
}

// executionNode pairs a distributed collection with the broadcast resources
// it transitively depends on.
type executionNode struct {
	metrics    *metrics
	collection runtime.Collection
	broadcasts []runtime.Broadcast

	collected bool
}

// collectAndReleaseBroadcasts materializes the collection, then destroys
// every owned broadcast. The node may be collected at most once.
//
// Broadcasts are only released after the collect barrier: remote tasks read
// the broadcast contents while the collection is still running. Release is
// best effort: a failing destroy must not leave the remaining broadcasts
// alive.
func (n *executionNode) collectAndReleaseBroadcasts(ctx context.Context) ([]serde.KeyedRow, error) {
	if n.collected {
		return nil, ErrAlreadyCollected
	}
	n.collected = true

	rows, err := n.collection.Collect(ctx)
	if err != nil {
		return nil, err
	}

	var destroyErr error
	for _, b := range n.broadcasts {
		if err := b.Destroy(); err != nil {
			destroyErr = withSuppressed(destroyErr, fmt.Errorf("releasing broadcast: %w", err))
			continue
		}
		n.metrics.broadcastsReleased.Inc()
	}
	if destroyErr != nil {
		return nil, destroyErr
	}
	return rows, nil
}
