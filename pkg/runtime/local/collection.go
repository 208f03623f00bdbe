package local

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/fornaix/presto-db/pkg/plan"
	"github.com/fornaix/presto-db/pkg/runtime"
	"github.com/fornaix/presto-db/pkg/serde"
	"github.com/fornaix/presto-db/pkg/session"
	"github.com/fornaix/presto-db/pkg/stats"
)

// collection is a lazy handle to the distributed computation of one
// fragment. Collecting it collects its partitioned inputs, shuffles their
// rows into partitions, and runs one task per partition on the worker pool.
type collection struct {
	runtime           *Runtime
	session           *session.Session
	fragment          *plan.Fragment
	partitionedInputs map[plan.FragmentID]runtime.Collection
	broadcastInputs   map[plan.FragmentID]runtime.Broadcast
	factory           runtime.TaskExecutorFactory
	collector         *stats.Collector
}

// Collect implements [runtime.Collection].
func (c *collection) Collect(ctx context.Context) ([]serde.KeyedRow, error) {
	if err := c.runtime.checkRunning(); err != nil {
		return nil, err
	}

	partitions := c.runtime.partitionsFor(c.fragment)

	shuffled, err := c.shuffleInputs(ctx, partitions)
	if err != nil {
		return nil, err
	}

	level.Debug(c.runtime.logger).Log(
		"msg", "running fragment",
		"query_id", c.session.QueryID,
		"fragment_id", c.fragment.ID,
		"partitioning", c.fragment.Partitioning,
		"partitions", partitions,
	)

	outputs := make([][]serde.KeyedRow, partitions)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.runtime.cfg.Parallelism)
	for p := 0; p < partitions; p++ {
		g.Go(func() error {
			rows, err := c.runTask(ctx, int32(p), shuffled)
			if err != nil {
				return err
			}
			outputs[p] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var result []serde.KeyedRow
	for _, rows := range outputs {
		result = append(result, rows...)
	}
	return result, nil
}

// shuffleInputs collects every partitioned input and buckets its rows by
// partition key. Broadcast inputs are not touched here; every task receives
// the same broadcast handles.
func (c *collection) shuffleInputs(ctx context.Context, partitions int) (map[plan.FragmentID][][]serde.KeyedRow, error) {
	shuffled := make(map[plan.FragmentID][][]serde.KeyedRow, len(c.partitionedInputs))

	for id, input := range c.partitionedInputs {
		rows, err := input.Collect(ctx)
		if err != nil {
			return nil, fmt.Errorf("collecting input fragment %s: %w", id, err)
		}

		buckets := make([][]serde.KeyedRow, partitions)
		for _, row := range rows {
			p := int(row.Partition) % partitions
			if p < 0 {
				p += partitions
			}
			buckets[p] = append(buckets[p], row)
		}
		shuffled[id] = buckets
	}
	return shuffled, nil
}

// runTask runs the task for one partition of the fragment through the
// caller's executor factory.
func (c *collection) runTask(ctx context.Context, partition int32, shuffled map[plan.FragmentID][][]serde.KeyedRow) ([]serde.KeyedRow, error) {
	taskID := runtime.TaskID{Partition: partition, Attempt: 0}

	inputs := runtime.TaskInputs{
		Partitioned: make(map[plan.FragmentID][]serde.KeyedRow, len(shuffled)),
		Broadcasts:  c.broadcastInputs,
	}
	for id, buckets := range shuffled {
		inputs.Partitioned[id] = buckets[partition]
	}

	exec, err := c.factory.New(taskID, c.fragment, inputs, c.collector)
	if err != nil {
		return nil, fmt.Errorf("creating executor for fragment %s task %s: %w", c.fragment.ID, taskID, err)
	}

	start := time.Now()
	rows, err := exec.Run(ctx)
	c.runtime.metrics.taskExecSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		c.runtime.metrics.tasksTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("fragment %s task %s: %w", c.fragment.ID, taskID, err)
	}
	c.runtime.metrics.tasksTotal.WithLabelValues("succeeded").Inc()
	return rows, nil
}
