package local

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/grafana/dskit/flagext"
	"github.com/grafana/dskit/services"
	"github.com/stretchr/testify/require"

	"github.com/fornaix/presto-db/pkg/plan"
	"github.com/fornaix/presto-db/pkg/runtime"
	"github.com/fornaix/presto-db/pkg/serde"
	"github.com/fornaix/presto-db/pkg/session"
	"github.com/fornaix/presto-db/pkg/sqltypes"
	"github.com/fornaix/presto-db/pkg/stats"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()

	var cfg Config
	flagext.DefaultValues(&cfg)

	r, err := New(cfg, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	require.NoError(t, services.StartAndAwaitRunning(ctx, r))
	t.Cleanup(func() {
		_ = services.StopAndAwaitTerminated(context.Background(), r)
	})
	return r
}

// rowsCollection is a pre-materialized collection used as a task input.
type rowsCollection struct {
	rows []serde.KeyedRow
}

func (c *rowsCollection) Collect(context.Context) ([]serde.KeyedRow, error) {
	return c.rows, nil
}

// factoryFunc adapts a function to runtime.TaskExecutorFactory.
type factoryFunc func(id runtime.TaskID, fragment *plan.Fragment, inputs runtime.TaskInputs, collector *stats.Collector) ([]serde.KeyedRow, error)

func (f factoryFunc) New(id runtime.TaskID, fragment *plan.Fragment, inputs runtime.TaskInputs, collector *stats.Collector) (runtime.TaskExecutor, error) {
	return taskFunc(func(context.Context) ([]serde.KeyedRow, error) {
		return f(id, fragment, inputs, collector)
	}), nil
}

type taskFunc func(ctx context.Context) ([]serde.KeyedRow, error)

func (f taskFunc) Run(ctx context.Context) ([]serde.KeyedRow, error) { return f(ctx) }

func intRow(t *testing.T, partition int32, v int32) serde.KeyedRow {
	t.Helper()
	row, err := serde.EncodeRow([]sqltypes.Type{sqltypes.Integer}, []any{v})
	require.NoError(t, err)
	return serde.KeyedRow{Partition: partition, Row: row}
}

func Test_Runtime_requiresRunningService(t *testing.T) {
	var cfg Config
	flagext.DefaultValues(&cfg)

	r, err := New(cfg, nil, nil)
	require.NoError(t, err)

	_, err = r.CreateBroadcast(context.Background(), nil)
	require.ErrorContains(t, err, "not running")
}

func Test_Runtime_shufflesByPartitionKey(t *testing.T) {
	r := newTestRuntime(t)

	var (
		childID  = plan.FragmentID(1)
		fragment = &plan.Fragment{
			ID:             2,
			Types:          []sqltypes.Type{sqltypes.Integer},
			Partitioning:   plan.FixedHashDistribution,
			PartitionCount: 2,
		}
	)

	input := &rowsCollection{rows: []serde.KeyedRow{
		intRow(t, 0, 10),
		intRow(t, 1, 11),
		intRow(t, 2, 12),
		intRow(t, 3, 13),
	}}

	var (
		mut   sync.Mutex
		tasks = map[int32][]serde.KeyedRow{}
	)
	echo := factoryFunc(func(id runtime.TaskID, _ *plan.Fragment, inputs runtime.TaskInputs, _ *stats.Collector) ([]serde.KeyedRow, error) {
		mut.Lock()
		tasks[id.Partition] = inputs.Partitioned[childID]
		mut.Unlock()
		return inputs.Partitioned[childID], nil
	})

	col, err := r.CreateCollection(
		context.Background(),
		session.New("test", "memory", "default"),
		fragment,
		map[plan.FragmentID]runtime.Collection{childID: input},
		nil,
		echo,
		stats.NewCollector(),
	)
	require.NoError(t, err)

	rows, err := col.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// Rows with even keys land in partition 0, odd keys in partition 1.
	require.Len(t, tasks, 2)
	for _, row := range tasks[0] {
		require.Equal(t, int32(0), row.Partition%2)
	}
	for _, row := range tasks[1] {
		require.Equal(t, int32(1), row.Partition%2)
	}
}

func Test_Runtime_singleDistributionRunsOneTask(t *testing.T) {
	r := newTestRuntime(t)

	fragment := &plan.Fragment{
		ID:           1,
		Types:        []sqltypes.Type{sqltypes.Integer},
		Partitioning: plan.SingleDistribution,
	}

	var (
		mut   sync.Mutex
		calls []runtime.TaskID
	)
	source := factoryFunc(func(id runtime.TaskID, _ *plan.Fragment, _ runtime.TaskInputs, _ *stats.Collector) ([]serde.KeyedRow, error) {
		mut.Lock()
		calls = append(calls, id)
		mut.Unlock()
		return []serde.KeyedRow{intRow(t, 0, 1)}, nil
	})

	col, err := r.CreateCollection(
		context.Background(),
		session.New("test", "memory", "default"),
		fragment,
		nil, nil,
		source,
		stats.NewCollector(),
	)
	require.NoError(t, err)

	rows, err := col.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, []runtime.TaskID{{Partition: 0, Attempt: 0}}, calls)
}

func Test_Broadcast_destroy(t *testing.T) {
	r := newTestRuntime(t)

	pages := []serde.SerializedPage{{NumRows: 0}}
	b, err := r.CreateBroadcast(context.Background(), pages)
	require.NoError(t, err)

	got, err := b.Pages()
	require.NoError(t, err)
	require.Equal(t, pages, got)

	require.NoError(t, b.Destroy())

	_, err = b.Pages()
	require.ErrorContains(t, err, "already destroyed")

	err = b.Destroy()
	require.ErrorContains(t, err, "already destroyed")
}
