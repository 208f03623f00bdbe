// Package local provides an in-process implementation of the distributed
// runtime boundary. Fragment tasks run on a bounded pool of goroutines,
// shuffles are performed in memory, and broadcasts are in-memory page
// snapshots.
//
// The local runtime executes one task per partition through the
// caller-supplied task executor factory; it has no knowledge of what a
// fragment computes.
package local

import (
	"context"
	"flag"
	"fmt"

	"github.com/go-kit/log"
	"github.com/grafana/dskit/services"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fornaix/presto-db/pkg/plan"
	"github.com/fornaix/presto-db/pkg/runtime"
	"github.com/fornaix/presto-db/pkg/serde"
	"github.com/fornaix/presto-db/pkg/session"
	"github.com/fornaix/presto-db/pkg/stats"
)

// Config configures the local runtime.
type Config struct {
	// Parallelism is the maximum number of tasks running at once.
	Parallelism int `yaml:"parallelism"`

	// DefaultPartitions is the partition count used for fragments that do
	// not declare one.
	DefaultPartitions int `yaml:"default_partitions"`
}

// RegisterFlags registers flags for the local runtime.
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	f.IntVar(&cfg.Parallelism, "runtime.parallelism", 4, "Maximum number of fragment tasks running concurrently.")
	f.IntVar(&cfg.DefaultPartitions, "runtime.default-partitions", 4, "Partition count for fragments that do not declare one.")
}

func (cfg *Config) validate() error {
	if cfg.Parallelism <= 0 {
		return fmt.Errorf("invalid parallelism %d, must be greater than 0", cfg.Parallelism)
	}
	if cfg.DefaultPartitions <= 0 {
		return fmt.Errorf("invalid default partition count %d, must be greater than 0", cfg.DefaultPartitions)
	}
	return nil
}

// Runtime is an in-process [runtime.Runtime]. It implements
// [services.Service]; collections refuse to run unless the service is
// running.
type Runtime struct {
	services.Service

	cfg     Config
	logger  log.Logger
	metrics *metrics
}

// New creates a new local Runtime. The service must be started before
// collections can be collected.
func New(cfg Config, logger log.Logger, reg prometheus.Registerer) (*Runtime, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	r := &Runtime{
		cfg:     cfg,
		logger:  logger,
		metrics: newMetrics(reg),
	}
	r.Service = services.NewIdleService(nil, nil)
	return r, nil
}

// CreateBroadcast implements [runtime.Runtime].
func (r *Runtime) CreateBroadcast(_ context.Context, pages []serde.SerializedPage) (runtime.Broadcast, error) {
	if err := r.checkRunning(); err != nil {
		return nil, err
	}
	r.metrics.broadcastsLive.Inc()
	return newBroadcast(pages, r.metrics.broadcastsLive.Dec), nil
}

// CreateCollection implements [runtime.Runtime]. The returned collection is
// lazy: no task runs until it is collected.
func (r *Runtime) CreateCollection(
	_ context.Context,
	sess *session.Session,
	fragment *plan.Fragment,
	partitionedInputs map[plan.FragmentID]runtime.Collection,
	broadcastInputs map[plan.FragmentID]runtime.Broadcast,
	factory runtime.TaskExecutorFactory,
	collector *stats.Collector,
) (runtime.Collection, error) {
	if err := r.checkRunning(); err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, fmt.Errorf("task executor factory is required")
	}

	return &collection{
		runtime:           r,
		session:           sess,
		fragment:          fragment,
		partitionedInputs: partitionedInputs,
		broadcastInputs:   broadcastInputs,
		factory:           factory,
		collector:         collector,
	}, nil
}

// partitionsFor resolves the partition count to run a fragment with.
func (r *Runtime) partitionsFor(fragment *plan.Fragment) int {
	switch fragment.Partitioning {
	case plan.SingleDistribution, plan.CoordinatorDistribution:
		return 1
	}
	if fragment.PartitionCount > 0 {
		return fragment.PartitionCount
	}
	return r.cfg.DefaultPartitions
}

func (r *Runtime) checkRunning() error {
	if state := r.State(); state != services.Running {
		return fmt.Errorf("local runtime is %s, not running", state)
	}
	return nil
}
