// Package engine orchestrates distributed query execution: it converts a
// fragmented query plan into a graph of data-parallel computations on an
// external runtime, runs the graph inside a transactional boundary, and
// decodes the final output rows.
package engine

import (
	"context"
	"errors"
	"flag"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fornaix/presto-db/pkg/metadata"
	"github.com/fornaix/presto-db/pkg/plan"
	"github.com/fornaix/presto-db/pkg/runtime"
	"github.com/fornaix/presto-db/pkg/serde"
	"github.com/fornaix/presto-db/pkg/session"
	"github.com/fornaix/presto-db/pkg/stats"
	"github.com/fornaix/presto-db/pkg/transaction"
)

// ErrNotSupported is returned for queries that request functionality the
// engine or the target connector does not support. Errors wrapping it are
// fatal and non-retryable.
var ErrNotSupported = errors.New("not supported")

// PreparedQuery is a statement that has been parsed and analyzed by the
// external planner.
type PreparedQuery struct {
	SQL string

	// Statement is the planner's representation of the analyzed statement.
	// The engine treats it as opaque.
	Statement any
}

// PlannedQuery is the output of logical planning.
type PlannedQuery struct {
	Plan *LogicalPlan

	// UpdateType classifies DML statements ("INSERT", "CREATE TABLE", ...).
	// Empty for plain SELECT queries.
	UpdateType string
}

// LogicalPlan is the optimized logical plan produced by the external
// planner. The engine only inspects its writer target; the operator tree is
// opaque.
type LogicalPlan struct {
	Statement any

	// WriterTarget is the table-write destination of the plan, nil for
	// read-only queries.
	WriterTarget metadata.WriterTarget
}

// Planner produces fragmented plans from SQL text. Parsing, analysis, and
// optimization live outside the engine; this is their boundary.
type Planner interface {
	Prepare(ctx context.Context, sess *session.Session, sql string) (*PreparedQuery, error)
	Plan(ctx context.Context, sess *session.Session, prepared *PreparedQuery) (*PlannedQuery, error)
	Fragment(ctx context.Context, sess *session.Session, planned *PlannedQuery) (*plan.SubPlan, error)
}

// Config configures the engine.
type Config struct {
	// MaxRowsPerPage caps the number of rows grouped into one broadcast
	// page.
	MaxRowsPerPage int `yaml:"max_rows_per_page"`

	// MaxPageBytes caps the size of one broadcast page.
	MaxPageBytes int `yaml:"max_page_bytes"`
}

// RegisterFlags registers flags for the engine.
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	f.IntVar(&cfg.MaxRowsPerPage, "engine.max-rows-per-page", serde.DefaultBatchingPolicy.MaxRowsPerPage, "Maximum number of rows grouped into a single broadcast page.")
	f.IntVar(&cfg.MaxPageBytes, "engine.max-page-bytes", serde.DefaultBatchingPolicy.MaxPageBytes, "Maximum size in bytes of a single broadcast page.")
}

// Params holds parameters for constructing a new [Factory].
type Params struct {
	Logger     log.Logger            // Logger for optional log messages.
	Registerer prometheus.Registerer // Registerer for optional metrics.

	Config Config // Config for the engine.

	Transactions    transaction.Manager         // Transaction manager owning the query transactions.
	Planner         Planner                     // Planner producing fragmented plans.
	Metadata        metadata.Metadata           // Registry of connector capabilities.
	Runtime         runtime.Runtime             // Distributed runtime fragments are scheduled on.
	ExecutorFactory runtime.TaskExecutorFactory // Factory for fragment task executors.
	Monitor         QueryMonitor                // Completion hook, best effort.
}

// validate validates p and applies defaults.
func (p *Params) validate() error {
	if p.Logger == nil {
		p.Logger = log.NewNopLogger()
	}
	if p.Registerer == nil {
		p.Registerer = prometheus.NewRegistry()
	}
	if p.Monitor == nil {
		p.Monitor = NopQueryMonitor{}
	}
	if p.Transactions == nil {
		return errors.New("transaction manager is required")
	}
	if p.Planner == nil {
		return errors.New("planner is required")
	}
	if p.Metadata == nil {
		return errors.New("metadata is required")
	}
	if p.Runtime == nil {
		return errors.New("runtime is required")
	}
	if p.ExecutorFactory == nil {
		return errors.New("executor factory is required")
	}
	if p.Config.MaxRowsPerPage < 0 || p.Config.MaxPageBytes < 0 {
		return errors.New("page limits must not be negative")
	}
	return nil
}

// Factory creates single-use [QueryExecution] objects, one per query.
type Factory struct {
	logger  log.Logger
	metrics *metrics

	cfg             Config
	transactions    transaction.Manager
	planner         Planner
	metadata        metadata.Metadata
	runtime         runtime.Runtime
	executorFactory runtime.TaskExecutorFactory
	monitor         QueryMonitor
}

// NewFactory creates a new Factory.
func NewFactory(params Params) (*Factory, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Factory{
		logger:  params.Logger,
		metrics: newMetrics(params.Registerer),

		cfg:             params.Config,
		transactions:    params.Transactions,
		planner:         params.Planner,
		metadata:        params.Metadata,
		runtime:         params.Runtime,
		executorFactory: params.ExecutorFactory,
		monitor:         params.Monitor,
	}, nil
}

// Create begins the query's transaction, plans and fragments sql, and
// returns a QueryExecution ready to run. Any failure rolls the transaction
// back before returning; rollback failures are attached to the primary
// failure as suppressed causes.
func (f *Factory) Create(ctx context.Context, sess *session.Session, sql string) (*QueryExecution, error) {
	txnID := f.transactions.Begin(true)
	sess = sess.WithTransaction(txnID)

	execution, err := f.create(ctx, sess, sql)
	if err != nil {
		if rbErr := rollback(ctx, sess, f.transactions); rbErr != nil {
			err = withSuppressed(err, rbErr)
		}
		f.metrics.queriesTotal.WithLabelValues(outcomeRolledBack).Inc()
		return nil, err
	}
	return execution, nil
}

func (f *Factory) create(ctx context.Context, sess *session.Session, sql string) (*QueryExecution, error) {
	logger := log.With(f.logger, "query_id", sess.QueryID)

	timer := prometheus.NewTimer(f.metrics.planningSeconds)
	defer timer.ObserveDuration()

	prepared, err := f.planner.Prepare(ctx, sess, sql)
	if err != nil {
		return nil, err
	}
	planned, err := f.planner.Plan(ctx, sess, prepared)
	if err != nil {
		return nil, err
	}
	fragmented, err := f.planner.Fragment(ctx, sess, planned)
	if err != nil {
		return nil, err
	}
	level.Info(logger).Log("msg", "fragmented plan", "plan", plan.Sprint(fragmented))

	tableWrite, err := computeTableWriteInfo(sess, f.metadata, planned.Plan.WriterTarget)
	if err != nil {
		return nil, err
	}

	return &QueryExecution{
		logger:  logger,
		metrics: f.metrics,

		session:         sess,
		transactions:    f.transactions,
		runtime:         f.runtime,
		executorFactory: f.executorFactory,
		monitor:         f.monitor,

		plan:       fragmented,
		updateType: planned.UpdateType,
		tableWrite: tableWrite,
		collector:  stats.NewCollector(),

		batching: serde.BatchingPolicy{
			MaxRowsPerPage: f.cfg.MaxRowsPerPage,
			MaxPageBytes:   f.cfg.MaxPageBytes,
		},
	}, nil
}
