package engine

import (
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/oklog/ulid/v2"

	"github.com/fornaix/presto-db/pkg/stats"
)

// QueryOutcome is handed to the completion hook exactly once per query,
// after its transaction has been settled.
type QueryOutcome struct {
	QueryID    ulid.ULID
	UpdateType string
	Elapsed    time.Duration

	// Err is nil for committed queries.
	Err error

	// Tasks is the per-task stats snapshot gathered during execution.
	Tasks []stats.TaskStats
}

// QueryMonitor receives query completion notifications. Notification is
// best effort: a failing monitor never overrides the query's own outcome.
type QueryMonitor interface {
	QueryCompleted(outcome QueryOutcome) error
}

// NopQueryMonitor is a QueryMonitor that does nothing.
type NopQueryMonitor struct{}

func (NopQueryMonitor) QueryCompleted(QueryOutcome) error { return nil }

// LogQueryMonitor logs query completions.
type LogQueryMonitor struct {
	Logger log.Logger
}

func (m LogQueryMonitor) QueryCompleted(outcome QueryOutcome) error {
	logger := log.With(m.Logger, "query_id", outcome.QueryID, "elapsed", outcome.Elapsed)
	if outcome.Err != nil {
		level.Warn(logger).Log("msg", "query failed", "err", outcome.Err, "tasks", len(outcome.Tasks))
		return nil
	}
	level.Info(logger).Log("msg", "query completed", "update_type", outcome.UpdateType, "tasks", len(outcome.Tasks))
	return nil
}
