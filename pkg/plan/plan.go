// Package plan defines the fragmented query plan consumed by the execution
// engine: plan fragments, their partitioning strategy, and the fragment
// tree produced by the plan fragmenter.
package plan

import (
	"fmt"
	"strings"

	"github.com/fornaix/presto-db/pkg/sqltypes"
)

// FragmentID identifies a fragment within a single query plan.
type FragmentID int32

func (id FragmentID) String() string { return fmt.Sprintf("%d", int32(id)) }

// PartitioningHandle describes how the output of a fragment is distributed
// across downstream consumers.
type PartitioningHandle int

const (
	// SingleDistribution runs the fragment as a single task.
	SingleDistribution PartitioningHandle = iota

	// FixedHashDistribution shuffles the fragment output across a fixed
	// number of partitions by partition key.
	FixedHashDistribution

	// FixedBroadcastDistribution replicates the entire fragment output to
	// every downstream task.
	FixedBroadcastDistribution

	// CoordinatorDistribution runs the fragment as exactly one task on the
	// control point, fed by the materialized output of its only child.
	CoordinatorDistribution

	// SourceDistribution assigns fragment tasks based on the layout of the
	// underlying data source.
	SourceDistribution
)

func (h PartitioningHandle) String() string {
	switch h {
	case SingleDistribution:
		return "single"
	case FixedHashDistribution:
		return "fixed_hash"
	case FixedBroadcastDistribution:
		return "fixed_broadcast"
	case CoordinatorDistribution:
		return "coordinator"
	case SourceDistribution:
		return "source"
	default:
		return fmt.Sprintf("PartitioningHandle(%d)", h)
	}
}

// Fragment is a sub-plan unit of the query assigned a partitioning
// strategy. It is the unit of remote task submission.
type Fragment struct {
	ID           FragmentID
	Types        []sqltypes.Type
	Partitioning PartitioningHandle

	// PartitionCount is the number of partitions the fragment runs with. A
	// zero value leaves the choice to the runtime.
	PartitionCount int
}

// SubPlan is an immutable tree of fragments rooted at the query's final
// output fragment.
type SubPlan struct {
	Fragment *Fragment
	Children []*SubPlan
}

// Sprint renders the fragment tree for logging.
func Sprint(root *SubPlan) string {
	var sb strings.Builder
	sprintNode(&sb, root, 0)
	return strings.TrimRight(sb.String(), "\n")
}

func sprintNode(sb *strings.Builder, node *SubPlan, depth int) {
	if node == nil || node.Fragment == nil {
		return
	}
	sb.WriteString(strings.Repeat("  ", depth))

	types := make([]string, len(node.Fragment.Types))
	for i, t := range node.Fragment.Types {
		types[i] = t.String()
	}
	fmt.Fprintf(sb, "Fragment %s [%s] output=(%s)\n",
		node.Fragment.ID, node.Fragment.Partitioning, strings.Join(types, ", "))

	for _, child := range node.Children {
		sprintNode(sb, child, depth+1)
	}
}
