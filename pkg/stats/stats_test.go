package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Collector_concurrentAppend(t *testing.T) {
	const workers = 16

	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(partition int32) {
			defer wg.Done()
			c.Add(TaskStats{
				FragmentID:  "1",
				Partition:   partition,
				InputRows:   10,
				OutputRows:  5,
				OutputBytes: 100,
			})
		}(int32(i))
	}
	wg.Wait()

	require.Len(t, c.Snapshot(), workers)
	require.Equal(t, int64(10*workers), c.TotalInputRows())
	require.Equal(t, int64(5*workers), c.TotalOutputRows())
	require.Equal(t, int64(100*workers), c.TotalOutputBytes())
}

func Test_Collector_snapshotIsCopy(t *testing.T) {
	c := NewCollector()
	c.Add(TaskStats{FragmentID: "1"})

	snap := c.Snapshot()
	snap[0].FragmentID = "changed"

	require.Equal(t, "1", c.Snapshot()[0].FragmentID)
}
