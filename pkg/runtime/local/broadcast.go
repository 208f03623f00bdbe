package local

import (
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/fornaix/presto-db/pkg/serde"
)

// broadcast is an in-memory snapshot of serialized pages. The snapshot is
// immutable; its only state transition is the one-time destroy.
type broadcast struct {
	id     ulid.ULID
	onFree func()
	mut    sync.Mutex
	pages  []serde.SerializedPage
	freed  bool
}

func newBroadcast(pages []serde.SerializedPage, onFree func()) *broadcast {
	return &broadcast{
		id:     ulid.Make(),
		onFree: onFree,
		pages:  pages,
	}
}

// Pages implements [runtime.Broadcast]. Reading a destroyed broadcast is an
// error: it means a consumer outlived the release of its input.
func (b *broadcast) Pages() ([]serde.SerializedPage, error) {
	b.mut.Lock()
	defer b.mut.Unlock()
	if b.freed {
		return nil, fmt.Errorf("broadcast %s already destroyed", b.id)
	}
	return b.pages, nil
}

// Destroy implements [runtime.Broadcast].
func (b *broadcast) Destroy() error {
	b.mut.Lock()
	defer b.mut.Unlock()
	if b.freed {
		return fmt.Errorf("broadcast %s already destroyed", b.id)
	}
	b.freed = true
	b.pages = nil
	if b.onFree != nil {
		b.onFree()
	}
	return nil
}
