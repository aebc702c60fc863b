package cart

import (
	"sync"

	"github.com/Project2Studios/storefront-client/internal/domain"
)

// MutationState tracks an optimistic mutation through its lifecycle. The
// state travels with the mutation object itself rather than living in ad hoc
// flags.
type MutationState string

const (
	// MutationPending means the optimistic patch is applied locally and the
	// network call is in flight.
	MutationPending MutationState = "pending"
	// MutationCommitted means the server response replaced the patch.
	MutationCommitted MutationState = "committed"
	// MutationRolledBack means the call failed and the optimistic patch was
	// discarded from the local view.
	MutationRolledBack MutationState = "rolled_back"
)

// mutation carries one optimistic cart mutation: the operation name, the
// patch it contributes to the local view while in flight, and the lifecycle
// state. Patches are replayed onto the confirmed baseline, so a patch must be
// safe to apply more than once and to a cart the target item is absent from.
type mutation struct {
	op    string
	state MutationState
	patch func(c *domain.Cart)
}

func newMutation(op string, patch func(c *domain.Cart)) *mutation {
	return &mutation{
		op:    op,
		state: MutationPending,
		patch: patch,
	}
}

func (m *mutation) commit()   { m.state = MutationCommitted }
func (m *mutation) rollback() { m.state = MutationRolledBack }

// keyedLocks serializes mutations per cart item id. Mutations on distinct
// items take distinct locks and proceed concurrently; a second mutation on
// the same item queues behind the first.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for key and returns its release function.
func (k *keyedLocks) acquire(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
