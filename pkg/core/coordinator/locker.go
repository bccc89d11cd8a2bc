package coordinator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/coastal-eats/shiftsync/pkg/core/model"
)

// lockState is one key's mutual-exclusion state. The token channel holds
// exactly one token; whoever drains it owns the key. holder is read by
// timed-out waiters and HolderOf while the owner writes it, so it gets
// its own mutex.
type lockState struct {
	token chan struct{}

	mu     sync.Mutex
	holder string
}

func newLockState() *lockState {
	s := &lockState{token: make(chan struct{}, 1)}
	s.token <- struct{}{}
	return s
}

func (s *lockState) setHolder(name string) {
	s.mu.Lock()
	s.holder = name
	s.mu.Unlock()
}

func (s *lockState) currentHolder() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holder
}

// KeyedLocker is an in-process implementation of the exclusive-section
// primitive. Lock scope is per key: operations on disjoint keys proceed
// fully in parallel. Acquisition waits at most maxWait; past that the
// caller gets a ConflictError naming the current holder instead of
// blocking indefinitely.
type KeyedLocker struct {
	locks   *xsync.Map[string, *lockState]
	maxWait time.Duration
}

// NewKeyedLocker creates a locker with the given bounded wait.
func NewKeyedLocker(maxWait time.Duration) *KeyedLocker {
	return &KeyedLocker{
		locks:   xsync.NewMap[string, *lockState](),
		maxWait: maxWait,
	}
}

// Acquire takes every key, in sorted order so that two callers wanting
// overlapping key sets cannot deadlock each other. On success the
// returned release function frees the keys in reverse order; it is safe
// to call exactly once, including on error paths.
func (l *KeyedLocker) Acquire(ctx context.Context, keys []string, holder string) (func(), error) {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	deadline := time.NewTimer(l.maxWait)
	defer deadline.Stop()

	var held []*lockState
	releaseHeld := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].setHolder("")
			held[i].token <- struct{}{}
		}
	}

	for _, key := range sorted {
		state, _ := l.locks.LoadOrCompute(key, func() (*lockState, bool) {
			return newLockState(), false
		})

		select {
		case <-state.token:
			state.setHolder(holder)
			held = append(held, state)
		case <-ctx.Done():
			releaseHeld()
			return nil, ctx.Err()
		case <-deadline.C:
			current := state.currentHolder()
			releaseHeld()
			return nil, &model.ConflictError{Key: key, Holder: current}
		}
	}

	return releaseHeld, nil
}

// HolderOf returns the identity currently holding the key, if any.
func (l *KeyedLocker) HolderOf(key string) string {
	if state, ok := l.locks.Load(key); ok {
		return state.currentHolder()
	}
	return ""
}
