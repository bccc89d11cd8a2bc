package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coastal-eats/shiftsync/pkg/core/model"
)

func TestKeyedLocker_AcquireAndRelease(t *testing.T) {
	locker := NewKeyedLocker(time.Second)

	release, err := locker.Acquire(context.Background(), []string{"shift:1", "worker:1"}, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", locker.HolderOf("shift:1"))
	assert.Equal(t, "alice", locker.HolderOf("worker:1"))

	release()
	assert.Empty(t, locker.HolderOf("shift:1"))

	// The keys are free again for the next caller.
	release, err = locker.Acquire(context.Background(), []string{"shift:1"}, "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", locker.HolderOf("shift:1"))
	release()
}

func TestKeyedLocker_BoundedWaitNamesHolder(t *testing.T) {
	locker := NewKeyedLocker(50 * time.Millisecond)

	release, err := locker.Acquire(context.Background(), []string{"shift:1"}, "alice")
	require.NoError(t, err)
	defer release()

	_, err = locker.Acquire(context.Background(), []string{"shift:1"}, "bob")
	require.Error(t, err)

	var conflict *model.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "shift:1", conflict.Key)
	assert.Equal(t, "alice", conflict.Holder)
}

func TestKeyedLocker_DisjointKeysProceedInParallel(t *testing.T) {
	locker := NewKeyedLocker(50 * time.Millisecond)

	releaseA, err := locker.Acquire(context.Background(), []string{"shift:1"}, "alice")
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := locker.Acquire(context.Background(), []string{"shift:2"}, "bob")
	require.NoError(t, err)
	defer releaseB()
}

func TestKeyedLocker_OverlappingKeySetsCannotDeadlock(t *testing.T) {
	// Two workers hammering the same key pair in opposite order. Sorted
	// acquisition means every attempt either wins both keys or times out
	// cleanly; nothing wedges.
	locker := NewKeyedLocker(200 * time.Millisecond)

	var wg sync.WaitGroup
	for _, keys := range [][]string{{"a", "b"}, {"b", "a"}} {
		wg.Add(1)
		go func(keys []string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				release, err := locker.Acquire(context.Background(), keys, "worker")
				if err == nil {
					release()
				}
			}
		}(keys)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("lock acquisition deadlocked")
	}
}

func TestKeyedLocker_HolderReadsDuringHandoff(t *testing.T) {
	// Hammers one key with acquirers while other goroutines read the
	// holder through timeouts and HolderOf. Run with -race: every holder
	// read must synchronize with the owner's write.
	locker := NewKeyedLocker(time.Millisecond)

	var wg sync.WaitGroup
	for _, name := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				release, err := locker.Acquire(context.Background(), []string{"shift:1"}, name)
				if err != nil {
					// Bounded-wait conflicts are expected under load.
					continue
				}
				release()
			}
		}(name)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = locker.HolderOf("shift:1")
		}
	}()
	wg.Wait()
}

func TestKeyedLocker_ContextCancellation(t *testing.T) {
	locker := NewKeyedLocker(time.Minute)

	release, err := locker.Acquire(context.Background(), []string{"shift:1"}, "alice")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = locker.Acquire(ctx, []string{"shift:1"}, "bob")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKeyedLocker_PartialAcquisitionReleasesHeldKeys(t *testing.T) {
	locker := NewKeyedLocker(50 * time.Millisecond)

	release, err := locker.Acquire(context.Background(), []string{"b"}, "alice")
	require.NoError(t, err)

	// Bob takes "a" but times out on "b"; "a" must come back free.
	_, err = locker.Acquire(context.Background(), []string{"a", "b"}, "bob")
	require.Error(t, err)
	assert.Empty(t, locker.HolderOf("a"))

	release()
}

func TestPresenceRegistry_EnterLeave(t *testing.T) {
	registry := NewPresenceRegistry(time.Minute)

	registry.Enter([]string{"shift:1"}, "alice")
	assert.Equal(t, "alice", registry.Holder("shift:1"))

	// A stranger's Leave must not clear the entry.
	registry.Leave([]string{"shift:1"}, "bob")
	assert.Equal(t, "alice", registry.Holder("shift:1"))

	registry.Leave([]string{"shift:1"}, "alice")
	assert.Empty(t, registry.Holder("shift:1"))
}

func TestPresenceRegistry_EntriesLapse(t *testing.T) {
	registry := NewPresenceRegistry(time.Minute)
	current := time.Now()
	registry.now = func() time.Time { return current }

	registry.Enter([]string{"shift:1"}, "alice")
	assert.Equal(t, "alice", registry.Holder("shift:1"))

	// Past the TTL the entry lapses on its own, covering a lost Leave.
	current = current.Add(2 * time.Minute)
	assert.Empty(t, registry.Holder("shift:1"))
}
