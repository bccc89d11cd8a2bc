package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zeebo/xxh3"

	"github.com/coastal-eats/shiftsync/pkg/core/model"
)

// AdvisoryLocker implements the exclusive-section primitive on session
// advisory locks, so the section holds across every process sharing the
// database. Keys are hashed to 64-bit advisory lock IDs; the holder name
// is published through application_name so a contender can report who has
// the lock.
type AdvisoryLocker struct {
	pool    *pgxpool.Pool
	maxWait time.Duration
	retry   time.Duration
}

// NewAdvisoryLocker creates an AdvisoryLocker against the given pool.
// maxWait bounds how long Acquire blocks before reporting contention.
func NewAdvisoryLocker(db *DB, maxWait time.Duration) *AdvisoryLocker {
	return &AdvisoryLocker{
		pool:    db.pool,
		maxWait: maxWait,
		retry:   50 * time.Millisecond,
	}
}

// lockID hashes a contention key to a signed 64-bit advisory lock ID.
func lockID(key string) int64 {
	return int64(xxh3.HashString(key))
}

// Acquire takes session advisory locks for every key in sorted order,
// holding them on a single dedicated connection. Sorted acquisition means
// two holders wanting overlapping key sets cannot deadlock. On timeout it
// returns *model.ConflictError naming the contended key and, when visible,
// the holder.
func (l *AdvisoryLocker) Acquire(ctx context.Context, keys []string, holder string) (func(), error) {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock connection: %w", err)
	}

	_, err = conn.Exec(ctx, `SELECT set_config('application_name', $1, false)`, holder)
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to set lock holder name: %w", err)
	}

	deadline := time.Now().Add(l.maxWait)
	var held []int64

	releaseHeld := func() {
		for i := len(held) - 1; i >= 0; i-- {
			conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, held[i])
		}
		conn.Release()
	}

	for _, key := range sorted {
		id := lockID(key)
		for {
			var got bool
			if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, id).Scan(&got); err != nil {
				releaseHeld()
				return nil, fmt.Errorf("failed to try advisory lock: %w", err)
			}
			if got {
				held = append(held, id)
				break
			}
			if time.Now().After(deadline) {
				h := l.holderOf(ctx, conn, id)
				releaseHeld()
				return nil, &model.ConflictError{Key: key, Holder: h}
			}
			select {
			case <-ctx.Done():
				releaseHeld()
				return nil, ctx.Err()
			case <-time.After(l.retry):
			}
		}
	}

	return releaseHeld, nil
}

// holderOf looks up the application_name of the session holding the
// advisory lock. Best effort: an empty string means the holder released
// between the failed try and this read.
func (l *AdvisoryLocker) holderOf(ctx context.Context, conn *pgxpool.Conn, id int64) string {
	var holder string
	err := conn.QueryRow(ctx, `
		SELECT a.application_name
		FROM pg_locks l
		JOIN pg_stat_activity a ON a.pid = l.pid
		WHERE l.locktype = 'advisory' AND l.granted
		  AND ((l.classid::bigint << 32) | l.objid::bigint) = $1
		LIMIT 1
	`, id).Scan(&holder)
	if err != nil {
		return ""
	}
	return holder
}
