package coordinator

import (
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// presenceEntry records who is inside a contended section and until when
// the notice stays valid without a refresh.
type presenceEntry struct {
	holder    string
	expiresAt time.Time
}

// PresenceRegistry is the ephemeral map of contention key to current
// holder identity, used only for live "someone else is editing" notices.
// Entries live in process memory, are never persisted, and lapse on their
// own after the TTL in case a release is lost.
type PresenceRegistry struct {
	entries *xsync.Map[string, presenceEntry]
	ttl     time.Duration
	now     func() time.Time
}

// NewPresenceRegistry creates a registry with the given entry TTL.
func NewPresenceRegistry(ttl time.Duration) *PresenceRegistry {
	return &PresenceRegistry{
		entries: xsync.NewMap[string, presenceEntry](),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Enter records the holder for every key.
func (r *PresenceRegistry) Enter(keys []string, holder string) {
	expires := r.now().Add(r.ttl)
	for _, key := range keys {
		r.entries.Store(key, presenceEntry{holder: holder, expiresAt: expires})
	}
}

// Leave clears the keys, but only if still held by the same holder, so a
// late Leave cannot wipe a successor's entry.
func (r *PresenceRegistry) Leave(keys []string, holder string) {
	for _, key := range keys {
		if entry, ok := r.entries.Load(key); ok && entry.holder == holder {
			r.entries.Delete(key)
		}
	}
}

// Holder returns the live holder of a key, or "" when the key is free or
// the entry has lapsed.
func (r *PresenceRegistry) Holder(key string) string {
	entry, ok := r.entries.Load(key)
	if !ok {
		return ""
	}
	if r.now().After(entry.expiresAt) {
		r.entries.Delete(key)
		return ""
	}
	return entry.holder
}
