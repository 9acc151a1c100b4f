package presence

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

const (
	DefaultShards       = 32
	DefaultNotifyBuffer = 1024
)

// Change describes a principal becoming reachable or unreachable.
type Change struct {
	Principal uuid.UUID
	Online    bool
	At        time.Time
}

// Registry maps each principal to at most one live connection handle.
// It is sharded by principal so registrations for different principals
// never contend on a single lock, and it never performs I/O.
type Registry struct {
	shards  []*shard
	mask    uint64
	changes chan Change
	dropped atomic.Uint64
}

type shard struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]Conn
}

// NewRegistry builds an empty registry. shardCount is rounded up to a
// power of two; notifyBuffer bounds the queue of pending changes.
func NewRegistry(shardCount, notifyBuffer int) *Registry {
	if shardCount <= 0 {
		shardCount = DefaultShards
	}
	n := 1
	for n < shardCount {
		n <<= 1
	}
	if notifyBuffer <= 0 {
		notifyBuffer = DefaultNotifyBuffer
	}

	r := &Registry{
		shards:  make([]*shard, n),
		mask:    uint64(n - 1),
		changes: make(chan Change, notifyBuffer),
	}
	for i := range r.shards {
		r.shards[i] = &shard{conns: make(map[uuid.UUID]Conn)}
	}
	return r
}

func (r *Registry) shardFor(p uuid.UUID) *shard {
	return r.shards[xxhash.Sum64(p[:])&r.mask]
}

// Register installs conn for p. A handle already registered for p is
// closed and discarded (last connect wins).
//
// Changes are queued while the shard lock is held, so the order of
// changes for one principal always matches the order of its transitions.
func (r *Registry) Register(p uuid.UUID, conn Conn) {
	s := r.shardFor(p)

	s.mu.Lock()
	old, existed := s.conns[p]
	s.conns[p] = conn
	if !existed {
		r.notify(Change{Principal: p, Online: true, At: time.Now()})
	}
	s.mu.Unlock()

	if existed && old != conn {
		old.Close()
	}
}

// Unregister removes the entry for p only if it still holds conn. A stale
// disconnect racing a newer connection therefore leaves the newer handle
// in place. It reports whether the entry was removed.
func (r *Registry) Unregister(p uuid.UUID, conn Conn) bool {
	s := r.shardFor(p)

	s.mu.Lock()
	current, ok := s.conns[p]
	if !ok || current != conn {
		s.mu.Unlock()
		return false
	}
	delete(s.conns, p)
	r.notify(Change{Principal: p, Online: false, At: time.Now()})
	s.mu.Unlock()

	return true
}

func (r *Registry) Lookup(p uuid.UUID) (Conn, bool) {
	s := r.shardFor(p)
	s.mu.RLock()
	conn, ok := s.conns[p]
	s.mu.RUnlock()
	return conn, ok
}

// Snapshot returns every present principal, sorted.
func (r *Registry) Snapshot() []uuid.UUID {
	out := make([]uuid.UUID, 0, r.Len())
	for _, s := range r.shards {
		s.mu.RLock()
		for p := range s.conns {
			out = append(out, p)
		}
		s.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.conns)
		s.mu.RUnlock()
	}
	return n
}

// Each calls fn for every registered handle. fn runs outside the shard
// lock and may call back into the registry.
func (r *Registry) Each(fn func(p uuid.UUID, conn Conn)) {
	for _, s := range r.shards {
		s.mu.RLock()
		entries := make(map[uuid.UUID]Conn, len(s.conns))
		for p, c := range s.conns {
			entries[p] = c
		}
		s.mu.RUnlock()

		for p, c := range entries {
			fn(p, c)
		}
	}
}

// CloseAll closes and removes every handle. Used on shutdown.
func (r *Registry) CloseAll() {
	for _, s := range r.shards {
		s.mu.Lock()
		conns := s.conns
		s.conns = make(map[uuid.UUID]Conn)
		for p := range conns {
			r.notify(Change{Principal: p, Online: false, At: time.Now()})
		}
		s.mu.Unlock()

		for _, c := range conns {
			c.Close()
		}
	}
}

// Changes streams presence changes. Consumed by Notifier.
func (r *Registry) Changes() <-chan Change {
	return r.changes
}

// DroppedChanges counts changes discarded because the queue was full.
func (r *Registry) DroppedChanges() uint64 {
	return r.dropped.Load()
}

// notify must be called with the principal's shard lock held. It never
// blocks.
func (r *Registry) notify(c Change) {
	select {
	case r.changes <- c:
	default:
		r.dropped.Add(1)
	}
}
