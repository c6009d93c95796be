package door

import (
	"cmp"
	"slices"

	"github.com/pscheid92/bzzzt/internal/domain"
)

// Registry is the table of live connections. It is owned by the service loop.
type Registry struct {
	lastKey     domain.ConnKey
	connections map[domain.ConnKey]*Connection
}

func NewRegistry() *Registry {
	return &Registry{connections: make(map[domain.ConnKey]*Connection)}
}

// Admit assigns the next key to c and inserts it. Labels may repeat.
func (r *Registry) Admit(c *Connection) domain.ConnKey {
	r.lastKey++
	c.Key = r.lastKey
	r.connections[c.Key] = c
	return c.Key
}

// Remove deletes the connection for key. Removing an absent key is a no-op.
func (r *Registry) Remove(key domain.ConnKey) (*Connection, bool) {
	c, ok := r.connections[key]
	if !ok {
		return nil, false
	}
	delete(r.connections, key)
	return c, true
}

func (r *Registry) Get(key domain.ConnKey) (*Connection, bool) {
	c, ok := r.connections[key]
	return c, ok
}

func (r *Registry) Len() int {
	return len(r.connections)
}

// ForEach calls fn for every connection in key order. It iterates over a
// snapshot, and skips entries that fn (or anything it triggers) removed meanwhile.
func (r *Registry) ForEach(fn func(*Connection)) {
	snapshot := make([]*Connection, 0, len(r.connections))
	for _, c := range r.connections {
		snapshot = append(snapshot, c)
	}
	slices.SortFunc(snapshot, func(a, b *Connection) int { return cmp.Compare(a.Key, b.Key) })

	for _, c := range snapshot {
		if _, live := r.connections[c.Key]; !live {
			continue
		}
		fn(c)
	}
}
