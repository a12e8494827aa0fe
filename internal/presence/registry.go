package presence

import "sync"

// Conn is the minimal write handle the registry tracks for a user. The ws
// package provides the real implementation over a websocket connection.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Registry is the authoritative in-process record of who is online.
// An entry exists for a user exactly while they have at least one live
// connection; removal happens on connection teardown.
type Registry interface {
	// Connect registers a live connection for the user.
	Connect(userID string, c Conn)
	// Disconnect removes a connection. Disconnecting an unknown user or
	// connection is a no-op, never an error.
	Disconnect(userID string, c Conn)
	// Lookup returns the user's live connections, nil when offline.
	Lookup(userID string) []Conn
	// Snapshot returns the set of currently-online user ids.
	Snapshot() []string
}

// MemoryRegistry keeps presence in process memory. State is lost on restart;
// clients re-register when they re-establish their channel.
type MemoryRegistry struct {
	mu    sync.RWMutex
	conns map[string]map[Conn]struct{}
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		conns: make(map[string]map[Conn]struct{}),
	}
}

var _ Registry = (*MemoryRegistry)(nil)

func (r *MemoryRegistry) Connect(userID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conns[userID] == nil {
		r.conns[userID] = make(map[Conn]struct{})
	}
	r.conns[userID][c] = struct{}{}
}

func (r *MemoryRegistry) Disconnect(userID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conns, ok := r.conns[userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(r.conns, userID)
		}
	}
}

func (r *MemoryRegistry) Lookup(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns, ok := r.conns[userID]
	if !ok {
		return nil
	}
	res := make([]Conn, 0, len(conns))
	for c := range conns {
		res = append(res, c)
	}
	return res
}

func (r *MemoryRegistry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}
