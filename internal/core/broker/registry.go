package broker

import "pairlink/internal/core/domain"

// connectionRegistry maps a user to their most recent live connection. A
// reconnect overwrites the previous mapping (last-writer-wins), so presence
// lookups always point at the newest session. Not safe for concurrent use on
// its own; the broker's lock guards it.
type connectionRegistry struct {
	byUser map[domain.UserID]domain.ConnectionID
}

func newConnectionRegistry() *connectionRegistry {
	return &connectionRegistry{
		byUser: make(map[domain.UserID]domain.ConnectionID),
	}
}

func (r *connectionRegistry) register(userID domain.UserID, connID domain.ConnectionID) {
	r.byUser[userID] = connID
}

func (r *connectionRegistry) lookup(userID domain.UserID) (domain.ConnectionID, bool) {
	connID, ok := r.byUser[userID]
	return connID, ok
}

// unregister removes the mapping only if it still points at connID. A stale
// connection disconnecting after the user reconnected must not knock the
// fresh session offline.
func (r *connectionRegistry) unregister(userID domain.UserID, connID domain.ConnectionID) {
	if current, ok := r.byUser[userID]; ok && current == connID {
		delete(r.byUser, userID)
	}
}
