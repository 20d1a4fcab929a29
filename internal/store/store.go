// Package store implements a node's in-memory dual map: the keys it owns
// as primary, and the keys it merely holds as a replica. Both maps share
// a single mutation mutex, so there is no window where a reader sees one
// map mid-update and the other stale.
//
// Unlike the WAL-backed store this package's ancestor implemented
// (write-ahead log plus periodic snapshot, vector clocks for conflict
// detection), this store has no versioning and no write-ahead log: a
// write is acknowledged as soon as the primary records it in memory, and
// durability comes entirely from the periodic snapshot in snapshot.go.
// Last writer wins.
package store

import "sync"

// Store holds a node's primary and replica partitions of the keyspace.
// All access — reads included — goes through mu.
type Store struct {
	mu      sync.Mutex
	primary map[string]string
	replica map[string]string
	dirty   bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		primary: make(map[string]string),
		replica: make(map[string]string),
	}
}

// Get returns the merged view of key: if both maps hold it, the primary's
// value wins. ok is false if neither map holds key.
func (s *Store) Get(key string) (value string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.primary[key]; ok {
		return v, true
	}
	v, ok := s.replica[key]
	return v, ok
}

// GetPrimary returns key's value from the primary map only, not falling
// back to the replica map. Used by the server's primary-path GET, which
// needs to know explicitly whether it must fall back.
func (s *Store) GetPrimary(key string) (value string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.primary[key]
	return v, ok
}

// GetReplica returns key's value from the replica map only.
func (s *Store) GetReplica(key string) (value string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.replica[key]
	return v, ok
}

// PutPrimary writes key=value into the primary map and marks the store
// dirty.
func (s *Store) PutPrimary(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primary[key] = value
	s.dirty = true
}

// PutReplica writes key=value into the replica map and marks the store
// dirty. Used both for normal replication (PUT_REPLICA) and for fallback
// writes served directly from the replica while the primary is down.
func (s *Store) PutReplica(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replica[key] = value
	s.dirty = true
}

// DeletePrimary removes key from both local maps — the primary's delete
// also clears any stale replica-map entry for the same key, since this
// node cannot simultaneously be primary and replica for one key.
func (s *Store) DeletePrimary(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.primary, key)
	delete(s.replica, key)
	s.dirty = true
}

// DeleteReplica removes key from the replica map only.
func (s *Store) DeleteReplica(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.replica, key)
	s.dirty = true
}

// Merged returns a snapshot copy of primary union replica (primary wins on
// overlap), for the SNAPSHOT wire response and reconciliation.
func (s *Store) Merged() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.primary)+len(s.replica))
	for k, v := range s.replica {
		out[k] = v
	}
	for k, v := range s.primary {
		out[k] = v
	}
	return out
}

// PrimaryLen reports how many keys this node currently owns as primary.
// Used by startup reconciliation to decide whether a full recovery pass
// is needed: if the primary map is still empty after loading the on-disk
// snapshot, this node has nothing to go on but its peers.
func (s *Store) PrimaryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.primary)
}

// snapshotMaps returns independent copies of both maps, for the
// persistence loop to serialize without holding the mutex during file
// I/O.
func (s *Store) snapshotMaps() (primary, replica map[string]string, dirty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	primary = make(map[string]string, len(s.primary))
	for k, v := range s.primary {
		primary[k] = v
	}
	replica = make(map[string]string, len(s.replica))
	for k, v := range s.replica {
		replica[k] = v
	}
	return primary, replica, s.dirty
}

// clearDirty resets the dirty flag. Called after a successful flush.
func (s *Store) clearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

// replaceMaps atomically swaps in newly loaded or reconciled maps. Used by
// snapshot loading at boot.
func (s *Store) replaceMaps(primary, replica map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primary = primary
	s.replica = replica
}

// Reset clears both maps and marks the store dirty. Used by startup
// recovery when the loaded primary map was empty and both maps must be
// rebuilt strictly from peer snapshots, discarding any stale local
// replica entries that don't belong here.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primary = make(map[string]string)
	s.replica = make(map[string]string)
	s.dirty = true
}
