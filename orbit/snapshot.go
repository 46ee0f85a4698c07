package orbit

import (
	"reflect"

	"github.com/vknair/orbit-rmi/pstorage"
)

// HostSnapshot is a point-in-time, diagnostic view of a Space's host
// table: each hosted object id paired with the concrete type name
// living there. It exists for an operator inspecting a running peer,
// never for restoring state - the objects themselves are never
// persisted, only their shape.
type HostSnapshot struct {
	Entries map[int]string
}

// SnapshotHosts captures the current host table.
func (s *Space) SnapshotHosts() HostSnapshot {
	raw := s.hosts.Snapshot()
	entries := make(map[int]string, len(raw))
	for id, obj := range raw {
		entries[id] = reflect.TypeOf(obj).String()
	}
	return HostSnapshot{Entries: entries}
}

// WriteHostSnapshot persists the current host table shape to store, for
// a diagnostics endpoint to read back with LoadHostSnapshot.
func (s *Space) WriteHostSnapshot(store pstorage.PersistentStorage) error {
	return store.Save(s.SnapshotHosts())
}

// LoadHostSnapshot reads back a previously written snapshot. ok is false
// if store has never been written to.
func LoadHostSnapshot(store pstorage.PersistentStorage) (snap HostSnapshot, ok bool, err error) {
	ok, err = store.Load(&snap)
	return snap, ok, err
}
