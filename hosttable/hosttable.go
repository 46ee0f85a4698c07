// Package hosttable maps local object ids to the local objects they
// address, and back, for a single runtime's lifetime.
package hosttable

import (
	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
)

// Table is one runtime's object table; each orbit.Space owns its own.
// Objects are typically pointers, so identity comparison with == is
// meaningful the same way Java's IdentityHashMap is: two hosted values
// are the same entry only if they are the same pointer.
type Table struct {
	lock    deadlock.RWMutex
	objects map[int]interface{}
	ids     map[interface{}]int
	nextID  int
}

// New returns an empty host table.
func New() *Table {
	return &Table{
		objects: make(map[int]interface{}),
		ids:     make(map[interface{}]int),
	}
}

// Host assigns the next available object id to object. If object is
// already hosted, its existing id is returned instead of allocating a
// new one — double-hosting the same object is not an error, it is a
// deterministic no-op.
func (t *Table) Host(object interface{}) int {
	t.lock.Lock()
	defer t.lock.Unlock()
	if id, ok := t.ids[object]; ok {
		return id
	}
	id := t.nextID
	t.nextID++
	t.put(id, object)
	return id
}

// HostWithID assigns an explicit object id, advancing the table's
// allocation cursor past it. Re-using an id already in use is an error.
func (t *Table) HostWithID(id int, object interface{}) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if existing, ok := t.objects[id]; ok {
		return errors.Errorf("hosttable: object id %d already hosts %v", id, existing)
	}
	t.put(id, object)
	if id >= t.nextID {
		t.nextID = id + 1
	}
	return nil
}

func (t *Table) put(id int, object interface{}) {
	t.objects[id] = object
	t.ids[object] = id
}

// Lookup returns the object hosted at id, if any.
func (t *Table) Lookup(id int) (interface{}, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	obj, ok := t.objects[id]
	return obj, ok
}

// IDOf returns the id an already-hosted object was assigned.
func (t *Table) IDOf(object interface{}) (int, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	id, ok := t.ids[object]
	return id, ok
}

// EnsureHosted returns the id of object, hosting it first if necessary.
// This is the operation the outbound invoker and the inbound dispatcher
// both use to promote a remotable argument or result to a wire id.
func (t *Table) EnsureHosted(object interface{}) int {
	t.lock.Lock()
	defer t.lock.Unlock()
	if id, ok := t.ids[object]; ok {
		return id
	}
	id := t.nextID
	t.nextID++
	t.put(id, object)
	return id
}

// Snapshot returns a point-in-time copy of id -> object, for
// introspection and diagnostics. It does not include a type name; see
// orbit's snapshot writer for that.
func (t *Table) Snapshot() map[int]interface{} {
	t.lock.RLock()
	defer t.lock.RUnlock()
	out := make(map[int]interface{}, len(t.objects))
	for id, obj := range t.objects {
		out[id] = obj
	}
	return out
}

// Len reports how many objects are currently hosted.
func (t *Table) Len() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return len(t.objects)
}
