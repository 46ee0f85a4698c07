// Package registry assigns stable, compact numeric identities to
// remotable types and their callable methods, in a total order that is
// deterministic given identical registration calls on both peers. It is
// the runtime's symbolic dispatch table: once a type is registered,
// calls made through it never carry a name or a signature on the wire
// again, only a method id.
package registry

import (
	"reflect"
	"unicode"

	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
)

// Registry holds every registered remotable type and its methods. A
// Registry is safe for concurrent use; in practice registration happens
// once at startup and lookups happen for the life of the process, so the
// lock only ever serializes the rare write against many readers.
type Registry struct {
	lock deadlock.RWMutex

	typeIDs    map[reflect.Type]int
	nextTypeID int

	methodsByID  map[int]*Method
	methodsByKey map[reflect.Type]map[string]*Method
	nextMethodID int

	stubs      map[reflect.Type]StubFactory
	identities map[reflect.Type]IdentityPolicy
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		typeIDs:      make(map[reflect.Type]int),
		methodsByID:  make(map[int]*Method),
		methodsByKey: make(map[reflect.Type]map[string]*Method),
		stubs:        make(map[reflect.Type]StubFactory),
		identities:   make(map[reflect.Type]IdentityPolicy),
	}
}

// StubFor returns the proxy stub factory registered for iface, if any.
func (r *Registry) StubFor(iface reflect.Type) (StubFactory, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	fn, ok := r.stubs[iface]
	return fn, ok
}

// IdentityPolicyFor returns the identity delegation policy registered
// for iface. The zero value (no delegation) is returned if none was set.
func (r *Registry) IdentityPolicyFor(iface reflect.Type) IdentityPolicy {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.identities[iface]
}

// IsRegistered reports whether t has already been assigned a type id.
func (r *Registry) IsRegistered(t reflect.Type) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	_, ok := r.typeIDs[t]
	return ok
}

// TypeID returns the id assigned to a registered type.
func (r *Registry) TypeID(t reflect.Type) (int, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	id, ok := r.typeIDs[t]
	return id, ok
}

// MethodByID looks up a cached method by its wire id, for the dispatcher
// decoding an inbound invocation frame.
func (r *Registry) MethodByID(id int) (*Method, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	m, ok := r.methodsByID[id]
	return m, ok
}

// MethodByName looks up a cached method by its declaring interface and
// name, for the proxy builder wiring up each interface method slot.
func (r *Registry) MethodByName(iface reflect.Type, name string) (*Method, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	byName, ok := r.methodsByKey[iface]
	if !ok {
		return nil, false
	}
	m, ok := byName[name]
	return m, ok
}

// AllMethods returns every cached method across every registered
// interface, in no particular order. Used to walk the full parameter
// and return shape surface once at registration time, e.g. to make
// sure the wire codec knows about every concrete type that might ride
// inside a Frame's payload.
func (r *Registry) AllMethods() []*Method {
	r.lock.RLock()
	defer r.lock.RUnlock()
	methods := make([]*Method, 0, len(r.methodsByID))
	for _, m := range r.methodsByID {
		methods = append(methods, m)
	}
	return methods
}

// Register assigns a type id to iface and a method id to each of its
// remotable methods, then recursively registers every parameter and
// return type that is itself a remotable interface. Registration is
// idempotent only in the sense that registering the same type twice is
// always an error: the caller controls ordering, and ordering must
// match on both peers for method ids to agree.
func (r *Registry) Register(iface reflect.Type, opts ...Option) error {
	if iface.Kind() != reflect.Interface {
		return errors.Errorf("registry: %v is not an interface type", iface)
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	return r.register(iface, opts...)
}

// register assumes the lock is already held, so recursive registration
// of referenced types does not deadlock.
func (r *Registry) register(iface reflect.Type, opts ...Option) error {
	if _, ok := r.typeIDs[iface]; ok {
		return errors.Errorf("registry: type %v is already registered", iface)
	}

	o := newRegisterOptions()
	for _, opt := range opts {
		opt(o)
	}

	typeID := r.nextTypeID
	r.nextTypeID++
	r.typeIDs[iface] = typeID

	if o.stub != nil {
		r.stubs[iface] = o.stub
	}
	r.identities[iface] = o.identity

	sorted, err := sortedMethods(iface)
	if err != nil {
		return err
	}

	byName := make(map[string]*Method, len(sorted))
	var referenced []reflect.Type

	for _, m := range sorted {
		if o.excluded[m.Name] {
			continue
		}
		if !unicode.IsUpper([]rune(m.Name)[0]) {
			continue // not publicly visible
		}

		cm, refs, err := r.buildMethod(iface, m, o.policies[m.Name])
		if err != nil {
			return errors.Wrapf(err, "registry: method %v.%v", iface, m.Name)
		}
		r.methodsByID[cm.ID] = cm
		byName[cm.Name] = cm
		referenced = append(referenced, refs...)
	}
	r.methodsByKey[iface] = byName

	for _, t := range referenced {
		if _, ok := r.typeIDs[t]; ok {
			continue
		}
		if err := r.register(t); err != nil {
			return err
		}
	}
	return nil
}

// buildMethod turns a reflect.Method into a cached Method, assigning it
// the next method id and collecting any interface types it references
// so the caller can recursively register them.
func (r *Registry) buildMethod(owner reflect.Type, m reflect.Method, policy Policy) (*Method, []reflect.Type, error) {
	numOut := m.Type.NumOut()
	returnsError := numOut > 0 && m.Type.Out(numOut-1) == errorType
	valueOuts := numOut
	if returnsError {
		valueOuts--
	}
	if valueOuts > 1 {
		return nil, nil, errors.Errorf("methods with more than one value result are not supported (got %d)", valueOuts)
	}

	cm := &Method{
		ID:           r.nextMethodID,
		Owner:        owner,
		Name:         m.Name,
		Params:       make([]reflect.Type, m.Type.NumIn()),
		ReturnsError: returnsError,
		Policy:       policy,
	}
	r.nextMethodID++

	var referenced []reflect.Type

	for i := 0; i < m.Type.NumIn(); i++ {
		pt := m.Type.In(i)
		cm.Params[i] = pt
		if isRemotableKind(pt) {
			cm.LocalParamIndices = append(cm.LocalParamIndices, i)
			referenced = append(referenced, pt)
		}
	}

	if valueOuts == 1 {
		rt := m.Type.Out(0)
		cm.Return = rt
		if isRemotableKind(rt) {
			cm.IsRemoteReturn = true
			referenced = append(referenced, rt)
		}
	}

	return cm, referenced, nil
}

// sortedMethods returns iface's methods in the canonical order. Go's
// reflect package already enumerates interface methods in lexicographic
// name order (interfaces cannot overload), so this mostly re-validates
// that guarantee with the full comparator rather than doing real work.
func sortedMethods(iface reflect.Type) ([]reflect.Method, error) {
	n := iface.NumMethod()
	methods := make([]reflect.Method, n)
	for i := 0; i < n; i++ {
		methods[i] = iface.Method(i)
	}
	for i := 1; i < len(methods); i++ {
		c := compareMethods(methods[i-1], methods[i])
		if c == 0 {
			return nil, errors.Errorf("registry: %v has duplicate signature for method %v", iface, methods[i].Name)
		}
		if c > 0 {
			return nil, errors.Errorf("registry: %v methods are not in canonical order (%v before %v)", iface, methods[i-1].Name, methods[i].Name)
		}
	}
	return methods, nil
}
