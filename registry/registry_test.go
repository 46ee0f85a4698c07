package registry

import (
	"reflect"
	"testing"
	"time"
)

type Labeled interface {
	Label() string
}

type Bag interface {
	Put(it Labeled)
	Get() Labeled
}

type Echo interface {
	ID(v int) int
}

func ifaceOf(v interface{}) reflect.Type {
	return reflect.TypeOf(v).Elem()
}

func TestRegisterAssignsDenseTypeAndMethodIDs(t *testing.T) {
	r := New()
	if err := r.Register(ifaceOf((*Echo)(nil))); err != nil {
		t.Fatalf("Register: %v", err)
	}

	id, ok := r.TypeID(ifaceOf((*Echo)(nil)))
	if !ok || id != 0 {
		t.Fatalf("TypeID(Echo) = %v, %v; want 0, true", id, ok)
	}

	m, ok := r.MethodByName(ifaceOf((*Echo)(nil)), "ID")
	if !ok {
		t.Fatal("MethodByName(Echo, ID) not found")
	}
	if m.ID != 0 {
		t.Errorf("method id = %v; want 0", m.ID)
	}
	if m.IsRemoteReturn {
		t.Errorf("ID's return should not be remote")
	}
}

func TestDoubleRegistrationFails(t *testing.T) {
	r := New()
	if err := r.Register(ifaceOf((*Echo)(nil))); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(ifaceOf((*Echo)(nil))); err == nil {
		t.Fatal("expected error on double registration")
	}
}

func TestRegisterRecursivelyRegistersReferencedTypes(t *testing.T) {
	r := New()
	if err := r.Register(ifaceOf((*Bag)(nil))); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !r.IsRegistered(ifaceOf((*Labeled)(nil))) {
		t.Fatal("Labeled should have been registered transitively via Bag")
	}

	put, ok := r.MethodByName(ifaceOf((*Bag)(nil)), "Put")
	if !ok {
		t.Fatal("Put not found")
	}
	if len(put.LocalParamIndices) != 1 || put.LocalParamIndices[0] != 0 {
		t.Errorf("Put.LocalParamIndices = %v; want [0]", put.LocalParamIndices)
	}

	get, ok := r.MethodByName(ifaceOf((*Bag)(nil)), "Get")
	if !ok {
		t.Fatal("Get not found")
	}
	if !get.IsRemoteReturn {
		t.Errorf("Get should have a remote return")
	}
}

func TestWithPolicyAttachesToNamedMethod(t *testing.T) {
	r := New()
	err := r.Register(ifaceOf((*Echo)(nil)), WithPolicy("ID", Policy{
		NoReturn:        true,
		ResponseTimeout: 50 * time.Millisecond,
	}))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	m, _ := r.MethodByName(ifaceOf((*Echo)(nil)), "ID")
	if !m.Policy.NoReturn {
		t.Errorf("policy not attached")
	}
	if m.Policy.ResponseTimeout != 50*time.Millisecond {
		t.Errorf("ResponseTimeout = %v; want 50ms", m.Policy.ResponseTimeout)
	}
}

func TestWithStubIsRetrievableByStubFor(t *testing.T) {
	r := New()
	fn := StubFactory(func(inv Invoker) interface{} { return nil })
	if err := r.Register(ifaceOf((*Echo)(nil)), WithStub(fn)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, ok := r.StubFor(ifaceOf((*Echo)(nil)))
	if !ok || got == nil {
		t.Fatal("StubFor did not return the registered factory")
	}
}

func TestStubForUnknownInterfaceReportsMissing(t *testing.T) {
	r := New()
	if _, ok := r.StubFor(ifaceOf((*Echo)(nil))); ok {
		t.Fatal("expected StubFor to report no stub for an unregistered interface")
	}
}

func TestWithIdentityDelegationAttachesToInterface(t *testing.T) {
	r := New()
	err := r.Register(ifaceOf((*Echo)(nil)), WithIdentityDelegation(IdentityPolicy{
		DelegateToString: true,
	}))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	p := r.IdentityPolicyFor(ifaceOf((*Echo)(nil)))
	if !p.DelegateToString {
		t.Errorf("identity policy not attached")
	}
	if p.DelegateHash {
		t.Errorf("DelegateHash should default false")
	}
}

func TestExcludeRemovesMethodFromRemotableSet(t *testing.T) {
	r := New()
	if err := r.Register(ifaceOf((*Echo)(nil)), Exclude("ID")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, ok := r.MethodByName(ifaceOf((*Echo)(nil)), "ID"); ok {
		t.Fatal("ID should have been excluded")
	}
}
