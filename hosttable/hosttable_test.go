package hosttable

import "testing"

func TestHostAllocatesMonotonicIDs(t *testing.T) {
	tb := New()
	a := tb.Host("a")
	b := tb.Host("b")
	if a != 0 || b != 1 {
		t.Fatalf("ids = %d, %d; want 0, 1", a, b)
	}
}

func TestHostSameObjectReturnsSameID(t *testing.T) {
	tb := New()
	type obj struct{ n int }
	o := &obj{1}
	a := tb.Host(o)
	b := tb.Host(o)
	if a != b {
		t.Fatalf("re-hosting same object gave different ids: %d, %d", a, b)
	}
}

func TestHostWithIDAdvancesCursor(t *testing.T) {
	tb := New()
	if err := tb.HostWithID(5, "five"); err != nil {
		t.Fatalf("HostWithID: %v", err)
	}
	next := tb.Host("next")
	if next != 6 {
		t.Fatalf("next id = %d; want 6", next)
	}
}

func TestHostWithIDRejectsDuplicate(t *testing.T) {
	tb := New()
	if err := tb.HostWithID(0, "a"); err != nil {
		t.Fatalf("HostWithID: %v", err)
	}
	if err := tb.HostWithID(0, "b"); err == nil {
		t.Fatal("expected error re-using id 0")
	}
}

func TestLookupIsBijective(t *testing.T) {
	tb := New()
	id := tb.Host("value")
	obj, ok := tb.Lookup(id)
	if !ok || obj != "value" {
		t.Fatalf("Lookup(%d) = %v, %v; want value, true", id, obj, ok)
	}
	gotID, ok := tb.IDOf("value")
	if !ok || gotID != id {
		t.Fatalf("IDOf(value) = %d, %v; want %d, true", gotID, ok, id)
	}
}
