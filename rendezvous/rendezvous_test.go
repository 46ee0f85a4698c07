package rendezvous

import (
	"testing"
	"time"
)

func TestPostBeforeWaitIsBuffered(t *testing.T) {
	s := New()
	s.Post(1, "hello")
	if !s.ContainsDelivered(1) {
		t.Fatal("expected delivered entry")
	}
	v, err := s.Wait(1, time.Second)
	if err != nil || v != "hello" {
		t.Fatalf("Wait = %v, %v; want hello, nil", v, err)
	}
	if s.ContainsDelivered(1) {
		t.Fatal("result should be forgotten after being read")
	}
}

func TestWaitBeforePostUnblocks(t *testing.T) {
	s := New()
	done := make(chan struct{})
	var got interface{}
	go func() {
		got, _ = s.Wait(1, time.Second)
		close(done)
	}()
	// give the waiter a moment to register itself
	for !s.ContainsPending(1) {
		time.Sleep(time.Millisecond)
	}
	s.Post(1, 42)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait never returned")
	}
	if got != 42 {
		t.Fatalf("got = %v; want 42", got)
	}
}

func TestWaitTimesOut(t *testing.T) {
	s := New()
	_, err := s.Wait(1, 10*time.Millisecond)
	if err != ErrTimeout {
		t.Fatalf("err = %v; want ErrTimeout", err)
	}
}

func TestLateDeliveryAfterTimeoutDoesNotCorruptNextTransaction(t *testing.T) {
	s := New()
	_, err := s.Wait(1, 10*time.Millisecond)
	if err != ErrTimeout {
		t.Fatalf("err = %v; want ErrTimeout", err)
	}
	// A stale post for the abandoned transaction arrives late.
	s.Post(1, "stale")

	// A brand new transaction with a different id is unaffected.
	s.Post(2, "fresh")
	v, err := s.Wait(2, time.Second)
	if err != nil || v != "fresh" {
		t.Fatalf("Wait(2) = %v, %v; want fresh, nil", v, err)
	}
}

func TestFailWakesWaiterWithError(t *testing.T) {
	s := New()
	done := make(chan struct{})
	var gotErr error
	go func() {
		_, gotErr = s.Wait(1, time.Second)
		close(done)
	}()
	for !s.ContainsPending(1) {
		time.Sleep(time.Millisecond)
	}
	sentinel := ErrTimeout // reuse as a stand-in distinguishable error
	s.Fail(1, sentinel)
	<-done
	if gotErr != sentinel {
		t.Fatalf("gotErr = %v; want sentinel", gotErr)
	}
}
