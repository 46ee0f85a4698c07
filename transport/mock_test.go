package transport

import (
	"sync"
	"testing"
	"time"
)

func TestDialFiresServerListener(t *testing.T) {
	n := NewNetwork()

	var accepted Connection
	done := make(chan struct{})
	n.RegisterListener(ServerListenerFunc(func(conn Connection) {
		accepted = conn
		close(done)
	}))

	connToB := n.Dial("A", "B")
	if connToB.RemoteID() != "B" {
		t.Fatalf("RemoteID() = %v; want B", connToB.RemoteID())
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("server listener never fired")
	}
	if accepted.RemoteID() != "A" {
		t.Fatalf("accepted.RemoteID() = %v; want A", accepted.RemoteID())
	}
}

func TestReliableDeliveryPreservesOrder(t *testing.T) {
	n := NewNetwork()

	var mu sync.Mutex
	var received []int
	allReceived := make(chan struct{})

	n.RegisterListener(ServerListenerFunc(func(conn Connection) {
		conn.RegisterListener(ListenerFunc(func(_ Connection, frame Frame) {
			mu.Lock()
			received = append(received, frame.(int))
			done := len(received) == 5
			mu.Unlock()
			if done {
				close(allReceived)
			}
		}))
	}))

	connToB := n.Dial("A", "B")
	for i := 0; i < 5; i++ {
		if err := connToB.SendReliable(i); err != nil {
			t.Fatalf("SendReliable: %v", err)
		}
	}

	select {
	case <-allReceived:
	case <-time.After(time.Second):
		t.Fatal("did not receive all frames")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range received {
		if v != i {
			t.Errorf("received[%d] = %v; want %v", i, v, i)
		}
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	n := NewNetwork()
	n.RegisterListener(ServerListenerFunc(func(conn Connection) {}))
	conn := n.Dial("A", "B")
	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := conn.SendReliable(1); err != ErrClosed {
		t.Fatalf("SendReliable after close = %v; want ErrClosed", err)
	}
}
