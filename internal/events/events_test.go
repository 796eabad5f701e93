package events

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type captureSub struct {
	events []Event
}

func (c *captureSub) Publish(e Event) { c.events = append(c.events, e) }

func TestFanout_DeliversToAll(t *testing.T) {
	a, b := &captureSub{}, &captureSub{}
	fanout := NewFanout(a)
	fanout.Add(b)

	fanout.Publish(Event{Type: TypeComplaintCreated, ComplaintUUID: "u1"})
	fanout.Publish(Event{Type: TypeComplaintMerged, ComplaintUUID: "u2", RootUUID: "u1"})

	for name, sub := range map[string]*captureSub{"a": a, "b": b} {
		if len(sub.events) != 2 {
			t.Fatalf("subscriber %s: expected 2 events, got %d", name, len(sub.events))
		}
		if sub.events[1].RootUUID != "u1" {
			t.Errorf("subscriber %s: merge event lost its root uuid", name)
		}
	}
}

func TestFanout_EmptyIsSilent(t *testing.T) {
	// A pipeline wired without publishers must still be able to emit.
	NewFanout().Publish(Event{Type: TypeComplaintCreated})
}

func TestHub_BroadcastsToSubscribers(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// Registration happens on the server side of the handshake; wait for it.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish(Event{
		Type:          TypeComplaintMerged,
		ComplaintUUID: "dup-uuid",
		RootUUID:      "root-uuid",
		Department:    "roads",
		ReportCount:   2,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.Type != TypeComplaintMerged || got.RootUUID != "root-uuid" || got.ReportCount != 2 {
		t.Errorf("unexpected event payload %+v", got)
	}
}

func TestHub_PublishDoesNotWaitOnStalledSubscriber(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	stalled, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer stalled.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The subscriber never reads. Large payloads overwhelm its socket buffers
	// so real backpressure builds; Publish must keep returning promptly and
	// eventually cut the subscriber loose instead of waiting on it.
	filler := strings.Repeat("x", 64*1024)
	start := time.Now()
	for i := 0; i < 300; i++ {
		hub.Publish(Event{Type: TypeComplaintCreated, Department: filler, ReportCount: i + 1})
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("publishing stalled behind a slow subscriber: %s", elapsed)
	}

	deadline = time.Now().Add(10 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("stalled subscriber was never dropped")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_DropsDisconnectedClients(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("closed subscriber was never dropped")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Publishing with no subscribers must not panic.
	hub.Publish(Event{Type: TypeComplaintCreated})
}
