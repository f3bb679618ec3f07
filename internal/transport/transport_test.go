package transport

import (
	"bufio"
	"encoding/json"
	"net"
	"strconv"
	"testing"
	"time"

	"sightline/internal/event"
)

// testObserver accepts one connection and returns received lines on a channel.
func testObserver(t *testing.T) (host string, port int, lines <-chan string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	ch := make(chan string, 16)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			ch <- sc.Text()
		}
		close(ch)
	}()

	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("split addr: %v", err)
	}
	p, _ := strconv.Atoi(portStr)
	return "127.0.0.1", p, ch
}

func recvLine(t *testing.T, lines <-chan string) string {
	t.Helper()
	select {
	case line, ok := <-lines:
		if !ok {
			t.Fatal("observer closed before a line arrived")
		}
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for observer line")
		return ""
	}
}

func TestSendDeliversNDJSON(t *testing.T) {
	host, port, lines := testObserver(t)

	c, err := Dial(Config{Host: host, Port: port})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	if !c.Active() {
		t.Fatal("Expected active client after successful dial")
	}

	c.Send(event.CrossFileCall{
		Type:        event.TypeCrossFileCall,
		FromFile:    "/proj/a.py",
		ToFile:      "/proj/b.py",
		FromEventID: 1,
		ToEventID:   2,
	})

	var msg map[string]any
	if err := json.Unmarshal([]byte(recvLine(t, lines)), &msg); err != nil {
		t.Fatalf("Observer received invalid JSON: %v", err)
	}
	if msg["type"] != event.TypeCrossFileCall {
		t.Errorf("Expected cross_file_call message, got %v", msg["type"])
	}
	if msg["from_file"] != "/proj/a.py" {
		t.Errorf("Expected from_file /proj/a.py, got %v", msg["from_file"])
	}
}

func TestDialFailureYieldsInactiveClient(t *testing.T) {
	// Grab a port and close it so nothing listens there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	_ = ln.Close()

	c, err := Dial(Config{Host: "127.0.0.1", Port: port, DialTimeout: 500 * time.Millisecond})
	if err == nil {
		t.Fatal("Expected dial error for closed port")
	}
	if c == nil {
		t.Fatal("Expected inactive client alongside the error")
	}
	if c.Active() {
		t.Error("Expected inactive client after failed dial")
	}

	// Sends on a dead client are silent no-ops.
	c.Send(event.Heartbeat{Type: event.TypeHeartbeat, Seq: 1})
	if err := c.Close(); err != nil {
		t.Errorf("Close on never-connected client: %v", err)
	}
}

func TestSendAfterPeerClosesDeactivates(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	c, err := Dial(Config{Host: "127.0.0.1", Port: port})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	conn := <-accepted
	_ = conn.Close()

	// The peer is gone; repeated sends must eventually observe the failure
	// and deactivate. TCP buffering can absorb the first writes.
	deadline := time.Now().Add(2 * time.Second)
	for c.Active() && time.Now().Before(deadline) {
		c.Send(event.Heartbeat{Type: event.TypeHeartbeat, Seq: 1})
		time.Sleep(10 * time.Millisecond)
	}
	if c.Active() {
		t.Fatal("Expected client to deactivate after peer closed")
	}

	// Further sends stay silent no-ops for the rest of the session.
	c.Send(event.Heartbeat{Type: event.TypeHeartbeat, Seq: 2})
}

func TestCloseTwice(t *testing.T) {
	host, port, _ := testObserver(t)

	c, err := Dial(Config{Host: host, Port: port})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("First close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Second close: %v", err)
	}
	if c.Active() {
		t.Error("Expected inactive client after close")
	}
}

func TestHeartbeatEmits(t *testing.T) {
	host, port, lines := testObserver(t)

	c, err := Dial(Config{Host: host, Port: port})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	hb := StartHeartbeat(c, 20*time.Millisecond)
	if hb == nil {
		t.Fatal("Expected running heartbeat")
	}
	defer hb.Stop()

	var msg map[string]any
	if err := json.Unmarshal([]byte(recvLine(t, lines)), &msg); err != nil {
		t.Fatalf("Invalid heartbeat JSON: %v", err)
	}
	if msg["type"] != event.TypeHeartbeat {
		t.Errorf("Expected heartbeat message, got %v", msg["type"])
	}
	if msg["seq"] != float64(1) {
		t.Errorf("Expected seq 1, got %v", msg["seq"])
	}
}

func TestHeartbeatDisabled(t *testing.T) {
	if hb := StartHeartbeat(nil, time.Second); hb != nil {
		t.Error("Expected nil heartbeat for nil client")
	}

	host, port, _ := testObserver(t)
	c, err := Dial(Config{Host: host, Port: port})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	if hb := StartHeartbeat(c, 0); hb != nil {
		t.Error("Expected nil heartbeat for zero interval")
	}

	// Stop on nil must be safe.
	var hb *Heartbeat
	hb.Stop()
}
