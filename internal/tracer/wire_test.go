package tracer

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"strconv"
	"testing"
	"time"

	"sightline/internal/event"
)

// collectLines accepts one connection and feeds every NDJSON line into a
// channel until the peer closes.
func collectLines(t *testing.T, ln net.Listener) <-chan string {
	t.Helper()
	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		sc := bufio.NewScanner(conn)
		sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return lines
}

func TestSessionStreamsNDJSONToObserver(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	lines := collectLines(t, ln)

	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	dir := t.TempDir()
	src := writeSource(t, dir, "main.py", mainSource)

	engine := &HookEngine{}
	sess := NewSession(Config{Host: "127.0.0.1", Port: port, ProjectRoot: dir}, engine)
	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !sess.Connected() {
		t.Fatal("Expected connected transport")
	}

	engine.Notify(Notification{Kind: NotifyCall, File: src, Line: 1, Function: "main", Module: "__main__"})
	engine.Notify(Notification{Kind: NotifyLine, File: src, Line: 2, Function: "main", Module: "__main__"})
	engine.Notify(Notification{Kind: NotifyReturn, File: src, Line: 5, Function: "main", Module: "__main__", Value: 10})
	sess.Stop()

	var metadata, calls, returns, other int
	deadline := time.After(5 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				goto done
			}
			var msg map[string]any
			if err := json.Unmarshal([]byte(line), &msg); err != nil {
				t.Fatalf("Malformed wire line %q: %v", line, err)
			}
			switch {
			case msg["type"] == event.TypeFileMetadata:
				metadata++
				if msg["file_path"] != src {
					t.Errorf("Unexpected metadata path %v", msg["file_path"])
				}
				if msg["total_lines"] != float64(5) {
					t.Errorf("Expected 5 total lines, got %v", msg["total_lines"])
				}
			case msg["event_type"] == string(event.FunctionCall):
				calls++
				if msg["event_id"] != float64(1) {
					t.Errorf("Expected first event id 1, got %v", msg["event_id"])
				}
				if _, present := msg["parent_event_id"]; !present {
					t.Error("Expected parent_event_id key on the wire even when null")
				}
			case msg["event_type"] == string(event.FunctionReturn):
				returns++
				if msg["entity_data"].(map[string]any)["return_value"] != "10" {
					t.Errorf("Unexpected return payload: %v", msg["entity_data"])
				}
			default:
				other++
			}
		case <-deadline:
			t.Fatal("Timed out waiting for wire output")
		}
	}
done:
	if metadata != 1 {
		t.Errorf("Expected exactly one file_metadata message, got %d", metadata)
	}
	if calls != 1 || returns != 1 {
		t.Errorf("Expected one call and one return on the wire, got %d/%d", calls, returns)
	}
	if other != 1 {
		t.Errorf("Expected one line event, got %d extra messages", other)
	}
}

func TestObserverDisconnectDoesNotStopCapture(t *testing.T) {
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

	dir := t.TempDir()
	src := writeSource(t, dir, "main.py", mainSource)

	engine := &HookEngine{}
	sess := NewSession(Config{Host: "127.0.0.1", Port: port, ProjectRoot: dir}, engine)
	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	conn := <-accepted
	_ = conn.Close()

	// Transport deactivation may take a few writes to surface through TCP
	// buffering; capture must survive all of them.
	for i := 0; i < 50; i++ {
		engine.Notify(Notification{Kind: NotifyCall, File: src, Line: 1, Function: "main", Module: "__main__"})
		engine.Notify(Notification{Kind: NotifyReturn, File: src, Line: 5, Function: "main", Module: "__main__"})
	}
	stats := sess.Stop()

	if stats.TotalEvents != 100 {
		t.Errorf("Expected 100 captured events despite disconnect, got %d", stats.TotalEvents)
	}
	if s := stats.FunctionTimings[src+"::main"]; s.Calls != 50 {
		t.Errorf("Expected 50 timed calls, got %d", s.Calls)
	}
}
