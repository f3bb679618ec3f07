package transport

import (
	"sync"
	"time"

	"sightline/internal/event"
)

// Heartbeat periodically emits heartbeat control messages so the observer
// can distinguish a quiet traced program from a dead connection.
type Heartbeat struct {
	client   *Client
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// StartHeartbeat creates and starts a heartbeat goroutine. Returns nil when
// the client is inactive or the interval is not positive.
func StartHeartbeat(client *Client, interval time.Duration) *Heartbeat {
	if client == nil || !client.Active() || interval <= 0 {
		return nil
	}

	h := &Heartbeat{
		client:   client,
		interval: interval,
		stopCh:   make(chan struct{}),
	}

	h.mu.Lock()
	h.started = true
	h.mu.Unlock()

	h.wg.Add(1)
	go h.run()

	return h
}

func (h *Heartbeat) run() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	seq := uint64(0)
	for {
		select {
		case <-ticker.C:
			seq++
			h.client.Send(event.Heartbeat{
				Type:      event.TypeHeartbeat,
				Seq:       seq,
				Timestamp: event.UnixSeconds(time.Now()),
			})
		case <-h.stopCh:
			return
		}
	}
}

// Stop gracefully stops the heartbeat goroutine and waits for it to finish.
// Safe to call on a nil Heartbeat.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}

	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return
	}
	h.started = false
	h.mu.Unlock()

	close(h.stopCh)
	h.wg.Wait()
}
