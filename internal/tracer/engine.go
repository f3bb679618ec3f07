package tracer

import "sync"

// HookEngine is a minimal Engine for notification sources that deliver
// programmatically: replay streams and tests. Notify forwards to the
// installed hook, if any.
type HookEngine struct {
	mu   sync.RWMutex
	hook Hook
}

// Install sets the active hook.
func (e *HookEngine) Install(h Hook) {
	e.mu.Lock()
	e.hook = h
	e.mu.Unlock()
}

// Uninstall clears the active hook. No Notify started after Uninstall
// returns will reach the previous hook.
func (e *HookEngine) Uninstall() {
	e.mu.Lock()
	e.hook = nil
	e.mu.Unlock()
}

// Notify forwards one notification to the installed hook.
func (e *HookEngine) Notify(n Notification) {
	e.mu.RLock()
	h := e.hook
	e.mu.RUnlock()
	if h != nil {
		h(n)
	}
}
