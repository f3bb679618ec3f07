// Package state reconstructs live execution context from the flat
// notification stream: the call stack, the loop stack, and per-function
// timing accumulators.
package state

import (
	"log/slog"
	"time"
)

// CallFrame is one live entry on the tracked call stack.
type CallFrame struct {
	EventID  uint64
	Function string
	Start    time.Time
}

// LoopFrame tracks one observed loop header. Frames are a stack, not a
// per-line map: nested loops share line-number space across recursive calls.
type LoopFrame struct {
	Line      int
	Depth     int // call stack depth when the header was first observed
	Iteration int
}

// LineObservation is the loop context derived for one line notification.
type LineObservation struct {
	LoopStart     bool
	LoopIteration bool
	Iteration     int
	InLoop        bool
}

// Tracker maintains the call stack, loop stack, and timing map for one
// session. Not safe for concurrent use; the session serializes access.
type Tracker struct {
	logger  *slog.Logger
	stack   []CallFrame
	loops   []LoopFrame
	timings map[string][]time.Duration
}

// NewTracker creates an empty Tracker.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		logger:  logger,
		timings: make(map[string][]time.Duration),
	}
}

// Depth returns the current call stack size.
func (t *Tracker) Depth() int { return len(t.stack) }

// Top returns the innermost open call frame.
func (t *Tracker) Top() (CallFrame, bool) {
	if len(t.stack) == 0 {
		return CallFrame{}, false
	}
	return t.stack[len(t.stack)-1], true
}

// Push opens a call frame.
func (t *Tracker) Push(frame CallFrame) {
	t.stack = append(t.stack, frame)
}

// Pop closes the innermost call frame and records its duration under
// "file::function". An unmatched return (empty stack) is a desynchronized
// stream, e.g. tracing attached after program start: logged, not fatal, and
// the stack is left untouched.
func (t *Tracker) Pop(file, function string) (CallFrame, time.Duration, bool) {
	if len(t.stack) == 0 {
		t.logger.Warn("return notification with empty call stack", "file", file, "function", function)
		return CallFrame{}, 0, false
	}

	frame := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]

	elapsed := time.Since(frame.Start)
	key := file + "::" + function
	t.timings[key] = append(t.timings[key], elapsed)

	// Loop frames opened inside the popped frame are now unreachable.
	t.unwindLoops(len(t.stack))

	return frame, elapsed, true
}

// ObserveLine updates the loop stack for a line-level notification.
//
// The first time a line number with a loop hint is seen while it is not
// already top-of-stack, it is a loop start; every subsequent visit to that
// same line while its frame stays on top is an iteration. Frames are popped
// only when the call stack unwinds past the depth they were recorded at; a
// stale frame can outlive an early loop exit, which callers must tolerate.
func (t *Tracker) ObserveLine(line int, isLoop bool) LineObservation {
	t.unwindLoops(len(t.stack))

	var obs LineObservation
	if isLoop {
		if n := len(t.loops); n > 0 && t.loops[n-1].Line == line {
			t.loops[n-1].Iteration++
			obs.LoopIteration = true
		} else {
			t.loops = append(t.loops, LoopFrame{Line: line, Depth: len(t.stack)})
			obs.LoopStart = true
		}
	}

	if n := len(t.loops); n > 0 {
		obs.InLoop = true
		obs.Iteration = t.loops[n-1].Iteration
	}
	return obs
}

// LoopDepth returns the current loop stack size.
func (t *Tracker) LoopDepth() int { return len(t.loops) }

// unwindLoops drops loop frames recorded at call depths deeper than depth.
func (t *Tracker) unwindLoops(depth int) {
	for len(t.loops) > 0 && t.loops[len(t.loops)-1].Depth > depth {
		t.loops = t.loops[:len(t.loops)-1]
	}
}
