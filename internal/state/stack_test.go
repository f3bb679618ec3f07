package state

import (
	"testing"
	"time"
)

func TestPushPopBalance(t *testing.T) {
	tr := NewTracker(nil)

	tr.Push(CallFrame{EventID: 1, Function: "main", Start: time.Now()})
	tr.Push(CallFrame{EventID: 2, Function: "helper", Start: time.Now()})
	if tr.Depth() != 2 {
		t.Fatalf("Expected depth 2, got %d", tr.Depth())
	}

	frame, elapsed, ok := tr.Pop("/proj/util.py", "helper")
	if !ok {
		t.Fatal("Expected successful pop")
	}
	if frame.EventID != 2 {
		t.Errorf("Expected popped frame event 2, got %d", frame.EventID)
	}
	if elapsed < 0 {
		t.Errorf("Expected non-negative elapsed time, got %v", elapsed)
	}
	if tr.Depth() != 1 {
		t.Errorf("Expected depth 1 after pop, got %d", tr.Depth())
	}

	top, ok := tr.Top()
	if !ok || top.EventID != 1 {
		t.Errorf("Expected frame 1 on top, got %+v ok=%v", top, ok)
	}
}

func TestPopEmptyStackIsNoOp(t *testing.T) {
	tr := NewTracker(nil)

	_, _, ok := tr.Pop("/proj/main.py", "main")
	if ok {
		t.Fatal("Expected pop on empty stack to report failure")
	}
	if tr.Depth() != 0 {
		t.Errorf("Expected depth to stay 0, got %d", tr.Depth())
	}

	// Subsequent pairs must still work after the underflow.
	tr.Push(CallFrame{EventID: 5, Function: "f", Start: time.Now()})
	frame, _, ok := tr.Pop("/proj/main.py", "f")
	if !ok || frame.EventID != 5 {
		t.Errorf("Expected pop of frame 5 after recovery, got %+v ok=%v", frame, ok)
	}
}

func TestLoopStartThenIterations(t *testing.T) {
	tr := NewTracker(nil)
	tr.Push(CallFrame{EventID: 1, Function: "main", Start: time.Now()})

	const header = 10

	obs := tr.ObserveLine(header, true)
	if !obs.LoopStart || obs.LoopIteration {
		t.Fatalf("Expected loop start on first visit, got %+v", obs)
	}
	if obs.Iteration != 0 {
		t.Errorf("Expected iteration 0 at loop start, got %d", obs.Iteration)
	}

	// Body line keeps the frame alive and reports the current iteration.
	obs = tr.ObserveLine(11, false)
	if !obs.InLoop || obs.Iteration != 0 {
		t.Errorf("Expected body line inside loop at iteration 0, got %+v", obs)
	}

	for want := 1; want <= 4; want++ {
		obs = tr.ObserveLine(header, true)
		if !obs.LoopIteration {
			t.Fatalf("Expected iteration on revisit %d, got %+v", want, obs)
		}
		if obs.Iteration != want {
			t.Errorf("Expected iteration counter %d, got %d", want, obs.Iteration)
		}
	}
}

func TestNestedLoops(t *testing.T) {
	tr := NewTracker(nil)
	tr.Push(CallFrame{EventID: 1, Function: "main", Start: time.Now()})

	if obs := tr.ObserveLine(10, true); !obs.LoopStart {
		t.Fatalf("Expected outer loop start, got %+v", obs)
	}
	if obs := tr.ObserveLine(11, true); !obs.LoopStart {
		t.Fatalf("Expected inner loop start, got %+v", obs)
	}
	if tr.LoopDepth() != 2 {
		t.Errorf("Expected 2 loop frames, got %d", tr.LoopDepth())
	}

	// Inner header revisits increment the inner frame only.
	obs := tr.ObserveLine(11, true)
	if !obs.LoopIteration || obs.Iteration != 1 {
		t.Errorf("Expected inner iteration 1, got %+v", obs)
	}
}

func TestLoopFramesUnwindWithCallStack(t *testing.T) {
	tr := NewTracker(nil)
	tr.Push(CallFrame{EventID: 1, Function: "outer", Start: time.Now()})
	tr.Push(CallFrame{EventID: 2, Function: "inner", Start: time.Now()})

	// Loop inside the inner function.
	tr.ObserveLine(20, true)
	tr.ObserveLine(20, true)
	if tr.LoopDepth() != 1 {
		t.Fatalf("Expected 1 loop frame, got %d", tr.LoopDepth())
	}

	// Returning from inner drops its loop frames.
	tr.Pop("/proj/inner.py", "inner")
	tr.ObserveLine(5, false)
	if tr.LoopDepth() != 0 {
		t.Errorf("Expected loop frames dropped after unwind, got %d", tr.LoopDepth())
	}
}

// The pop policy is deliberately conservative: a loop left via break keeps
// its frame until the enclosing call unwinds, so a later revisit of the same
// header counts as an iteration, not a fresh start. Documented imprecision.
func TestLoopEarlyExitKeepsFrame(t *testing.T) {
	tr := NewTracker(nil)
	tr.Push(CallFrame{EventID: 1, Function: "main", Start: time.Now()})

	tr.ObserveLine(10, true)  // start
	tr.ObserveLine(15, false) // line after break
	if tr.LoopDepth() != 1 {
		t.Fatalf("Expected stale frame retained, got %d", tr.LoopDepth())
	}

	obs := tr.ObserveLine(10, true)
	if !obs.LoopIteration {
		t.Errorf("Expected revisit to count as iteration under conservative policy, got %+v", obs)
	}
}

func TestTimingsAggregate(t *testing.T) {
	tr := NewTracker(nil)

	for i := 0; i < 3; i++ {
		tr.Push(CallFrame{EventID: uint64(i + 1), Function: "f", Start: time.Now().Add(-time.Millisecond)})
		_, _, ok := tr.Pop("/proj/main.py", "f")
		if !ok {
			t.Fatal("Expected balanced pop")
		}
	}

	if tr.Functions() != 1 {
		t.Fatalf("Expected 1 timed function, got %d", tr.Functions())
	}

	timings := tr.Timings()
	s, ok := timings["/proj/main.py::f"]
	if !ok {
		t.Fatalf("Expected timing key /proj/main.py::f, got %v", timings)
	}
	if s.Calls != 3 {
		t.Errorf("Expected 3 calls, got %d", s.Calls)
	}
	if s.TotalTime <= 0 {
		t.Errorf("Expected positive total time, got %f", s.TotalTime)
	}
	if s.MinTime > s.AvgTime || s.AvgTime > s.MaxTime {
		t.Errorf("Expected min <= avg <= max, got %+v", s)
	}
	sum := s.AvgTime * float64(s.Calls)
	if diff := sum - s.TotalTime; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected avg*calls == total, got %f vs %f", sum, s.TotalTime)
	}
}
