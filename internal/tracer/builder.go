package tracer

import (
	"fmt"
	"time"

	"sightline/internal/event"
)

// build composes a complete trace event from a notification plus the context
// held by the session: the next event id, parent linkage from the call
// stack, the scope id, and cached line content. The event is appended to the
// session-wide history and the per-file feed before it is returned, so both
// feeds stay consistent.
//
// Callers hold the session mutex.
func (s *Session) build(etype event.EntityType, n Notification, data map[string]any) *event.TraceEvent {
	s.counter++
	now := time.Now()

	s.registerFile(n.File)
	s.observeFileTransition(n.File, s.counter, now)
	s.registry.MarkExecuted(n.File, n.Line)

	var className *string
	if name, isMethod := receiver(n); isMethod {
		className = &name
	}

	var parent *uint64
	if top, ok := s.tracker.Top(); ok {
		id := top.EventID
		parent = &id
	}

	depth := s.tracker.Depth()

	ev := &event.TraceEvent{
		EventType:      etype,
		Timestamp:      event.UnixSeconds(now),
		EventID:        s.counter,
		FilePath:       n.File,
		LineNumber:     n.Line,
		FunctionName:   n.Function,
		ClassName:      className,
		ModuleName:     n.Module,
		LineContent:    s.registry.LineContent(n.File, n.Line),
		CallStackDepth: depth,
		ParentEventID:  parent,
		ScopeID:        fmt.Sprintf("%s::%s::%d", n.Module, n.Function, depth),
		EntityData:     data,
	}

	s.events = append(s.events, ev)
	if _, known := s.registry.Lookup(n.File); known {
		s.fileEvents[n.File] = append(s.fileEvents[n.File], ev)
	}
	return ev
}
