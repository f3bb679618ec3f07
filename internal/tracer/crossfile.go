package tracer

import (
	"time"

	"sightline/internal/event"
)

// observeFileTransition derives cross-file flow from consecutive
// notifications: whenever the current notification's file differs from the
// previous one while the call stack is non-empty, a CrossFileCall linking
// the open frame to the current event is recorded and streamed. Both call
// transitions (A into B) and return transitions (B back to A) produce a
// record.
//
// Callers hold the session mutex.
func (s *Session) observeFileTransition(file string, toEventID uint64, now time.Time) {
	if s.currentFile != "" && s.currentFile != file {
		if top, ok := s.tracker.Top(); ok {
			rec := event.CrossFileCall{
				Type:        event.TypeCrossFileCall,
				FromFile:    s.currentFile,
				ToFile:      file,
				FromEventID: top.EventID,
				ToEventID:   toEventID,
				Timestamp:   event.UnixSeconds(now),
			}
			s.crossFiles = append(s.crossFiles, rec)
			s.send(rec)
		}
	}
	s.currentFile = file
}
