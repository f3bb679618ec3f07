package tracer

import "sightline/internal/state"

// Statistics summarizes a completed tracing session. Computed from locally
// accumulated data, so it is valid even when no event was ever transmitted.
type Statistics struct {
	SessionID       string                   `json:"session_id"`
	TotalEvents     uint64                   `json:"total_events"`
	TotalFunctions  int                      `json:"total_functions"`
	FunctionTimings map[string]state.Summary `json:"function_timings"`
}
