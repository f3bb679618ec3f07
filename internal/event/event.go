package event

import "time"

// TraceEvent is one observed instant of the traced program. Events are
// immutable once built; optional fields are pointers so absent values
// serialize as null, matching what stream consumers expect.
type TraceEvent struct {
	EventType EntityType `json:"event_type" msgpack:"event_type"`
	Timestamp float64    `json:"timestamp" msgpack:"timestamp"`
	EventID   uint64     `json:"event_id" msgpack:"event_id"`

	// Location
	FilePath     string  `json:"file_path" msgpack:"file_path"`
	LineNumber   int     `json:"line_number" msgpack:"line_number"`
	FunctionName string  `json:"function_name" msgpack:"function_name"`
	ClassName    *string `json:"class_name" msgpack:"class_name"`
	ModuleName   string  `json:"module_name" msgpack:"module_name"`

	// Code context
	LineContent string `json:"line_content" msgpack:"line_content"`

	// Execution context
	CallStackDepth int            `json:"call_stack_depth" msgpack:"call_stack_depth"`
	ParentEventID  *uint64        `json:"parent_event_id" msgpack:"parent_event_id"`
	ScopeID        string         `json:"scope_id" msgpack:"scope_id"`
	EntityData     map[string]any `json:"entity_data" msgpack:"entity_data"`

	// Performance, populated on return-class events only
	ExecutionTime *float64 `json:"execution_time" msgpack:"execution_time"`
	MemoryDelta   *int64   `json:"memory_delta" msgpack:"memory_delta"`

	// Relationships for event-graph navigation
	CallsTo    []uint64 `json:"calls_to" msgpack:"calls_to"`
	CalledFrom *uint64  `json:"called_from" msgpack:"called_from"`
}

// UnixSeconds converts a wall-clock time to the fractional Unix seconds form
// used throughout the wire format.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
