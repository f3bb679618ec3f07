package event

// Control message discriminators. Trace events and control messages share one
// connection; consumers dispatch on the "type" field, which trace events lack.
const (
	TypeFileMetadata  = "file_metadata"
	TypeCrossFileCall = "cross_file_call"
	TypeHeartbeat     = "heartbeat"
)

// FileMetadata carries a newly registered source file to the observer so it
// can render the file without a separate read.
type FileMetadata struct {
	Type         string   `json:"type" msgpack:"type"`
	FilePath     string   `json:"file_path" msgpack:"file_path"`
	RelativePath string   `json:"relative_path" msgpack:"relative_path"`
	Code         string   `json:"code" msgpack:"code"`
	Lines        []string `json:"lines" msgpack:"lines"`
	TotalLines   int      `json:"total_lines" msgpack:"total_lines"`
	Timestamp    float64  `json:"timestamp" msgpack:"timestamp"`
}

// CrossFileCall records control flow crossing between two source files, in
// either direction. Append-only; never mutated after creation.
type CrossFileCall struct {
	Type        string  `json:"type" msgpack:"type"`
	FromFile    string  `json:"from_file" msgpack:"from_file"`
	ToFile      string  `json:"to_file" msgpack:"to_file"`
	FromEventID uint64  `json:"from_event_id" msgpack:"from_event_id"`
	ToEventID   uint64  `json:"to_event_id" msgpack:"to_event_id"`
	Timestamp   float64 `json:"timestamp" msgpack:"timestamp"`
}

// Heartbeat is a periodic liveness signal so the observer can tell a quiet
// program from a dead connection.
type Heartbeat struct {
	Type      string  `json:"type" msgpack:"type"`
	Seq       uint64  `json:"seq" msgpack:"seq"`
	Timestamp float64 `json:"timestamp" msgpack:"timestamp"`
}
