package event

import "fmt"

// Unprintable is the placeholder emitted when a value cannot be rendered.
const Unprintable = "<unprintable>"

// Repr renders a capped, lossy, human-readable representation of v. It never
// fails: rendering faults degrade to the Unprintable placeholder, and output
// longer than limit bytes is cut. A nil value renders as "None" to keep
// parity with the stream the observer already understands.
func Repr(v any, limit int) (out string) {
	defer func() {
		if recover() != nil {
			out = Unprintable
		}
	}()

	if v == nil {
		return "None"
	}

	var s string
	switch val := v.(type) {
	case string:
		s = "'" + val + "'"
	case bool:
		if val {
			s = "True"
		} else {
			s = "False"
		}
	case fmt.Stringer:
		s = val.String()
	default:
		s = fmt.Sprintf("%v", v)
	}

	if limit > 0 && len(s) > limit {
		s = s[:limit]
	}
	return s
}
