package classify

// HintType is the structural category a source line classifies into.
type HintType uint8

const (
	// HintSimple is the fallback for anything unrecognized, including lines
	// that are not syntactically complete in isolation.
	HintSimple HintType = iota
	HintLoop
	HintConditional
	HintTryExcept
	HintContextManager
	HintComprehension
	HintLambda
	HintAssignment
	HintImport
)

// String returns the wire tag for the hint type.
func (h HintType) String() string {
	switch h {
	case HintLoop:
		return "loop"
	case HintConditional:
		return "conditional"
	case HintTryExcept:
		return "try_except"
	case HintContextManager:
		return "context_manager"
	case HintComprehension:
		return "comprehension"
	case HintLambda:
		return "lambda"
	case HintAssignment:
		return "assignment"
	case HintImport:
		return "import"
	default:
		return "simple_statement"
	}
}

// rank orders hints for selection when one line contains several constructs.
// Lower wins: loop > conditional > try > with > comprehension > lambda >
// assignment > import.
func (h HintType) rank() int {
	switch h {
	case HintLoop:
		return 0
	case HintConditional:
		return 1
	case HintTryExcept:
		return 2
	case HintContextManager:
		return 3
	case HintComprehension:
		return 4
	case HintLambda:
		return 5
	case HintAssignment:
		return 6
	case HintImport:
		return 7
	default:
		return 100
	}
}

// Hint is the classification result for one source line.
type Hint struct {
	Type HintType

	// LoopType is "For" or "While" when Type is HintLoop.
	LoopType string

	// CompType names the comprehension flavor when Type is HintComprehension.
	CompType string

	// Variables holds assignment target names when Type is HintAssignment.
	Variables []string
}

// Data renders the hint as the entity_data payload shape consumers expect.
func (h Hint) Data() map[string]any {
	data := map[string]any{"type": h.Type.String()}
	switch h.Type {
	case HintLoop:
		data["loop_type"] = h.LoopType
	case HintConditional:
		data["has_elif"] = false
		data["has_else"] = false
	case HintComprehension:
		data["comp_type"] = h.CompType
	case HintAssignment:
		data["variables"] = h.Variables
	}
	return data
}
