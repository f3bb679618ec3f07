package event

// EntityType is the closed set of semantic categories a captured instant is
// classified into. Values are the wire tags sent to the observer.
type EntityType string

const (
	FunctionCall    EntityType = "function_call"
	FunctionReturn  EntityType = "function_return"
	MethodCall      EntityType = "method_call"
	MethodReturn    EntityType = "method_return"
	ClassInit       EntityType = "class_init"
	LineExecution   EntityType = "line_execution"
	LoopStart       EntityType = "loop_start"
	LoopIteration   EntityType = "loop_iteration"
	LoopEnd         EntityType = "loop_end"
	ConditionalIf   EntityType = "conditional_if"
	ConditionalElif EntityType = "conditional_elif"
	ConditionalElse EntityType = "conditional_else"
	ExceptionRaised EntityType = "exception_raised"
	ExceptionCaught EntityType = "exception_caught"
	VarAssignment   EntityType = "variable_assignment"
	ReturnValue     EntityType = "return_value"
	ImportModule    EntityType = "import_module"
	Comprehension   EntityType = "comprehension"
	Lambda          EntityType = "lambda"
	Decorator       EntityType = "decorator"
)

// IsCall reports whether the entity opens a call frame.
func (t EntityType) IsCall() bool {
	return t == FunctionCall || t == MethodCall
}

// IsReturn reports whether the entity closes a call frame.
func (t EntityType) IsReturn() bool {
	return t == FunctionReturn || t == MethodReturn
}
