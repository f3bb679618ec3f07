package tracer

// NotifyKind identifies the four notification boundaries delivered by the
// execution engine.
type NotifyKind string

const (
	NotifyCall      NotifyKind = "call"
	NotifyLine      NotifyKind = "line"
	NotifyReturn    NotifyKind = "return"
	NotifyException NotifyKind = "exception"
)

// BindingKind describes what the engine reported a bound value to be. The
// distinction is a capability check made by the engine at capture time, not
// a static type judgment.
type BindingKind string

const (
	BindPlain    BindingKind = "plain"
	BindInstance BindingKind = "instance"
	BindClass    BindingKind = "class"
)

// Binding is one name-to-value pair from the paused frame.
type Binding struct {
	Name     string      `json:"name"`
	Value    any         `json:"value"`
	TypeName string      `json:"type_name,omitempty"`
	Kind     BindingKind `json:"kind,omitempty"`
}

// Notification is one low-level engine callback at a call, line, return, or
// exception boundary.
type Notification struct {
	Kind     NotifyKind `json:"kind"`
	File     string     `json:"file"`
	Line     int        `json:"line"`
	Function string     `json:"function"`
	Module   string     `json:"module"`

	// Bindings holds frame locals in declaration order; for method frames the
	// receiver comes first.
	Bindings []Binding `json:"bindings,omitempty"`

	// Args holds the positional arguments, a subset of Bindings.
	Args []Binding `json:"args,omitempty"`

	// Value is the return value on return notifications.
	Value any `json:"value,omitempty"`

	// MemoryDelta is an optional engine-reported heap delta for the returning
	// frame.
	MemoryDelta *int64 `json:"memory_delta,omitempty"`

	// Exception details on exception notifications.
	ExcType    string `json:"exc_type,omitempty"`
	ExcMessage string `json:"exc_message,omitempty"`
}

// receiver resolves the method-versus-function distinction for a frame:
// a call is a method call when its first binding exposes an instance or
// class identity. Decided once at call capture, never re-derived.
func receiver(n Notification) (className string, isMethod bool) {
	if len(n.Bindings) == 0 {
		return "", false
	}
	first := n.Bindings[0]
	if first.Kind == BindInstance || first.Kind == BindClass {
		return first.TypeName, true
	}
	return "", false
}

// Hook receives notifications from the execution engine.
type Hook func(Notification)

// Engine is the execution-side collaborator a session installs its hook
// into. Uninstall must guarantee no hook invocation begins after it returns.
type Engine interface {
	Install(Hook)
	Uninstall()
}
