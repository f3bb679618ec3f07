package tracer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sightline/internal/classify"
	"sightline/internal/event"
	"sightline/internal/registry"
	"sightline/internal/state"
	"sightline/internal/transport"
)

// State is the session lifecycle phase.
type State uint8

const (
	StateIdle State = iota
	StateConnecting
	StateActive
	StateStopped
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config holds everything a session needs from the launcher.
type Config struct {
	Host        string
	Port        int
	ProjectRoot string

	// Encoding selects the wire codec: "ndjson" (default) or "msgpack".
	Encoding string

	// Heartbeat enables periodic liveness messages when positive.
	Heartbeat time.Duration

	// WriteTimeout bounds transport writes when positive.
	WriteTimeout time.Duration
	DialTimeout  time.Duration

	// Inclusion filters, applied before any processing.
	ExcludeFiles   []string
	ExcludeModules []string
	Include        []string // glob patterns against project-relative paths

	Logger *slog.Logger
}

// Session is one Idle-to-Stopped tracing lifecycle with its own isolated
// state and event-id space. All captured collections are owned by the
// session and discarded as a unit when it is garbage collected.
//
// A mutex serializes the capture pipeline so interleaved notifications from
// concurrently executing threads of the traced program cannot corrupt the
// call stack or the id counter.
type Session struct {
	mu  sync.Mutex
	cfg Config

	id     string
	st     State
	logger *slog.Logger
	ctx    context.Context

	engine     Engine
	classifier *classify.Classifier
	registry   *registry.Registry
	tracker    *state.Tracker
	client     *transport.Client
	hb         *transport.Heartbeat

	counter     uint64
	currentFile string

	events     []*event.TraceEvent
	fileEvents map[string][]*event.TraceEvent
	crossFiles []event.CrossFileCall

	excludeFiles   map[string]struct{}
	excludeModules map[string]struct{}

	final *Statistics
}

// NewSession creates an idle session wired to the given engine.
func NewSession(cfg Config, engine Engine) *Session {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 9876
	}
	if cfg.ProjectRoot == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.ProjectRoot = wd
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		cfg:            cfg,
		id:             uuid.NewString(),
		st:             StateIdle,
		logger:         logger,
		ctx:            context.Background(),
		engine:         engine,
		classifier:     classify.New(),
		tracker:        state.NewTracker(logger),
		fileEvents:     make(map[string][]*event.TraceEvent),
		excludeFiles:   make(map[string]struct{}),
		excludeModules: make(map[string]struct{}),
	}
	for _, f := range cfg.ExcludeFiles {
		s.excludeFiles[f] = struct{}{}
	}
	for _, m := range cfg.ExcludeModules {
		s.excludeModules[m] = struct{}{}
	}
	s.registry = registry.New(cfg.ProjectRoot, s.shouldTraceFile, logger)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

// Connected reports whether the transport still reaches the observer.
func (s *Session) Connected() bool {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	return client != nil && client.Active()
}

// Start attempts the observer connection and installs the notification hook.
// A failed connection is not fatal: the session still becomes active and
// capture proceeds locally with transmission disabled. Start returns an
// error only for configuration faults or a non-idle session.
func (s *Session) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.st != StateIdle {
		st := s.st
		s.mu.Unlock()
		return fmt.Errorf("cannot start session in state %s", st)
	}

	codec, err := event.ParseEncoding(s.cfg.Encoding)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	s.ctx = ctx
	s.st = StateConnecting

	client, dialErr := transport.Dial(transport.Config{
		Host:         s.cfg.Host,
		Port:         s.cfg.Port,
		Codec:        codec,
		DialTimeout:  s.cfg.DialTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		Logger:       s.logger,
	})
	s.client = client
	if dialErr != nil {
		s.logger.Warn("observer unreachable, capturing locally", "host", s.cfg.Host, "port", s.cfg.Port, "err", dialErr)
	} else {
		s.hb = transport.StartHeartbeat(client, s.cfg.Heartbeat)
	}

	s.st = StateActive
	s.mu.Unlock()

	s.engine.Install(s.Notify)
	return nil
}

// Stop uninstalls the hook, closes the transport, and returns the final
// statistics computed from locally accumulated data. Terminal: a stopped
// session cannot be resumed. Safe to invoke at any point, including while a
// notification is mid-flight, and safe to call twice.
func (s *Session) Stop() *Statistics {
	// Uninstall first so no notification can observe torn-down state.
	s.engine.Uninstall()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st == StateStopped {
		return s.final
	}

	s.hb.Stop()
	if s.client != nil {
		_ = s.client.Close()
	}

	s.st = StateStopped
	s.final = &Statistics{
		SessionID:       s.id,
		TotalEvents:     s.counter,
		TotalFunctions:  s.tracker.Functions(),
		FunctionTimings: s.tracker.Timings(),
	}
	return s.final
}

// Notify routes one engine notification through the capture pipeline. Any
// internal fault is caught here and converted to a logged warning: the
// tracer must never terminate the traced program.
func (s *Session) Notify(n Notification) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("trace handler fault", "panic", r, "file", n.File, "line", n.Line)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st != StateActive {
		return
	}
	if !s.shouldTrace(n) {
		return
	}

	switch n.Kind {
	case NotifyCall:
		s.handleCall(n)
	case NotifyLine:
		s.handleLine(n)
	case NotifyReturn:
		s.handleReturn(n)
	case NotifyException:
		s.handleException(n)
	}
}

// shouldTrace applies the inclusion filters, cheapest check first.
func (s *Session) shouldTrace(n Notification) bool {
	if n.File == "" || strings.HasPrefix(n.File, "<") {
		return false
	}
	if _, skip := s.excludeFiles[n.File]; skip {
		return false
	}
	if _, skip := s.excludeModules[n.Module]; skip {
		return false
	}
	return s.shouldTraceFile(n.File)
}

// shouldTraceFile is the path-level filter shared with the registry.
func (s *Session) shouldTraceFile(path string) bool {
	if path == "" || strings.HasPrefix(path, "<") {
		return false
	}
	if _, skip := s.excludeFiles[path]; skip {
		return false
	}
	if len(s.cfg.Include) == 0 {
		return true
	}
	rel, err := filepath.Rel(s.cfg.ProjectRoot, path)
	if err != nil {
		rel = path
	}
	for _, pattern := range s.cfg.Include {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(path)); ok {
			return true
		}
	}
	return false
}

func (s *Session) handleCall(n Notification) {
	className, isMethod := receiver(n)

	etype := event.FunctionCall
	if isMethod {
		etype = event.MethodCall
	}

	args := make(map[string]any, len(n.Args))
	for _, b := range n.Args {
		args[b.Name] = event.Repr(b.Value, 100)
	}

	data := map[string]any{
		"arguments":  args,
		"is_method":  isMethod,
		"class_name": nil,
	}
	if isMethod {
		data["class_name"] = className
	}

	ev := s.build(etype, n, data)
	s.tracker.Push(state.CallFrame{
		EventID:  ev.EventID,
		Function: n.Function,
		Start:    time.Now(),
	})
	s.send(ev)
}

func (s *Session) handleLine(n Notification) {
	s.registerFile(n.File)
	content := s.registry.LineContent(n.File, n.Line)

	hint := s.classifier.Classify(content)
	obs := s.tracker.ObserveLine(n.Line, hint.Type == classify.HintLoop)

	etype := lineEntity(hint, obs)

	variables := make(map[string]any)
	for _, b := range n.Bindings {
		if strings.HasPrefix(b.Name, "__") {
			continue
		}
		variables[b.Name] = event.Repr(b.Value, 100)
	}

	data := map[string]any{
		"ast_info":  hint.Data(),
		"variables": variables,
	}
	if obs.InLoop {
		data["iteration"] = obs.Iteration
	} else {
		data["iteration"] = nil
	}

	s.send(s.build(etype, n, data))
}

// lineEntity maps a classification hint plus loop context to the entity
// emitted for a line notification.
func lineEntity(hint classify.Hint, obs state.LineObservation) event.EntityType {
	switch hint.Type {
	case classify.HintLoop:
		if obs.LoopIteration {
			return event.LoopIteration
		}
		return event.LoopStart
	case classify.HintConditional:
		return event.ConditionalIf
	case classify.HintAssignment:
		return event.VarAssignment
	case classify.HintImport:
		return event.ImportModule
	case classify.HintComprehension:
		return event.Comprehension
	case classify.HintLambda:
		return event.Lambda
	default:
		return event.LineExecution
	}
}

func (s *Session) handleReturn(n Notification) {
	_, elapsed, ok := s.tracker.Pop(n.File, n.Function)
	if !ok {
		// Desynchronized stream; clamp and continue.
		return
	}

	_, isMethod := receiver(n)
	etype := event.FunctionReturn
	if isMethod {
		etype = event.MethodReturn
	}

	secs := elapsed.Seconds()
	data := map[string]any{
		"return_value":   event.Repr(n.Value, 200),
		"execution_time": secs,
		"is_method":      isMethod,
	}

	ev := s.build(etype, n, data)
	ev.ExecutionTime = &secs
	ev.MemoryDelta = n.MemoryDelta
	s.send(ev)
}

func (s *Session) handleException(n Notification) {
	data := map[string]any{
		"exception_type":    n.ExcType,
		"exception_message": n.ExcMessage,
		"is_caught":         false,
	}
	s.send(s.build(event.ExceptionRaised, n, data))
}

// registerFile registers a path on first sight and streams the file metadata
// message exactly once.
func (s *Session) registerFile(path string) {
	if f, created := s.registry.Register(s.ctx, path); created {
		s.send(f.Metadata())
	}
}

// send forwards a message to the transport; inactive transports swallow it.
func (s *Session) send(v any) {
	if s.client != nil {
		s.client.Send(v)
	}
}

// Events returns the session-wide ordered event history.
func (s *Session) Events() []*event.TraceEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*event.TraceEvent, len(s.events))
	copy(out, s.events)
	return out
}

// FileEvents returns the per-file event feed for path.
func (s *Session) FileEvents(path string) []*event.TraceEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	evs := s.fileEvents[path]
	out := make([]*event.TraceEvent, len(evs))
	copy(out, evs)
	return out
}

// CrossFileRecords returns the append-only cross-file transition log.
func (s *Session) CrossFileRecords() []event.CrossFileCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.CrossFileCall, len(s.crossFiles))
	copy(out, s.crossFiles)
	return out
}

// Registry exposes the session's file registry for inspection.
func (s *Session) Registry() *registry.Registry {
	return s.registry
}
