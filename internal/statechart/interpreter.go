package statechart

import (
	"fmt"
	"sync"

	"github.com/comalice/roomforge/internal/logic"
)

// ActionRunner executes one action descriptor against the current view.
// Implementations (internal/actions.Runtime) own parameter rendering,
// mutation of the replicated data graph, and the fixed action catalogue;
// the interpreter only knows how to walk transitions and call this once
// per action in an entry/exit/transition list.
//
// Grounded on the teacher's extensibility.ActionRunner interface — same
// single-method seam, generalized from "type-switch a hierarchical
// ActionSpec" to "look up a whitelisted name in a catalogue".
type ActionRunner interface {
	Run(view map[string]any, action ActionDef) error
}

// Interpreter runs one MachineDef instance: current state, server-only
// context, and the delayed "after" timers armed for whichever state is
// current. It is not safe for concurrent use — the room serializes access
// (§5), the same discipline the teacher's core.Machine enforces with its
// own event-queue goroutine.
type Interpreter struct {
	mu      sync.Mutex
	def     *MachineDef
	current string
	context    map[string]any
	data       any
	staticData map[string]any
	runner     ActionRunner
	clock   Clock
	timers  []Timer
}

// Option configures an Interpreter at construction, mirroring the
// teacher's functional-options constructors in primitives/options.go.
type Option func(*Interpreter)

// WithContext seeds the interpreter's server-only context. Defaults to the
// machine definition's own Context block when omitted.
func WithContext(ctx map[string]any) Option {
	return func(i *Interpreter) { i.context = ctx }
}

// WithData attaches the replicated root record (typically a
// *schema.Instance) that actions mutate and guards read as view.state.
func WithData(data any) Option {
	return func(i *Interpreter) { i.data = data }
}

// WithClock overrides the default RealClock, primarily for deterministic
// tests driving a ManualClock.
func WithClock(c Clock) Option {
	return func(i *Interpreter) { i.clock = c }
}

// WithStaticData attaches the definition's free-form `data` block, exposed
// to guards and actions read-only as view.data (§3.1).
func WithStaticData(data map[string]any) Option {
	return func(i *Interpreter) { i.staticData = data }
}

// New builds an Interpreter for def with runner as its action dispatcher.
// def must already have passed Validate.
func New(def *MachineDef, runner ActionRunner, opts ...Option) *Interpreter {
	i := &Interpreter{
		def:     def,
		context: map[string]any{},
		runner:  runner,
		clock:   NewRealClock(),
	}
	for k, v := range def.Context {
		i.context[k] = v
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Current returns the active state's name.
func (i *Interpreter) Current() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.current
}

// CurrentView returns the {event, context, state, data} view as it stands
// right now, with an empty event. Callers that need it for a purpose other
// than "reacting to the event currently being dispatched" (the scheduler
// firing a batch after the triggering dispatch has long since returned)
// use this and substitute their own captured event.
func (i *Interpreter) CurrentView() map[string]any {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.view(Event{})
}

// Context returns the interpreter's server-only context store. Callers
// must not retain the map beyond the current dispatch — it is the live
// store, not a snapshot.
func (i *Interpreter) Context() map[string]any {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.context
}

// Start enters the machine's initial state: runs its entry actions and
// arms its after timers. Must be called exactly once before Send.
func (i *Interpreter) Start() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.enter(i.def.Initial, Event{Type: "$init"})
}

// Send dispatches an inbound event: it evaluates the current state's `on`
// handlers for eventType in declared order, runs the first transition
// whose cond (if any) evaluates truthy, and executes exit/transition/entry
// actions in that order (§4.F dispatch algorithm). A state with no handler
// for eventType, or one where every candidate's cond is false, drops the
// event silently — never an error.
func (i *Interpreter) Send(eventType string, payload any) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	state, ok := i.def.States[i.current]
	if !ok {
		return fmt.Errorf("statechart: current state %q not found", i.current)
	}
	candidates, ok := state.On[eventType]
	if !ok {
		return nil
	}
	ev := Event{Type: eventType, Data: payload}
	view := i.view(ev)

	t, ok := pickTransition(candidates, view)
	if !ok {
		return nil
	}
	return i.fireTransition(state, t, view)
}

// fireAfter is invoked by the clock when a state's after-delay elapses. It
// re-validates that the state that armed the timer is still current
// (guards against a stale callback racing a transition that already left
// the state) before evaluating the same cond-first-truthy selection.
func (i *Interpreter) fireAfter(armedIn string, candidates []TransitionDef) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.current != armedIn {
		return
	}
	state := i.def.States[i.current]
	view := i.view(Event{Type: "$after"})
	t, ok := pickTransition(candidates, view)
	if !ok {
		return
	}
	i.fireTransition(state, t, view)
}

func (i *Interpreter) fireTransition(from *StateDef, t TransitionDef, view map[string]any) error {
	changingState := t.Target != "" && t.Target != i.current

	if changingState {
		i.cancelTimers()
		if err := i.runActions(from.Exit, view); err != nil {
			return err
		}
	}
	if err := i.runActions(t.Actions, view); err != nil {
		return err
	}
	if changingState {
		return i.enter(t.Target, Event{Type: "$init"})
	}
	return nil
}

// enter must be called with mu held. It sets current, runs entry actions,
// and arms after timers for the new state.
func (i *Interpreter) enter(name string, initEvent Event) error {
	state, ok := i.def.States[name]
	if !ok {
		return fmt.Errorf("statechart: unknown state %q", name)
	}
	i.current = name
	view := i.view(initEvent)
	if err := i.runActions(state.Entry, view); err != nil {
		return err
	}
	i.armAfterTimers(name, state)
	return nil
}

func (i *Interpreter) armAfterTimers(name string, state *StateDef) {
	for delayKey, transitions := range state.After {
		ms, err := parseDelayMs(delayKey)
		if err != nil {
			continue
		}
		candidates := transitions
		i.timers = append(i.timers, i.clock.AfterFunc(ms, func() {
			i.fireAfter(name, candidates)
		}))
	}
}

func (i *Interpreter) cancelTimers() {
	for _, t := range i.timers {
		t.Stop()
	}
	i.timers = nil
}

func (i *Interpreter) runActions(actions []ActionDef, view map[string]any) error {
	for _, a := range actions {
		if err := i.runner.Run(view, a); err != nil {
			return fmt.Errorf("statechart: action %q: %w", a.Action, err)
		}
	}
	return nil
}

// view must be called with mu held. Per the view contract {event, context,
// state, data}: "state" is the replicated root record (so guard/action
// paths like "state.players.A.score" resolve), "data" is the definition's
// static data block — the FSM's own current-state name is an interpreter
// internal, never exposed to guards or actions.
//
// Instance/Collection/Sequence already implement the Path Resolver's
// Fielded/Keyed contract directly, so the live replicated graph can serve
// as the guard view's "state" without a separate plain-snapshot copy; the
// logic evaluator converts each class-backed value a guard reads into
// plain data.
func (i *Interpreter) view(ev Event) map[string]any {
	return map[string]any{
		"event":   ev.view(),
		"state":   i.data,
		"context": i.context,
		"data":    i.staticData,
	}
}

// pickTransition selects the first candidate whose cond is absent or
// evaluates truthy. A cond tree that errors (malformed logic node) is
// treated as false and the search continues to the next candidate (§7:
// "guard error... treat the guard as false; continue transition search").
func pickTransition(candidates []TransitionDef, view map[string]any) (TransitionDef, bool) {
	for _, t := range candidates {
		if t.Cond == nil {
			return t, true
		}
		if ok, err := logic.Bool(t.Cond, view); ok && err == nil {
			return t, true
		}
	}
	return TransitionDef{}, false
}
