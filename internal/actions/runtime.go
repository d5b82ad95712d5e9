// Package actions implements the fixed, whitelisted catalogue of
// operations a statechart definition may invoke: state mutators, instance
// constructors, the when/scheduleActions control-flow pair, and the
// broadcast/log side channels.
//
// Grounded on the teacher's extensibility.DefaultActionRunner (switch over
// a named action) wrapped by LoggingActionRunner (before/after logging of
// each dispatch) — generalized from the teacher's small hierarchical
// action set to the spec's larger flat catalogue, and from stdlib log to
// go.uber.org/zap structured logging per this repo's ambient stack.
package actions

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/comalice/roomforge/internal/render"
	"github.com/comalice/roomforge/internal/schema"
	"github.com/comalice/roomforge/internal/statechart"
)

// Broadcaster delivers a message to every client connected to the room.
// The Room Host implements this by delegating to its transport; the core
// never talks to a socket directly (§1 "explicitly out of scope").
type Broadcaster interface {
	Broadcast(event string, data any)
}

// Runtime is the Action Runtime (§4.E): it implements
// statechart.ActionRunner and dispatches each rendered action descriptor
// to its handler. A Runtime is not safe for concurrent use — like the
// Interpreter it drives, the room's serialized dispatch loop is its only
// caller (§5).
type Runtime struct {
	classes     *schema.ClassTable
	clock       statechart.Clock
	broadcaster Broadcaster
	logger      *zap.Logger
	currentView func() map[string]any
}

// New builds a Runtime. classes lets createInstance-family actions build
// typed instances by class name; clock backs scheduleActions; broadcaster
// backs the broadcast action; logger backs the log action and diagnostic
// output for skipped/unknown actions.
func New(classes *schema.ClassTable, clock statechart.Clock, broadcaster Broadcaster, logger *zap.Logger) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runtime{classes: classes, clock: clock, broadcaster: broadcaster, logger: logger}
}

// SetViewProvider wires the accessor a scheduled batch uses to build its
// fire-time view (fresh state/context/data, captured event). The room
// calls this once the Interpreter it will drive exists, since Runtime and
// Interpreter are constructed in a chicken-and-egg order (the interpreter
// needs a runner; the runner's scheduler needs the interpreter's view).
func (r *Runtime) SetViewProvider(f func() map[string]any) {
	r.currentView = f
}

// Run implements statechart.ActionRunner. Per §4.E's robustness policy, no
// per-action failure aborts the interpreter's dispatch: an unknown action
// name, a bad path, or a malformed parameter is logged and swallowed, and
// Run always returns nil. The single-file Interpreter caller can therefore
// treat every action list as running to completion.
func (r *Runtime) Run(view map[string]any, action statechart.ActionDef) error {
	rendered, ok := render.Value(action.Params, render.View(view)).(map[string]any)
	if !ok {
		rendered = map[string]any{}
	}

	handler, known := catalogue[action.Action]
	if !known {
		r.logger.Warn("action_runtime: unknown action, skipping", zap.String("action", action.Action))
		return nil
	}
	if err := handler(r, view, rendered); err != nil {
		r.logger.Warn("action_runtime: action failed, skipping",
			zap.String("action", action.Action), zap.Error(err))
	}
	return nil
}

type handlerFunc func(r *Runtime, view map[string]any, params map[string]any) error

var catalogue map[string]handlerFunc

func init() {
	catalogue = map[string]handlerFunc{
		"setState":                (*Runtime).doSetState,
		"increment":               (*Runtime).doIncrement,
		"incrementIfEqual":        (*Runtime).doIncrementIfEqual,
		"setFromData":             (*Runtime).doSetFromData,
		"setFromArray":            (*Runtime).doSetFromArray,
		"createInstance":          (*Runtime).doCreateInstance,
		"createInstanceFromArray": (*Runtime).doCreateInstanceFromArray,
		"ensureInstanceAtPath":    (*Runtime).doEnsureInstanceAtPath,
		"when":                    (*Runtime).doWhen,
		"scheduleActions":         (*Runtime).doScheduleActions,
		"broadcast":               (*Runtime).doBroadcast,
		"log":                     (*Runtime).doLog,
	}
}

func stateRoot(view map[string]any) any    { return view["state"] }
func staticData(view map[string]any) any   { return view["data"] }

func paramString(params map[string]any, key string) (string, bool) {
	s, ok := params[key].(string)
	return s, ok
}

func fmtErrMissingParam(action, key string) error {
	return fmt.Errorf("%s: missing required param %q", action, key)
}

// runList runs each rendered-at-dispatch-time action in order via Run,
// exactly like the interpreter's own entry/exit/transition lists — used
// by when's chosen branch and by a fired scheduleActions batch.
func (r *Runtime) runList(view map[string]any, list []statechart.ActionDef) {
	for _, a := range list {
		r.Run(view, a)
	}
}

// decodeActionList converts the loosely-typed value stored under an
// action's "then"/"else"/"actions" param key (plain
// map[string]any/[]any/string, exactly as JSON/YAML decoded it) into
// []statechart.ActionDef, the same flattening ActionDef.UnmarshalJSON does
// for the top-level machine document. Nested action lists never come
// through encoding/json directly (they arrive already decoded, nested
// inside another action's own Params), hence the separate decoder here.
func decodeActionList(raw any) ([]statechart.ActionDef, error) {
	list, ok := raw.([]any)
	if !ok {
		if raw == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("expected an action array, got %T", raw)
	}
	out := make([]statechart.ActionDef, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected an action object, got %T", item)
		}
		name, ok := m["action"].(string)
		if !ok {
			return nil, fmt.Errorf("action descriptor missing string \"action\" key")
		}
		params := make(map[string]any, len(m)-1)
		for k, v := range m {
			if k != "action" {
				params[k] = v
			}
		}
		out = append(out, statechart.ActionDef{Action: name, Params: params})
	}
	return out, nil
}
