package actions

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/comalice/roomforge/internal/logic"
	"github.com/comalice/roomforge/internal/pathresolve"
	"github.com/comalice/roomforge/internal/schema"
)

// doSetState implements setState {path, value}.
func (r *Runtime) doSetState(view map[string]any, params map[string]any) error {
	path, ok := paramString(params, "path")
	if !ok {
		return fmtErrMissingParam("setState", "path")
	}
	return pathresolve.Set(stateRoot(view), path, params["value"])
}

// doIncrement implements increment {path, delta=1}.
func (r *Runtime) doIncrement(view map[string]any, params map[string]any) error {
	path, ok := paramString(params, "path")
	if !ok {
		return fmtErrMissingParam("increment", "path")
	}
	return r.increment(view, path, deltaOrDefault(params))
}

// increment performs the shared arithmetic behind increment and
// incrementIfEqual: a non-numeric or absent current value is treated as 0
// before delta is added (§8 boundary behaviour).
func (r *Runtime) increment(view map[string]any, path string, delta float64) error {
	cur, _ := pathresolve.Get(stateRoot(view), path)
	base, _ := toFloat(cur)
	return pathresolve.Set(stateRoot(view), path, base+delta)
}

func deltaOrDefault(params map[string]any) float64 {
	if v, ok := toFloat(params["delta"]); ok {
		return v
	}
	return 1
}

// doIncrementIfEqual implements
// incrementIfEqual {path, equalsPath, value, delta=1}.
func (r *Runtime) doIncrementIfEqual(view map[string]any, params map[string]any) error {
	path, ok := paramString(params, "path")
	if !ok {
		return fmtErrMissingParam("incrementIfEqual", "path")
	}
	equalsPath, ok := paramString(params, "equalsPath")
	if !ok {
		return fmtErrMissingParam("incrementIfEqual", "equalsPath")
	}
	cur, _ := pathresolve.Get(stateRoot(view), equalsPath)
	if fmt.Sprint(cur) != fmt.Sprint(params["value"]) {
		return nil
	}
	return r.increment(view, path, deltaOrDefault(params))
}

// doSetFromData implements setFromData {statePath, dataPath}.
func (r *Runtime) doSetFromData(view map[string]any, params map[string]any) error {
	statePath, ok := paramString(params, "statePath")
	if !ok {
		return fmtErrMissingParam("setFromData", "statePath")
	}
	dataPath, ok := paramString(params, "dataPath")
	if !ok {
		return fmtErrMissingParam("setFromData", "dataPath")
	}
	v, ok := pathresolve.Get(staticData(view), dataPath)
	if !ok {
		return fmt.Errorf("setFromData: no value at data.%s", dataPath)
	}
	return pathresolve.Set(stateRoot(view), statePath, v)
}

// doSetFromArray implements
// setFromArray {statePath, arrayPath, key?, index?|indexStatePath?}.
func (r *Runtime) doSetFromArray(view map[string]any, params map[string]any) error {
	statePath, ok := paramString(params, "statePath")
	if !ok {
		return fmtErrMissingParam("setFromArray", "statePath")
	}
	elem, err := r.resolveArrayElement(view, params, "setFromArray")
	if err != nil {
		return err
	}
	if key, ok := paramString(params, "key"); ok {
		if m, ok := elem.(map[string]any); ok {
			elem = m[key]
		} else {
			return fmt.Errorf("setFromArray: element is %T, cannot project key %q", elem, key)
		}
	}
	return pathresolve.Set(stateRoot(view), statePath, elem)
}

// resolveArrayElement is the shared "pick an element from data.arrayPath
// by literal index or by a value read from replicated state" logic behind
// setFromArray and createInstanceFromArray.
func (r *Runtime) resolveArrayElement(view map[string]any, params map[string]any, action string) (any, error) {
	arrayPath, ok := paramString(params, "arrayPath")
	if !ok {
		return nil, fmtErrMissingParam(action, "arrayPath")
	}
	arr, ok := pathresolve.Get(staticData(view), arrayPath)
	if !ok {
		return nil, fmt.Errorf("%s: no array at data.%s", action, arrayPath)
	}
	list, ok := arr.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: data.%s is %T, not an array", action, arrayPath, arr)
	}
	idx, ok := r.resolveIndex(view, params)
	if !ok {
		return nil, fmt.Errorf("%s: neither index nor indexStatePath resolved to a number", action)
	}
	if idx < 0 || idx >= len(list) {
		return nil, fmt.Errorf("%s: index %d out of range for data.%s (len %d)", action, idx, arrayPath, len(list))
	}
	return list[idx], nil
}

func (r *Runtime) resolveIndex(view map[string]any, params map[string]any) (int, bool) {
	if v, ok := toFloat(params["index"]); ok {
		return int(v), true
	}
	if p, ok := paramString(params, "indexStatePath"); ok {
		if v, ok := pathresolve.Get(stateRoot(view), p); ok {
			if f, ok := toFloat(v); ok {
				return int(f), true
			}
		}
	}
	return 0, false
}

// doCreateInstance implements createInstance {className, statePath, data?}.
func (r *Runtime) doCreateInstance(view map[string]any, params map[string]any) error {
	className, ok := paramString(params, "className")
	if !ok {
		return fmtErrMissingParam("createInstance", "className")
	}
	statePath, ok := paramString(params, "statePath")
	if !ok {
		return fmtErrMissingParam("createInstance", "statePath")
	}
	inst, err := r.classes.NewInstance(className)
	if err != nil {
		return fmt.Errorf("createInstance: %w", err)
	}
	r.populateFields(inst, params["data"])
	return pathresolve.Set(stateRoot(view), statePath, inst)
}

// doCreateInstanceFromArray implements
// createInstanceFromArray {className, statePath, arrayPath, index?|indexStatePath?}.
func (r *Runtime) doCreateInstanceFromArray(view map[string]any, params map[string]any) error {
	className, ok := paramString(params, "className")
	if !ok {
		return fmtErrMissingParam("createInstanceFromArray", "className")
	}
	statePath, ok := paramString(params, "statePath")
	if !ok {
		return fmtErrMissingParam("createInstanceFromArray", "statePath")
	}
	elem, err := r.resolveArrayElement(view, params, "createInstanceFromArray")
	if err != nil {
		return err
	}
	inst, err := r.classes.NewInstance(className)
	if err != nil {
		return fmt.Errorf("createInstanceFromArray: %w", err)
	}
	r.populateFields(inst, elem)
	return pathresolve.Set(stateRoot(view), statePath, inst)
}

// doEnsureInstanceAtPath implements
// ensureInstanceAtPath {className, statePath, data?}: idempotent create.
func (r *Runtime) doEnsureInstanceAtPath(view map[string]any, params map[string]any) error {
	statePath, ok := paramString(params, "statePath")
	if !ok {
		return fmtErrMissingParam("ensureInstanceAtPath", "statePath")
	}
	if existing, ok := pathresolve.Get(stateRoot(view), statePath); ok && existing != nil {
		return nil
	}
	return r.doCreateInstance(view, params)
}

func (r *Runtime) populateFields(inst *schema.Instance, data any) {
	m, ok := data.(map[string]any)
	if !ok {
		return
	}
	for k, v := range m {
		if err := inst.FieldSet(k, v); err != nil {
			r.logger.Debug("action_runtime: skipping undeclared field on create",
				zap.String("class", inst.ClassName()), zap.String("field", k))
		}
	}
}

// doWhen implements when {cond, then: Action[], else?: Action[]}.
func (r *Runtime) doWhen(view map[string]any, params map[string]any) error {
	ok, err := logic.Bool(params["cond"], logic.View(view))
	if err != nil {
		r.logger.Warn("action_runtime: when cond errored, treating as false", zap.Error(err))
		ok = false
	}
	branchKey := "else"
	if ok {
		branchKey = "then"
	}
	list, err := decodeActionList(params[branchKey])
	if err != nil {
		return fmt.Errorf("when.%s: %w", branchKey, err)
	}
	r.runList(view, list)
	return nil
}

// doScheduleActions implements scheduleActions {delayMs, actions}. Per
// this repo's resolution of the spec's open "event at fire time" question,
// the batch's event is the one that scheduled it (captured now), while
// state/context/data are re-read fresh from currentView at fire time. Each
// batch gets a uuid for log correlation between its scheduling and its
// (possibly much later) firing.
func (r *Runtime) doScheduleActions(view map[string]any, params map[string]any) error {
	delayMs, ok := toFloat(params["delayMs"])
	if !ok {
		return fmtErrMissingParam("scheduleActions", "delayMs")
	}
	list, err := decodeActionList(params["actions"])
	if err != nil {
		return fmt.Errorf("scheduleActions.actions: %w", err)
	}
	capturedEvent := view["event"]
	batchID := uuid.NewString()
	r.logger.Debug("action_runtime: batch scheduled", zap.String("batch", batchID), zap.Float64("delayMs", delayMs))

	r.clock.AfterFunc(int64(delayMs), func() {
		fireView := view
		if r.currentView != nil {
			fireView = r.currentView()
		}
		fireView["event"] = capturedEvent
		r.logger.Debug("action_runtime: batch firing", zap.String("batch", batchID))
		r.runList(fireView, list)
	})
	return nil
}

// doBroadcast implements broadcast {event, data?}.
func (r *Runtime) doBroadcast(view map[string]any, params map[string]any) error {
	event, ok := paramString(params, "event")
	if !ok {
		return fmtErrMissingParam("broadcast", "event")
	}
	if r.broadcaster != nil {
		r.broadcaster.Broadcast(event, params["data"])
	}
	return nil
}

// doLog implements log {message}: server-side diagnostic only, never
// visible to clients.
func (r *Runtime) doLog(view map[string]any, params map[string]any) error {
	message, _ := paramString(params, "message")
	r.logger.Info("action_runtime: log", zap.String("message", message))
	return nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
