package statechart

// Event is one inbound occurrence dispatched to Send: a type name (matched
// against a state's `on` keys) and a payload. When Data is a
// map[string]any (the Room Host always sends {sessionId, ...payload}),
// its keys are flattened alongside "type" so guard/action paths can read
// "event.sessionId" directly (§4.G) rather than "event.data.sessionId". A
// non-map payload is exposed under "data" instead.
type Event struct {
	Type string
	Data any
}

func (e Event) view() map[string]any {
	out := map[string]any{"type": e.Type}
	if m, ok := e.Data.(map[string]any); ok {
		for k, v := range m {
			out[k] = v
		}
	} else if e.Data != nil {
		out["data"] = e.Data
	}
	return out
}
