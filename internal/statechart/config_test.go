package statechart

import (
	"encoding/json"
	"testing"
)

func minimalDef() *MachineDef {
	return &MachineDef{
		ID:      "traffic",
		Initial: "red",
		States: map[string]*StateDef{
			"red":    {On: map[string][]TransitionDef{"tick": {{Target: "green"}}}},
			"green":  {On: map[string][]TransitionDef{"tick": {{Target: "red"}}}},
		},
	}
}

func TestValidate_AcceptsWellFormedMachine(t *testing.T) {
	if err := minimalDef().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidate_RejectsMissingInitial(t *testing.T) {
	d := minimalDef()
	d.Initial = "yellow"
	if err := d.Validate(); err == nil {
		t.Error("expected error for missing initial state")
	}
}

func TestValidate_RejectsUnknownTransitionTarget(t *testing.T) {
	d := minimalDef()
	d.States["red"].On["tick"] = []TransitionDef{{Target: "purple"}}
	if err := d.Validate(); err == nil {
		t.Error("expected error for unknown target")
	}
}

func TestValidate_RejectsMalformedAfterKey(t *testing.T) {
	d := minimalDef()
	d.States["red"].After = map[string][]TransitionDef{"soon": {{Target: "green"}}}
	if err := d.Validate(); err == nil {
		t.Error("expected error for non-numeric after key")
	}
}

func TestEventNames_UnionsAcrossStates(t *testing.T) {
	d := minimalDef()
	d.States["green"].On["reset"] = []TransitionDef{{Target: "red"}}
	names := d.EventNames()
	if len(names) != 2 {
		t.Fatalf("got %v, want 2 names", names)
	}
}

func TestActionDef_JSONRoundTrip(t *testing.T) {
	var a ActionDef
	err := json.Unmarshal([]byte(`{"action":"setState","path":"round","value":1}`), &a)
	if err != nil {
		t.Fatal(err)
	}
	if a.Action != "setState" {
		t.Errorf("got action %q", a.Action)
	}
	if a.Params["path"] != "round" {
		t.Errorf("got params %#v", a.Params)
	}
}
