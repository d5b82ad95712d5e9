package statechart

import (
	"testing"
	"time"
)

type recordingRunner struct {
	ran []string
}

func (r *recordingRunner) Run(view map[string]any, action ActionDef) error {
	r.ran = append(r.ran, action.Action)
	return nil
}

func trafficLightDef() *MachineDef {
	return &MachineDef{
		ID:      "traffic",
		Initial: "red",
		States: map[string]*StateDef{
			"red": {
				Entry: []ActionDef{{Action: "logEnterRed"}},
				On:    map[string][]TransitionDef{"tick": {{Target: "green", Actions: []ActionDef{{Action: "logTick"}}}}},
			},
			"green": {
				Entry: []ActionDef{{Action: "logEnterGreen"}},
				Exit:  []ActionDef{{Action: "logExitGreen"}},
				After: map[string][]TransitionDef{"1000": {{Target: "red"}}},
			},
		},
	}
}

func TestInterpreter_StartRunsInitialEntry(t *testing.T) {
	runner := &recordingRunner{}
	i := New(trafficLightDef(), runner)
	if err := i.Start(); err != nil {
		t.Fatal(err)
	}
	if i.Current() != "red" {
		t.Errorf("current = %q, want red", i.Current())
	}
	if len(runner.ran) != 1 || runner.ran[0] != "logEnterRed" {
		t.Errorf("ran = %v", runner.ran)
	}
}

func TestInterpreter_SendRunsExitTransitionEntryInOrder(t *testing.T) {
	runner := &recordingRunner{}
	def := trafficLightDef()
	def.States["red"].Exit = []ActionDef{{Action: "logExitRed"}}
	i := New(def, runner)
	i.Start()
	runner.ran = nil

	if err := i.Send("tick", nil); err != nil {
		t.Fatal(err)
	}
	if i.Current() != "green" {
		t.Errorf("current = %q, want green", i.Current())
	}
	want := []string{"logExitRed", "logTick", "logEnterGreen"}
	if len(runner.ran) != len(want) {
		t.Fatalf("ran = %v, want %v", runner.ran, want)
	}
	for idx := range want {
		if runner.ran[idx] != want[idx] {
			t.Fatalf("ran = %v, want %v", runner.ran, want)
		}
	}
}

func TestInterpreter_UnhandledEventIsANoop(t *testing.T) {
	runner := &recordingRunner{}
	i := New(trafficLightDef(), runner)
	i.Start()
	runner.ran = nil

	if err := i.Send("unknown", nil); err != nil {
		t.Fatal(err)
	}
	if i.Current() != "red" {
		t.Errorf("current = %q, want red (unchanged)", i.Current())
	}
	if len(runner.ran) != 0 {
		t.Errorf("ran = %v, want no actions", runner.ran)
	}
}

func TestInterpreter_AfterTimerFiresOnManualClock(t *testing.T) {
	runner := &recordingRunner{}
	clock := NewManualClock()
	i := New(trafficLightDef(), runner, WithClock(clock))
	i.Start()
	i.Send("tick", nil)
	runner.ran = nil

	clock.Advance(999 * time.Millisecond)
	if i.Current() != "green" {
		t.Fatalf("current = %q before delay elapses, want green", i.Current())
	}

	clock.Advance(1 * time.Millisecond)
	if i.Current() != "red" {
		t.Fatalf("current = %q after delay elapses, want red", i.Current())
	}
	want := []string{"logExitGreen", "logEnterRed"}
	if len(runner.ran) != len(want) {
		t.Fatalf("ran = %v, want %v", runner.ran, want)
	}
}

func TestInterpreter_ExitingStateCancelsItsAfterTimer(t *testing.T) {
	runner := &recordingRunner{}
	clock := NewManualClock()
	def := trafficLightDef()
	def.States["green"].On = map[string][]TransitionDef{"skip": {{Target: "red"}}}
	i := New(def, runner, WithClock(clock))
	i.Start()
	i.Send("tick", nil)
	i.Send("skip", nil)
	runner.ran = nil

	clock.Advance(2000 * time.Millisecond)
	if i.Current() != "red" {
		t.Fatalf("current = %q, want red unchanged by cancelled timer", i.Current())
	}
	if len(runner.ran) != 0 {
		t.Errorf("cancelled after-timer must not run actions, got %v", runner.ran)
	}
}

func TestInterpreter_CondGatesTransitionSelection(t *testing.T) {
	runner := &recordingRunner{}
	def := &MachineDef{
		ID:      "gate",
		Initial: "start",
		Context: map[string]any{"allowed": false},
		States: map[string]*StateDef{
			"start": {On: map[string][]TransitionDef{
				"go": {
					{Cond: map[string]any{"var": "context.allowed"}, Target: "open"},
					{Target: "closed"},
				},
			}},
			"open":   {},
			"closed": {},
		},
	}
	i := New(def, runner)
	i.Start()
	if err := i.Send("go", nil); err != nil {
		t.Fatal(err)
	}
	if i.Current() != "closed" {
		t.Errorf("current = %q, want closed (guard false)", i.Current())
	}
}
