package logic

import "testing"

func view() View {
	return View{
		"event": map[string]any{"type": "answer", "value": "2"},
		"state": map[string]any{"players": map[string]any{"A": map[string]any{"score": float64(1)}}},
		"data":  map[string]any{"threshold": float64(10)},
	}
}

func TestEval_VarResolvesPath(t *testing.T) {
	v, err := Eval(map[string]any{"var": "state.players.A.score"}, view())
	if err != nil {
		t.Fatal(err)
	}
	if v != float64(1) {
		t.Errorf("got %v", v)
	}
}

func TestBool_Equality(t *testing.T) {
	ok, err := Bool(map[string]any{"==": []any{
		map[string]any{"var": "event.value"}, "2",
	}}, view())
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected true")
	}
}

func TestBool_AndOrNot(t *testing.T) {
	tree := map[string]any{"and": []any{
		map[string]any{"==": []any{"2", map[string]any{"var": "event.value"}}},
		map[string]any{"!": []any{false}},
	}}
	ok, err := Bool(tree, view())
	if err != nil || !ok {
		t.Errorf("ok=%v err=%v", ok, err)
	}
}

func TestBool_Ordering(t *testing.T) {
	tree := map[string]any{"<": []any{
		map[string]any{"var": "state.players.A.score"},
		map[string]any{"var": "data.threshold"},
	}}
	ok, err := Bool(tree, view())
	if err != nil || !ok {
		t.Errorf("ok=%v err=%v", ok, err)
	}
}

func TestEval_Arithmetic(t *testing.T) {
	v, err := Eval(map[string]any{"+": []any{float64(1), float64(2), float64(3)}}, view())
	if err != nil {
		t.Fatal(err)
	}
	if v != float64(6) {
		t.Errorf("got %v", v)
	}
}

func TestEval_Membership(t *testing.T) {
	v, err := Eval(map[string]any{"in": []any{"2", []any{"1", "2", "3"}}}, view())
	if err != nil {
		t.Fatal(err)
	}
	if v != true {
		t.Errorf("got %v", v)
	}
}

func TestBool_MalformedTreeIsError(t *testing.T) {
	_, err := Bool(map[string]any{"and": "not-an-array"}, view())
	if err == nil {
		t.Error("expected error for malformed tree")
	}
}

func TestEval_LiteralPassesThrough(t *testing.T) {
	v, err := Eval("hello", view())
	if err != nil || v != "hello" {
		t.Errorf("v=%v err=%v", v, err)
	}
}

func TestEval_UnknownOperatorErrors(t *testing.T) {
	_, err := Eval(map[string]any{"xor": []any{true, false}}, view())
	if err == nil {
		t.Error("expected error for unknown operator")
	}
}
