package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comalice/roomforge/internal/definition"
	"github.com/comalice/roomforge/internal/schema"
	"github.com/comalice/roomforge/internal/statechart"
)

func quizDefinition() *definition.Definition {
	return &definition.Definition{
		ID:      "quiz",
		Name:    "Quiz",
		Version: "1.0.0",
		Schema: &schema.Schema{
			Root: "Game",
			Classes: map[string]schema.ClassDef{
				"Game": {Fields: map[string]schema.FieldType{
					"players": {Map: "Player"},
					"phase":   {Type: schema.PrimitiveString},
				}},
				"Player": {Fields: map[string]schema.FieldType{
					"name":  {Type: schema.PrimitiveString},
					"score": {Type: schema.PrimitiveNumber},
				}},
			},
		},
		Machine: &statechart.MachineDef{
			ID:      "quiz",
			Initial: "waiting",
			States: map[string]*statechart.StateDef{
				"waiting": {
					On: map[string][]statechart.TransitionDef{
						"start": {{Target: "playing"}},
					},
				},
				"playing": {
					On: map[string][]statechart.TransitionDef{
						"answer": {{
							Actions: []statechart.ActionDef{
								{Action: "increment", Params: map[string]any{
									"path":  "players.${event.sessionId}.score",
									"delta": float64(1),
								}},
								{Action: "broadcast", Params: map[string]any{
									"event": "answered",
								}},
							},
						}},
						"after3s": {{Target: "waiting"}},
					},
					After: map[string][]statechart.TransitionDef{
						"3000": {{Target: "waiting"}},
					},
				},
			},
		},
	}
}

func newTestRoom(t *testing.T, clock statechart.Clock) *Room {
	t.Helper()
	r, err := New(Options{
		ID:         "room-1",
		Definition: quizDefinition(),
		Logger:     zap.NewNop(),
		Clock:      clock,
	})
	require.NoError(t, err)
	return r
}

func TestNew_StartsInInitialState(t *testing.T) {
	r := newTestRoom(t, statechart.NewManualClock())
	assert.Equal(t, "waiting", r.interp.Current())
}

func TestEventNames_ReturnsMachineEvents(t *testing.T) {
	r := newTestRoom(t, statechart.NewManualClock())
	names := r.EventNames()
	assert.ElementsMatch(t, []string{"start", "answer", "after3s"}, names)
}

func TestJoin_CreatesPlayerAndIsIdempotent(t *testing.T) {
	r := newTestRoom(t, statechart.NewManualClock())

	p1, err := r.Join("sess-1", "Alice")
	require.NoError(t, err)
	inst, ok := p1.(*schema.Instance)
	require.True(t, ok, "player = %T, want *schema.Instance", p1)
	name, _ := inst.FieldGet("name")
	assert.Equal(t, "Alice", name)

	p2, err := r.Join("sess-1", "ShouldBeIgnored")
	require.NoError(t, err)
	assert.Same(t, p1, p2, "rejoin with same sessionId should return the existing player")
}

func TestLeave_RemovesPlayer(t *testing.T) {
	r := newTestRoom(t, statechart.NewManualClock())
	_, err := r.Join("sess-1", "Alice")
	require.NoError(t, err)
	require.NoError(t, r.Leave("sess-1"))

	coll, err := r.playersCollection()
	require.NoError(t, err)
	_, ok := coll.Get("sess-1")
	assert.False(t, ok, "player should no longer be present after Leave")

	// leaving again is a no-op, not an error.
	assert.NoError(t, r.Leave("sess-1"))
}

func TestDispatch_AdvancesStateAndAttributesSession(t *testing.T) {
	r := newTestRoom(t, statechart.NewManualClock())
	_, err := r.Join("sess-1", "Alice")
	require.NoError(t, err)
	require.NoError(t, r.Dispatch("start", "sess-1", nil))
	require.Equal(t, "playing", r.interp.Current())

	require.NoError(t, r.Dispatch("answer", "sess-1", map[string]any{}))
	coll, err := r.playersCollection()
	require.NoError(t, err)
	v, ok := coll.Get("sess-1")
	require.True(t, ok, "player missing after dispatch")
	inst := v.(*schema.Instance)
	score, _ := inst.FieldGet("score")
	assert.Equal(t, float64(1), score)
}

func TestDispatch_UnknownEventIsNotAnError(t *testing.T) {
	r := newTestRoom(t, statechart.NewManualClock())
	assert.NoError(t, r.Dispatch("nonsense", "sess-1", nil), "unhandled event should be a no-op")
}

func TestDispatch_AfterDisposeFails(t *testing.T) {
	r := newTestRoom(t, statechart.NewManualClock())
	r.Dispose()
	assert.Error(t, r.Dispatch("start", "sess-1", nil), "expected error dispatching to a disposed room")
}

// TestAfterTimerFiresSerializedAgainstDispatch exercises the lockingClock
// wrapper with a RealClock: the after(3000) timer set on entering "playing"
// must still land the room back in "waiting" without racing a concurrent
// Dispatch call, since both go through the room's own mutex.
func TestAfterTimerFiresSerializedAgainstDispatch(t *testing.T) {
	r, err := New(Options{
		ID:         "room-timer",
		Definition: quizDefinition(),
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)
	defer r.Dispose()

	require.NoError(t, r.Dispatch("start", "sess-1", nil))
	require.Equal(t, "playing", r.interp.Current())

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		current := r.interp.Current()
		r.mu.Unlock()
		if current == "waiting" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("after timer never fired within deadline")
}

func TestManager_CreateGetRemove(t *testing.T) {
	m := NewManager(zap.NewNop())
	_, err := m.Create(Options{
		ID:         "room-1",
		Definition: quizDefinition(),
		Clock:      statechart.NewManualClock(),
	})
	require.NoError(t, err)

	_, err = m.Create(Options{
		ID:         "room-1",
		Definition: quizDefinition(),
		Clock:      statechart.NewManualClock(),
	})
	assert.Error(t, err, "expected error creating a duplicate room id")

	got, ok := m.Get("room-1")
	require.True(t, ok, "expected room-1 to be registered")
	require.NotNil(t, got)
	assert.Equal(t, 1, m.Len())

	m.Remove("room-1")
	_, ok = m.Get("room-1")
	assert.False(t, ok, "room-1 should be gone after Remove")
	assert.Equal(t, 0, m.Len())

	// removing an unknown id is a no-op.
	m.Remove("nope")
}
