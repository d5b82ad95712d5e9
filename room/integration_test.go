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

// These reproduce the end-to-end scenarios against the shipped
// enhanced-quiz definition, driving scheduled advances deterministically
// through a ManualClock rather than sleeping on wall-clock time.

func newQuizRoom(t *testing.T, id string, clock *statechart.ManualClock) *Room {
	t.Helper()
	def, err := definition.LoadFile("../definitions/enhanced_quiz.json")
	require.NoError(t, err)
	require.NoError(t, def.Validate())
	r, err := New(Options{ID: id, Definition: def, Logger: zap.NewNop(), Clock: clock})
	require.NoError(t, err)
	return r
}

func playerField(t *testing.T, r *Room, sessionID, field string) any {
	t.Helper()
	coll, err := r.playersCollection()
	require.NoError(t, err)
	v, ok := coll.Get(sessionID)
	require.True(t, ok, "no player %q", sessionID)
	inst, ok := v.(*schema.Instance)
	require.True(t, ok, "player %q is %T, want *schema.Instance", sessionID, v)
	val, ok := inst.FieldGet(field)
	require.True(t, ok, "player %q has no field %q", sessionID, field)
	return val
}

func TestScenario1_QuizStarts(t *testing.T) {
	clock := statechart.NewManualClock()
	r := newQuizRoom(t, "s1", clock)
	_, err := r.Join("A", "Alice")
	require.NoError(t, err)

	require.NoError(t, r.Dispatch("start", "A", nil))

	assert.Equal(t, "question", playerField(t, r, "A", "phase"))
	assert.Equal(t, float64(0), playerField(t, r, "A", "questionIndex"))
	question := playerField(t, r, "A", "currentQuestion").(*schema.Instance)
	text, _ := question.FieldGet("text")
	assert.Equal(t, "What is the capital of France?", text)
	assert.Equal(t, float64(30), playerField(t, r, "A", "timeLeft"))
	assert.Equal(t, false, playerField(t, r, "A", "showFeedback"))
}

func TestScenario2_ScoresOnCorrectAnswer(t *testing.T) {
	clock := statechart.NewManualClock()
	r := newQuizRoom(t, "s2", clock)
	_, err := r.Join("A", "Alice")
	require.NoError(t, err)
	require.NoError(t, r.Dispatch("start", "A", nil))

	require.NoError(t, r.Dispatch("answer", "A", map[string]any{"value": "2"}))

	assert.Equal(t, "feedback", playerField(t, r, "A", "phase"))
	assert.Equal(t, true, playerField(t, r, "A", "showFeedback"))
	assert.Equal(t, float64(1), playerField(t, r, "A", "score"))
}

func TestScenario3_ScheduledAdvance(t *testing.T) {
	clock := statechart.NewManualClock()
	r := newQuizRoom(t, "s3", clock)
	_, err := r.Join("A", "Alice")
	require.NoError(t, err)
	require.NoError(t, r.Dispatch("start", "A", nil))
	require.NoError(t, r.Dispatch("answer", "A", map[string]any{"value": "2"}))

	clock.Advance(3000 * time.Millisecond)

	assert.Equal(t, float64(1), playerField(t, r, "A", "questionIndex"))
	assert.Equal(t, "question", playerField(t, r, "A", "phase"))
	assert.Equal(t, false, playerField(t, r, "A", "showFeedback"))
	question := playerField(t, r, "A", "currentQuestion").(*schema.Instance)
	text, _ := question.FieldGet("text")
	assert.Equal(t, "The Earth is flat.", text)
	assert.Equal(t, float64(30), playerField(t, r, "A", "timeLeft"))
}

func TestScenario4_WrongAnswerDoesNotScore(t *testing.T) {
	clock := statechart.NewManualClock()
	r := newQuizRoom(t, "s4", clock)
	_, err := r.Join("A", "Alice")
	require.NoError(t, err)
	require.NoError(t, r.Dispatch("start", "A", nil))
	require.NoError(t, r.Dispatch("answer", "A", map[string]any{"value": "2"}))
	clock.Advance(3000 * time.Millisecond)

	require.NoError(t, r.Dispatch("answer", "A", map[string]any{"value": "true"}))

	assert.Equal(t, "feedback", playerField(t, r, "A", "phase"))
	assert.Equal(t, true, playerField(t, r, "A", "showFeedback"))
	assert.Equal(t, float64(1), playerField(t, r, "A", "score"), "wrong answer must not change score")
}

func TestScenario5_QuizCompletion(t *testing.T) {
	clock := statechart.NewManualClock()
	r := newQuizRoom(t, "s5", clock)
	_, err := r.Join("A", "Alice")
	require.NoError(t, err)
	require.NoError(t, r.Dispatch("start", "A", nil))

	answers := []string{"2", "true", "42", "true"}
	for _, ans := range answers {
		require.NoError(t, r.Dispatch("answer", "A", map[string]any{"value": ans}))
		clock.Advance(3000 * time.Millisecond)
	}

	assert.Equal(t, "finished", playerField(t, r, "A", "phase"))
	assert.Equal(t, false, playerField(t, r, "A", "showFeedback"))
}

func TestScenario6_PerPlayerIsolation(t *testing.T) {
	clock := statechart.NewManualClock()
	r := newQuizRoom(t, "s6", clock)
	_, err := r.Join("A", "Alice")
	require.NoError(t, err)
	_, err = r.Join("B", "Bob")
	require.NoError(t, err)

	require.NoError(t, r.Dispatch("start", "A", nil))
	require.NoError(t, r.Dispatch("answer", "A", map[string]any{"value": "2"}))

	assert.Equal(t, float64(1), playerField(t, r, "A", "score"))
	assert.Equal(t, "feedback", playerField(t, r, "A", "phase"))
	assert.Equal(t, "waiting", playerField(t, r, "B", "phase"), "B's phase should be untouched by A's dispatch")
	assert.Equal(t, float64(0), playerField(t, r, "B", "score"))
}
