// Package room binds a game definition to a live replicated-state
// instance, a running statechart interpreter, and a player roster — the
// Room Host of §4.G.
//
// Grounded on wfunc/gameserver's room.Room (player roster + mutex-guarded
// status + broadcaster) and session.Session (opaque per-connection
// identity), generalized from that repo's fixed lobby/game-loop shape to
// one driven entirely by a data-defined statechart instead of hardcoded
// per-game-type logic.
package room

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/comalice/roomforge/internal/actions"
	"github.com/comalice/roomforge/internal/definition"
	"github.com/comalice/roomforge/internal/schema"
	"github.com/comalice/roomforge/internal/statechart"
)

const defaultPlayerClass = "Player"

// Options configures a Room at creation (§4.G).
type Options struct {
	ID string

	// Definition, if set, is used verbatim. Otherwise DefinitionPath is
	// read from disk (§4.H).
	Definition     *definition.Definition
	DefinitionPath string

	// Config is exposed to guards and actions at context.config.
	Config map[string]any

	Logger *zap.Logger
	Clock  statechart.Clock
}

// Room is one live instance of a definition: its replicated state, its
// interpreter, its player roster, and its broadcast fan-out. Dispatch/Join/
// Leave/Dispose may be called from several goroutines: each acquires the
// room's own lock, which is the single serialization point the concurrency
// model (§5) requires.
type Room struct {
	mu  sync.Mutex
	id  string
	def *definition.Definition

	classes *schema.ClassTable
	state   *schema.Instance

	interp      *statechart.Interpreter
	runtime     *actions.Runtime
	broadcaster *Broadcaster
	clock       statechart.Clock
	logger      *zap.Logger

	disposed bool
}

// lockingClock wraps a Clock so every callback it eventually fires first
// takes the room's own lock — the "per-room lock" realization of the
// concurrency model's serialization requirement (§5), needed because
// RealClock's callbacks run on their own goroutine (time.AfterFunc)
// concurrently with whatever goroutine calls Room.Dispatch. A callback that
// fires after the room is disposed is skipped.
type lockingClock struct {
	inner    statechart.Clock
	mu       *sync.Mutex
	disposed *bool
}

func (c *lockingClock) Now() int64 { return c.inner.Now() }

func (c *lockingClock) AfterFunc(delayMs int64, f func()) statechart.Timer {
	return c.inner.AfterFunc(delayMs, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if *c.disposed {
			return
		}
		f()
	})
}

// New loads (if needed) and validates a definition, builds its replicated
// state, and starts its interpreter — steps 1-5 of §4.G room creation.
func New(opts Options) (*Room, error) {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}

	def := opts.Definition
	if def == nil {
		loaded, err := definition.LoadFile(opts.DefinitionPath)
		if err != nil {
			return nil, fmt.Errorf("room: %w", err)
		}
		def = loaded
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("room: %w", err)
	}

	classes, err := schema.Build(def.Schema)
	if err != nil {
		return nil, fmt.Errorf("room: %w", err)
	}
	root, err := classes.InstantiateWithDefaults()
	if err != nil {
		return nil, fmt.Errorf("room: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = statechart.NewRealClock()
	}

	broadcaster := newBroadcaster(logger)

	r := &Room{
		id:          id,
		def:         def,
		classes:     classes,
		state:       root,
		broadcaster: broadcaster,
		clock:       clock,
		logger:      logger,
	}
	serialClock := &lockingClock{inner: clock, mu: &r.mu, disposed: &r.disposed}

	runtime := actions.New(classes, serialClock, broadcaster, logger)

	context := make(map[string]any, len(def.Machine.Context)+1)
	for k, v := range def.Machine.Context {
		context[k] = v
	}
	context["config"] = opts.Config

	interp := statechart.New(def.Machine, runtime,
		statechart.WithContext(context),
		statechart.WithData(root),
		statechart.WithStaticData(def.Data),
		statechart.WithClock(serialClock),
	)
	runtime.SetViewProvider(interp.CurrentView)
	r.interp = interp
	r.runtime = runtime

	if err := interp.Start(); err != nil {
		return nil, fmt.Errorf("room: starting interpreter: %w", err)
	}
	roomsActive.Inc()
	logger.Info("room: created", zap.String("room", r.id), zap.String("definition", def.ID))
	return r, nil
}

// ID returns the room's id.
func (r *Room) ID() string { return r.id }

// EventNames returns every message type a client may send, per §4.G step
// 4: the union of `on` keys across the machine's states.
func (r *Room) EventNames() []string { return r.def.EventNames() }

// State returns the room's replicated root instance. Callers use this to
// serialize/replicate state to clients; the core itself never talks to a
// transport (§1). The returned instance is live — reads should happen
// from within the room's serialized stream (e.g. a handler triggered by
// Dispatch or a broadcast) to see a consistent snapshot.
func (r *Room) State() *schema.Instance { return r.state }

// Subscribe registers sessionID to receive this room's broadcasts.
func (r *Room) Subscribe(sessionID string) <-chan Message {
	return r.broadcaster.Subscribe(sessionID)
}

// Dispatch forwards a client message as an interpreter event, attributing
// sender identity per §4.G: the event's payload always carries sessionId
// alongside whatever fields the client sent.
func (r *Room) Dispatch(eventType, sessionID string, payload map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return fmt.Errorf("room %s: disposed", r.id)
	}
	merged := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		merged[k] = v
	}
	merged["sessionId"] = sessionID

	messagesReceived.WithLabelValues(r.id).Inc()
	if err := r.interp.Send(eventType, merged); err != nil {
		r.logger.Warn("room: event dispatch failed", zap.String("room", r.id),
			zap.String("event", eventType), zap.Error(err))
		return err
	}
	return nil
}

// Join constructs a Player instance (preferring the definition's own
// Player class, falling back to a minimal {name, score} record) and
// inserts it into state.players under sessionID. A join for a session id
// already present is a no-op returning the existing instance (§9 open
// question, resolved for idempotent reconnects).
func (r *Room) Join(sessionID, name string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	coll, err := r.playersCollection()
	if err != nil {
		return nil, err
	}
	if existing, ok := coll.Get(sessionID); ok {
		return existing, nil
	}

	var player any
	if _, ok := r.classes.Descriptor(defaultPlayerClass); ok {
		inst, err := r.classes.NewInstanceWithDefaults(defaultPlayerClass)
		if err != nil {
			return nil, fmt.Errorf("room: creating player instance: %w", err)
		}
		if err := inst.FieldSet("name", name); err != nil {
			return nil, fmt.Errorf("room: %w", err)
		}
		if v, _ := inst.FieldGet("score"); v == nil {
			if err := inst.FieldSet("score", float64(0)); err != nil {
				return nil, fmt.Errorf("room: %w", err)
			}
		}
		player = inst
	} else {
		player = map[string]any{"name": name, "score": float64(0)}
	}

	coll.Set(sessionID, player)
	playersOnline.WithLabelValues(r.id).Inc()
	r.logger.Info("room: player joined", zap.String("room", r.id), zap.String("sessionId", sessionID))
	return player, nil
}

// Leave removes sessionID's entry from state.players. Definitions that
// need reactive per-player cleanup do it via a `leave` event handler in
// the machine — the host performs no cascade (§4.G).
func (r *Room) Leave(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	coll, err := r.playersCollection()
	if err != nil {
		return err
	}
	if _, ok := coll.Get(sessionID); !ok {
		return nil
	}
	coll.Delete(sessionID)
	r.broadcaster.Unsubscribe(sessionID)
	playersOnline.WithLabelValues(r.id).Dec()
	r.logger.Info("room: player left", zap.String("room", r.id), zap.String("sessionId", sessionID))
	return nil
}

func (r *Room) playersCollection() (*schema.Collection, error) {
	v, ok := r.state.FieldGet("players")
	if !ok {
		return nil, fmt.Errorf("room: root class %q has no \"players\" field", r.state.ClassName())
	}
	coll, ok := v.(*schema.Collection)
	if !ok {
		return nil, fmt.Errorf("room: \"players\" field is %T, want a map field", v)
	}
	return coll, nil
}

// Dispose stops accepting new dispatches, closes all broadcast
// subscriptions, and cancels all pending after/scheduleActions callbacks:
// each one is armed through the room's lockingClock, which skips it once
// the room is disposed. A callback already running holds the room's lock,
// so Dispose waits for it to finish rather than interrupting it.
func (r *Room) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return
	}
	r.disposed = true
	r.broadcaster.Close()
	roomsActive.Dec()
	r.logger.Info("room: disposed", zap.String("room", r.id))
}
