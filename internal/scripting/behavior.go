package scripting

import (
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/actor"
	"github.com/l1jgo/gamemanager/internal/core/msg"
)

// Behavior hooks for a script behavior table:
//
//	behavior("vehicles.Tank", {
//	  on_entered_world = function(self) end,
//	  on_removed_from_world = function(self) end,
//	  on_tick_local = function(self, tick) end,
//	  on_tick_remote = function(self, tick) end,
//	  process_message = function(self, m) end,
//	  invokables = { Fire = function(self, m) end },
//	  listen = { TICK_LOCAL = "Tick Local" },
//	  about_self = { INFO_GAME_EVENT = "Fire" },
//	})
const (
	hookEnteredWorld     = "on_entered_world"
	hookRemovedFromWorld = "on_removed_from_world"
	hookTickLocal        = "on_tick_local"
	hookTickRemote       = "on_tick_remote"
	hookProcessMessage   = "process_message"
)

// Behavior is an actor.Behavior whose hooks live in Lua. Functions are
// looked up on every call, so a reload changes the logic of actors that
// already exist.
type Behavior struct {
	engine   *Engine
	typeName string
}

func (b *Behavior) TypeName() string { return b.typeName }

// OnEnteredWorld applies the listen and about_self registrations of the
// behavior table, then runs on_entered_world.
func (b *Behavior) OnEnteredWorld(g *actor.GameProxy) {
	b.engine.register(g, b.typeName)
	b.engine.hook(b.typeName, hookEnteredWorld, g)
}

func (b *Behavior) OnRemovedFromWorld(g *actor.GameProxy) {
	b.engine.hook(b.typeName, hookRemovedFromWorld, g)
}

func (b *Behavior) OnTickLocal(g *actor.GameProxy, tick msg.Tick) {
	b.engine.hook(b.typeName, hookTickLocal, g, tickTable(b.engine.vm, tick))
}

func (b *Behavior) OnTickRemote(g *actor.GameProxy, tick msg.Tick) {
	b.engine.hook(b.typeName, hookTickRemote, g, tickTable(b.engine.vm, tick))
}

func (b *Behavior) ProcessMessage(g *actor.GameProxy, m *msg.Message) {
	b.engine.hook(b.typeName, hookProcessMessage, g, messageTable(b.engine.vm, m))
}

// Constructor returns an actor constructor that gives game actors a script
// behavior and one invokable per entry of the behavior's invokables table.
// Invokables added to a script later apply to actors created after the
// reload.
func (e *Engine) Constructor() actor.Constructor {
	return func(t *actor.Type) (*actor.Proxy, error) {
		if !t.IsGameActorType() {
			return actor.NewProxy(t), nil
		}
		typeName := t.FullName()
		g := actor.NewGameProxy(t, &Behavior{engine: e, typeName: typeName})
		for _, name := range e.invokableNames(typeName) {
			name := name
			inv := actor.NewInvokable(name, func(m *msg.Message) { e.invoke(typeName, name, g, m) })
			if err := g.AddInvokable(inv); err != nil {
				return nil, err
			}
		}
		return g.Proxy, nil
	}
}

func (e *Engine) hook(typeName, key string, g *actor.GameProxy, extra ...lua.LValue) {
	fn := e.field(typeName, key)
	if fn == nil {
		return
	}
	args := append([]lua.LValue{newActor(e.vm, g)}, extra...)
	e.call(typeName+"."+key, fn, args...)
}

func (e *Engine) invoke(typeName, name string, g *actor.GameProxy, m *msg.Message) {
	def, ok := e.defs[typeName]
	if !ok {
		return
	}
	invs := lTable(def, "invokables")
	if invs == nil {
		return
	}
	fn := invs.RawGetString(name)
	if fn.Type() != lua.LTFunction {
		e.log.Warn("lua invokable missing", zap.String("type", typeName), zap.String("invokable", name))
		return
	}
	e.call(typeName+".invokables."+name, fn, newActor(e.vm, g), messageTable(e.vm, m))
}

func (e *Engine) invokableNames(typeName string) []string {
	def, ok := e.defs[typeName]
	if !ok {
		return nil
	}
	invs := lTable(def, "invokables")
	if invs == nil {
		return nil
	}
	var out []string
	invs.ForEach(func(k, v lua.LValue) {
		if v.Type() == lua.LTFunction {
			out = append(out, k.String())
		}
	})
	sort.Strings(out)
	return out
}

// register applies the listen (global) and about_self tables.
func (e *Engine) register(g *actor.GameProxy, typeName string) {
	def, ok := e.defs[typeName]
	if !ok {
		return
	}
	e.eachRoute(def, "listen", func(t *msg.Type, inv string) {
		if _, err := g.RegisterForMessages(t, inv); err != nil {
			e.log.Warn("lua listen registration", zap.String("type", typeName), zap.Error(err))
		}
	})
	e.eachRoute(def, "about_self", func(t *msg.Type, inv string) {
		if err := g.RegisterForMessagesAboutSelf(t, inv); err != nil {
			e.log.Warn("lua about_self registration", zap.String("type", typeName), zap.Error(err))
		}
	})
}

func (e *Engine) eachRoute(def *lua.LTable, key string, fn func(t *msg.Type, invokable string)) {
	routes := lTable(def, key)
	if routes == nil {
		return
	}
	routes.ForEach(func(k, v lua.LValue) {
		t, ok := msg.TypeByName(k.String())
		if !ok {
			e.log.Warn("lua route for unknown message type", zap.String("table", key), zap.String("message", k.String()))
			return
		}
		fn(t, v.String())
	})
}
