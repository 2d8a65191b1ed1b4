package scripting

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/actor"
	"github.com/l1jgo/gamemanager/internal/core/msg"
	"github.com/l1jgo/gamemanager/internal/core/uid"
)

const actorTypeName = "actor"

var errNotBound = errors.New("scripts are not bound to a game manager")

// openAPI installs the globals scripts see: behavior(), the gm module and
// the actor methods.
func (e *Engine) openAPI(L *lua.LState, defs map[string]*lua.LTable) {
	L.SetGlobal("behavior", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		def := L.CheckTable(2)
		if _, dup := defs[name]; dup {
			e.log.Warn("lua behavior redefined", zap.String("type", name))
		}
		defs[name] = def
		return 0
	}))

	mt := L.NewTypeMetatable(actorTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), actorMethods))

	L.SetGlobal("gm", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"send":    e.luaSend,
		"process": e.luaProcess,
		"timer":   e.luaTimer,
		"delete":  e.luaDelete,
		"time":    e.luaTime,
		"log":     e.luaLog,
	}))
}

// gm.send(type_name, {about = id, params = {...}})
func (e *Engine) luaSend(L *lua.LState) int {
	m, err := e.buildMessage(L.CheckString(1), L.OptTable(2, nil))
	if err != nil {
		L.RaiseError("gm.send: %v", err)
		return 0
	}
	e.host.SendMessage(m)
	return 0
}

// gm.process(type_name, {about = id, params = {...}})
func (e *Engine) luaProcess(L *lua.LState) int {
	m, err := e.buildMessage(L.CheckString(1), L.OptTable(2, nil))
	if err != nil {
		L.RaiseError("gm.process: %v", err)
		return 0
	}
	e.host.ProcessMessage(m)
	return 0
}

// gm.timer(name, about_id, seconds, repeat, real_time)
func (e *Engine) luaTimer(L *lua.LState) int {
	if e.host == nil {
		L.RaiseError("gm.timer: %v", errNotBound)
		return 0
	}
	about, err := parseID(L.OptString(2, ""))
	if err != nil {
		L.ArgError(2, err.Error())
		return 0
	}
	e.host.SetTimer(L.CheckString(1), about, float64(L.CheckNumber(3)), L.OptBool(4, false), L.OptBool(5, false))
	return 0
}

// gm.delete(id) returns true, or false and a reason.
func (e *Engine) luaDelete(L *lua.LState) int {
	if e.host == nil {
		L.RaiseError("gm.delete: %v", errNotBound)
		return 0
	}
	id, err := parseID(L.CheckString(1))
	if err == nil {
		err = e.host.DeleteActorByID(id)
	}
	if err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

func (e *Engine) luaTime(L *lua.LState) int {
	if e.host == nil {
		L.Push(lua.LNumber(0))
		return 1
	}
	L.Push(lua.LNumber(e.host.SimulationTime()))
	return 1
}

func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

func (e *Engine) buildMessage(typeName string, opts *lua.LTable) (*msg.Message, error) {
	if e.host == nil {
		return nil, errNotBound
	}
	t, ok := msg.TypeByName(typeName)
	if !ok {
		return nil, fmt.Errorf("unknown message type %q", typeName)
	}
	m := e.host.MessageFactory().Create(t)
	if opts == nil {
		return m, nil
	}
	if s := lStr(opts, "about"); s != "" {
		id, err := parseID(s)
		if err != nil {
			return nil, err
		}
		m.SetAboutActorID(id)
	}
	if s := lStr(opts, "sending"); s != "" {
		id, err := parseID(s)
		if err != nil {
			return nil, err
		}
		m.SetSendingActorID(id)
	}
	var perr error
	if params := lTable(opts, "params"); params != nil {
		params.ForEach(func(k, v lua.LValue) {
			if perr != nil {
				return
			}
			if err := m.SetParam(k.String(), fromLua(v)); err != nil {
				perr = fmt.Errorf("param %s: %w", k.String(), err)
			}
		})
	}
	return m, perr
}

func parseID(s string) (uid.ID, error) {
	if s == "" {
		return uid.Null, nil
	}
	return uid.Parse(s)
}

var actorMethods = map[string]lua.LGFunction{
	"id":           actorID,
	"name":         actorName,
	"type":         actorTypeFullName,
	"get":          actorGet,
	"set":          actorSet,
	"notify":       actorNotify,
	"is_remote":    actorIsRemote,
	"is_published": actorIsPublished,
}

func newActor(L *lua.LState, g *actor.GameProxy) lua.LValue {
	ud := L.NewUserData()
	ud.Value = g
	L.SetMetatable(ud, L.GetTypeMetatable(actorTypeName))
	return ud
}

func checkActor(L *lua.LState) *actor.GameProxy {
	ud := L.CheckUserData(1)
	if g, ok := ud.Value.(*actor.GameProxy); ok {
		return g
	}
	L.ArgError(1, "actor expected")
	return nil
}

func actorID(L *lua.LState) int {
	L.Push(lua.LString(checkActor(L).ID().String()))
	return 1
}

func actorName(L *lua.LState) int {
	L.Push(lua.LString(checkActor(L).Name()))
	return 1
}

func actorTypeFullName(L *lua.LState) int {
	L.Push(lua.LString(checkActor(L).Type().FullName()))
	return 1
}

func actorIsRemote(L *lua.LState) int {
	L.Push(lua.LBool(checkActor(L).IsRemote()))
	return 1
}

func actorIsPublished(L *lua.LState) int {
	L.Push(lua.LBool(checkActor(L).IsPublished()))
	return 1
}

func actorGet(L *lua.LState) int {
	g := checkActor(L)
	p := g.Property(L.CheckString(2))
	if p == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(toLua(L, p.Value()))
	return 1
}

// actor:set(name, value) returns true, or false and a reason.
func actorSet(L *lua.LState) int {
	g := checkActor(L)
	name := L.CheckString(2)
	p := g.Property(name)
	if p == nil {
		L.ArgError(2, "unknown property "+name)
		return 0
	}
	if err := p.Set(fromLua(L.Get(3))); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// actor:notify(...) sends a full update, or a partial one naming the given
// properties.
func actorNotify(L *lua.LState) int {
	g := checkActor(L)
	var names []string
	for i := 2; i <= L.GetTop(); i++ {
		names = append(names, L.CheckString(i))
	}
	if len(names) == 0 {
		g.NotifyFullActorUpdate()
	} else {
		g.NotifyPartialActorUpdate(names...)
	}
	return 0
}

func toLua(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case bool:
		return lua.LBool(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case string:
		return lua.LString(x)
	case uid.ID:
		return lua.LString(x.String())
	case msg.Vec3:
		t := L.NewTable()
		t.RawSetString("x", lua.LNumber(x[0]))
		t.RawSetString("y", lua.LNumber(x[1]))
		t.RawSetString("z", lua.LNumber(x[2]))
		return t
	}
	return lua.LNil
}

func fromLua(v lua.LValue) any {
	switch x := v.(type) {
	case lua.LBool:
		return bool(x)
	case lua.LNumber:
		return float64(x)
	case lua.LString:
		return string(x)
	case *lua.LTable:
		if x.RawGetString("x") != lua.LNil {
			return msg.Vec3{
				float64(lua.LVAsNumber(x.RawGetString("x"))),
				float64(lua.LVAsNumber(x.RawGetString("y"))),
				float64(lua.LVAsNumber(x.RawGetString("z"))),
			}
		}
		if x.Len() == 3 {
			return msg.Vec3{
				float64(lua.LVAsNumber(x.RawGetInt(1))),
				float64(lua.LVAsNumber(x.RawGetInt(2))),
				float64(lua.LVAsNumber(x.RawGetInt(3))),
			}
		}
	}
	return nil
}

func messageTable(L *lua.LState, m *msg.Message) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("type", lua.LString(m.Type().Name()))
	t.RawSetString("about", lua.LString(m.AboutActorID().String()))
	t.RawSetString("sending", lua.LString(m.SendingActorID().String()))
	if src := m.Source(); src != nil {
		t.RawSetString("source", lua.LString(src.Name))
	}
	params := L.NewTable()
	m.Params().Each(func(p *msg.Param) {
		params.RawSetString(p.Name(), toLua(L, p.Value()))
	})
	t.RawSetString("params", params)
	if ups := m.UpdateParams(); ups != nil {
		updates := L.NewTable()
		ups.Each(func(p *msg.Param) {
			updates.RawSetString(p.Name(), toLua(L, p.Value()))
		})
		t.RawSetString("updates", updates)
		t.RawSetString("name", lua.LString(m.ActorName()))
	}
	return t
}

func tickTable(L *lua.LState, tick msg.Tick) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("dt", lua.LNumber(tick.DeltaSimTime))
	t.RawSetString("dt_real", lua.LNumber(tick.DeltaRealTime))
	t.RawSetString("scale", lua.LNumber(tick.SimTimeScale))
	t.RawSetString("sim_time", lua.LNumber(tick.SimulationTime))
	return t
}
