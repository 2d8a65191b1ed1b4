package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/gamemanager/internal/core/msg"
	"github.com/l1jgo/gamemanager/internal/core/uid"
)

const apiVersion = 1

// Host is what scripts may ask of the game manager.
type Host interface {
	MessageFactory() *msg.Factory
	SendMessage(m *msg.Message)
	ProcessMessage(m *msg.Message)
	SetTimer(name string, about uid.ID, seconds float64, repeat, realTime bool)
	DeleteActorByID(id uid.ID) error
	SimulationTime() float64
}

// Engine wraps a single gopher-lua VM that runs actor behaviors.
// Single-goroutine access only (game loop). Reload swaps the VM only when
// the new scripts load cleanly.
type Engine struct {
	dir     string
	vm      *lua.LState
	defs    map[string]*lua.LTable
	host    Host
	log     *zap.Logger
	reloads int
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory: shared helpers from lib/ first, then behaviors from actors/.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := &Engine{dir: scriptsDir, log: log}
	vm, defs, err := e.load()
	if err != nil {
		return nil, err
	}
	e.vm, e.defs = vm, defs
	return e, nil
}

// Bind connects scripts to a game manager. Calls into gm.* before Bind
// raise a Lua error.
func (e *Engine) Bind(h Host) { e.host = h }

func (e *Engine) Dir() string  { return e.dir }
func (e *Engine) Reloads() int { return e.reloads }

// Behaviors lists, in order, the actor type names that have a script
// behavior.
func (e *Engine) Behaviors() []string {
	out := make([]string, 0, len(e.defs))
	for name := range e.defs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (e *Engine) HasBehavior(typeName string) bool {
	_, ok := e.defs[typeName]
	return ok
}

// Reload loads every script into a fresh VM. On failure the running VM is
// kept and the error returned.
func (e *Engine) Reload() error {
	vm, defs, err := e.load()
	if err != nil {
		e.log.Error("lua reload failed, keeping previous scripts", zap.Error(err))
		return err
	}
	old := e.vm
	e.vm, e.defs = vm, defs
	old.Close()
	e.reloads++
	e.log.Info("lua scripts reloaded", zap.Int("behaviors", len(defs)), zap.Int("reloads", e.reloads))
	return nil
}

func (e *Engine) load() (*lua.LState, map[string]*lua.LTable, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(apiVersion))

	defs := make(map[string]*lua.LTable, 16)
	e.openAPI(vm, defs)

	for _, sub := range []string{"lib", "actors"} {
		p := filepath.Join(e.dir, sub)
		if err := e.loadDir(vm, p); err != nil {
			vm.Close()
			return nil, nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}
	return vm, defs, nil
}

// loadDir loads all .lua files in a directory in name order.
func (e *Engine) loadDir(vm *lua.LState, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// call runs fn with protection. Script errors are logged and reported as
// false; they never reach the game loop.
func (e *Engine) call(where string, fn lua.LValue, args ...lua.LValue) bool {
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua call error", zap.String("func", where), zap.Error(err))
		return false
	}
	return true
}

// field returns the function stored under key in the behavior of typeName,
// or nil.
func (e *Engine) field(typeName, key string) lua.LValue {
	def, ok := e.defs[typeName]
	if !ok {
		return nil
	}
	fn := def.RawGetString(key)
	if fn.Type() != lua.LTFunction {
		return nil
	}
	return fn
}

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	return lua.LVAsString(t.RawGetString(key))
}

// lTable reads a table field from a Lua table, or nil.
func lTable(t *lua.LTable, key string) *lua.LTable {
	v, _ := t.RawGetString(key).(*lua.LTable)
	return v
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
