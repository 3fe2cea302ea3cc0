package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/core/state"
	"github.com/l1jgo/simcore/internal/core/system"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// APIVersion is exposed to scripts as the global API_VERSION.
const APIVersion = 1

// Deps are the kernel parts scripts can reach through the sim table.
// Any of them may be nil; the matching sim functions then raise an error.
type Deps struct {
	Bus       *event.Bus
	Store     *state.Store
	Scheduler *system.Scheduler
}

// Engine wraps a single gopher-lua VM.
// Single-goroutine access only (the frame loop).
type Engine struct {
	vm   *lua.LState
	log  *zap.Logger
	deps Deps

	nextID  int
	busSubs map[int]*event.Subscription
	watches map[int]*state.Subscription
	loops   map[string]*system.Handle

	errors uint64
}

// NewEngine creates a Lua engine, installs the sim table, and loads every
// .lua file in scriptsDir in name order. A missing directory loads nothing.
func NewEngine(scriptsDir string, deps Deps, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(APIVersion))

	e := &Engine{
		vm:      vm,
		log:     log,
		deps:    deps,
		busSubs: make(map[int]*event.Subscription),
		watches: make(map[int]*state.Subscription),
		loops:   make(map[string]*system.Handle),
	}
	e.installAPI()

	if scriptsDir != "" {
		if err := e.loadDir(scriptsDir); err != nil {
			e.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
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
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua in the engine's VM.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// Call invokes a global Lua function and returns its first result converted
// to a kernel value. A missing function is an error.
func (e *Engine) Call(name string, args ...any) (any, error) {
	fn := e.vm.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("lua function %s not found", name)
	}
	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		largs[i] = toLua(e.vm, a)
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, largs...); err != nil {
		return nil, fmt.Errorf("lua %s: %w", name, err)
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return fromLua(result), nil
}

// Errors returns how many script callbacks raised an error.
func (e *Engine) Errors() uint64 { return e.errors }

// Close removes every listener, watch and loop the scripts registered, then
// releases the VM.
func (e *Engine) Close() {
	if e.vm == nil {
		return
	}
	for id, sub := range e.busSubs {
		sub.Cancel()
		delete(e.busSubs, id)
	}
	for id, sub := range e.watches {
		sub.Cancel()
		delete(e.watches, id)
	}
	for name, h := range e.loops {
		h.Remove()
		delete(e.loops, name)
	}
	e.vm.Close()
	e.vm = nil
}

// callback runs a script function from Go. Errors are logged and counted so
// a broken script never stops the frame.
func (e *Engine) callback(fn *lua.LFunction, where string, args ...lua.LValue) {
	if e.vm == nil {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		e.errors++
		e.log.Error("lua callback error", zap.String("callback", where), zap.Error(err))
	}
}
