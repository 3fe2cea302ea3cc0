package scripting

import (
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/core/state"
	"github.com/l1jgo/simcore/internal/core/system"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// installAPI registers the global sim table:
//
//	sim.emit(topic, payload) -> delivered
//	sim.on(topic, fn(payload, topic, ms), priority?) -> id
//	sim.once(topic, fn(payload, topic, ms), priority?) -> id
//	sim.off(id) -> removed
//	sim.get(path, default?) -> value
//	sim.set(path, value, silent?) -> changed
//	sim.delete(path) -> removed
//	sim.watch(path, fn(new, old, path)) -> id
//	sim.unwatch(id) -> removed
//	sim.loop(name, bucket, fn(dt, elapsed, tick, bucket), priority?)
//	sim.unloop(name) -> removed
//	sim.log(msg)
//
// Times reach scripts as seconds.
func (e *Engine) installAPI() {
	e.vm.SetGlobal("sim", e.vm.SetFuncs(e.vm.NewTable(), map[string]lua.LGFunction{
		"emit":    e.luaEmit,
		"on":      e.luaOn,
		"once":    e.luaOnce,
		"off":     e.luaOff,
		"get":     e.luaGet,
		"set":     e.luaSet,
		"delete":  e.luaDelete,
		"watch":   e.luaWatch,
		"unwatch": e.luaUnwatch,
		"loop":    e.luaLoop,
		"unloop":  e.luaUnloop,
		"log":     e.luaLog,
	}))
}

func (e *Engine) bus(L *lua.LState) *event.Bus {
	if e.deps.Bus == nil {
		L.RaiseError("sim: no event bus")
	}
	return e.deps.Bus
}

func (e *Engine) store(L *lua.LState) *state.Store {
	if e.deps.Store == nil {
		L.RaiseError("sim: no state store")
	}
	return e.deps.Store
}

func (e *Engine) scheduler(L *lua.LState) *system.Scheduler {
	if e.deps.Scheduler == nil {
		L.RaiseError("sim: no scheduler")
	}
	return e.deps.Scheduler
}

func (e *Engine) luaEmit(L *lua.LState) int {
	t, err := event.ParseTopic(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
	}
	L.Push(lua.LBool(e.bus(L).Emit(t, fromLua(L.Get(2)))))
	return 1
}

func (e *Engine) luaOn(L *lua.LState) int   { return e.subscribe(L, false) }
func (e *Engine) luaOnce(L *lua.LState) int { return e.subscribe(L, true) }

func (e *Engine) subscribe(L *lua.LState, once bool) int {
	t, err := event.ParseTopic(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
	}
	fn := L.CheckFunction(2)
	prio := L.OptInt(3, 0)
	bus := e.bus(L)

	e.nextID++
	id := e.nextID
	where := "on " + t.String()
	h := func(ev event.Event) {
		if once {
			delete(e.busSubs, id)
		}
		e.callback(fn, where,
			toLua(e.vm, ev.Payload),
			lua.LString(ev.Topic),
			lua.LNumber(ev.Timestamp.UnixMilli()),
		)
	}

	register := bus.On
	if once {
		register = bus.Once
	}
	sub, err := register(t, h, event.WithPriority(prio))
	if err != nil {
		L.RaiseError("sim.on: %s", err.Error())
	}
	e.busSubs[id] = sub
	L.Push(lua.LNumber(id))
	return 1
}

func (e *Engine) luaOff(L *lua.LState) int {
	id := L.CheckInt(1)
	sub, ok := e.busSubs[id]
	if ok {
		sub.Cancel()
		delete(e.busSubs, id)
	}
	L.Push(lua.LBool(ok))
	return 1
}

func (e *Engine) luaGet(L *lua.LState) int {
	p, err := state.ParsePath(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
	}
	L.Push(toLua(L, e.store(L).Get(p, fromLua(L.Get(2)))))
	return 1
}

func (e *Engine) luaSet(L *lua.LState) int {
	p, err := state.ParsePath(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
	}
	silent := L.OptBool(3, false)
	L.Push(lua.LBool(e.store(L).Set(p, fromLua(L.Get(2)), silent)))
	return 1
}

func (e *Engine) luaDelete(L *lua.LState) int {
	p, err := state.ParsePath(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
	}
	L.Push(lua.LBool(e.store(L).Delete(p, L.OptBool(2, false))))
	return 1
}

func (e *Engine) luaWatch(L *lua.LState) int {
	p, err := state.ParsePath(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
	}
	fn := L.CheckFunction(2)
	where := "watch " + p.String()
	sub, err := e.store(L).Subscribe(p, func(newValue, oldValue any, changed state.Path) {
		e.callback(fn, where, toLua(e.vm, newValue), toLua(e.vm, oldValue), lua.LString(changed.String()))
	})
	if err != nil {
		L.RaiseError("sim.watch: %s", err.Error())
	}
	e.nextID++
	e.watches[e.nextID] = sub
	L.Push(lua.LNumber(e.nextID))
	return 1
}

func (e *Engine) luaUnwatch(L *lua.LState) int {
	id := L.CheckInt(1)
	sub, ok := e.watches[id]
	if ok {
		sub.Cancel()
		delete(e.watches, id)
	}
	L.Push(lua.LBool(ok))
	return 1
}

func (e *Engine) luaLoop(L *lua.LState) int {
	name := L.CheckString(1)
	bucket := L.CheckString(2)
	fn := L.CheckFunction(3)
	prio := L.OptInt(4, system.DefaultPriority)

	where := "loop " + name
	u := system.UpdaterFunc(func(f system.Frame) {
		e.callback(fn, where,
			lua.LNumber(f.Delta.Seconds()),
			lua.LNumber(f.Elapsed.Seconds()),
			lua.LNumber(f.Tick),
			lua.LString(f.Bucket),
		)
	})
	h, err := e.scheduler(L).AddLoop(name, u, bucket, system.WithPriority(prio))
	if err != nil {
		L.RaiseError("sim.loop: %s", err.Error())
	}
	e.loops[name] = h
	return 0
}

func (e *Engine) luaUnloop(L *lua.LState) int {
	name := L.CheckString(1)
	h, ok := e.loops[name]
	if ok {
		h.Remove()
		delete(e.loops, name)
	}
	L.Push(lua.LBool(ok))
	return 1
}

func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}
