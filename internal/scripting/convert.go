package scripting

import (
	"fmt"

	"github.com/l1jgo/simcore/internal/core/value"
	lua "github.com/yuin/gopher-lua"
)

// maxDepth bounds table conversion; Lua tables may be cyclic.
const maxDepth = 32

// toLua converts a kernel value into a Lua value. Vectors become tables
// carrying the same "_type" tag they have on the wire.
func toLua(L *lua.LState, v any) lua.LValue {
	return toLuaDepth(L, v, 0)
}

func toLuaDepth(L *lua.LState, v any, depth int) lua.LValue {
	if depth > maxDepth {
		return lua.LNil
	}
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case string:
		return lua.LString(x)
	case int:
		return lua.LNumber(x)
	case int32:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case uint:
		return lua.LNumber(x)
	case uint32:
		return lua.LNumber(x)
	case uint64:
		return lua.LNumber(x)
	case float32:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case map[string]any:
		t := L.CreateTable(0, len(x))
		for k, e := range x {
			t.RawSetString(k, toLuaDepth(L, e, depth+1))
		}
		return t
	case []any:
		t := L.CreateTable(len(x), 0)
		for _, e := range x {
			t.Append(toLuaDepth(L, e, depth+1))
		}
		return t
	case value.Vector3:
		t := L.CreateTable(0, 4)
		t.RawSetString("x", lua.LNumber(x.X))
		t.RawSetString("y", lua.LNumber(x.Y))
		t.RawSetString("z", lua.LNumber(x.Z))
		t.RawSetString("_type", lua.LString(value.TypeVector3))
		return t
	case value.Quaternion:
		t := L.CreateTable(0, 5)
		t.RawSetString("x", lua.LNumber(x.X))
		t.RawSetString("y", lua.LNumber(x.Y))
		t.RawSetString("z", lua.LNumber(x.Z))
		t.RawSetString("w", lua.LNumber(x.W))
		t.RawSetString("_type", lua.LString(value.TypeQuaternion))
		return t
	case value.Euler:
		t := L.CreateTable(0, 5)
		t.RawSetString("x", lua.LNumber(x.X))
		t.RawSetString("y", lua.LNumber(x.Y))
		t.RawSetString("z", lua.LNumber(x.Z))
		t.RawSetString("order", lua.LString(x.Order))
		t.RawSetString("_type", lua.LString(value.TypeEuler))
		return t
	case lua.LValue:
		return x
	default:
		return lua.LString(fmt.Sprint(x))
	}
}

// fromLua converts a Lua value into a kernel value. Numbers are float64.
// A table with keys 1..n is a []any, any other table a map[string]any,
// except tagged vector tables, which come back as value.Vector3 and friends.
func fromLua(lv lua.LValue) any {
	return fromLuaDepth(lv, 0)
}

func fromLuaDepth(lv lua.LValue, depth int) any {
	switch x := lv.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(x)
	case lua.LNumber:
		return float64(x)
	case lua.LString:
		return string(x)
	case *lua.LTable:
		if depth >= maxDepth {
			return nil
		}
		return tableToGo(x, depth)
	default:
		return lv.String()
	}
}

func tableToGo(t *lua.LTable, depth int) any {
	n := t.MaxN()
	count := 0
	t.ForEach(func(lua.LValue, lua.LValue) { count++ })

	if n > 0 && count == n {
		out := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			out = append(out, fromLuaDepth(t.RawGetInt(i), depth+1))
		}
		return out
	}

	if tag, ok := t.RawGetString("_type").(lua.LString); ok {
		if v, ok := vectorFromTable(t, string(tag)); ok {
			return v
		}
	}

	out := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		out[k.String()] = fromLuaDepth(v, depth+1)
	})
	return out
}

func vectorFromTable(t *lua.LTable, tag string) (any, bool) {
	num := func(key string) float64 {
		return float64(lua.LVAsNumber(t.RawGetString(key)))
	}
	switch tag {
	case value.TypeVector3:
		return value.Vector3{X: num("x"), Y: num("y"), Z: num("z")}, true
	case value.TypeQuaternion:
		return value.Quaternion{X: num("x"), Y: num("y"), Z: num("z"), W: num("w")}, true
	case value.TypeEuler:
		return value.Euler{X: num("x"), Y: num("y"), Z: num("z"), Order: lua.LVAsString(t.RawGetString("order"))}, true
	}
	return nil, false
}
