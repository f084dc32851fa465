//go:build !no_automation

package automation

import (
	"context"
	"time"

	lua "github.com/yuin/gopher-lua"
)

const commandTimeout = 10 * time.Second

// registerZigbeeModule registers the `zigbee` global table in a Lua state.
func registerZigbeeModule(L *lua.LState, vm *scriptVM, e *Engine) {
	mod := L.NewTable()

	mod.RawSetString("on", L.NewFunction(func(L *lua.LState) int {
		return zigbeeOn(L, vm)
	}))

	mod.RawSetString("set", L.NewFunction(func(L *lua.LState) int {
		return zigbeeSet(L, vm, e)
	}))

	mod.RawSetString("get", L.NewFunction(func(L *lua.LState) int {
		return zigbeeGet(L, e)
	}))

	mod.RawSetString("read", L.NewFunction(func(L *lua.LState) int {
		return zigbeeRead(L, vm, e)
	}))

	mod.RawSetString("devices", L.NewFunction(func(L *lua.LState) int {
		return zigbeeDevices(L, e)
	}))

	mod.RawSetString("after", L.NewFunction(func(L *lua.LState) int {
		return zigbeeAfter(L, vm, e)
	}))

	mod.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		msg := L.CheckString(1)
		if vm.logf != nil {
			vm.logf(msg)
		}
		e.logger.Info("script log", "msg", msg)
		return 0
	}))

	L.SetGlobal("zigbee", mod)
}

const maxHandlersPerScript = 100

// zigbee.on(type, [filter], callback)
func zigbeeOn(L *lua.LState, vm *scriptVM) int {
	h := luaEventHandler{eventType: L.CheckString(1)}

	if fn, ok := L.Get(2).(*lua.LFunction); ok {
		h.fn = fn
	} else {
		filter := L.OptTable(2, L.NewTable())
		h.fn = L.CheckFunction(3)
		if v := filter.RawGetString("device"); v != lua.LNil {
			h.device = v.String()
		}
		if v := filter.RawGetString("key"); v != lua.LNil {
			h.key = v.String()
		}
	}

	vm.mu.Lock()
	if len(vm.handlers) >= maxHandlersPerScript {
		vm.mu.Unlock()
		L.RaiseError("too many handlers (max %d)", maxHandlersPerScript)
		return 0
	}
	vm.handlers = append(vm.handlers, h)
	vm.mu.Unlock()

	return 0
}

func commandContext(vm *scriptVM) (context.Context, context.CancelFunc) {
	return context.WithTimeout(vm.ctx, commandTimeout)
}

// zigbee.set(device, payload) -> state | nil, err
//
// A partially applied payload returns the resulting state together with
// the error.
func zigbeeSet(L *lua.LState, vm *scriptVM, e *Engine) int {
	target := L.CheckString(1)
	payload, ok := luaToGo(L.CheckTable(2)).(map[string]interface{})
	if !ok {
		L.ArgError(2, "payload must be a table with string keys")
		return 0
	}

	ctx, cancel := commandContext(vm)
	defer cancel()

	state, err := e.core.Set(ctx, target, payload)
	if state != nil {
		L.Push(goToLua(L, state))
	} else {
		L.Push(lua.LNil)
	}
	if err != nil {
		e.logger.Warn("script set", "device", target, "err", err)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	return 1
}

// zigbee.get(device, [key]) -> cached state table, or one value of it
func zigbeeGet(L *lua.LState, e *Engine) int {
	target := L.CheckString(1)
	key := L.OptString(2, "")

	state, err := e.core.State(target)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	if key != "" {
		L.Push(goToLua(L, state[key]))
		return 1
	}
	L.Push(goToLua(L, state))
	return 1
}

// zigbee.read(device, key, ...) -> true | false, err
//
// Asks the light to report the given keys. Values arrive later as
// state_change events.
func zigbeeRead(L *lua.LState, vm *scriptVM, e *Engine) int {
	target := L.CheckString(1)
	var keys []string
	for i := 2; i <= L.GetTop(); i++ {
		keys = append(keys, L.CheckString(i))
	}

	ctx, cancel := commandContext(vm)
	defer cancel()

	if err := e.core.Get(ctx, target, keys); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

// zigbee.devices() -> list of {ieee, name, model, manufacturer, supported}
func zigbeeDevices(L *lua.LState, e *Engine) int {
	devices, err := e.core.Devices()
	if err != nil {
		e.logger.Warn("script devices", "err", err)
		L.Push(L.NewTable())
		return 1
	}

	tbl := L.NewTable()
	for i, dev := range devices {
		d := L.NewTable()
		d.RawSetString("ieee", lua.LString(dev.IEEEAddress))
		d.RawSetString("name", lua.LString(dev.Name()))
		d.RawSetString("model", lua.LString(dev.Model))
		d.RawSetString("manufacturer", lua.LString(dev.Manufacturer))
		d.RawSetString("supported", lua.LBool(e.core.Definition(dev) != nil))
		tbl.RawSetInt(i+1, d)
	}

	L.Push(tbl)
	return 1
}

// zigbee.after(seconds, callback)
func zigbeeAfter(L *lua.LState, vm *scriptVM, e *Engine) int {
	seconds := L.CheckNumber(1)
	fn := L.CheckFunction(2)

	go func() {
		timer := time.NewTimer(time.Duration(float64(seconds) * float64(time.Second)))
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-vm.ctx.Done():
			return
		}

		select {
		case vm.commands <- func(L *lua.LState) {
			if err := L.CallByParam(lua.P{
				Fn:      fn,
				NRet:    0,
				Protect: true,
			}); err != nil {
				e.logger.Error("after callback error", "err", err)
			}
		}:
		default:
			e.logger.Warn("after: command channel full")
		}
	}()

	return 0
}
