//go:build !no_automation

package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"zigbee-go-color/internal/bridge"

	lua "github.com/yuin/gopher-lua"
)

const runTimeout = 5 * time.Second

// RunResult is the result of a one-shot script execution.
type RunResult struct {
	OK       bool     `json:"ok"`
	Error    string   `json:"error,omitempty"`
	Logs     []string `json:"logs"`
	Duration string   `json:"duration"`
}

// luaEventHandler is a registered Lua callback for a specific event pattern.
type luaEventHandler struct {
	eventType string
	device    string // IEEE address or friendly name (empty = any)
	key       string // state key the change must touch (empty = any)
	fn        *lua.LFunction
}

// scriptVM is a running Lua VM for a single script.
type scriptVM struct {
	state    *lua.LState
	commands chan func(*lua.LState) // serializes Lua access
	handlers []luaEventHandler
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex // protects handlers

	// logf, when set, receives zigbee.log and system.log output.
	logf func(string)
}

// Engine manages Lua VMs and dispatches bridge events to scripts.
type Engine struct {
	core    *bridge.Bridge
	manager *Manager
	logger  *slog.Logger

	now func() time.Time

	mu    sync.Mutex
	vms   map[string]*scriptVM // script ID -> running VM
	unsub func()
}

// NewEngine creates a new automation engine.
func NewEngine(core *bridge.Bridge, mgr *Manager, logger *slog.Logger) *Engine {
	return &Engine{
		core:    core,
		manager: mgr,
		logger:  logger.With("component", "automation"),
		now:     time.Now,
		vms:     make(map[string]*scriptVM),
	}
}

// Start subscribes to the event bus and loads all enabled scripts.
func (e *Engine) Start() {
	e.unsub = e.core.Events().OnAll(e.dispatchEvent)

	scripts, err := e.manager.List()
	if err != nil {
		e.logger.Error("load scripts", "err", err)
		return
	}

	for _, s := range scripts {
		if !s.Meta.Enabled {
			continue
		}
		if err := e.startScript(s); err != nil {
			e.logger.Error("start script", "id", s.ID, "err", err)
		}
	}

	e.mu.Lock()
	n := len(e.vms)
	e.mu.Unlock()
	e.logger.Info("automation engine started", "scripts", n)
}

// Stop cancels all VMs and unsubscribes from the event bus.
func (e *Engine) Stop() {
	if e.unsub != nil {
		e.unsub()
		e.unsub = nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for id, vm := range e.vms {
		vm.cancel()
		delete(e.vms, id)
	}

	e.logger.Info("automation engine stopped")
}

// Running returns the IDs of scripts with a live VM.
func (e *Engine) Running() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.vms))
	for id := range e.vms {
		ids = append(ids, id)
	}
	return ids
}

// ReloadScript stops the old VM (if any) and starts a new one.
func (e *Engine) ReloadScript(id string) error {
	e.stopScript(id)

	s, err := e.manager.Get(id)
	if err != nil {
		return fmt.Errorf("get script: %w", err)
	}

	if !s.Meta.Enabled {
		return nil
	}

	return e.startScript(s)
}

// StopScript stops a running script VM.
func (e *Engine) StopScript(id string) {
	e.stopScript(id)
}

// RunScript executes a stored script once in a temporary VM.
func (e *Engine) RunScript(id string) *RunResult {
	start := time.Now()

	s, err := e.manager.Get(id)
	if err != nil {
		return &RunResult{OK: false, Error: "script not found: " + err.Error(), Duration: time.Since(start).String()}
	}

	return e.RunLuaCode(s.LuaCode)
}

// RunLuaCode executes Lua code in a temporary sandboxed VM. The top-level
// code runs first; every handler it registered with zigbee.on is then
// invoked once with a synthetic event so the actions run. Log output is
// captured in the result.
func (e *Engine) RunLuaCode(code string) *RunResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	var logs []string
	var logMu sync.Mutex

	vm := e.newVM(ctx, cancel)
	defer vm.state.Close()
	vm.logf = func(msg string) {
		logMu.Lock()
		logs = append(logs, msg)
		logMu.Unlock()
	}
	L := vm.state
	L.SetContext(ctx)

	fail := func(err error) *RunResult {
		msg := err.Error()
		if strings.Contains(msg, "context deadline exceeded") {
			msg = fmt.Sprintf("timeout (%s)", runTimeout)
		}
		e.logger.Warn("script run failed", "err", msg)
		logMu.Lock()
		defer logMu.Unlock()
		return &RunResult{OK: false, Error: msg, Logs: logs, Duration: time.Since(start).String()}
	}

	if err := L.DoString(code); err != nil {
		return fail(err)
	}

	for _, h := range vm.snapshotHandlers() {
		if err := L.CallByParam(lua.P{Fn: h.fn, NRet: 0, Protect: true}, e.syntheticEvent(L, h)); err != nil {
			return fail(err)
		}
	}

	logMu.Lock()
	defer logMu.Unlock()
	dur := time.Since(start)
	e.logger.Debug("script run complete", "logs", len(logs), "duration", dur)
	return &RunResult{OK: true, Logs: logs, Duration: dur.String()}
}

// syntheticEvent builds the event a handler receives during a one-shot
// run. The device's current state is included when the filter names one.
func (e *Engine) syntheticEvent(L *lua.LState, h luaEventHandler) *lua.LTable {
	ev := L.NewTable()
	ev.RawSetString("type", lua.LString(h.eventType))
	if h.device == "" {
		return ev
	}
	dev, err := e.core.Device(h.device)
	if err != nil {
		ev.RawSetString("device", lua.LString(h.device))
		return ev
	}
	ev.RawSetString("ieee", lua.LString(dev.IEEEAddress))
	ev.RawSetString("device", lua.LString(dev.Name()))
	state, _ := e.core.State(dev.IEEEAddress)
	ev.RawSetString("state", goToLua(L, state))
	ev.RawSetString("delta", L.NewTable())
	if h.key != "" {
		ev.RawSetString("key", lua.LString(h.key))
		ev.RawSetString("value", goToLua(L, state[h.key]))
	}
	return ev
}

// newVM creates a sandboxed Lua state with the script modules registered.
func (e *Engine) newVM(ctx context.Context, cancel context.CancelFunc) *scriptVM {
	L := lua.NewState(lua.Options{SkipOpenLibs: false})

	for _, name := range []string{"os", "io", "loadfile", "dofile", "require", "load", "debug", "package"} {
		L.SetGlobal(name, lua.LNil)
	}

	vm := &scriptVM{
		state:    L,
		commands: make(chan func(*lua.LState), 64),
		ctx:      ctx,
		cancel:   cancel,
	}

	registerZigbeeModule(L, vm, e)
	registerSystemModule(L, vm, e)
	registerColorModule(L)
	registerGradientModule(L)
	return vm
}

func (e *Engine) stopScript(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if vm, ok := e.vms[id]; ok {
		vm.cancel()
		delete(e.vms, id)
		e.logger.Info("script stopped", "id", id)
	}
}

func (e *Engine) startScript(s *Script) error {
	ctx, cancel := context.WithCancel(context.Background())
	vm := e.newVM(ctx, cancel)
	L := vm.state

	if err := L.DoString(s.LuaCode); err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("execute script %s: %w", s.ID, err)
	}

	e.mu.Lock()
	e.vms[s.ID] = vm
	e.mu.Unlock()

	go func() {
		defer L.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case fn := <-vm.commands:
				fn(L)
			}
		}
	}()

	e.logger.Info("script started", "id", s.ID, "name", s.Meta.Name)
	return nil
}

func (vm *scriptVM) snapshotHandlers() []luaEventHandler {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	handlers := make([]luaEventHandler, len(vm.handlers))
	copy(handlers, vm.handlers)
	return handlers
}

// dispatchEvent routes a bridge event to all matching Lua handlers.
func (e *Engine) dispatchEvent(event bridge.Event) {
	e.mu.Lock()
	vms := make([]*scriptVM, 0, len(e.vms))
	for _, vm := range e.vms {
		vms = append(vms, vm)
	}
	e.mu.Unlock()

	for _, vm := range vms {
		if vm.ctx.Err() != nil {
			continue
		}
		for _, h := range vm.snapshotHandlers() {
			if !matchesHandler(h, event) {
				continue
			}
			h := h
			select {
			case vm.commands <- func(L *lua.LState) { e.callHandler(L, h, event) }:
			default:
				e.logger.Warn("script command channel full, dropping event", "type", event.Type)
			}
		}
	}
}

func matchesDevice(filter, ieee, name string) bool {
	return filter == "" || strings.EqualFold(filter, ieee) || filter == name
}

func matchesHandler(h luaEventHandler, event bridge.Event) bool {
	if h.eventType != event.Type {
		return false
	}

	switch data := event.Data.(type) {
	case bridge.StateChange:
		if !matchesDevice(h.device, data.IEEEAddress, data.FriendlyName) {
			return false
		}
		if h.key != "" {
			if _, ok := data.Delta[h.key]; !ok {
				return false
			}
		}
		return true
	case bridge.DeviceEvent:
		if h.key != "" {
			return false
		}
		return matchesDevice(h.device, data.IEEEAddress, data.FriendlyName) ||
			(data.OldName != "" && h.device == data.OldName)
	}
	return h.device == "" && h.key == ""
}

// eventTable converts a bridge event into the table handed to Lua.
func eventTable(L *lua.LState, h luaEventHandler, event bridge.Event) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("type", lua.LString(event.Type))

	switch data := event.Data.(type) {
	case bridge.StateChange:
		t.RawSetString("ieee", lua.LString(data.IEEEAddress))
		t.RawSetString("device", lua.LString(data.FriendlyName))
		t.RawSetString("state", goToLua(L, data.State))
		t.RawSetString("delta", goToLua(L, data.Delta))
		if h.key != "" {
			t.RawSetString("key", lua.LString(h.key))
			t.RawSetString("value", goToLua(L, data.Delta[h.key]))
		}
	case bridge.DeviceEvent:
		t.RawSetString("ieee", lua.LString(data.IEEEAddress))
		t.RawSetString("device", lua.LString(data.FriendlyName))
		if data.OldName != "" {
			t.RawSetString("old_name", lua.LString(data.OldName))
		}
	}
	return t
}

func (e *Engine) callHandler(L *lua.LState, h luaEventHandler, event bridge.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("lua handler panic", "err", r)
		}
	}()

	if err := L.CallByParam(lua.P{
		Fn:      h.fn,
		NRet:    0,
		Protect: true,
	}, eventTable(L, h, event)); err != nil {
		e.logger.Error("lua handler error", "type", event.Type, "err", err)
	}
}

// goToLua converts a Go value to a Lua value. Types without a direct
// mapping go through their JSON form.
func goToLua(L *lua.LState, v interface{}) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case uint8:
		return lua.LNumber(val)
	case uint16:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case *float64:
		if val == nil {
			return lua.LNil
		}
		return lua.LNumber(*val)
	case map[string]interface{}:
		t := L.NewTable()
		for k, vv := range val {
			t.RawSetString(k, goToLua(L, vv))
		}
		return t
	case map[string]float64:
		t := L.NewTable()
		for k, vv := range val {
			t.RawSetString(k, lua.LNumber(vv))
		}
		return t
	case []interface{}:
		t := L.NewTable()
		for i, vv := range val {
			t.RawSetInt(i+1, goToLua(L, vv))
		}
		return t
	case []string:
		t := L.NewTable()
		for i, s := range val {
			t.RawSetInt(i+1, lua.LString(s))
		}
		return t
	}

	data, err := json.Marshal(v)
	if err != nil {
		return lua.LString(fmt.Sprintf("%v", v))
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return lua.LString(string(data))
	}
	return goToLua(L, generic)
}

// luaToGo converts a Lua value to its JSON-like Go form. Tables with only
// consecutive integer keys become slices, other tables maps.
func luaToGo(v lua.LValue) interface{} {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if n := val.MaxN(); n > 0 && val.Len() == n && countKeys(val) == n {
			arr := make([]interface{}, 0, n)
			for i := 1; i <= n; i++ {
				arr = append(arr, luaToGo(val.RawGetInt(i)))
			}
			return arr
		}
		m := make(map[string]interface{})
		val.ForEach(func(k, vv lua.LValue) {
			m[k.String()] = luaToGo(vv)
		})
		return m
	}
	return nil
}

func countKeys(t *lua.LTable) int {
	n := 0
	t.ForEach(func(_, _ lua.LValue) { n++ })
	return n
}
