//go:build !no_automation

package automation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Circadian curve: warm outside daylight, coolest at midday.
const (
	dayStartMinute    = 5 * 60
	dayEndMinute      = 21 * 60
	defaultWarmMireds = 454
	defaultCoolMireds = 250
)

var clockFields = map[string]func(time.Time) lua.LValue{
	"hour":      func(t time.Time) lua.LValue { return lua.LNumber(t.Hour()) },
	"minute":    func(t time.Time) lua.LValue { return lua.LNumber(t.Minute()) },
	"second":    func(t time.Time) lua.LValue { return lua.LNumber(t.Second()) },
	"weekday":   func(t time.Time) lua.LValue { return lua.LNumber(t.Weekday()) },
	"day":       func(t time.Time) lua.LValue { return lua.LNumber(t.Day()) },
	"month":     func(t time.Time) lua.LValue { return lua.LNumber(t.Month()) },
	"year":      func(t time.Time) lua.LValue { return lua.LNumber(t.Year()) },
	"timestamp": func(t time.Time) lua.LValue { return lua.LNumber(t.Unix()) },
	"time_str":  func(t time.Time) lua.LValue { return lua.LString(t.Format(time.TimeOnly)) },
	"date_str":  func(t time.Time) lua.LValue { return lua.LString(t.Format(time.DateOnly)) },
}

// registerSystemModule installs the `system` table: clock access, the
// circadian color temperature and leveled logging.
func registerSystemModule(L *lua.LState, vm *scriptVM, e *Engine) {
	clock := e.now
	if clock == nil {
		clock = time.Now
	}

	L.SetGlobal("system", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"datetime": func(L *lua.LState) int {
			return systemDatetime(L, clock())
		},
		"time_between": func(L *lua.LState) int {
			return systemTimeBetween(L, clock())
		},
		"circadian_mireds": func(L *lua.LState) int {
			return systemCircadianMireds(L, clock())
		},
		"log": func(L *lua.LState) int {
			return systemLog(L, vm, e)
		},
	}))
}

// system.datetime([field]) returns one clock field, or all of them as a
// table when called without arguments.
func systemDatetime(L *lua.LState, now time.Time) int {
	if L.GetTop() == 0 {
		tbl := L.CreateTable(0, len(clockFields))
		for name, field := range clockFields {
			tbl.RawSetString(name, field(now))
		}
		L.Push(tbl)
		return 1
	}

	name := L.CheckString(1)
	field, ok := clockFields[name]
	if !ok {
		names := make([]string, 0, len(clockFields))
		for n := range clockFields {
			names = append(names, n)
		}
		sort.Strings(names)
		L.ArgError(1, fmt.Sprintf("unknown field %q (want one of %s)", name, strings.Join(names, ", ")))
		return 0
	}
	L.Push(field(now))
	return 1
}

// system.time_between(from, to) takes hours or "HH:MM" strings and tests
// now against [from, to). A range with from after to wraps midnight.
func systemTimeBetween(L *lua.LState, now time.Time) int {
	from := checkClockMinute(L, 1)
	to := checkClockMinute(L, 2)
	m := now.Hour()*60 + now.Minute()

	in := m >= from && m < to
	if from > to {
		in = m >= from || m < to
	}
	L.Push(lua.LBool(in))
	return 1
}

// checkClockMinute reads argument n as minutes after midnight.
func checkClockMinute(L *lua.LState, n int) int {
	switch v := L.Get(n).(type) {
	case lua.LNumber:
		h := int(v)
		if h < 0 || h > 24 {
			L.ArgError(n, "hour must be 0-24")
		}
		return h * 60
	case lua.LString:
		hh, mm, ok := strings.Cut(string(v), ":")
		h, errH := strconv.Atoi(hh)
		m, errM := strconv.Atoi(mm)
		if !ok || errH != nil || errM != nil || h < 0 || h > 23 || m < 0 || m > 59 {
			L.ArgError(n, fmt.Sprintf("want HH:MM, got %q", string(v)))
		}
		return h*60 + m
	}
	L.TypeError(n, lua.LTNumber)
	return 0
}

// system.circadian_mireds([warm, cool]) returns the color temperature for
// the current time of day: warm at night, rising to cool at 13:00.
func systemCircadianMireds(L *lua.LState, now time.Time) int {
	warm := float64(L.OptNumber(1, defaultWarmMireds))
	cool := float64(L.OptNumber(2, defaultCoolMireds))
	if cool <= 0 || warm < cool {
		L.ArgError(1, "warm must be at least cool and both positive")
		return 0
	}
	L.Push(lua.LNumber(circadianMireds(now, warm, cool)))
	return 1
}

func circadianMireds(now time.Time, warm, cool float64) float64 {
	m := now.Hour()*60 + now.Minute()
	if m <= dayStartMinute || m >= dayEndMinute {
		return warm
	}
	phase := float64(m-dayStartMinute) / float64(dayEndMinute-dayStartMinute)
	return math.Round(warm - (warm-cool)*math.Sin(math.Pi*phase))
}

// system.log(level, msg)
func systemLog(L *lua.LState, vm *scriptVM, e *Engine) int {
	level := L.CheckString(1)
	msg := L.CheckString(2)
	if vm.logf != nil {
		vm.logf("[" + level + "] " + msg)
	}

	switch level {
	case "debug":
		e.logger.Debug("script log", "msg", msg)
	case "warn":
		e.logger.Warn("script log", "msg", msg)
	case "error":
		e.logger.Error("script log", "msg", msg)
	default:
		e.logger.Info("script log", "msg", msg)
	}
	return 0
}
