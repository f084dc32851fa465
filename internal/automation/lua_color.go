//go:build !no_automation

package automation

import (
	"encoding/hex"

	"zigbee-go-color/internal/color"
	"zigbee-go-color/internal/philips"

	lua "github.com/yuin/gopher-lua"
)

// registerColorModule registers the `color` global table. Every function
// takes a color as a hex string or a table in any shape lights accept
// ({x,y}, {r,g,b}, {h,s,v}, {hue,saturation}, ...).
func registerColorModule(L *lua.LState) {
	mod := L.NewTable()

	mod.RawSetString("to_xy", L.NewFunction(func(L *lua.LState) int {
		conv, ok := checkColor(L, 1)
		if !ok {
			return 2
		}
		t := L.NewTable()
		t.RawSetString("x", lua.LNumber(conv.XY.X))
		t.RawSetString("y", lua.LNumber(conv.XY.Y))
		L.Push(t)
		return 1
	}))

	mod.RawSetString("to_hsv", L.NewFunction(func(L *lua.LState) int {
		conv, ok := checkColor(L, 1)
		if !ok {
			return 2
		}
		L.Push(goToLua(L, conv.HSV))
		return 1
	}))

	mod.RawSetString("to_hex", L.NewFunction(func(L *lua.LState) int {
		conv, ok := checkColor(L, 1)
		if !ok {
			return 2
		}
		L.Push(lua.LString(conv.Hex))
		return 1
	}))

	mod.RawSetString("to_mireds", L.NewFunction(func(L *lua.LState) int {
		conv, ok := checkColor(L, 1)
		if !ok {
			return 2
		}
		L.Push(lua.LNumber(conv.ColorTemp))
		return 1
	}))
	mod.RawSetString("xy_to_mireds", mod.RawGetString("to_mireds"))

	mod.RawSetString("mireds_to_xy", L.NewFunction(func(L *lua.LState) int {
		mireds := float64(L.CheckNumber(1))
		if mireds <= 0 {
			L.ArgError(1, "mireds must be positive")
			return 0
		}
		xy := color.FromMireds(mireds).Rounded(4)
		t := L.NewTable()
		t.RawSetString("x", lua.LNumber(xy.X))
		t.RawSetString("y", lua.LNumber(xy.Y))
		L.Push(t)
		return 1
	}))

	mod.RawSetString("kelvin_to_mireds", L.NewFunction(func(L *lua.LState) int {
		k := float64(L.CheckNumber(1))
		if k <= 0 {
			L.ArgError(1, "kelvin must be positive")
			return 0
		}
		L.Push(lua.LNumber(color.PrecisionRound(color.KelvinToMireds(k), 0)))
		return 1
	}))

	L.SetGlobal("color", mod)
}

// checkColor parses argument n as a color. On failure it pushes nil and an
// error message and reports false; the caller returns 2.
func checkColor(L *lua.LState, n int) (color.Conversion, bool) {
	c, err := color.FromConverterArg(luaToGo(L.CheckAny(n)))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return color.Conversion{}, false
	}
	return color.Convert(c), true
}

// registerGradientModule registers the `gradient` global table.
func registerGradientModule(L *lua.LState) {
	mod := L.NewTable()

	// gradient.encode(colors, [opts]) -> hex | nil, err
	mod.RawSetString("encode", L.NewFunction(func(L *lua.LState) int {
		colors := stringList(L.CheckTable(1))
		opts := gradientOptions(L.OptTable(2, L.NewTable()))
		payload, err := philips.EncodeGradient(colors, opts)
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LString(payload))
		return 1
	}))

	// gradient.decode(hex, [opts]) -> colors | nil, err
	mod.RawSetString("decode", L.NewFunction(func(L *lua.LState) int {
		opts := gradientOptions(L.OptTable(2, L.NewTable()))
		raw, err := hex.DecodeString(L.CheckString(1))
		var colors []string
		if err == nil {
			colors, err = philips.DecodeGradient(raw, opts)
		}
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(goToLua(L, colors))
		return 1
	}))

	// gradient.scenes() -> sorted scene names
	mod.RawSetString("scenes", L.NewFunction(func(L *lua.LState) int {
		L.Push(goToLua(L, philips.SceneNames()))
		return 1
	}))

	L.SetGlobal("gradient", mod)
}

func stringList(t *lua.LTable) []string {
	out := make([]string, 0, t.Len())
	for i := 1; i <= t.Len(); i++ {
		out = append(out, t.RawGetInt(i).String())
	}
	return out
}

func gradientOptions(t *lua.LTable) philips.GradientOptions {
	var opts philips.GradientOptions
	if v, ok := t.RawGetString("reverse").(lua.LBool); ok {
		opts.Reverse = bool(v)
	}
	if v, ok := t.RawGetString("segments").(lua.LNumber); ok {
		opts.Segments = int(v)
	}
	if v, ok := t.RawGetString("offset").(lua.LNumber); ok {
		opts.Offset = int(v)
	}
	return opts
}
