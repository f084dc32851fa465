package clusters

import "zigbee-go-color/internal/zcl"

// Color Control attribute IDs read by the light converters.
const (
	AttrCurrentHue         uint16 = 0x0000
	AttrCurrentSaturation  uint16 = 0x0001
	AttrCurrentX           uint16 = 0x0003
	AttrCurrentY           uint16 = 0x0004
	AttrColorTemperature   uint16 = 0x0007
	AttrColorMode          uint16 = 0x0008
	AttrEnhancedCurrentHue uint16 = 0x4000
	AttrColorCapabilities  uint16 = 0x400A
	AttrColorTempMin       uint16 = 0x400B
	AttrColorTempMax       uint16 = 0x400C
	AttrStartUpColorTemp   uint16 = 0x4010
)

var transtime = zcl.FieldDef{Name: "transtime", Type: zcl.TypeUint16}

var ColorControl = zcl.ClusterDef{
	ID:   0x0300,
	Name: "Color Control",
	Attributes: []zcl.AttributeDef{
		{ID: AttrCurrentHue, Name: "CurrentHue", Type: zcl.TypeUint8, Access: zcl.AccessRead | zcl.AccessReport},
		{ID: AttrCurrentSaturation, Name: "CurrentSaturation", Type: zcl.TypeUint8, Access: zcl.AccessRead | zcl.AccessReport},
		{ID: 0x0002, Name: "RemainingTime", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: AttrCurrentX, Name: "CurrentX", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessReport},
		{ID: AttrCurrentY, Name: "CurrentY", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessReport},
		{ID: AttrColorTemperature, Name: "ColorTemperatureMireds", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessReport},
		{ID: AttrColorMode, Name: "ColorMode", Type: zcl.TypeEnum8, Access: zcl.AccessRead},
		{ID: 0x000F, Name: "Options", Type: zcl.TypeBitmap8, Access: zcl.AccessRead | zcl.AccessWrite},
		{ID: AttrEnhancedCurrentHue, Name: "EnhancedCurrentHue", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: 0x4001, Name: "EnhancedColorMode", Type: zcl.TypeEnum8, Access: zcl.AccessRead},
		{ID: AttrColorCapabilities, Name: "ColorCapabilities", Type: zcl.TypeBitmap16, Access: zcl.AccessRead},
		{ID: AttrColorTempMin, Name: "ColorTempPhysicalMinMireds", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: AttrColorTempMax, Name: "ColorTempPhysicalMaxMireds", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: AttrStartUpColorTemp, Name: "StartUpColorTemperatureMireds", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessWrite},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x00, Name: "MoveToHue", Direction: zcl.DirectionToServer, Fields: []zcl.FieldDef{
			{Name: "hue", Type: zcl.TypeUint8},
			{Name: "direction", Type: zcl.TypeEnum8},
			transtime,
		}},
		{ID: 0x03, Name: "MoveToSaturation", Direction: zcl.DirectionToServer, Fields: []zcl.FieldDef{
			{Name: "saturation", Type: zcl.TypeUint8},
			transtime,
		}},
		{ID: 0x06, Name: "MoveToHueAndSaturation", Direction: zcl.DirectionToServer, Fields: []zcl.FieldDef{
			{Name: "hue", Type: zcl.TypeUint8},
			{Name: "saturation", Type: zcl.TypeUint8},
			transtime,
		}},
		{ID: 0x07, Name: "MoveToColor", Direction: zcl.DirectionToServer, Fields: []zcl.FieldDef{
			{Name: "colorx", Type: zcl.TypeUint16},
			{Name: "colory", Type: zcl.TypeUint16},
			transtime,
		}},
		{ID: 0x0A, Name: "MoveToColorTemperature", Direction: zcl.DirectionToServer, Fields: []zcl.FieldDef{
			{Name: "colortemp", Type: zcl.TypeUint16},
			transtime,
		}},
		{ID: 0x40, Name: "EnhancedMoveToHue", Direction: zcl.DirectionToServer, Fields: []zcl.FieldDef{
			{Name: "enhancehue", Type: zcl.TypeUint16},
			{Name: "direction", Type: zcl.TypeEnum8},
			transtime,
		}},
		{ID: 0x43, Name: "EnhancedMoveToHueAndSaturation", Direction: zcl.DirectionToServer, Fields: []zcl.FieldDef{
			{Name: "enhancehue", Type: zcl.TypeUint16},
			{Name: "saturation", Type: zcl.TypeUint8},
			transtime,
		}},
		{ID: 0x47, Name: "StopMoveStep", Direction: zcl.DirectionToServer},
	},
}
