package clusters

import "zigbee-go-color/internal/zcl"

const AttrStartUpOnOff uint16 = 0x4003

var OnOff = zcl.ClusterDef{
	ID:   0x0006,
	Name: "On/Off",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "OnOff", Type: zcl.TypeBool, Access: zcl.AccessRead | zcl.AccessReport},
		{ID: AttrStartUpOnOff, Name: "StartUpOnOff", Type: zcl.TypeEnum8, Access: zcl.AccessRead | zcl.AccessWrite},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x00, Name: "Off", Direction: zcl.DirectionToServer},
		{ID: 0x01, Name: "On", Direction: zcl.DirectionToServer},
		{ID: 0x02, Name: "Toggle", Direction: zcl.DirectionToServer},
		{ID: 0x40, Name: "OffWithEffect", Direction: zcl.DirectionToServer, Fields: []zcl.FieldDef{
			{Name: "effectid", Type: zcl.TypeUint8},
			{Name: "effectvariant", Type: zcl.TypeUint8},
		}},
	},
}
