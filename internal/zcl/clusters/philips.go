package clusters

import "zigbee-go-color/internal/zcl"

const (
	PhilipsManufacturerCode uint16 = 0x100B
	AttrPhilipsState        uint16 = 0x0002
)

// Philips2 is the manuSpecificPhilips2 cluster of Hue lights. MultiColor
// takes a raw gradient, effect or scene payload.
var Philips2 = zcl.ClusterDef{
	ID:               0xFC03,
	Name:             "Philips2",
	ManufacturerCode: PhilipsManufacturerCode,
	Attributes: []zcl.AttributeDef{
		{ID: AttrPhilipsState, Name: "State", Type: zcl.TypeOctetStr, Access: zcl.AccessRead | zcl.AccessReport},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x00, Name: "MultiColor", Direction: zcl.DirectionToServer, Fields: []zcl.FieldDef{
			{Name: "data", Type: zcl.TypeRaw},
		}},
	},
}
