package clusters

import "zigbee-go-color/internal/zcl"

var levelFields = []zcl.FieldDef{
	{Name: "level", Type: zcl.TypeUint8},
	{Name: "transtime", Type: zcl.TypeUint16},
}

const AttrStartUpCurrentLevel uint16 = 0x4000

var LevelControl = zcl.ClusterDef{
	ID:   0x0008,
	Name: "Level Control",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "CurrentLevel", Type: zcl.TypeUint8, Access: zcl.AccessRead | zcl.AccessReport},
		{ID: 0x0010, Name: "OnOffTransitionTime", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessWrite},
		{ID: AttrStartUpCurrentLevel, Name: "StartUpCurrentLevel", Type: zcl.TypeUint8, Access: zcl.AccessRead | zcl.AccessWrite},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x00, Name: "MoveToLevel", Direction: zcl.DirectionToServer, Fields: levelFields},
		{ID: 0x04, Name: "MoveToLevelWithOnOff", Direction: zcl.DirectionToServer, Fields: levelFields},
		{ID: 0x07, Name: "StopWithOnOff", Direction: zcl.DirectionToServer},
	},
}
