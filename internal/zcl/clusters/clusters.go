// Package clusters holds the ZCL cluster definitions a color light uses.
package clusters

import "zigbee-go-color/internal/zcl"

// All lists the built-in cluster definitions.
var All = []zcl.ClusterDef{OnOff, LevelControl, ColorControl, Identify, Philips2}

// RegisterAll adds every built-in cluster to reg.
func RegisterAll(reg *zcl.Registry) {
	for _, c := range All {
		reg.Register(c)
	}
}
