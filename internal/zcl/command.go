package zcl

import (
	"errors"
	"fmt"
)

var ErrUnknownCommand = errors.New("zcl: unknown command")

// Command is a cluster specific command ready to be sent to an endpoint.
type Command struct {
	Cluster          uint16 `json:"cluster"`
	ID               uint8  `json:"command"`
	Name             string `json:"name"`
	ManufacturerCode uint16 `json:"manufacturer_code,omitempty"`
	Payload          []byte `json:"payload"`
}

// NewCommand encodes args in the field order of the named command.
// Missing fields are an error.
func NewCommand(cluster *ClusterDef, name string, args map[string]interface{}) (Command, error) {
	def := cluster.FindCommandByName(name)
	if def == nil {
		return Command{}, fmt.Errorf("%w: %s/%s", ErrUnknownCommand, cluster.Name, name)
	}
	var payload []byte
	for _, f := range def.Fields {
		v, ok := args[f.Name]
		if !ok {
			return Command{}, fmt.Errorf("zcl: %s/%s: missing field %q", cluster.Name, name, f.Name)
		}
		b, err := EncodeValue(f.Type, v)
		if err != nil {
			return Command{}, fmt.Errorf("zcl: %s/%s field %q: %w", cluster.Name, name, f.Name, err)
		}
		payload = append(payload, b...)
	}
	return Command{
		Cluster:          cluster.ID,
		ID:               def.ID,
		Name:             def.Name,
		ManufacturerCode: cluster.ManufacturerCode,
		Payload:          payload,
	}, nil
}

// ParseCommand decodes a command payload back into named fields.
func ParseCommand(cluster *ClusterDef, cmd Command) (map[string]interface{}, error) {
	def := cluster.FindCommand(cmd.ID, DirectionToServer)
	if def == nil {
		return nil, fmt.Errorf("%w: %s/0x%02X", ErrUnknownCommand, cluster.Name, cmd.ID)
	}
	out := make(map[string]interface{}, len(def.Fields))
	data := cmd.Payload
	for _, f := range def.Fields {
		v, n, err := DecodeValue(f.Type, data)
		if err != nil {
			return nil, fmt.Errorf("zcl: %s/%s field %q: %w", cluster.Name, def.Name, f.Name, err)
		}
		out[f.Name] = v
		data = data[n:]
	}
	return out, nil
}
