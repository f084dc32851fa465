//go:build !no_mqtt

package mqtt

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"zigbee-go-color/internal/zcl"
)

// publisher is the part of the paho client an Entity needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
}

// Entity sends ZCL frames for one device endpoint to the coordinator over
// MQTT. It implements converter.Entity.
type Entity struct {
	pub      publisher
	prefix   string
	ieee     string
	endpoint uint8
}

// commandMessage is published to <prefix>/zcl/<ieee>/command.
type commandMessage struct {
	Transaction      string `json:"transaction"`
	IEEEAddress      string `json:"ieee_address"`
	Endpoint         uint8  `json:"endpoint"`
	Cluster          uint16 `json:"cluster"`
	Command          uint8  `json:"command"`
	Name             string `json:"name"`
	ManufacturerCode uint16 `json:"manufacturer_code,omitempty"`
	Payload          string `json:"payload"`
}

// readMessage is published to <prefix>/zcl/<ieee>/read.
type readMessage struct {
	Transaction string   `json:"transaction"`
	IEEEAddress string   `json:"ieee_address"`
	Endpoint    uint8    `json:"endpoint"`
	Cluster     uint16   `json:"cluster"`
	Attributes  []uint16 `json:"attributes"`
	Frame       string   `json:"frame"`
}

// Command publishes a cluster command.
func (e *Entity) Command(ctx context.Context, cmd zcl.Command) error {
	msg := commandMessage{
		Transaction:      uuid.NewString(),
		IEEEAddress:      e.ieee,
		Endpoint:         e.endpoint,
		Cluster:          cmd.Cluster,
		Command:          cmd.ID,
		Name:             cmd.Name,
		ManufacturerCode: cmd.ManufacturerCode,
		Payload:          hex.EncodeToString(cmd.Payload),
	}
	return e.send(ctx, "command", msg)
}

// Read publishes a Read Attributes request. Values arrive later as a report.
func (e *Entity) Read(ctx context.Context, cluster uint16, attrs []uint16) error {
	msg := readMessage{
		Transaction: uuid.NewString(),
		IEEEAddress: e.ieee,
		Endpoint:    e.endpoint,
		Cluster:     cluster,
		Attributes:  attrs,
		Frame:       hex.EncodeToString(zcl.EncodeReadAttributes(attrs)),
	}
	return e.send(ctx, "read", msg)
}

// writeMessage is published to <prefix>/zcl/<ieee>/write.
type writeMessage struct {
	Transaction      string `json:"transaction"`
	IEEEAddress      string `json:"ieee_address"`
	Endpoint         uint8  `json:"endpoint"`
	Cluster          uint16 `json:"cluster"`
	ManufacturerCode uint16 `json:"manufacturer_code,omitempty"`
	Frame            string `json:"frame"`
}

// Write publishes a Write Attributes request.
func (e *Entity) Write(ctx context.Context, req zcl.WriteRequest) error {
	frame, err := zcl.EncodeWriteAttributes(req.Records)
	if err != nil {
		return err
	}
	msg := writeMessage{
		Transaction:      uuid.NewString(),
		IEEEAddress:      e.ieee,
		Endpoint:         e.endpoint,
		Cluster:          req.Cluster,
		ManufacturerCode: req.Manufacturer,
		Frame:            hex.EncodeToString(frame),
	}
	return e.send(ctx, "write", msg)
}

func (e *Entity) send(ctx context.Context, kind string, msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	topic := fmt.Sprintf("%s/zcl/%s/%s", e.prefix, e.ieee, kind)
	token := e.pub.Publish(topic, 1, false, data)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reportMessage is received on <prefix>/zcl/<ieee>/report. A coordinator
// sends either a raw frame or already decoded attribute values.
type reportMessage struct {
	Cluster      uint16         `json:"cluster"`
	Endpoint     uint8          `json:"endpoint"`
	Frame        string         `json:"frame,omitempty"`
	ReadResponse bool           `json:"read_response,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

// decodeReport returns the cluster and attribute values of a report.
// Attribute keys may be decimal or 0x prefixed hex. Octet strings in
// decoded form are passed as hex strings.
func decodeReport(data []byte) (uint16, map[uint16]any, error) {
	var msg reportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return 0, nil, fmt.Errorf("decode report: %w", err)
	}
	attrs := make(map[uint16]any)

	if msg.Frame != "" {
		frame, err := hex.DecodeString(msg.Frame)
		if err != nil {
			return 0, nil, fmt.Errorf("report frame: %w", err)
		}
		parse := zcl.ParseReportAttributes
		if msg.ReadResponse {
			parse = zcl.ParseReadAttributesResponse
		}
		records, err := parse(frame)
		if err != nil {
			return 0, nil, err
		}
		for _, r := range records {
			if r.Status == zcl.ZCLStatusSuccess {
				attrs[r.ID] = r.Value
			}
		}
	}

	for key, v := range msg.Attributes {
		id, err := parseAttrID(key)
		if err != nil {
			return 0, nil, err
		}
		attrs[id] = v
	}
	if len(attrs) == 0 {
		return 0, nil, fmt.Errorf("report for cluster 0x%04X has no attributes", msg.Cluster)
	}
	return msg.Cluster, attrs, nil
}

func parseAttrID(key string) (uint16, error) {
	base := 10
	if s, ok := strings.CutPrefix(strings.ToLower(key), "0x"); ok {
		key, base = s, 16
	}
	id, err := strconv.ParseUint(key, base, 16)
	if err != nil {
		return 0, fmt.Errorf("attribute id %q: %w", key, err)
	}
	return uint16(id), nil
}
