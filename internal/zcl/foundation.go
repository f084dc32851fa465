package zcl

import (
	"encoding/binary"
	"fmt"
)

// Foundation ZCL command IDs (global, not cluster-specific).
const (
	FoundationReadAttributes         uint8 = 0x00
	FoundationReadAttributesResponse uint8 = 0x01
	FoundationWriteAttributes        uint8 = 0x02
	FoundationReportAttributes       uint8 = 0x0A
	FoundationDefaultResponse        uint8 = 0x0B
)

// ZCL status codes
const (
	ZCLStatusSuccess         uint8 = 0x00
	ZCLStatusFailure         uint8 = 0x01
	ZCLStatusUnsupportedAttr uint8 = 0x86
)

// AttributeValue is one decoded attribute record.
type AttributeValue struct {
	ID     uint16      `json:"id"`
	Status uint8       `json:"status"`
	Type   uint8       `json:"type"`
	Value  interface{} `json:"value"`
}

// EncodeReadAttributes builds a Read Attributes payload.
func EncodeReadAttributes(ids []uint16) []byte {
	buf := make([]byte, 0, 2*len(ids))
	for _, id := range ids {
		buf = binary.LittleEndian.AppendUint16(buf, id)
	}
	return buf
}

// WriteRequest is a Write Attributes request for one cluster. A non-zero
// Manufacturer makes the frame manufacturer specific.
type WriteRequest struct {
	Cluster      uint16           `json:"cluster"`
	Manufacturer uint16           `json:"manufacturer,omitempty"`
	Records      []AttributeValue `json:"records"`
}

// EncodeWriteAttributes builds a Write Attributes payload:
// repeated AttrID (2) + DataType (1) + value.
func EncodeWriteAttributes(records []AttributeValue) ([]byte, error) {
	var buf []byte
	for _, r := range records {
		v, err := EncodeValue(r.Type, r.Value)
		if err != nil {
			return nil, fmt.Errorf("zcl: attribute 0x%04X: %w", r.ID, err)
		}
		buf = binary.LittleEndian.AppendUint16(buf, r.ID)
		buf = append(buf, r.Type)
		buf = append(buf, v...)
	}
	return buf, nil
}

// ParseReportAttributes decodes a Report Attributes payload:
// repeated AttrID (2) + DataType (1) + value.
func ParseReportAttributes(data []byte) ([]AttributeValue, error) {
	return parseRecords(data, false)
}

// ParseReadAttributesResponse decodes a Read Attributes Response payload:
// repeated AttrID (2) + Status (1) [+ DataType (1) + value when status is success].
func ParseReadAttributesResponse(data []byte) ([]AttributeValue, error) {
	return parseRecords(data, true)
}

func parseRecords(data []byte, withStatus bool) ([]AttributeValue, error) {
	var results []AttributeValue
	for len(data) > 0 {
		if len(data) < 3 {
			return results, fmt.Errorf("zcl: attribute record truncated")
		}
		av := AttributeValue{ID: binary.LittleEndian.Uint16(data[0:2])}
		data = data[2:]
		if withStatus {
			av.Status = data[0]
			data = data[1:]
			if av.Status != ZCLStatusSuccess {
				results = append(results, av)
				continue
			}
			if len(data) < 1 {
				return results, fmt.Errorf("zcl: attribute 0x%04X: missing type", av.ID)
			}
		}
		av.Type = data[0]
		data = data[1:]

		v, n, err := DecodeValue(av.Type, data)
		if err != nil {
			// Unknown types have no size, so nothing after them can be located.
			return results, fmt.Errorf("zcl: attribute 0x%04X: %w", av.ID, err)
		}
		av.Value = v
		data = data[n:]
		results = append(results, av)
	}
	return results, nil
}
