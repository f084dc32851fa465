package zcl

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ZCL data type IDs used by the light clusters.
const (
	TypeNoData   uint8 = 0x00
	TypeBool     uint8 = 0x10
	TypeBitmap8  uint8 = 0x18
	TypeBitmap16 uint8 = 0x19
	TypeUint8    uint8 = 0x20
	TypeUint16   uint8 = 0x21
	TypeUint32   uint8 = 0x23
	TypeInt8     uint8 = 0x28
	TypeInt16    uint8 = 0x29
	TypeEnum8    uint8 = 0x30
	TypeEnum16   uint8 = 0x31
	TypeOctetStr uint8 = 0x41
	TypeCharStr  uint8 = 0x42

	// TypeRaw is not a ZCL type: it marks a trailing command field that
	// carries bytes without a length prefix.
	TypeRaw uint8 = 0xFF
)

// TypeSize returns the fixed size in bytes of a ZCL type, or -1 for
// length-prefixed and unsupported types.
func TypeSize(typeID uint8) int {
	switch typeID {
	case TypeNoData:
		return 0
	case TypeBool, TypeUint8, TypeInt8, TypeEnum8, TypeBitmap8:
		return 1
	case TypeUint16, TypeInt16, TypeEnum16, TypeBitmap16:
		return 2
	case TypeUint32:
		return 4
	}
	return -1
}

// TypeName returns a human-readable name for a ZCL type.
func TypeName(typeID uint8) string {
	switch typeID {
	case TypeNoData:
		return "nodata"
	case TypeBool:
		return "bool"
	case TypeBitmap8:
		return "map8"
	case TypeBitmap16:
		return "map16"
	case TypeUint8:
		return "uint8"
	case TypeUint16:
		return "uint16"
	case TypeUint32:
		return "uint32"
	case TypeInt8:
		return "int8"
	case TypeInt16:
		return "int16"
	case TypeEnum8:
		return "enum8"
	case TypeEnum16:
		return "enum16"
	case TypeOctetStr:
		return "octstr"
	case TypeCharStr:
		return "string"
	case TypeRaw:
		return "raw"
	default:
		return fmt.Sprintf("0x%02X", typeID)
	}
}

// DecodeValue decodes a ZCL typed value from raw bytes, returning the Go value and bytes consumed.
// Unsigned types decode to uint8/uint16/uint32, octet strings to []byte.
func DecodeValue(typeID uint8, data []byte) (interface{}, int, error) {
	switch typeID {
	case TypeNoData:
		return nil, 0, nil
	case TypeRaw:
		b := make([]byte, len(data))
		copy(b, data)
		return b, len(data), nil
	case TypeOctetStr, TypeCharStr:
		if len(data) < 1 {
			return nil, 0, fmt.Errorf("zcl: no length byte for string type")
		}
		length := int(data[0])
		if length == 0xFF {
			return nil, 1, nil // invalid
		}
		if len(data) < 1+length {
			return nil, 0, fmt.Errorf("zcl: string truncated: need %d, have %d", length, len(data)-1)
		}
		if typeID == TypeCharStr {
			return string(data[1 : 1+length]), 1 + length, nil
		}
		b := make([]byte, length)
		copy(b, data[1:1+length])
		return b, 1 + length, nil
	}

	size := TypeSize(typeID)
	if size < 0 {
		return nil, 0, fmt.Errorf("zcl: unsupported type 0x%02X", typeID)
	}
	if len(data) < size {
		return nil, 0, fmt.Errorf("zcl: not enough data for type 0x%02X: need %d, have %d", typeID, size, len(data))
	}

	switch typeID {
	case TypeBool:
		return data[0] != 0, 1, nil
	case TypeUint8, TypeEnum8, TypeBitmap8:
		return data[0], 1, nil
	case TypeUint16, TypeEnum16, TypeBitmap16:
		return binary.LittleEndian.Uint16(data), 2, nil
	case TypeUint32:
		return binary.LittleEndian.Uint32(data), 4, nil
	case TypeInt8:
		return int8(data[0]), 1, nil
	case TypeInt16:
		return int16(binary.LittleEndian.Uint16(data)), 2, nil
	}
	return nil, 0, fmt.Errorf("zcl: unsupported type 0x%02X", typeID)
}

// EncodeValue encodes a Go value into ZCL wire format.
func EncodeValue(typeID uint8, val interface{}) ([]byte, error) {
	switch typeID {
	case TypeBool:
		v, ok := toBool(val)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to bool", val)
		}
		if v {
			return []byte{1}, nil
		}
		return []byte{0}, nil

	case TypeUint8, TypeEnum8, TypeBitmap8:
		v, err := unsignedIn(val, math.MaxUint8, "uint8")
		if err != nil {
			return nil, err
		}
		return []byte{uint8(v)}, nil

	case TypeUint16, TypeEnum16, TypeBitmap16:
		v, err := unsignedIn(val, math.MaxUint16, "uint16")
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.AppendUint16(nil, uint16(v)), nil

	case TypeUint32:
		v, err := unsignedIn(val, math.MaxUint32, "uint32")
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.AppendUint32(nil, uint32(v)), nil

	case TypeInt8:
		v, ok := toInt64(val)
		if !ok || v < math.MinInt8 || v > math.MaxInt8 {
			return nil, fmt.Errorf("zcl: cannot encode %v (%T) as int8", val, val)
		}
		return []byte{byte(int8(v))}, nil

	case TypeInt16:
		v, ok := toInt64(val)
		if !ok || v < math.MinInt16 || v > math.MaxInt16 {
			return nil, fmt.Errorf("zcl: cannot encode %v (%T) as int16", val, val)
		}
		return binary.LittleEndian.AppendUint16(nil, uint16(int16(v))), nil

	case TypeCharStr:
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to string", val)
		}
		return lengthPrefixed([]byte(s))

	case TypeOctetStr:
		b, ok := val.([]byte)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to []byte", val)
		}
		return lengthPrefixed(b)

	case TypeRaw:
		b, ok := val.([]byte)
		if !ok {
			return nil, fmt.Errorf("zcl: cannot convert %T to []byte", val)
		}
		return append([]byte(nil), b...), nil
	}

	return nil, fmt.Errorf("zcl: encode not implemented for type 0x%02X", typeID)
}

func lengthPrefixed(b []byte) ([]byte, error) {
	if len(b) > 254 {
		return nil, fmt.Errorf("zcl: data too long for string type: %d (max 254)", len(b))
	}
	buf := make([]byte, 1+len(b))
	buf[0] = uint8(len(b))
	copy(buf[1:], b)
	return buf, nil
}

func unsignedIn(val interface{}, limit uint64, name string) (uint64, error) {
	v, ok := toUint64(val)
	if !ok {
		return 0, fmt.Errorf("zcl: cannot convert %T to %s", val, name)
	}
	if v > limit {
		return 0, fmt.Errorf("zcl: value %d overflows %s (max %d)", v, name, limit)
	}
	return v, nil
}

func toBool(v interface{}) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case float64:
		return val != 0, true
	case int:
		return val != 0, true
	}
	return false, false
}

func toUint64(v interface{}) (uint64, bool) {
	switch val := v.(type) {
	case uint8:
		return uint64(val), true
	case uint16:
		return uint64(val), true
	case uint32:
		return uint64(val), true
	case uint64:
		return val, true
	case int:
		if val < 0 {
			return 0, false
		}
		return uint64(val), true
	case int64:
		if val < 0 {
			return 0, false
		}
		return uint64(val), true
	case float64:
		if val < 0 || math.IsNaN(val) {
			return 0, false
		}
		return uint64(math.Round(val)), true
	}
	return 0, false
}

func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case int:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case float64:
		if val > math.MaxInt64 || val < math.MinInt64 || math.IsNaN(val) {
			return 0, false
		}
		return int64(math.Round(val)), true
	}
	return 0, false
}
