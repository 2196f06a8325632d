package txn

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// uint16Fields and uint8Fields are the numeric fields that are narrower than
// UInt32 in the binary format. Every other JSON number is a UInt32.
var (
	uint16Fields = map[string]bool{
		"SignerWeight": true,
		"TransferFee":  true,
	}
	uint8Fields = map[string]bool{
		"TickSize": true,
	}
)

// DecodeTxJSON parses a transaction body and converts its JSON numbers to
// the fixed-width integers the binary codec expects.
func DecodeTxJSON(txJSON string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(txJSON))
	dec.UseNumber()
	var tx map[string]any
	if err := dec.Decode(&tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction json: %w", err)
	}
	if err := normalizeObject(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func normalizeObject(obj map[string]any) error {
	for k, v := range obj {
		nv, err := normalizeValue(k, v)
		if err != nil {
			return err
		}
		obj[k] = nv
	}
	return nil
}

func normalizeValue(field string, v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		return narrow(field, t.String())
	case map[string]any:
		if err := normalizeObject(t); err != nil {
			return nil, err
		}
		return t, nil
	case []any:
		for i, e := range t {
			ne, err := normalizeValue(field, e)
			if err != nil {
				return nil, err
			}
			t[i] = ne
		}
		return t, nil
	default:
		return v, nil
	}
}

func narrow(field, s string) (any, error) {
	switch {
	case uint8Fields[field]:
		n, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return nil, invalid(field, "%s does not fit UInt8", s)
		}
		return uint8(n), nil
	case uint16Fields[field]:
		n, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return nil, invalid(field, "%s does not fit UInt16", s)
		}
		return uint16(n), nil
	default:
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, invalid(field, "%s does not fit UInt32", s)
		}
		return uint32(n), nil
	}
}

// Uint32 reads an integer field from a transaction map regardless of
// whether it came from JSON or from the binary decoder.
func Uint32(v any) (uint32, bool) {
	switch t := v.(type) {
	case uint32:
		return t, true
	case uint16:
		return uint32(t), true
	case uint8:
		return uint32(t), true
	case int:
		return uint32(t), t >= 0
	case int64:
		return uint32(t), t >= 0
	case uint64:
		return uint32(t), t <= 0xFFFFFFFF
	case float64:
		return uint32(t), t >= 0
	case json.Number:
		n, err := strconv.ParseUint(t.String(), 10, 32)
		return uint32(n), err == nil
	case string:
		n, err := strconv.ParseUint(t, 10, 32)
		return uint32(n), err == nil
	default:
		return 0, false
	}
}
