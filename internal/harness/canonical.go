package harness

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical encodes v as compact JSON with object keys sorted, all
// strings NFC-normalized and no HTML escaping. Equal traces always produce
// identical bytes, which is what golden comparison relies on.
func MarshalCanonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}

	// Round-trip through generic values so map key ordering applies to
	// struct fields too. UseNumber keeps integers exact.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalize(generic)); err != nil {
		return nil, fmt.Errorf("failed to encode: %w", err)
	}

	// json.Encoder appends a newline.
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func normalize(v any) any {
	switch val := v.(type) {
	case string:
		return norm.NFC.String(val)
	case []any:
		for i := range val {
			val[i] = normalize(val[i])
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[norm.NFC.String(k)] = normalize(elem)
		}
		return out
	default:
		return v
	}
}
