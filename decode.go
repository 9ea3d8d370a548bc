package pollboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Shape describes how the items of a response array are interpreted.
type Shape string

const (
	// ShapeObject expects an array of objects carrying identifier, status
	// and optional last-seen fields, e.g. [{"drone_id":"D1","status":"online"}].
	ShapeObject Shape = "object"

	// ShapePrimitive expects an array of plain values, each rendered as a
	// line of text, e.g. ["37.56,126.97", "37.57,126.98"].
	ShapePrimitive Shape = "primitive"
)

// ParseShape converts a configuration string into a [Shape].
// An empty string yields [ShapeObject].
func ParseShape(s string) (Shape, error) {
	switch Shape(strings.ToLower(strings.TrimSpace(s))) {
	case "", ShapeObject:
		return ShapeObject, nil
	case ShapePrimitive:
		return ShapePrimitive, nil
	default:
		return "", fmt.Errorf("unknown shape %q (expected 'object' or 'primitive')", s)
	}
}

// Fields names the object keys read from each record.
//
// Each field may use dot notation to reach into nested objects, so
// "meta.id" reads {"meta": {"id": "D1"}}.
type Fields struct {
	ID       string
	Status   string
	LastSeen string
}

// DefaultFields matches the drone status endpoint:
// [{ drone_id, status, last_seen }].
var DefaultFields = Fields{
	ID:       "drone_id",
	Status:   "status",
	LastSeen: "last_seen",
}

// DecodeRecords parses body as a JSON array of records.
//
// For [ShapeObject], every item must be a JSON object; missing fields decode
// to empty values rather than errors. For [ShapePrimitive], every item is
// rendered as text: strings verbatim, numbers and booleans formatted, null as
// the empty string, and nested arrays or objects as compact JSON.
//
// The returned error, if any, describes why the body is not a record list;
// callers wrap it in a [ParseError].
func DecodeRecords(body []byte, shape Shape, fields Fields) ([]Record, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("body is not a JSON array: %w", err)
	}
	if items == nil && !isJSONArray(body) {
		// "null" unmarshals into a nil slice without error
		return nil, errors.New("body is not a JSON array: got null")
	}

	records := make([]Record, 0, len(items))
	for i, raw := range items {
		var value interface{}
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		if shape == ShapePrimitive {
			records = append(records, Record{ID: primitiveText(value, raw)})
			continue
		}

		obj, ok := value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("record %d: expected an object, got %s", i, jsonKind(value))
		}
		records = append(records, Record{
			ID:       textAt(obj, fields.ID),
			Status:   textAt(obj, fields.Status),
			LastSeen: valueAt(obj, fields.LastSeen),
		})
	}

	return records, nil
}

// isJSONArray reports whether body, ignoring whitespace, starts with '['.
func isJSONArray(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "[")
}

// valueAt walks a decoded JSON object using a dot-separated path.
// Returns nil when any step is missing or not an object.
func valueAt(obj map[string]interface{}, path string) interface{} {
	if path == "" {
		return nil
	}

	var current interface{} = obj
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

// textAt returns the value at path rendered as text.
func textAt(obj map[string]interface{}, path string) string {
	v := valueAt(obj, path)
	if v == nil {
		return ""
	}
	return primitiveText(v, nil)
}

// primitiveText renders a decoded JSON value as a line of text.
// raw, when non-nil, is used verbatim for nested values.
func primitiveText(v interface{}, raw json.RawMessage) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		if raw != nil {
			return compactJSON(raw)
		}
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// compactJSON strips insignificant whitespace from raw.
func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// jsonKind names the JSON type of a decoded value for error messages.
func jsonKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case []interface{}:
		return "array"
	default:
		return "object"
	}
}
