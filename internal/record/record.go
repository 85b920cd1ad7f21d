// Package record provides best-effort field access on the opaque JSON
// records returned by the metadata platforms. The same logical field
// arrives under different names and casings depending on the upstream
// (e.g. FacilityName vs facilityName vs facility_name), so views look
// fields up through a variant list instead of guessing inline.
package record

import "encoding/json"

// Record is an opaque decoded JSON object.
type Record = map[string]any

// FirstPresent returns the value of the first field among names that
// is present and non-nil.
func FirstPresent(rec Record, names ...string) (any, bool) {
	for _, name := range names {
		if value, ok := rec[name]; ok && value != nil {
			return value, true
		}
	}
	return nil, false
}

// StringField is FirstPresent narrowed to string values. Non-string
// matches are skipped so a later variant can still win.
func StringField(rec Record, names ...string) (string, bool) {
	for _, name := range names {
		if value, ok := rec[name]; ok {
			if s, ok := value.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// NumberField is FirstPresent narrowed to numeric values. JSON numbers
// decode as float64; json.Number is handled for callers that use
// decoder.UseNumber.
func NumberField(rec Record, names ...string) (float64, bool) {
	for _, name := range names {
		value, ok := rec[name]
		if !ok {
			continue
		}
		switch n := value.(type) {
		case float64:
			return n, true
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f, true
			}
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		}
	}
	return 0, false
}

// Dig walks nested objects along path, returning the value at the end.
// Any missing segment or non-object intermediate yields (nil, false).
func Dig(rec Record, path ...string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	var current any = rec
	for _, segment := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[segment]
		if !ok || current == nil {
			return nil, false
		}
	}
	return current, true
}
