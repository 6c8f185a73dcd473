package normalize

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// asString accepts JSON strings and numbers.
func asString(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), true
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

// asFloat accepts JSON numbers and numeric strings.
func asFloat(raw json.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// asStringList accepts an array of strings, numbers or named objects, or a
// single comma separated string. Items that cannot be read as text are dropped.
func asStringList(raw json.RawMessage) []string {
	out := []string{}
	if isNull(raw) {
		return out
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		if s, ok := asString(raw); ok && s != "" {
			for part := range strings.SplitSeq(s, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		}
		return out
	}

	for _, item := range items {
		if s, ok := asString(item); ok {
			if s != "" {
				out = append(out, s)
			}
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err == nil {
			if s, ok := firstString(obj, "name", "title", "skill"); ok && s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// asLines is asStringList without comma splitting: a single string is one line.
func asLines(raw json.RawMessage) []string {
	if s, ok := asString(raw); ok {
		if s == "" {
			return []string{}
		}
		return []string{s}
	}
	return asStringList(raw)
}

// asObjectList returns the object items of an array; anything else is skipped.
func asObjectList(raw json.RawMessage) []map[string]json.RawMessage {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]map[string]json.RawMessage, 0, len(items))
	for _, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err == nil && obj != nil {
			out = append(out, obj)
		}
	}
	return out
}

func firstString(obj map[string]json.RawMessage, aliases ...string) (string, bool) {
	raw, ok := lookup(obj, aliases)
	if !ok {
		return "", false
	}
	return asString(raw)
}

func stringField(obj map[string]json.RawMessage, aliases []string) string {
	s, _ := firstString(obj, aliases...)
	return s
}

// asIntList accepts an array of numbers or a salary string such as "80000-120000".
func asIntList(raw json.RawMessage) []int {
	out := []int{}
	if isNull(raw) {
		return out
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		for _, item := range items {
			if f, ok := asFloat(item); ok {
				out = append(out, int(f))
			}
		}
		return out
	}
	if s, ok := asString(raw); ok {
		return parseRange(s)
	}
	return out
}

// parseRange extracts the numbers of strings like "$80k - $120k" or "12-18 LPA".
func parseRange(s string) []int {
	out := []int{}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == ' ' || r == ',' || r == '/' || r == '–'
	})
	for _, field := range fields {
		field = strings.TrimLeft(field, "$€£₹")
		mult := 1.0
		lower := strings.ToLower(field)
		if strings.HasSuffix(lower, "k") {
			mult = 1000
			field = field[:len(field)-1]
		}
		if v, err := strconv.ParseFloat(field, 64); err == nil {
			out = append(out, int(v*mult))
		}
	}
	return out
}

func clampUnit(v float64) float64 {
	if v > 1 && v <= 100 {
		v = v / 100
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
