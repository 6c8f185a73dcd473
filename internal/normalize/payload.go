// Package normalize turns loosely shaped backend replies into the canonical
// types used everywhere else. Decoding is the only step that can fail; once a
// Payload exists, normalization always yields a fully populated value.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"

	"wevolve/internal/errors"
)

// Payload is a decoded parse response whose fields have not been interpreted yet.
type Payload struct {
	fields map[string]json.RawMessage
	schema *Schema
}

// Decode accepts only a JSON object. Arrays, scalars and invalid JSON are a
// malformed response.
func Decode(body []byte) (*Payload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil, errors.NewResponseError(errors.ErrCodeInvalidResponse,
			"Invalid response from backend: expected a JSON object", nil)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, errors.NewResponseError(errors.ErrCodeInvalidResponse,
			"Invalid response from backend: malformed JSON", err)
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}

	p := &Payload{fields: unwrapEnvelope(fields)}
	p.schema = detectSchema(p)
	return p, nil
}

// unwrapEnvelope handles replies of the form {"data": {...}} or {"resume": {...}}.
func unwrapEnvelope(fields map[string]json.RawMessage) map[string]json.RawMessage {
	if _, ok := fields["name"]; ok {
		return fields
	}
	for _, key := range []string{"data", "resume", "parsed_resume"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(raw, &inner); err == nil && inner != nil {
			return inner
		}
	}
	return fields
}

// Name returns the trimmed candidate name, or "" when absent or not textual.
func (p *Payload) Name() string {
	s, _ := asString(p.fields["name"])
	return s
}

// HasName reports whether the payload satisfies the minimal contract.
func (p *Payload) HasName() bool {
	return p.Name() != ""
}

// Schema returns the backend shape the payload was matched against
func (p *Payload) Schema() string {
	return p.schema.Version
}

// Keys lists the top-level fields that were present, for diagnostics.
func (p *Payload) Keys() []string {
	keys := make([]string, 0, len(p.fields))
	for k := range p.fields {
		keys = append(keys, k)
	}
	return keys
}

func (p *Payload) lookup(aliases []string) (json.RawMessage, bool) {
	return lookup(p.fields, aliases)
}

func lookup(fields map[string]json.RawMessage, aliases []string) (json.RawMessage, bool) {
	for _, alias := range aliases {
		raw, ok := fields[alias]
		if ok && !isNull(raw) {
			return raw, true
		}
	}
	return nil, false
}

func (p *Payload) String() string {
	return fmt.Sprintf("Payload(schema=%s, keys=%d)", p.schema.Version, len(p.fields))
}
