// Package audit defines the core domain types for algorithm-audit records.
package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field names used by the canonical dataset.
const (
	FieldDOI          = "DOI"
	FieldTitle        = "Title"
	FieldAuthors      = "Authors"
	FieldYear         = "Year"
	FieldMethod       = "Method"
	FieldDomain       = "Domain"
	FieldOrganization = "Organization"
	FieldBehavior     = "Behavior"
	FieldSource       = "Source"
)

// DefaultProvenance is the Source label written by a merge pass.
const DefaultProvenance = "2021 Review"

// Record is one entry of the canonical JSON dataset.
//
// Values are held as raw JSON in their original key order, so a record that
// is never modified serializes back to the same fields and values.
type Record struct {
	keys   []string
	values map[string]json.RawMessage
}

// NewRecord builds a record from alternating key/value string pairs.
func NewRecord(pairs ...string) *Record {
	r := &Record{values: make(map[string]json.RawMessage)}
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i], pairs[i+1])
	}
	return r
}

// Keys returns the record's field names in order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Has reports whether the record has a field named key.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Get returns the field as a string. JSON strings are unquoted, null and
// missing fields are "", and other values are returned as their JSON text.
func (r *Record) Get(key string) string {
	raw, ok := r.values[key]
	if !ok {
		return ""
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}

// Raw returns the field's JSON value exactly as it was loaded or set.
func (r *Record) Raw(key string) (json.RawMessage, bool) {
	raw, ok := r.values[key]
	return raw, ok
}

// Set assigns a string value. Existing fields keep their position; new
// fields are appended.
func (r *Record) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]json.RawMessage)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = encodeString(value)
}

// DOI returns the record's identifier field.
func (r *Record) DOI() string {
	return r.Get(FieldDOI)
}

// ApplyPatch overwrites the descriptive fields from row and sets Source to
// provenance. The identifier and any other field are left as they are.
// Applying the same row twice gives the same record as applying it once.
func (r *Record) ApplyPatch(row PatchRow, provenance string) {
	r.Set(FieldTitle, row.Title)
	r.Set(FieldAuthors, row.Authors)
	r.Set(FieldYear, row.Year)
	r.Set(FieldMethod, row.Method)
	r.Set(FieldDomain, row.Domain)
	r.Set(FieldOrganization, row.Organization)
	r.Set(FieldBehavior, row.Behavior)
	r.Set(FieldSource, provenance)
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := &Record{
		keys:   r.Keys(),
		values: make(map[string]json.RawMessage, len(r.values)),
	}
	for k, v := range r.values {
		c.values[k] = append(json.RawMessage(nil), v...)
	}
	return c
}

// UnmarshalJSON decodes a JSON object, keeping key order. A repeated key
// keeps its first position and its last value.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("audit record must be a JSON object, got %v", tok)
	}

	r.keys = nil
	r.values = make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decoding field %q: %w", key, err)
		}
		if _, seen := r.values[key]; !seen {
			r.keys = append(r.keys, key)
		}
		r.values[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON encodes the record as a JSON object in key order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(encodeString(k))
		buf.WriteByte(':')
		raw := r.values[k]
		if len(raw) == 0 {
			raw = json.RawMessage("null")
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeString quotes s as a JSON string without HTML escaping.
func encodeString(s string) json.RawMessage {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s) // strings always encode
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n"))
}
