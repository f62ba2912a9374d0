package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CourseRecord is one course detail page flattened into label/value pairs.
// There is no fixed schema: keys are whatever rows the page's field table had,
// kept in the order they first appeared. Setting an existing key replaces its
// value but keeps its position.
//
// Copies of a non-zero record share storage, so a Set through any copy is seen
// by all of them. Use Clone for an independent record.
type CourseRecord struct {
	d *recordData
}

type recordData struct {
	keys   []string
	values map[string]string
}

func NewCourseRecord() CourseRecord {
	return CourseRecord{d: &recordData{values: map[string]string{}}}
}

// Set stores value under key (last write wins).
func (r *CourseRecord) Set(key, value string) {
	if r.d == nil {
		r.d = &recordData{values: map[string]string{}}
	}
	if _, ok := r.d.values[key]; !ok {
		r.d.keys = append(r.d.keys, key)
	}
	r.d.values[key] = value
}

func (r CourseRecord) Get(key string) (string, bool) {
	if r.d == nil {
		return "", false
	}
	v, ok := r.d.values[key]
	return v, ok
}

// Keys returns the labels in first-seen order.
func (r CourseRecord) Keys() []string {
	out := make([]string, len(r.keys()))
	copy(out, r.keys())
	return out
}

func (r CourseRecord) keys() []string {
	if r.d == nil {
		return nil
	}
	return r.d.keys
}

func (r CourseRecord) Len() int { return len(r.keys()) }

// Map returns an unordered copy.
func (r CourseRecord) Map() map[string]string {
	out := make(map[string]string, r.Len())
	for _, k := range r.keys() {
		out[k] = r.d.values[k]
	}
	return out
}

// Clone returns a record with the same pairs that shares nothing with r.
func (r CourseRecord) Clone() CourseRecord {
	out := NewCourseRecord()
	for _, k := range r.keys() {
		out.Set(k, r.d.values[k])
	}
	return out
}

// Pick keeps only the requested labels, in the order requested. Missing labels are skipped.
func (r CourseRecord) Pick(keys ...string) CourseRecord {
	out := NewCourseRecord()
	for _, k := range keys {
		if v, ok := r.Get(k); ok {
			out.Set(k, v)
		}
	}
	return out
}

// MarshalJSON writes an object whose members follow Keys().
func (r CourseRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.d.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat object of strings, keeping document order.
func (r *CourseRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("domain: course record must be a JSON object")
	}

	*r = NewCourseRecord()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("domain: unexpected key token %v", tok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("domain: value for %q: %w", key, err)
		}
		r.Set(key, value)
	}
	_, err = dec.Token()
	return err
}

// UnionKeys merges the labels of every record, first-seen order.
func UnionKeys(records []CourseRecord) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range records {
		for _, k := range r.keys() {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}
