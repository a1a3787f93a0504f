package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entries is a string-to-string JSON object that remembers key order, used
// for "scripts", "dependencies" and "devDependencies". Writing a manifest
// back keeps the entries where the user put them; new keys go last.
//
// The read methods are safe on a nil *Entries, which stands for an absent
// object.
type Entries struct {
	keys   []string
	values map[string]string
}

// NewEntries returns an empty Entries.
func NewEntries() *Entries {
	return &Entries{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (e *Entries) Get(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	v, ok := e.values[key]
	return v, ok
}

// Has reports whether key is present.
func (e *Entries) Has(key string) bool {
	_, ok := e.Get(key)
	return ok
}

// Set stores value under key. A new key is appended after the existing ones.
func (e *Entries) Set(key, value string) {
	if e.values == nil {
		e.values = make(map[string]string)
	}
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
}

// Keys returns the keys in document order.
func (e *Entries) Keys() []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.keys...)
}

// Len returns the number of entries.
func (e *Entries) Len() int {
	if e == nil {
		return 0
	}
	return len(e.keys)
}

// Map returns the entries as a plain map.
func (e *Entries) Map() map[string]string {
	m := make(map[string]string, e.Len())
	for _, k := range e.Keys() {
		m[k] = e.values[k]
	}
	return m
}

// Clone returns an independent copy; nil stays nil.
func (e *Entries) Clone() *Entries {
	if e == nil {
		return nil
	}
	c := NewEntries()
	for _, k := range e.keys {
		c.Set(k, e.values[k])
	}
	return c
}

// MarshalJSON writes the entries as an object in key order.
func (e *Entries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range e.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeString(&buf, e.values[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object whose values are all strings; any other
// value, null included, is an error. A repeated key keeps its first position
// and its last value.
func (e *Entries) UnmarshalJSON(data []byte) error {
	*e = Entries{values: make(map[string]string)}

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("value of %q: %w", key, err)
		}
		// null would otherwise decode to "" and be written back as a string.
		var value string
		if len(raw) == 0 || raw[0] != '"' {
			return fmt.Errorf("value of %q is %s, want a string", key, raw)
		}
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("value of %q: %w", key, err)
		}
		e.Set(key, value)
	}
	return expectDelim(dec, '}')
}

// writeString encodes s as a JSON string without HTML escaping, so command
// lines such as "tsc && npm run build-ui" stay readable.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}
