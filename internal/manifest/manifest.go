// Package manifest reads, edits and writes package.json manifests and
// reconciles a freshly vendored UI manifest with the one it replaces.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Top-level keys with a typed field on Manifest.
const (
	keyName            = "name"
	keyVersion         = "version"
	keyDescription     = "description"
	keyAuthor          = "author"
	keyLicense         = "license"
	keyScripts         = "scripts"
	keyDependencies    = "dependencies"
	keyDevDependencies = "devDependencies"
)

// knownKeys is also the order in which typed fields missing from the source
// document are appended on write.
var knownKeys = []string{
	keyName, keyVersion, keyDescription, keyAuthor, keyLicense,
	keyScripts, keyDependencies, keyDevDependencies,
}

// Manifest is a package.json document. The fields the installer reads or
// changes are typed; nil means the key is absent. Every other key is kept
// verbatim, and the document's key order survives a read/write cycle.
type Manifest struct {
	Name        *string
	Version     *string
	Description *string
	// Author is a string or a {name, email, url} object, kept as raw JSON.
	Author json.RawMessage
	// License is an SPDX string or the legacy {type, url} object, kept as
	// raw JSON.
	License json.RawMessage

	Scripts         *Entries
	Dependencies    *Entries
	DevDependencies *Entries

	extra map[string]json.RawMessage
	order []string
}

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{extra: make(map[string]json.RawMessage)}
}

// Parse decodes a manifest document.
func Parse(data []byte) (*Manifest, error) {
	m := New()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Raw returns the raw JSON of a key without a typed field.
func (m *Manifest) Raw(key string) (json.RawMessage, bool) {
	raw, ok := m.extra[key]
	return raw, ok
}

// SetRaw stores raw JSON under a key without a typed field.
func (m *Manifest) SetRaw(key string, raw json.RawMessage) error {
	if isKnown(key) {
		return fmt.Errorf("key %q has a typed field", key)
	}
	if !json.Valid(raw) {
		return fmt.Errorf("invalid JSON for key %q", key)
	}
	if m.extra == nil {
		m.extra = make(map[string]json.RawMessage)
	}
	if _, ok := m.extra[key]; !ok {
		m.order = append(m.order, key)
	}
	m.extra[key] = append(json.RawMessage(nil), raw...)
	return nil
}

// Clone returns a deep copy.
func (m *Manifest) Clone() *Manifest {
	c := &Manifest{
		Name:            cloneStr(m.Name),
		Version:         cloneStr(m.Version),
		Description:     cloneStr(m.Description),
		Author:          cloneRaw(m.Author),
		License:         cloneRaw(m.License),
		Scripts:         m.Scripts.Clone(),
		Dependencies:    m.Dependencies.Clone(),
		DevDependencies: m.DevDependencies.Clone(),
		extra:           make(map[string]json.RawMessage, len(m.extra)),
		order:           append([]string(nil), m.order...),
	}
	for k, v := range m.extra {
		c.extra[k] = cloneRaw(v)
	}
	return c
}

// Encode renders the manifest with two-space indentation and a trailing
// newline, the layout npm itself writes.
func (m *Manifest) Encode() ([]byte, error) {
	compact, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// MarshalJSON writes keys in document order. Typed fields set after parsing
// are appended in knownKeys order; typed fields that were cleared are
// dropped.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	written := make(map[string]bool)
	first := true
	emit := func(key string) error {
		if written[key] {
			return nil
		}
		written[key] = true

		value, ok, err := m.value(key)
		if err != nil || !ok {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := writeString(&buf, key); err != nil {
			return err
		}
		buf.WriteByte(':')
		buf.Write(value)
		return nil
	}

	for _, key := range m.order {
		if err := emit(key); err != nil {
			return nil, err
		}
	}
	for _, key := range knownKeys {
		if err := emit(key); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a manifest object. A null typed field counts as absent.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	*m = Manifest{extra: make(map[string]json.RawMessage)}

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
		if err := m.set(key, raw); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		if !slices.Contains(m.order, key) {
			m.order = append(m.order, key)
		}
	}
	return expectDelim(dec, '}')
}

// value returns the encoded value for key and whether it is present.
func (m *Manifest) value(key string) ([]byte, bool, error) {
	var buf bytes.Buffer
	switch key {
	case keyName, keyVersion, keyDescription:
		s := *m.strField(key)
		if s == nil {
			return nil, false, nil
		}
		err := writeString(&buf, *s)
		return buf.Bytes(), err == nil, err
	case keyAuthor:
		return m.Author, m.Author != nil, nil
	case keyLicense:
		return m.License, m.License != nil, nil
	case keyScripts, keyDependencies, keyDevDependencies:
		e := *m.entriesField(key)
		if e == nil {
			return nil, false, nil
		}
		b, err := e.MarshalJSON()
		return b, err == nil, err
	default:
		raw, ok := m.extra[key]
		return raw, ok, nil
	}
}

func (m *Manifest) set(key string, raw json.RawMessage) error {
	isNull := bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
	switch key {
	case keyName, keyVersion, keyDescription:
		field := m.strField(key)
		if isNull {
			*field = nil
			return nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*field = &s
	case keyAuthor:
		if isNull {
			m.Author = nil
			return nil
		}
		m.Author = cloneRaw(raw)
	case keyLicense:
		if isNull {
			m.License = nil
			return nil
		}
		m.License = cloneRaw(raw)
	case keyScripts, keyDependencies, keyDevDependencies:
		field := m.entriesField(key)
		if isNull {
			*field = nil
			return nil
		}
		e := NewEntries()
		if err := e.UnmarshalJSON(raw); err != nil {
			return err
		}
		*field = e
	default:
		m.extra[key] = cloneRaw(raw)
	}
	return nil
}

func (m *Manifest) strField(key string) **string {
	switch key {
	case keyName:
		return &m.Name
	case keyVersion:
		return &m.Version
	default:
		return &m.Description
	}
}

func (m *Manifest) entriesField(key string) **Entries {
	switch key {
	case keyScripts:
		return &m.Scripts
	case keyDependencies:
		return &m.Dependencies
	default:
		return &m.DevDependencies
	}
}

func isKnown(key string) bool {
	return slices.Contains(knownKeys, key)
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
