package manifest

import (
	"encoding/json"
	"fmt"
	"slices"

	"bpsdk-setup/internal/config"
)

const keyFiles = "files"

// SetScript sets scripts[name]. A missing scripts object is created at the
// end of the document.
func (m *Manifest) SetScript(name, command string) {
	if m.Scripts == nil {
		m.Scripts = NewEntries()
		if !slices.Contains(m.order, keyScripts) {
			m.order = append(m.order, keyScripts)
		}
	}
	m.Scripts.Set(name, command)
}

// AddFiles appends each pattern missing from the "files" list, creating the
// list when absent, and returns the patterns it added.
func (m *Manifest) AddFiles(patterns ...string) ([]string, error) {
	var files []json.RawMessage
	if raw, ok := m.Raw(keyFiles); ok {
		if err := json.Unmarshal(raw, &files); err != nil {
			return nil, fmt.Errorf("%q is not a list: %w", keyFiles, err)
		}
	}

	present := make(map[string]bool, len(files))
	for _, f := range files {
		var s string
		if json.Unmarshal(f, &s) == nil {
			present[s] = true
		}
	}

	var added []string
	for _, p := range patterns {
		if present[p] {
			continue
		}
		encoded, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		files = append(files, encoded)
		present[p] = true
		added = append(added, p)
	}

	if files == nil {
		files = []json.RawMessage{}
	}
	raw, err := json.Marshal(files)
	if err != nil {
		return nil, err
	}
	if err := m.SetRaw(keyFiles, raw); err != nil {
		return nil, err
	}
	return added, nil
}

// ApplyRootUpdates wires the UI tooling into the consumer's root manifest:
// each script is set (overwriting a previous command) in the given order, and
// each files pattern is appended when missing.
func ApplyRootUpdates(m *Manifest, scripts []config.Script, files []string) error {
	for _, s := range scripts {
		m.SetScript(s.Name, s.Command)
	}
	if _, err := m.AddFiles(files...); err != nil {
		return err
	}
	return nil
}
