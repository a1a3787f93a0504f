package manifest

import (
	"bytes"
)

// Eligibility is the outcome of checking a root manifest before installing.
type Eligibility int

const (
	// Eligible projects opt into the SDK tooling.
	Eligible Eligibility = iota
	// SelfPackage is the SDK plugin's own repository; nothing to install.
	SelfPackage
	// NotOptedIn projects lack the opt-in flag.
	NotOptedIn
)

func (e Eligibility) String() string {
	switch e {
	case Eligible:
		return "eligible"
	case SelfPackage:
		return "self-package"
	default:
		return "not-opted-in"
	}
}

// CheckProject decides whether the SDK can be installed into the project
// described by root. pkg is the SDK plugin name and flag the opt-in key,
// which must be the JSON literal true.
func CheckProject(root *Manifest, pkg, flag string) Eligibility {
	if root.Name != nil && *root.Name == pkg {
		return SelfPackage
	}
	if !root.Flag(flag) {
		return NotOptedIn
	}
	return Eligible
}

// Flag reports whether key holds the JSON literal true.
func (m *Manifest) Flag(key string) bool {
	raw, ok := m.Raw(key)
	return ok && bytes.Equal(bytes.TrimSpace(raw), []byte("true"))
}

// HasDependency reports whether pkg is listed in dependencies.
func (m *Manifest) HasDependency(pkg string) bool {
	return m.Dependencies.Has(pkg)
}
