package manifest

// buildScript is the one script the consumer keeps across a UI update.
const buildScript = "build"

// Reconcile merges the UI manifest that existed before a bundle copy
// (existing) into the freshly copied one (incoming) and returns the
// manifest to persist.
//
// With no existing manifest, incoming is returned as is. Otherwise the result
// is a copy of incoming where:
//
//   - scripts.build, name, version, description, author and license take
//     the existing value;
//   - dependencies and devDependencies gain every existing entry whose key
//     incoming does not declare; incoming wins on a shared key.
//
// A field absent from existing keeps the incoming value rather than being
// erased. Neither input is modified, and applying Reconcile again with the
// same existing manifest changes nothing.
func Reconcile(existing, incoming *Manifest) *Manifest {
	if existing == nil {
		return incoming
	}

	merged := incoming.Clone()

	if build, ok := existing.Scripts.Get(buildScript); ok {
		if merged.Scripts == nil {
			merged.Scripts = NewEntries()
		}
		merged.Scripts.Set(buildScript, build)
	}

	merged.Name = prefer(existing.Name, merged.Name)
	merged.Version = prefer(existing.Version, merged.Version)
	merged.Description = prefer(existing.Description, merged.Description)
	if existing.Author != nil {
		merged.Author = cloneRaw(existing.Author)
	}
	if existing.License != nil {
		merged.License = cloneRaw(existing.License)
	}

	merged.Dependencies = addMissing(merged.Dependencies, existing.Dependencies)
	merged.DevDependencies = addMissing(merged.DevDependencies, existing.DevDependencies)

	return merged
}

func prefer(existing, incoming *string) *string {
	if existing != nil {
		return cloneStr(existing)
	}
	return incoming
}

// addMissing copies each entry of from whose key is not already in into.
func addMissing(into, from *Entries) *Entries {
	if from.Len() == 0 {
		return into
	}
	if into == nil {
		into = NewEntries()
	}
	for _, key := range from.Keys() {
		if into.Has(key) {
			continue
		}
		value, _ := from.Get(key)
		into.Set(key, value)
	}
	return into
}
