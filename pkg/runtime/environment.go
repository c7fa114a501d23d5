package runtime

import "sort"

// Environment maps variable names to string values for a single run.
// There is one flat scope; redefining a name overwrites it. The zero value is
// an empty environment ready to use.
type Environment struct {
	values map[string]string
}

// NewEnvironment creates an empty environment.
func NewEnvironment() *Environment {
	return &Environment{values: make(map[string]string)}
}

// Define inserts or overwrites a binding.
func (e *Environment) Define(name, value string) {
	if e.values == nil {
		e.values = make(map[string]string)
	}
	e.values[name] = value
}

// Get looks a binding up.
func (e *Environment) Get(name string) (string, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Len reports the number of bindings.
func (e *Environment) Len() int {
	return len(e.values)
}

// Snapshot returns a copy of the current bindings.
func (e *Environment) Snapshot() map[string]string {
	out := make(map[string]string, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// Keys returns the bound names in sorted order (useful for determinism in tests).
func (e *Environment) Keys() []string {
	keys := make([]string, 0, len(e.values))
	for k := range e.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
