package lens

import "github.com/ipldurl/resolve/pkg/ipldurlerr"

// Registry is an ordered name->ADLFunc map. Order only matters for
// Names (diagnostics); lookup itself is by name.
type Registry struct {
	names []string
	fns   map[string]ADLFunc
}

// NewRegistry builds an empty ADL registry.
func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]ADLFunc)}
}

// Register adds fn under name, appending to the end of Names order.
// Re-registering an existing name overwrites its function but keeps its
// original position.
func (r *Registry) Register(name string, fn ADLFunc) {
	if _, exists := r.fns[name]; !exists {
		r.names = append(r.names, name)
	}
	r.fns[name] = fn
}

// Lookup returns the function registered under name, or UnknownADL
// listing every known name.
func (r *Registry) Lookup(name string) (ADLFunc, error) {
	fn, ok := r.fns[name]
	if !ok {
		return nil, &ipldurlerr.UnknownADL{Name: name, Known: append([]string(nil), r.names...)}
	}
	return fn, nil
}

// Names returns every registered name in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}
