package authz

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps operation names to their requirements.
// It is filled at startup and read on every request.
type Registry struct {
	mu   sync.RWMutex
	reqs map[string]Requirement
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{reqs: make(map[string]Requirement)}
}

// Register adds the requirement for operation. Registering the same
// operation twice is an error.
func (r *Registry) Register(operation string, req Requirement) error {
	if operation == "" {
		return fmt.Errorf("authz: empty operation name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reqs[operation]; ok {
		return fmt.Errorf("authz: operation %q already registered", operation)
	}
	r.reqs[operation] = req.clone()
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(operation string, req Requirement) {
	if err := r.Register(operation, req); err != nil {
		panic(err)
	}
}

// Lookup returns a copy of the requirement for operation.
func (r *Registry) Lookup(operation string) (Requirement, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.reqs[operation]
	if !ok {
		return Requirement{}, false
	}
	return req.clone(), true
}

// Operations returns the registered operation names in sorted order.
func (r *Registry) Operations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := make([]string, 0, len(r.reqs))
	for op := range r.reqs {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

func (req Requirement) clone() Requirement {
	return Requirement{
		Public:      req.Public,
		Roles:       append([]string(nil), req.Roles...),
		Permissions: append([]string(nil), req.Permissions...),
	}
}
