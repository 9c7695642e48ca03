package audit

import "fmt"

// Registration marks an operation as audited and names the tags its records carry.
type Registration struct {
	Operation  string
	Action     string
	EntityType string
}

// Registry is the explicit list of audited operations.
type Registry struct {
	byOperation map[string]Registration
}

// NewRegistry indexes regs by operation. Duplicate or incomplete registrations are rejected.
func NewRegistry(regs ...Registration) (*Registry, error) {
	m := make(map[string]Registration, len(regs))
	for _, reg := range regs {
		if reg.Operation == "" || reg.Action == "" || reg.EntityType == "" {
			return nil, fmt.Errorf("audit: incomplete registration %+v", reg)
		}
		if _, dup := m[reg.Operation]; dup {
			return nil, fmt.Errorf("audit: duplicate registration for %q", reg.Operation)
		}
		m[reg.Operation] = reg
	}
	return &Registry{byOperation: m}, nil
}

// Lookup returns the registration for operation.
func (r *Registry) Lookup(operation string) (Registration, bool) {
	if r == nil {
		return Registration{}, false
	}
	reg, ok := r.byOperation[operation]
	return reg, ok
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byOperation)
}
