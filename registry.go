package annoxml

import (
	"sort"
	"sync"
)

var (
	registryLock      sync.RWMutex
	registeredMembers = map[string]Member{}
)

// Register makes the given member queryable at runtime via Lookup. It is
// typically called from init functions generated by the annoxml tool (see
// the registry module in package processor).
//
// Registering a member whose name is already registered merges the two:
// attributes are appended and parameters are appended, in registration
// order.
func Register(m Member) {
	registryLock.Lock()
	defer registryLock.Unlock()
	existing, ok := registeredMembers[m.Name]
	if !ok {
		existing = Member{Name: m.Name, Package: m.Package}
	}
	// the registry owns its slices
	existing.Attributes = concat(existing.Attributes, m.Attributes)
	existing.Parameters = concat(existing.Parameters, m.Parameters)
	registeredMembers[m.Name] = existing
}

func concat[T any](a, b []T) []T {
	if len(a)+len(b) == 0 {
		return nil
	}
	return append(append(make([]T, 0, len(a)+len(b)), a...), b...)
}

// Lookup returns the registered member with the given identifier, e.g.
// "M:example.com/users.Find(*string)".
func Lookup(name string) (Member, bool) {
	registryLock.RLock()
	defer registryLock.RUnlock()
	m, ok := registeredMembers[name]
	return m, ok
}

// RegisteredMembers returns all registered members, sorted by name.
func RegisteredMembers() []Member {
	registryLock.RLock()
	defer registryLock.RUnlock()
	members := make([]Member, 0, len(registeredMembers))
	for _, m := range registeredMembers {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Name < members[j].Name
	})
	return members
}

// FindAttributes returns the attributes of the given registered member whose
// constructor equals ctor.
func FindAttributes(name, ctor string) []Attribute {
	m, ok := Lookup(name)
	if !ok {
		return nil
	}
	var found []Attribute
	for _, a := range m.Attributes {
		if a.Constructor == ctor {
			found = append(found, a)
		}
	}
	return found
}

// resetRegistry is used by tests.
func resetRegistry() {
	registryLock.Lock()
	defer registryLock.Unlock()
	registeredMembers = map[string]Member{}
}
