package processor

import "sync"

var (
	registryLock      sync.Mutex
	registeredModules []Module
)

// RegisterModule registers the given compile module. The annoxml command
// runs registered modules after its built-in ones, so a custom build of the
// command can add modules from the init functions of linked packages.
func RegisterModule(m Module) {
	registryLock.Lock()
	defer registryLock.Unlock()
	registeredModules = append(registeredModules, m)
}

// AllRegisteredModules returns the list of all registered modules, in the
// order they were registered.
func AllRegisteredModules() []Module {
	registryLock.Lock()
	defer registryLock.Unlock()
	mods := make([]Module, len(registeredModules))
	copy(mods, registeredModules)
	return mods
}
