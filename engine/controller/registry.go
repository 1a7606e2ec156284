package controller

import (
	"sort"
	"sync"

	"github.com/xiaonanln/saganet/engine/gwlog"
)

// Route maps a controller name to its handler factory
type Route struct {
	Name   string
	Access Access
	New    func() Handler
}

// Registry holds the routes of the process, looked up by exact name
type Registry struct {
	lock   sync.RWMutex
	routes map[string]*Route
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		routes: map[string]*Route{},
	}
}

// Register adds a route. Registering a name twice is a programming error.
func (r *Registry) Register(name string, access Access, factory func() Handler) *Route {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.routes[name]; ok {
		gwlog.Panicf("Register: controller %s already registered", name)
	}
	route := &Route{Name: name, Access: access, New: factory}
	r.routes[name] = route
	gwlog.Debugf(">>> Register controller %s (%s) <<<", name, access)
	return route
}

// Lookup returns the route registered under name
func (r *Registry) Lookup(name string) (*Route, bool) {
	r.lock.RLock()
	route, ok := r.routes[name]
	r.lock.RUnlock()
	return route, ok
}

// Names returns the sorted names of all routes
func (r *Registry) Names() []string {
	r.lock.RLock()
	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	r.lock.RUnlock()
	sort.Strings(names)
	return names
}
