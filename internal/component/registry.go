// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/web blank-imports the
// components it ships, calls Init(deps) on each, and mounts every
// component's Routes() under its Prefix().

package component

import (
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Initializer receives shared services once at startup.
type Initializer interface {
	Init(Deps) error
}

// Component contract.
//
// Routes() should mount both page and API endpoints relative to Prefix(),
// e.g. a component with prefix "/admin" registers "/{kind}/new":
//
//	r := chi.NewRouter()
//	r.Get("/{kind}/new", c.newForm)
//	return r
type Component interface {
	Name() string
	Prefix() string
	Routes() chi.Router
	Initializer
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component ordered by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Mount initialises every registered component and mounts its routes on r.
func Mount(r chi.Router, d Deps) error {
	for _, c := range All() {
		if err := c.Init(d); err != nil {
			return err
		}
		r.Mount(c.Prefix(), c.Routes())
	}
	return nil
}
