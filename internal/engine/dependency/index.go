// # internal/engine/dependency/index.go
package dependency

import (
	"fmt"
	"sync"
)

// Identifier is a graph node. Two identifiers denote the same node when
// Name and File match; Depth is informational.
type Identifier struct {
	Name  string
	File  string
	Depth int
}

// Key is the identity part of an Identifier.
type Key struct {
	Name string
	File string
}

func (id Identifier) Key() Key {
	return Key{Name: id.Name, File: id.File}
}

// Same reports whether both identifiers denote the same node.
func (id Identifier) Same(other Identifier) bool {
	return id.Key() == other.Key()
}

func (id Identifier) String() string {
	return fmt.Sprintf("%s (%s)", id.Name, id.File)
}

// Index maps bare names to globally visible identifiers. The first
// registration of a name wins.
type Index struct {
	mu     sync.RWMutex
	byName map[string]Identifier
	order  []string
}

func NewIndex() *Index {
	return &Index{byName: make(map[string]Identifier)}
}

// Register inserts id unless its name is already taken and reports whether
// it was inserted.
func (x *Index) Register(id Identifier) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.byName[id.Name]; ok {
		return false
	}
	x.byName[id.Name] = id
	x.order = append(x.order, id.Name)
	return true
}

func (x *Index) CanResolve(name string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.byName[name]
	return ok
}

func (x *Index) Resolve(name string) (Identifier, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	id, ok := x.byName[name]
	return id, ok
}

// All returns every registered identifier in registration order.
func (x *Index) All() []Identifier {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]Identifier, 0, len(x.order))
	for _, name := range x.order {
		out = append(out, x.byName[name])
	}
	return out
}

func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.order)
}

// ReferenceTo returns a handle that looks name up when resolved rather than
// now, so names registered later are still found.
func (x *Index) ReferenceTo(name string) Reference {
	return Reference{Name: name, index: x}
}

// Reference is a deferred lookup of a name in an Index.
type Reference struct {
	Name  string
	index *Index
}

func (r Reference) Resolve() (Identifier, bool) {
	if r.index == nil {
		return Identifier{}, false
	}
	return r.index.Resolve(r.Name)
}
