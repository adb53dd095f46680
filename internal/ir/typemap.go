package ir

import "fmt"

// Typed pairs a rewritten expression with its type. C1 and C2 rewrite
// bottom-up and must "copy the original node's type to the new node in
// the type map" (§4.1); representing that pairing as a return value
// rather than a side table keyed by node identity is the idiomatic Go
// rendering of the same rule — every producer of a rewritten node
// produces its type alongside it, so the pairing can never go stale.
type Typed struct {
	Expr Expression
	Type Type
}

// TypeMap maps a declaration path to its type, the part of the front
// end's type map the core actually queries directly (paths to locals,
// parameters and standard-metadata members). Types of freshly rewritten
// anonymous subexpressions are carried as Typed values instead (see
// above) rather than looked up here.
type TypeMap struct {
	byPath map[string]Type
}

func NewTypeMap() *TypeMap {
	return &TypeMap{byPath: make(map[string]Type)}
}

func (m *TypeMap) Set(path string, t Type) {
	m.byPath[path] = t
}

func (m *TypeMap) Get(path string) (Type, bool) {
	t, ok := m.byPath[path]
	return t, ok
}

// MustGet panics (an internal bug per §7) when path has no registered
// type — every expression reaching C3 must have one.
func (m *TypeMap) MustGet(path string) Type {
	t, ok := m.byPath[path]
	if !ok {
		panic(fmt.Sprintf("ir: bug: no type registered for path %q", path))
	}
	return t
}

// RefMap maps a path to the declaration it resolves to, and can mint
// fresh unique names (NewName), mirroring the front end's reference map.
type RefMap struct {
	decls   map[string]Declaration
	counter int
}

func NewRefMap() *RefMap {
	return &RefMap{decls: make(map[string]Declaration)}
}

func (r *RefMap) Bind(path string, d Declaration) {
	r.decls[path] = d
}

func (r *RefMap) GetDeclaration(path string) (Declaration, bool) {
	d, ok := r.decls[path]
	return d, ok
}

// NewName returns a fresh name derived from hint, unique within this
// RefMap's lifetime.
func (r *RefMap) NewName(hint string) string {
	r.counter++
	return fmt.Sprintf("%s_%d", hint, r.counter)
}
