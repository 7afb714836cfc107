package interp

import "sync/atomic"

// Env is one lexical frame: a name->Value table plus a parent link.
// Closures retain the frame chain they capture (Env.retain/release),
// grounded on vm.go's explicit frame push/pop discipline generalized
// from a single evaluation stack into a persistent parent chain shared
// by closures.
type Env struct {
	parent   *Env
	vars     map[string]Value
	consts   map[string]bool
	refCount int64
}

// NewEnv creates a frame with parent as its enclosing scope (nil for
// the global frame).
func NewEnv(parent *Env) *Env {
	if parent != nil {
		atomic.AddInt64(&parent.refCount, 1)
	}
	return &Env{
		parent:   parent,
		vars:     make(map[string]Value),
		consts:   make(map[string]bool),
		refCount: 1,
	}
}

// Define introduces name in this frame, retaining the stored value
// (§4.5: "env_define/env_set retain before storing").
func (e *Env) Define(name string, v Value, isConst bool) {
	if old, ok := e.vars[name]; ok {
		Release(old)
	}
	Retain(v)
	e.vars[name] = v
	if isConst {
		e.consts[name] = true
	} else {
		delete(e.consts, name)
	}
}

// Get searches this frame then its ancestors, retaining the value
// before returning it (§4.5: "env_get retains before returning").
func (e *Env) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[name]; ok {
			Retain(v)
			return v, true
		}
	}
	return Value{}, false
}

// IsConst reports whether name, as resolved from this frame outward,
// is bound const.
func (e *Env) IsConst(name string) bool {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.vars[name]; ok {
			return env.consts[name]
		}
	}
	return false
}

// Set reassigns name in the innermost enclosing frame that owns it, or
// implicitly defines it in the current frame if no frame owns it yet
// (§4.5: "x = e reassigns in the innermost enclosing frame owning x,
// or creates in the current frame if not found"). Returns false if the
// binding is const (the caller throws the hemlock-level exception).
func (e *Env) Set(name string, v Value) bool {
	for env := e; env != nil; env = env.parent {
		if old, ok := env.vars[name]; ok {
			if env.consts[name] {
				return false
			}
			Retain(v)
			env.vars[name] = v
			Release(old)
			return true
		}
	}
	e.Define(name, v, false)
	return true
}

// retain bumps the frame's own ref count, used when a closure or a
// captured reference shares this frame with more than one owner.
func (e *Env) retain() { atomic.AddInt64(&e.refCount, 1) }

// releaseFrame drops one owner of this frame; at zero it releases
// every value it holds and recurses into its parent chain.
func (e *Env) releaseFrame() {
	if atomic.AddInt64(&e.refCount, -1) != 0 {
		return
	}
	for _, v := range e.vars {
		Release(v)
	}
	if e.parent != nil {
		e.parent.releaseFrame()
	}
}
