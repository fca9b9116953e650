package config

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/go-sylar/sylar/logpipe"
)

var (
	nameRe = regexp.MustCompile(`^[a-z0-9._]+$`)
	log    = logpipe.Get("config")
)

// BaseVar is the type-erased view of a Var[T], returned by LookupBase
// and Visit for callers that only need name/description/ToText/
// FromText and don't know T statically.
type BaseVar interface {
	Name() string
	Description() string
	TypeTag() string
	ToText() string
	FromText(text string) error
}

// Registry is a process-wide, hierarchical namespace of Var[T]s keyed
// by dotted lowercase name. Go generics can't express a method like
// Registry.Lookup[T], so the typed accessors below are package-level
// generic functions: RegistryLookupOrRegister takes the *Registry to
// operate on, while Lookup, LookupOrRegister, LookupSlice, LookupMap,
// LookupSet, LookupExisting, LookupBase and Visit act on the default
// registry.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]BaseVar
}

// NewRegistry constructs an empty Registry. Most callers use the
// package-level default registry via Lookup/LookupOrRegister/Visit
// instead of constructing their own.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]BaseVar)}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide default Registry.
func Default() *Registry { return defaultRegistry }

// validName reports whether name matches the ^[a-z0-9._]+$ naming
// constraint.
func validName(name string) bool { return nameRe.MatchString(name) }

// lookupOrRegister is the shared implementation behind
// LookupOrRegister/LookupSlice/LookupMap/LookupSet: it takes a
// pre-built *Var[T] (carrying whatever codec the caller selected) to
// use only if name is not already registered. An invalid name and a
// name already registered under a different type are both recoverable:
// each is logged and reported via the ok return (nil, false) rather
// than panicking.
func lookupOrRegister[T any](r *Registry, name string, fresh *Var[T]) (*Var[T], bool) {
	if !validName(name) {
		log.Errorf(0, 0, "%v: %q", ErrInvalidName, name)
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[name]; ok {
		v, ok := existing.(*Var[T])
		if !ok {
			log.Errorf(0, 0, "%s: registered with type tag %s, requested %s",
				name, existing.TypeTag(), fresh.TypeTag())
			return nil, false
		}
		return v, true
	}
	r.entries[name] = fresh
	return fresh, true
}

// LookupOrRegister returns the Var[T] named name on the default
// registry, registering it with def/desc if it doesn't exist yet. ok
// is false, with v nil, if name is invalid or already registered under
// a different type.
func LookupOrRegister[T any](name string, def T, desc string) (v *Var[T], ok bool) {
	return RegistryLookupOrRegister(defaultRegistry, name, def, desc)
}

// RegistryLookupOrRegister is LookupOrRegister against an explicit
// Registry instead of the process-wide default.
func RegistryLookupOrRegister[T any](r *Registry, name string, def T, desc string) (*Var[T], bool) {
	return lookupOrRegister(r, name, newVar(name, def, desc))
}

// Lookup is an alias for LookupOrRegister: a lookup always registers
// on miss, there is no separate "must already exist" scalar accessor
// (see LookupExisting for that case). ok is false, with v nil, if name
// is invalid or already registered under a different type.
func Lookup[T any](name string, def T, desc string) (v *Var[T], ok bool) {
	return LookupOrRegister(name, def, desc)
}

// LookupSlice registers (or returns) an ordered-sequence-of-E
// variable, coercible to/from a YAML sequence.
func LookupSlice[E any](name string, def []E, desc string) (*Var[[]E], bool) {
	return lookupOrRegister(defaultRegistry, name, newVarWithCodec(name, def, desc, sliceCodec[E]()))
}

// LookupMap registers (or returns) a mapping-from-text-to-E variable.
func LookupMap[E any](name string, def map[string]E, desc string) (*Var[map[string]E], bool) {
	return lookupOrRegister(defaultRegistry, name, newVarWithCodec(name, def, desc, mapCodec[E]()))
}

// LookupSet registers (or returns) a hashed-set-of-E variable.
func LookupSet[E comparable](name string, def Set[E], desc string) (*Var[Set[E]], bool) {
	return lookupOrRegister(defaultRegistry, name, newVarWithCodec(name, def, desc, setCodec[E]()))
}

// LookupExisting returns the Var[T] named name only if it has already
// been registered with a matching type tag; it never registers.
func LookupExisting[T any](name string) (*Var[T], error) {
	defaultRegistry.mu.RLock()
	existing, ok := defaultRegistry.entries[name]
	defaultRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	v, ok := existing.(*Var[T])
	if !ok {
		return nil, fmt.Errorf("%w: %s: registered as %s, requested %s",
			ErrTypeMismatch, name, existing.TypeTag(), typeTag[T]())
	}
	return v, nil
}

// LookupBase returns the type-erased BaseVar named name, for callers
// (e.g. LoadFromTree, a config-dump CLI) that walk every registered
// variable without knowing its type.
func LookupBase(name string) (BaseVar, bool) {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()
	v, ok := defaultRegistry.entries[name]
	return v, ok
}

// Visit calls fn once for every currently registered variable, in no
// particular order. fn must not register new variables.
func Visit(fn func(BaseVar)) {
	defaultRegistry.mu.RLock()
	snapshot := make([]BaseVar, 0, len(defaultRegistry.entries))
	for _, v := range defaultRegistry.entries {
		snapshot = append(snapshot, v)
	}
	defaultRegistry.mu.RUnlock()
	for _, v := range snapshot {
		fn(v)
	}
}
