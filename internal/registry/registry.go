// Package registry provides the generic type-tag→constructor registry used
// by both component families (agents, MCP servers).
//
// Implementations register at process initialization; steady-state lookups
// are read-only. Re-registering a tag overwrites the previous constructor —
// a deliberate override mechanism, not an error.
package registry

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/switchboard-ai/switchboard/pkg/errdefs"
	"github.com/switchboard-ai/switchboard/pkg/models"
)

// Constructor builds one component instance from its configuration.
type Constructor[C, T any] func(cfg C) (T, error)

// Registry maps symbolic type tags to constructors. Thread-safe.
type Registry[C, T any] struct {
	family string

	mu    sync.RWMutex
	ctors map[string]Constructor[C, T]
}

// New creates an empty registry for a component family. The family name
// only labels log lines and error messages.
func New[C, T any](family string) *Registry[C, T] {
	return &Registry[C, T]{
		family: family,
		ctors:  make(map[string]Constructor[C, T]),
	}
}

// Register adds a constructor under the given type tag. Last write wins.
func (r *Registry[C, T]) Register(tag string, ctor Constructor[C, T]) {
	r.mu.Lock()
	_, overwrote := r.ctors[tag]
	r.ctors[tag] = ctor
	r.mu.Unlock()

	evt := log.Info().Str("family", r.family).Str("type", tag)
	if overwrote {
		evt.Bool("overwrote", true)
	}
	evt.Msg("Constructor registered")
}

// Create instantiates the component registered under tag.
func (r *Registry[C, T]) Create(tag string, cfg C) (T, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[tag]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, errdefs.UnknownType(tag)
	}
	return ctor(cfg)
}

// Types returns all registered type tags, sorted.
func (r *Registry[C, T]) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.ctors))
	for tag := range r.ctors {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// RegisterDeclared processes dynamic registration declarations against a
// compiled-in symbol catalog keyed by "module_path.class_name". Each
// declaration is handled independently: an unresolvable one is logged and
// skipped without aborting the rest. Returns the errors for the skipped
// declarations.
func (r *Registry[C, T]) RegisterDeclared(decls []models.RegistrationDecl, catalog map[string]Constructor[C, T]) []error {
	var errs []error
	for _, decl := range decls {
		symbol := decl.ModulePath + "." + decl.ClassName
		ctor, ok := catalog[symbol]
		if !ok {
			err := errdefs.Registration("%s: no compiled-in implementation for %q (type %q)", r.family, symbol, decl.Type)
			log.Error().
				Str("family", r.family).
				Str("type", decl.Type).
				Str("symbol", symbol).
				Msg("Skipping unresolvable registration declaration")
			errs = append(errs, err)
			continue
		}
		if decl.Type == "" {
			err := errdefs.Registration("%s: declaration for %q has no type tag", r.family, symbol)
			log.Error().Str("family", r.family).Str("symbol", symbol).Msg("Skipping declaration without type tag")
			errs = append(errs, err)
			continue
		}
		r.Register(decl.Type, ctor)
	}
	return errs
}
