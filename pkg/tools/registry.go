// Package tools holds the fixed tool catalog and its executor.
//
// Every tool declares a parameter schema and an approval class. The approval
// class is the only input the orchestrator's gate looks at, so each new tool
// must set it explicitly.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/fileops"
	"github.com/invopop/jsonschema"
)

// Env is what a handler may touch.
type Env struct {
	Workspace *fileops.Workspace
}

// Handler executes a tool. It reports every failure through the result.
type Handler func(ctx context.Context, env Env, args map[string]any) domain.ToolResult

// Tool is a registered catalog entry.
type Tool struct {
	Spec    domain.ToolSpec
	Schema  *jsonschema.Schema
	Handler Handler
}

// Registry maps tool names to tools. It accepts registrations until Freeze.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	frozen atomic.Bool
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool. Duplicate names and registration after Freeze are errors.
func (r *Registry) Register(t Tool) error {
	if t.Spec.Name == "" || t.Handler == nil {
		return fmt.Errorf("%w: tool needs a name and a handler", domain.ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() {
		return fmt.Errorf("registry is frozen, cannot register %q", t.Spec.Name)
	}
	if _, exists := r.tools[t.Spec.Name]; exists {
		return fmt.Errorf("%w: tool %q already registered", domain.ErrConflict, t.Spec.Name)
	}
	r.tools[t.Spec.Name] = t
	return nil
}

// Freeze stops further registration. Lookups after Freeze take no lock.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen.Store(true)
	r.mu.Unlock()
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	if !r.frozen.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	t, ok := r.tools[name]
	return t, ok
}

// Specs returns every spec sorted by name.
func (r *Registry) Specs() []domain.ToolSpec {
	if !r.frozen.Load() {
		r.mu.RLock()
		defer r.mu.RUnlock()
	}
	out := make([]domain.ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute validates required arguments and runs the tool.
// Unknown tools, missing arguments and handler panics all come back as failed results.
func (r *Registry) Execute(ctx context.Context, env Env, call domain.ToolCall) (res domain.ToolResult) {
	t, ok := r.Lookup(call.Name)
	if !ok {
		return domain.Failure("unknown tool", fmt.Errorf("%w: %s", domain.ErrUnknownTool, call.Name))
	}

	for _, key := range t.Spec.RequiredParams() {
		if v, ok := call.Args[key]; !ok || v == nil {
			return domain.Failure("invalid arguments", errors.New("Missing required parameter: "+key))
		}
	}

	defer func() {
		if p := recover(); p != nil {
			res = domain.Failure("tool crashed", fmt.Errorf("%s panicked: %v", call.Name, p))
		}
	}()
	return t.Handler(ctx, env, call.Args)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide catalog, built and frozen on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		r := NewRegistry()
		for _, t := range builtins() {
			if err := r.Register(t); err != nil {
				panic(err)
			}
		}
		r.Freeze()
		defaultRegistry = r
	})
	return defaultRegistry
}
