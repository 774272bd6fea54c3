// Package toolreg holds the descriptor table of clinic tools the assistant
// may call, with per-role visibility.
package toolreg

import (
	"context"
	"fmt"
	"sync"

	"github.com/feldsher/feldsher/internal/provider"
)

// Role identifies the caller category a tool is visible to.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RolePatient || r == RoleDoctor }

// Param describes one typed tool parameter.
// Type is a JSON schema primitive: string, integer, number, boolean, object, array.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Enum        []string
}

// Handler executes a tool. It returns a result envelope with at least one
// domain field; errors are caught by the dispatcher, never by the tool.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Definition is one entry of the tool descriptor table: name, description,
// typed parameter list, role visibility, and the callable itself.
type Definition struct {
	Name        string
	Description string
	Params      []Param
	Roles       []Role
	Handler     Handler
}

// VisibleTo reports whether the definition is in the given role's scope.
func (d *Definition) VisibleTo(role Role) bool {
	for _, r := range d.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Param returns the parameter with the given name, or nil.
func (d *Definition) Param(name string) *Param {
	for i := range d.Params {
		if d.Params[i].Name == name {
			return &d.Params[i]
		}
	}
	return nil
}

// Schema builds the JSON-schema parameters object advertised to providers.
func (d *Definition) Schema() map[string]any {
	props := make(map[string]any, len(d.Params))
	required := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			enum := make([]any, len(p.Enum))
			for i, e := range p.Enum {
				enum[i] = e
			}
			prop["enum"] = enum
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// ErrDuplicateTool is returned by Register when a tool name is already taken.
var ErrDuplicateTool = fmt.Errorf("duplicate tool name")

// Registry holds all registered tool definitions in registration order.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Definition
	order  []*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Definition)}
}

// Register adds a definition. Names are globally unique across the registry.
func (r *Registry) Register(def *Definition) error {
	if def == nil || def.Name == "" {
		return fmt.Errorf("tool definition has no name")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %q has no handler", def.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, def.Name)
	}
	r.byName[def.Name] = def
	r.order = append(r.order, def)
	return nil
}

// MustRegister registers a definition and panics on error. Startup wiring only.
func (r *Registry) MustRegister(def *Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Get returns a definition by name.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

// VisibleTools returns the definitions in the role's scope, in registration
// order. The same set is used for schema advertisement and for dispatch-time
// permission checks.
func (r *Registry) VisibleTools(role Role) []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Definition
	for _, d := range r.order {
		if d.VisibleTo(role) {
			out = append(out, d)
		}
	}
	return out
}

// VisibleNames returns the names of the role's visible tools in registration order.
func (r *Registry) VisibleNames(role Role) []string {
	defs := r.VisibleTools(role)
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

// ToLLMTools converts the role's visible definitions to provider tool schemas.
func (r *Registry) ToLLMTools(role Role) []provider.ToolDefinition {
	defs := r.VisibleTools(role)
	out := make([]provider.ToolDefinition, 0, len(defs))
	for _, d := range defs {
		out = append(out, provider.ToolDefinition{
			Type: "function",
			Function: provider.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Schema(),
			},
		})
	}
	return out
}
