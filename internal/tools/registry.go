package tools

import (
	"sort"
	"strings"

	"homebot/internal/agent"
)

// Registry is the closed catalog of capabilities: a name to tool table
// built once at startup. Unknown names are handled at dispatch, not here.
type Registry struct {
	table map[string]Tool
}

func NewRegistry(catalog ...Tool) *Registry {
	table := make(map[string]Tool, len(catalog))
	for _, t := range catalog {
		if t.Definition.Name == "" || t.Run == nil {
			continue
		}
		table[t.Definition.Name] = t
	}
	return &Registry{table: table}
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.table[name]
	return t, ok
}

// Names returns the sorted tool names, used in unknown-tool replies.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.table))
	for name := range r.table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs returns the provider-facing catalog in stable order.
func (r *Registry) Specs() []agent.ToolSpec {
	specs := make([]agent.ToolSpec, 0, len(r.table))
	for _, name := range r.Names() {
		specs = append(specs, r.table[name].Definition.Spec())
	}
	return specs
}

// IsCosmetic reports whether the named tool is excluded from the
// user-visible usage footer.
func (r *Registry) IsCosmetic(name string) bool {
	t, ok := r.table[name]
	return ok && t.Cosmetic
}

func (r *Registry) describeAvailable() string {
	return strings.Join(r.Names(), ", ")
}
