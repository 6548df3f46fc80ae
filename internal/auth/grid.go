package auth

import "strings"

// Grid is the fixed-shape permission lookup of a subject: resource by action
// to granted. Absent keys mean not granted, never an error.
type Grid map[Resource]map[Action]bool

// Allowed reports whether the grid grants the given resource/action pair.
// A nil grid allows nothing.
func (g Grid) Allowed(resource Resource, action Action) bool {
	if g == nil {
		return false
	}

	actions, ok := g[resource]
	if !ok {
		return false
	}

	return actions[action]
}

// Grant marks a resource/action pair as granted, allocating as needed.
func (g Grid) Grant(resource Resource, action Action) {
	actions, ok := g[resource]
	if !ok {
		actions = make(map[Action]bool)
		g[resource] = actions
	}

	actions[action] = true
}

// ParseGrid builds a Grid from permission ids in resource.action form.
// Ids that are malformed or name a resource/action outside the catalog are
// ignored at this boundary rather than propagated.
func ParseGrid(ids []string) Grid {
	g := make(Grid)

	for _, id := range ids {
		resource, action, ok := strings.Cut(id, ".")
		if !ok {
			continue
		}

		if !InCatalog(id) {
			continue
		}

		g.Grant(Resource(resource), Action(action))
	}

	return g
}

// IDs returns the granted resource.action ids in catalog order, for stable
// display and serialization.
func (g Grid) IDs() []string {
	var out []string

	for _, e := range catalog {
		if g.Allowed(e.Resource, e.Action) {
			out = append(out, e.ID)
		}
	}

	return out
}
