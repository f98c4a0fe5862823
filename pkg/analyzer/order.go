package analyzer

import (
	"sort"

	"github.com/tobyms/pgsite/pkg/schema"
)

// Order sorts tables so that, for every foreign-key or many-to-many edge,
// the target appears at or before the source. Junction tables additionally
// sort after both endpoints they connect, since their inserts reference
// ids returned by the endpoint inserts.
//
// The sort is a depth-first traversal seeded by unvisited tables in input
// order, with dependencies visited alphabetically, so the result is
// deterministic for a given input. Cycles are not expected in a
// well-formed schema; the visited marking guarantees termination on
// cyclic input but the resulting order is then only best-effort.
func Order(tables []*schema.Table, rels []schema.Relationship) []*schema.Table {
	depSet := make(map[string]map[string]bool, len(tables))
	byName := make(map[string]*schema.Table, len(tables))
	for _, t := range tables {
		depSet[t.Name] = make(map[string]bool)
		byName[t.Name] = t
	}

	for _, r := range rels {
		switch r.Kind {
		case schema.RelForeignKey, schema.RelManyToMany, schema.RelManyToManyAttribute:
			if _, ok := depSet[r.Source]; ok {
				depSet[r.Source][r.Target] = true
			}
		}
		// The junction itself depends on both endpoints.
		if r.ManyToMany() && r.Junction != nil {
			if _, ok := depSet[r.Junction.Table]; ok {
				depSet[r.Junction.Table][r.Source] = true
				depSet[r.Junction.Table][r.Target] = true
			}
		}
	}

	deps := make(map[string][]string, len(depSet))
	for name, set := range depSet {
		for dep := range set {
			deps[name] = append(deps[name], dep)
		}
		sort.Strings(deps[name])
	}

	visited := make(map[string]bool, len(tables))
	ordered := make([]*schema.Table, 0, len(tables))

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		for _, dep := range deps[name] {
			visit(dep)
		}
		if t, ok := byName[name]; ok {
			ordered = append(ordered, t)
		}
	}

	for _, t := range tables {
		visit(t.Name)
	}
	return ordered
}
