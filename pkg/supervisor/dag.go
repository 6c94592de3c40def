package supervisor

import (
	"fmt"

	"github.com/mondrian-project/mondrian/pkg/config"
)

// topologicalOrder returns processes ordered so that every entry appears
// after all the entries it depends on (spec.md §4.E "A child is started
// only after all its dependencies report healthy"). Returns an error on an
// unknown dependency name or a cycle.
func topologicalOrder(processes []config.ManagedProcessConfig) ([]config.ManagedProcessConfig, error) {
	byName := make(map[string]config.ManagedProcessConfig, len(processes))
	for _, p := range processes {
		byName[p.Name] = p
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[string]int, len(processes))
	ordered := make([]config.ManagedProcessConfig, 0, len(processes))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visited:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle detected at %q", name)
		}
		p, ok := byName[name]
		if !ok {
			return fmt.Errorf("unknown dependency %q", name)
		}
		state[name] = visiting
		for _, dep := range p.DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = visited
		ordered = append(ordered, p)
		return nil
	}

	for _, p := range processes {
		if err := visit(p.Name); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}
