package dependency

import (
	"github.com/compozy/conduit/engine/integration"
)

// Set is an insertion ordered, identity deduplicated collection of dependencies.
// The first occurrence of a key wins.
type Set struct {
	items []integration.Dependency
	index map[integration.DependencyKey]struct{}
}

func NewSet() *Set {
	return &Set{index: make(map[integration.DependencyKey]struct{})}
}

// Add inserts d unless a dependency with the same key is present. It reports whether d was added.
func (s *Set) Add(d integration.Dependency) bool {
	key := d.Key()
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = struct{}{}
	s.items = append(s.items, d)
	return true
}

func (s *Set) AddAll(deps ...integration.Dependency) {
	for _, d := range deps {
		s.Add(d)
	}
}

func (s *Set) Contains(d integration.Dependency) bool {
	_, ok := s.index[d.Key()]
	return ok
}

func (s *Set) Len() int {
	return len(s.items)
}

// Items returns a copy of the dependencies in insertion order.
func (s *Set) Items() []integration.Dependency {
	out := make([]integration.Dependency, len(s.items))
	copy(out, s.items)
	return out
}

// Collect aggregates the dependencies declared at integration, flow, step and
// extension scope. Connectors and actions are not traversed.
func Collect(integ integration.Integration) []integration.Dependency {
	return collect(integ).Items()
}

func collect(integ integration.Integration) *Set {
	set := NewSet()
	set.AddAll(integ.Dependencies...)
	for _, flow := range integ.Flows {
		set.AddAll(flow.Dependencies...)
		for _, step := range flow.Steps {
			set.AddAll(step.Dependencies...)
			if ext := step.Extension; ext != nil {
				set.AddAll(ext.Dependencies...)
				set.Add(integration.ExtensionDependency(ext.ExtensionID))
			}
		}
	}
	return set
}

// ForProject returns the collected dependencies followed by those the generated project
// needs implicitly, such as the engine for each template step's language.
func ForProject(integ integration.Integration) []integration.Dependency {
	set := collect(integ)
	for _, flow := range integ.Flows {
		for _, step := range flow.Steps {
			if step.Kind == integration.StepKindTemplate {
				set.Add(integration.TemplateLanguageOf(step).Dependency())
			}
		}
	}
	return set.Items()
}

// Filter returns the dependencies matching pred, preserving order.
func Filter(deps []integration.Dependency, pred func(integration.Dependency) bool) []integration.Dependency {
	var out []integration.Dependency
	for _, d := range deps {
		if pred(d) {
			out = append(out, d)
		}
	}
	return out
}

// References reports whether the collected dependencies of integ include the extension.
func References(integ integration.Integration, extensionID string) bool {
	return collect(integ).Contains(integration.ExtensionDependency(extensionID))
}
