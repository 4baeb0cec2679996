package integration

import (
	"maps"

	"github.com/compozy/conduit/engine/core"
)

// Clone returns a deep copy that shares no maps, slices or pointers with i.
func (i Integration) Clone() Integration {
	return core.MustDeepCopy(i)
}

func (i Integration) WithID(id string) Integration {
	out := i.Clone()
	out.ID = id
	return out
}

func (i Integration) WithFlow(f Flow) Integration {
	out := i.Clone()
	out.Flows = append(out.Flows, f.Clone())
	return out
}

func (i Integration) WithFlows(flows ...Flow) Integration {
	out := i.Clone()
	out.Flows = make([]Flow, 0, len(flows))
	for _, f := range flows {
		out.Flows = append(out.Flows, f.Clone())
	}
	return out
}

func (i Integration) WithDependency(d Dependency) Integration {
	out := i.Clone()
	out.Dependencies = append(out.Dependencies, d)
	return out
}

func (i Integration) WithResource(r ResourceIdentifier) Integration {
	out := i.Clone()
	out.Resources = append(out.Resources, r)
	return out
}

func (i Integration) WithConfiguredProperty(key, value string) Integration {
	out := i.Clone()
	out.ConfiguredProperties = withEntry(out.ConfiguredProperties, key, value)
	return out
}

// MapSteps returns a copy of i with fn applied to every step. fn receives the flow
// and step indexes and a copy of the step it may modify freely.
func (i Integration) MapSteps(fn func(flow, step int, s Step) (Step, error)) (Integration, error) {
	out := i.Clone()
	for fi := range out.Flows {
		for si := range out.Flows[fi].Steps {
			mapped, err := fn(fi, si, out.Flows[fi].Steps[si])
			if err != nil {
				return Integration{}, err
			}
			out.Flows[fi].Steps[si] = mapped
		}
	}
	return out, nil
}

// ResourcesOfKind returns the attached resources of the given kind in declaration order.
func (i Integration) ResourcesOfKind(kind ResourceKind) []ResourceIdentifier {
	var out []ResourceIdentifier
	for _, r := range i.Resources {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Extensions returns the distinct extensions referenced by steps, in order of first use.
func (i Integration) Extensions() []*Extension {
	seen := make(map[string]struct{})
	var out []*Extension
	for _, f := range i.Flows {
		for _, s := range f.Steps {
			if s.Extension == nil {
				continue
			}
			if _, ok := seen[s.Extension.ExtensionID]; ok {
				continue
			}
			seen[s.Extension.ExtensionID] = struct{}{}
			out = append(out, s.Extension)
		}
	}
	return out
}

func (f Flow) Clone() Flow {
	return core.MustDeepCopy(f)
}

func (f Flow) WithStep(s Step) Flow {
	out := f.Clone()
	out.Steps = append(out.Steps, s.Clone())
	return out
}

func (f Flow) WithDependency(d Dependency) Flow {
	out := f.Clone()
	out.Dependencies = append(out.Dependencies, d)
	return out
}

func (s Step) Clone() Step {
	return core.MustDeepCopy(s)
}

func (s Step) WithConfiguredProperty(key, value string) Step {
	out := s.Clone()
	out.ConfiguredProperties = withEntry(out.ConfiguredProperties, key, value)
	return out
}

func (s Step) WithDependency(d Dependency) Step {
	out := s.Clone()
	out.Dependencies = append(out.Dependencies, d)
	return out
}

func withEntry(m map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(m)+1)
	maps.Copy(out, m)
	out[key] = value
	return out
}
