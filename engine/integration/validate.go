package integration

import (
	"errors"

	"github.com/compozy/conduit/engine/core"
)

// Validate checks the structural invariants of the model.
func (i Integration) Validate() error {
	var errs []error
	for _, d := range i.Dependencies {
		errs = append(errs, validateDependency(d))
	}
	for fi, f := range i.Flows {
		for _, d := range f.Dependencies {
			errs = append(errs, validateDependency(d))
		}
		for si, s := range f.Steps {
			if s.Kind == "" {
				errs = append(errs, core.Errorf(core.CodeInvalidInput, "flow %d step %d: step kind is required", fi, si))
			}
			if s.Connection != nil && s.Extension != nil {
				errs = append(errs, core.Errorf(core.CodeInvalidInput,
					"flow %d step %d: a step may reference a connection or an extension, not both", fi, si))
			}
			if s.Extension != nil && s.Extension.ExtensionID == "" {
				errs = append(errs, core.Errorf(core.CodeInvalidInput, "flow %d step %d: extension id is required", fi, si))
			}
			for _, d := range s.Dependencies {
				errs = append(errs, validateDependency(d))
			}
		}
	}
	for _, r := range i.Resources {
		if r.ID == "" {
			errs = append(errs, core.Errorf(core.CodeInvalidInput, "resource of kind %q has no id", r.Kind))
		}
	}
	return errors.Join(errs...)
}

func validateDependency(d Dependency) error {
	if !d.Type.Valid() {
		return core.Errorf(core.CodeInvalidInput, "unknown dependency type %q", d.Type)
	}
	if d.NormalizedID() == "" {
		return core.Errorf(core.CodeInvalidInput, "dependency of type %s has no id", d.Type)
	}
	return nil
}
