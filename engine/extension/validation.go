package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"

	"github.com/compozy/conduit/engine/core"
	"github.com/compozy/conduit/engine/integration"
)

var ErrValidation = errors.New("extension validation failed")

// Violation is a single validation finding.
type Violation struct {
	Property string `json:"property,omitempty"`
	Error    string `json:"error"`
	Message  string `json:"message"`
}

const (
	violationDuplicate = "NoDuplicateExtension"
	violationVersion   = "UpgradeVersion"
	violationSemver    = "SemanticVersion"
)

// validationError wraps the blocking violations of ext.
func validationError(ext *integration.Extension, violations []Violation) error {
	return core.NewError(
		fmt.Errorf("%w: %d violation(s) for %s", ErrValidation, len(violations), ext.ExtensionID),
		core.CodeValidation,
		map[string]any{"violations": violations},
	)
}

// Violations extracts the blocking violations carried by err.
func Violations(err error) []Violation {
	var coreErr *core.Error
	if !errors.As(err, &coreErr) || coreErr.Details == nil {
		return nil
	}
	v, _ := coreErr.Details["violations"].([]Violation)
	return v
}

func structViolations(v *validator.Validate, ext *integration.Extension) ([]Violation, error) {
	err := v.Struct(ext)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, fmt.Errorf("failed to validate extension: %w", err)
	}
	out := make([]Violation, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, Violation{
			Property: fe.Namespace(),
			Error:    fe.Tag(),
			Message:  fmt.Sprintf("%s failed the %q constraint", fe.Field(), fe.Tag()),
		})
	}
	return out, nil
}

// Validate checks ext against the rest of the stored extensions. Blocking violations fail
// with ErrValidation; non-blocking ones are returned as warnings.
func (s *Service) Validate(ctx context.Context, ext *integration.Extension) ([]Violation, error) {
	blocking, err := structViolations(s.validate, ext)
	if err != nil {
		return nil, err
	}
	if len(blocking) > 0 {
		return blocking, validationError(ext, blocking)
	}
	all, err := s.resources.ListExtensions(ctx)
	if err != nil {
		return nil, err
	}
	var warnings []Violation
	version, versionErr := semver.NewVersion(ext.Version)
	if ext.Version != "" && versionErr != nil {
		warnings = append(warnings, Violation{
			Property: "version",
			Error:    violationSemver,
			Message:  fmt.Sprintf("Version %q is not a semantic version", ext.Version),
		})
	}
	for i := range all {
		other := &all[i]
		if other.ID == ext.ID || other.ExtensionID != ext.ExtensionID || other.Status != integration.ExtensionInstalled {
			continue
		}
		warnings = append(warnings, Violation{
			Property: "extensionId",
			Error:    violationDuplicate,
			Message:  fmt.Sprintf("An extension with the same extensionId (%s) is already installed", ext.ExtensionID),
		})
		installed, err := semver.NewVersion(other.Version)
		if versionErr == nil && err == nil && version.LessThan(installed) {
			warnings = append(warnings, Violation{
				Property: "version",
				Error:    violationVersion,
				Message: fmt.Sprintf(
					"Version %s is older than the installed version %s",
					version.Original(), installed.Original(),
				),
			})
		}
	}
	return warnings, nil
}

// ValidateByID validates the stored extension id.
func (s *Service) ValidateByID(ctx context.Context, id string) ([]Violation, error) {
	ext, err := s.resources.LoadExtension(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Validate(ctx, ext)
}
