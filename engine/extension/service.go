package extension

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/compozy/conduit/engine/core"
	"github.com/compozy/conduit/engine/dependency"
	"github.com/compozy/conduit/engine/integration"
	"github.com/compozy/conduit/engine/resources"
	"github.com/compozy/conduit/pkg/logger"
)

const (
	iconPrefix     = "extension:"
	processFailure = "An error has occurred while trying to process the technical extension. Please, check the input file."
)

var (
	ErrMissingFile  = errors.New("Can't find a valid 'file' part in the multipart request")
	ErrIconNotFound = errors.New("extension icon not found")
)

// Service manages the lifecycle of uploaded extensions: draft on upload, installed after
// validation, deleted on request.
type Service struct {
	resources *resources.Manager
	analyzer  Analyzer
	validate  *validator.Validate
	now       func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source used for created and updated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(m *resources.Manager, analyzer Analyzer, opts ...Option) *Service {
	if analyzer == nil {
		analyzer = NewJarAnalyzer()
	}
	s := &Service{
		resources: m,
		analyzer:  analyzer,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type UploadInput struct {
	File   io.Reader
	UserID string
	// UpdatedID names the draft or installed record the upload replaces.
	UpdatedID string
}

// Upload stores a binary, extracts its definition and records it as a draft. The stored
// binary is removed again when the upload is rejected.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*integration.Extension, error) {
	log := logger.FromContext(ctx)
	if in.File == nil {
		return nil, core.NewError(ErrMissingFile, core.CodeInvalidInput, nil)
	}
	id, err := core.NewID()
	if err != nil {
		return nil, err
	}
	ext, err := s.upload(ctx, id.String(), in)
	if err != nil {
		if derr := s.resources.DeleteExtensionBinary(ctx, id.String()); derr != nil {
			log.Warn("Failed to remove rejected extension binary", "id", id, "error", derr)
		}
		if core.CodeOf(err) == "" {
			err = core.NewError(fmt.Errorf("%s %w", processFailure, err), core.CodeInvalidInput, nil)
		}
		log.Warn("Extension upload rejected", "id", id, "error", err)
		return nil, err
	}
	log.Info("Extension uploaded", "id", ext.ID, "extension_id", ext.ExtensionID)
	return ext, nil
}

func (s *Service) upload(ctx context.Context, id string, in UploadInput) (*integration.Extension, error) {
	binary, err := io.ReadAll(in.File)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := s.resources.StoreExtensionBinary(ctx, id, bytes.NewReader(binary)); err != nil {
		return nil, err
	}
	embedded, err := s.analyzer.Analyze(ctx, binary)
	if err != nil {
		return nil, err
	}
	if in.UpdatedID != "" {
		replaced, err := s.resources.LoadExtension(ctx, in.UpdatedID)
		if err != nil {
			return nil, err
		}
		if replaced.ExtensionID != embedded.ExtensionID {
			return nil, core.Errorf(
				core.CodeInvalidInput,
				"The uploaded extensionId (%s) does not match the existing extensionId (%s)",
				embedded.ExtensionID, replaced.ExtensionID,
			)
		}
	} else {
		_, err := s.resources.FindInstalledExtension(ctx, embedded.ExtensionID)
		switch {
		case err == nil:
			return nil, core.Errorf(
				core.CodeInvalidInput,
				"An extension with the same extensionId (%s) is already installed. "+
					"Please update the existing extension instead of importing a new one.",
				embedded.ExtensionID,
			)
		case !errors.Is(err, resources.ErrNotFound):
			return nil, err
		}
	}
	if embedded.Icon == "" {
		embedded.Icon = GenerateIcon(embedded.Name)
	}
	now := s.now().UTC()
	embedded.ID = id
	embedded.Status = integration.ExtensionDraft
	embedded.CreatedAt = now
	embedded.LastUpdated = now
	embedded.UserID = in.UserID
	if _, err := s.resources.PutExtension(ctx, embedded); err != nil {
		return nil, err
	}
	return embedded, nil
}

// Install validates the stored extension and makes it the installed record of its
// extension id. Previously installed records of the same id are marked deleted.
func (s *Service) Install(ctx context.Context, id string) (*integration.Extension, []Violation, error) {
	ext, err := s.resources.LoadExtension(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	warnings, err := s.Validate(ctx, ext)
	if err != nil {
		return nil, warnings, err
	}
	all, err := s.resources.ListExtensions(ctx)
	if err != nil {
		return nil, nil, err
	}
	now := s.now().UTC()
	for i := range all {
		other := &all[i]
		if other.ID == ext.ID || other.ExtensionID != ext.ExtensionID || other.Status != integration.ExtensionInstalled {
			continue
		}
		other.Status = integration.ExtensionDeleted
		other.LastUpdated = now
		if _, err := s.resources.PutExtension(ctx, other); err != nil {
			return nil, nil, err
		}
	}
	ext.Status = integration.ExtensionInstalled
	ext.LastUpdated = now
	if _, err := s.resources.PutExtension(ctx, ext); err != nil {
		return nil, nil, err
	}
	logger.FromContext(ctx).Info("Extension installed", "id", ext.ID, "extension_id", ext.ExtensionID)
	return ext, warnings, nil
}

// Delete marks the extension deleted. The binary is kept for existing deployments.
func (s *Service) Delete(ctx context.Context, id string) error {
	ext, err := s.resources.LoadExtension(ctx, id)
	if err != nil {
		return err
	}
	ext.Status = integration.ExtensionDeleted
	ext.LastUpdated = s.now().UTC()
	if _, err := s.resources.PutExtension(ctx, ext); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("Extension deleted", "id", ext.ID, "extension_id", ext.ExtensionID)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*integration.Extension, error) {
	return s.resources.LoadExtension(ctx, id)
}

// Integrations lists the integrations whose published deployments depend on the
// extension. Deleted integrations are skipped.
func (s *Service) Integrations(ctx context.Context, id string) ([]integration.ResourceIdentifier, error) {
	ext, err := s.resources.LoadExtension(ctx, id)
	if err != nil {
		return nil, err
	}
	integrations, err := s.resources.ListIntegrations(ctx)
	if err != nil {
		return nil, err
	}
	deleted := make(map[string]bool, len(integrations))
	for _, integ := range integrations {
		deleted[integ.ID] = integ.Deleted
	}
	deployments, err := s.resources.ListDeployments(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []integration.ResourceIdentifier
	for _, d := range deployments {
		if d.TargetState != integration.DeploymentPublished || deleted[d.IntegrationID] || d.Spec.Deleted {
			continue
		}
		if !dependency.References(d.Spec, ext.ExtensionID) {
			continue
		}
		if _, ok := seen[d.IntegrationID]; ok {
			continue
		}
		seen[d.IntegrationID] = struct{}{}
		out = append(out, integration.ResourceIdentifier{
			Kind: integration.ResourceKindIntegration,
			ID:   d.IntegrationID,
			Name: d.Spec.Name,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Icon returns an icon bundled in the extension binary and its media type. Generated
// icons are data URIs and have no bundled file.
func (s *Service) Icon(ctx context.Context, id string) ([]byte, string, error) {
	ext, err := s.resources.LoadExtension(ctx, id)
	if err != nil {
		return nil, "", err
	}
	file, ok := strings.CutPrefix(ext.Icon, iconPrefix)
	if !ok || file == "" {
		return nil, "", core.NewError(fmt.Errorf("%w: %s", ErrIconNotFound, id), core.CodeNotFound, nil)
	}
	rc, _, err := s.resources.LoadExtensionBinary(ctx, ext.ID)
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()
	binary, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read extension binary: %w", err)
	}
	icon, err := s.analyzer.ReadEntry(ctx, binary, file)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return nil, "", core.NewError(fmt.Errorf("%w: %s", ErrIconNotFound, file), core.CodeNotFound, nil)
		}
		return nil, "", err
	}
	return icon, mediaType(file, icon), nil
}

func mediaType(name string, content []byte) string {
	if strings.HasSuffix(strings.ToLower(name), ".svg") {
		return "image/svg+xml"
	}
	return mimetype.Detect(content).String()
}
