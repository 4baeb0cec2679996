package generator

import (
	"context"
	"fmt"
	"slices"

	"github.com/compozy/conduit/engine/dependency"
	"github.com/compozy/conduit/engine/integration"
)

// extensionArtifact is an extension binary shipped inside the project.
type extensionArtifact struct {
	name string
	ext  *integration.Extension
}

// extensionArtifacts lists the binaries the project bundles: extensions used by steps,
// then extensions required by id, then installed libraries matching a required tag.
func (g *Generator) extensionArtifacts(
	ctx context.Context,
	integ integration.Integration,
	deps []integration.Dependency,
) ([]extensionArtifact, error) {
	seen := make(map[string]struct{})
	var out []extensionArtifact
	add := func(ext *integration.Extension) {
		if ext == nil || ext.ExtensionID == "" {
			return
		}
		if _, ok := seen[ext.ExtensionID]; ok {
			return
		}
		seen[ext.ExtensionID] = struct{}{}
		out = append(out, extensionArtifact{name: ext.ArtifactName(), ext: ext})
	}
	for _, ext := range integ.Extensions() {
		add(ext)
	}
	for _, d := range dependency.Filter(deps, integration.Dependency.IsExtension) {
		add(&integration.Extension{ExtensionID: d.NormalizedID()})
	}
	tags := dependency.Filter(deps, integration.Dependency.IsLibraryTag)
	if len(tags) == 0 {
		return out, nil
	}
	libraries, err := g.installedLibraries(ctx)
	if err != nil {
		return nil, err
	}
	for _, tag := range tags {
		for i := range libraries {
			if slices.Contains(libraries[i].Tags, tag.NormalizedID()) {
				add(&libraries[i])
			}
		}
	}
	return out, nil
}

func (g *Generator) installedLibraries(ctx context.Context) ([]integration.Extension, error) {
	all, err := g.resources.ListExtensions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list extensions: %w", err)
	}
	var out []integration.Extension
	for _, ext := range all {
		if ext.Status == integration.ExtensionInstalled && ext.ExtensionType == integration.ExtensionTypeLibraries {
			out = append(out, ext)
		}
	}
	return out, nil
}
