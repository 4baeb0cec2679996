package generator

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/compozy/conduit/engine/dependency"
	"github.com/compozy/conduit/engine/integration"
	"github.com/compozy/conduit/engine/openapi"
	"github.com/compozy/conduit/engine/properties"
	"github.com/gosimple/slug"
)

// projectData is the context every template of a project is rendered with.
type projectData struct {
	ProjectName       string
	Version           string
	RuntimeVersion    string
	SpringBootVersion string
	Package           string
	Integration       integrationData
	Dependencies      []mavenDependency
	Maven             mavenData
	Properties        []properties.Entry
	API               *apiData
	Extensions        []extensionData
	Flows             []flowData
}

type integrationData struct {
	ID          string
	Name        string
	Description string
}

type mavenDependency struct {
	GroupID    string
	ArtifactID string
	Version    string
	Type       string
}

type mavenData struct {
	Mirror       string
	Repositories []repository
}

type repository struct {
	ID  string
	URL string
}

type apiData struct {
	BasePath     string
	ContractPath string
	Title        string
	Version      string
	Routes       []openapi.Route
}

type extensionData struct {
	Path string
}

type flowData struct {
	ID    string
	Name  string
	Steps []stepData
}

type stepData struct {
	Kind       string
	Endpoint   string
	Entrypoint string
	Invocation string
	Extension  string
	Properties []property
}

type property struct {
	Key   string
	Value string
}

const extensionsLoaderDir = "/deployments/extensions/"

// projectName is the maven artifact id of the generated project.
func projectName(integ integration.Integration) string {
	for _, candidate := range []string{integ.Name, integ.ID} {
		if name := slug.Make(candidate); name != "" {
			return name
		}
	}
	return "integration"
}

// mavenDependencies returns the maven coordinates of deps in order. Non maven
// dependencies are resolved elsewhere.
func mavenDependencies(deps []integration.Dependency) ([]mavenDependency, error) {
	out := make([]mavenDependency, 0, len(deps))
	for _, d := range dependency.Filter(deps, integration.Dependency.IsMaven) {
		c, err := d.Coordinates()
		if err != nil {
			return nil, err
		}
		out = append(out, mavenDependency{GroupID: c.GroupID, ArtifactID: c.ArtifactID, Version: c.Version, Type: c.Type})
	}
	return out, nil
}

func repositories(cfg Config) []repository {
	all := maps.Clone(cfg.Maven.Repositories)
	if all == nil {
		all = make(map[string]string)
	}
	maps.Copy(all, cfg.Maven.AdditionalRepositories)
	out := make([]repository, 0, len(all))
	for _, id := range slices.Sorted(maps.Keys(all)) {
		out = append(out, repository{ID: id, URL: all[id]})
	}
	return out
}

func mappingPath(flow, step int) string {
	return fmt.Sprintf("src/main/resources/mapping-flow-%d-step-%d.json", flow, step)
}

// flows describes the routes of the masked integration.
func flows(integ integration.Integration) []flowData {
	out := make([]flowData, 0, len(integ.Flows))
	for fi, flow := range integ.Flows {
		fd := flowData{ID: flow.ID, Name: flow.Name, Steps: make([]stepData, 0, len(flow.Steps))}
		if fd.ID == "" {
			fd.ID = fmt.Sprintf("flow-%d", fi)
		}
		for si, step := range flow.Steps {
			fd.Steps = append(fd.Steps, describeStep(fi, si, step))
		}
		out = append(out, fd)
	}
	return out
}

func describeStep(fi, si int, step integration.Step) stepData {
	sd := stepData{Kind: string(step.Kind)}
	values := maps.Clone(step.ConfiguredProperties)
	if values == nil {
		values = make(map[string]string)
	}
	switch step.Kind {
	case integration.StepKindEndpoint:
		sd.Endpoint = properties.Scheme(step)
		if d := step.ConnectorDescriptor(); d != nil {
			for k, v := range d.ConfiguredProperties {
				if _, ok := values[k]; !ok {
					values[k] = v
				}
			}
		}
	case integration.StepKindMapper:
		if _, ok := values[mappingProperty]; ok {
			values[mappingProperty] = "classpath:" + strings.TrimPrefix(mappingPath(fi, si), "src/main/resources/")
		}
	case integration.StepKindExtension:
		if step.Extension != nil {
			sd.Extension = step.Extension.ExtensionID
		}
		if step.Action != nil && step.Action.Descriptor.Entrypoint != "" {
			sd.Entrypoint = step.Action.Descriptor.Entrypoint
			kind := step.Action.Descriptor.Kind
			if kind == "" {
				kind = integration.StepActionEndpoint
			}
			sd.Invocation = strings.ToLower(string(kind))
		}
	}
	for _, k := range slices.Sorted(maps.Keys(values)) {
		sd.Properties = append(sd.Properties, property{Key: k, Value: values[k]})
	}
	return sd
}
