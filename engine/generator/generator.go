package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/compozy/conduit/engine/core"
	"github.com/compozy/conduit/engine/dependency"
	"github.com/compozy/conduit/engine/integration"
	"github.com/compozy/conduit/engine/openapi"
	"github.com/compozy/conduit/engine/properties"
	"github.com/compozy/conduit/pkg/archive"
	"github.com/compozy/conduit/pkg/logger"
	"github.com/compozy/conduit/pkg/template"
	"github.com/compozy/conduit/pkg/tplengine"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

const (
	mappingProperty = "atlasmapping"
	contractPath    = "openapi.json"

	resourcesDir   = "src/main/resources/"
	integrationDir = resourcesDir + "syndesis/integration/"
)

// ResourceManager is the read access the generator needs to stored documents and
// extension binaries.
type ResourceManager interface {
	LoadOpenAPI(ctx context.Context, id string) (*integration.OpenAPI, error)
	OpenExtensionBinary(ctx context.Context, ext *integration.Extension) (io.ReadCloser, int64, error)
	ListExtensions(ctx context.Context) ([]integration.Extension, error)
}

// Generator turns integrations into buildable project archives.
type Generator struct {
	cfg          Config
	resources    ResourceManager
	resolver     *template.Resolver
	materializer *properties.Materializer
	modTime      time.Time
}

type Option func(*options)

type options struct {
	layer   afero.Fs
	modTime time.Time
}

// WithTemplateLayer layers fsys above the built-in templates. It takes precedence over
// Config.TemplateDir.
func WithTemplateLayer(fsys afero.Fs) Option {
	return func(o *options) {
		o.layer = fsys
	}
}

// WithModTime fixes the modification time of archive entries.
func WithModTime(t time.Time) Option {
	return func(o *options) {
		o.modTime = t
	}
}

func New(cfg Config, resources ResourceManager, opts ...Option) (*Generator, error) {
	if resources == nil {
		return nil, fmt.Errorf("resource manager is required")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	cfg = cfg.withDefaults()
	var resolverOpts []template.Option
	switch {
	case o.layer != nil:
		resolverOpts = append(resolverOpts, template.WithLayer(o.layer))
	case cfg.TemplateDir != "":
		resolverOpts = append(resolverOpts, template.WithTemplateDir(cfg.TemplateDir))
	}
	resolver, err := template.NewResolver(cfg.OverridePath, resolverOpts...)
	if err != nil {
		return nil, err
	}
	return &Generator{
		cfg:          cfg,
		resources:    resources,
		resolver:     resolver,
		materializer: properties.New(properties.Options{SecretMasking: cfg.SecretMasking}),
		modTime:      o.modTime,
	}, nil
}

// ApplicationProperties returns the runtime configuration written to
// application.properties.
func (g *Generator) ApplicationProperties(integ integration.Integration) (*properties.Properties, error) {
	return g.materializer.Properties(integ)
}

// Generate returns the project archive of integ as a tar stream. The call returns
// immediately; failures, including those found before streaming starts, are delivered
// once to sink and end the stream early without a read error. Closing the returned
// stream before it is exhausted stops production without reporting an error.
func (g *Generator) Generate(ctx context.Context, integ integration.Integration, sink archive.ErrorSink) *archive.Stream {
	start := time.Now()
	log := logger.FromContext(ctx).With("integration_id", integ.ID, "template_set", g.resolver.OverridePath())
	ctx = logger.ContextWithLogger(ctx, log)
	var failed atomic.Bool
	sink = archive.OnceSink(sink)
	report := func(err error) {
		failed.Store(true)
		log.Error("Project generation failed", "error", err)
		sink(err)
	}
	tree, err := g.buildTree(ctx, integ)
	if err != nil {
		recordGeneration(context.WithoutCancel(ctx), outcomeError, g.resolver.OverridePath(), time.Since(start))
		return archive.Failed(err, report)
	}
	var writeOpts []archive.Option
	if !g.modTime.IsZero() {
		writeOpts = append(writeOpts, archive.WithModTime(g.modTime))
	}
	log.Debug("Streaming project", "entries", tree.Len())
	stream := archive.Write(ctx, tree, report, writeOpts...)
	go func() {
		<-stream.Done()
		outcome := outcomeSuccess
		switch {
		case failed.Load():
			outcome = outcomeError
		case stream.Abandoned() || ctx.Err() != nil:
			outcome = outcomeAbandoned
		default:
			log.Info("Project generated", "entries", tree.Len(), "duration", time.Since(start))
		}
		recordGeneration(context.WithoutCancel(ctx), outcome, g.resolver.OverridePath(), time.Since(start))
	}()
	return stream
}

// buildTree validates integ and lays out the project. Content is produced lazily while
// the archive is written.
func (g *Generator) buildTree(ctx context.Context, integ integration.Integration) (*archive.Tree, error) {
	if err := integ.Validate(); err != nil {
		return nil, err
	}
	props, err := g.materializer.Properties(integ)
	if err != nil {
		return nil, err
	}
	deps := dependency.ForProject(integ)
	mavenDeps, err := mavenDependencies(deps)
	if err != nil {
		return nil, core.NewError(err, core.CodeInvalidInput, map[string]any{"integration_id": integ.ID})
	}
	masked, err := g.materializer.MaskSecrets(integ)
	if err != nil {
		return nil, err
	}
	contracts, err := g.loadContracts(ctx, integ)
	if err != nil {
		return nil, err
	}
	artifacts, err := g.extensionArtifacts(ctx, integ, deps)
	if err != nil {
		return nil, err
	}
	data := &projectData{
		ProjectName:       projectName(integ),
		Version:           g.cfg.ProjectVersion,
		RuntimeVersion:    g.cfg.RuntimeVersion,
		SpringBootVersion: g.cfg.SpringBootVersion,
		Package:           g.cfg.BasePackage,
		Integration:       integrationData{ID: integ.ID, Name: integ.Name, Description: integ.Description},
		Dependencies:      mavenDeps,
		Maven:             mavenData{Mirror: g.cfg.Maven.Mirror, Repositories: repositories(g.cfg)},
		Properties:        props.Entries(),
		Flows:             flows(masked),
	}
	for _, a := range artifacts {
		data.Extensions = append(data.Extensions, extensionData{Path: extensionsLoaderDir + a.name})
	}
	if len(contracts) > 0 {
		c := contracts[0].contract
		data.API = &apiData{
			BasePath:     c.BasePath(),
			ContractPath: contractPath,
			Title:        c.Title(),
			Version:      c.Version(),
			Routes:       c.Routes(),
		}
	}

	b := &treeBuilder{g: g, tree: archive.NewTree(), data: data}
	b.render("pom.xml", "pom.xml")
	b.render("settings.xml", "configuration/settings.xml")
	b.render("prometheus-config.yml", "prometheus-config.yml")
	b.render("assemble", ".s2i/bin/assemble", archive.WithMode(archive.ExecutableMode))
	propertiesTemplate := "application.properties"
	if g.cfg.ActivityTracing {
		propertiesTemplate = "application-tracing.properties"
	}
	b.render(propertiesTemplate, resourcesDir+"application.properties")
	b.render("loader.properties", resourcesDir+"loader.properties")
	b.json(integrationDir+"integration.json", masked)
	b.render("routes.yml", integrationDir+"routes.yml")
	for fi, flow := range integ.Flows {
		for si, step := range flow.Steps {
			if step.Kind != integration.StepKindMapper {
				continue
			}
			if mapping, ok := step.ConfiguredProperty(mappingProperty); ok {
				b.file(mappingPath(fi, si), archive.Bytes([]byte(mapping)))
			}
		}
	}
	if data.API != nil {
		javaDir := "src/main/java/" + strings.ReplaceAll(g.cfg.BasePackage, ".", "/") + "/"
		b.render("Application.java", javaDir+"Application.java")
		b.render("RestRoute.java", javaDir+"RestRoute.java")
		b.render("RestRouteConfiguration.java", javaDir+"RestRouteConfiguration.java")
		for _, c := range contracts {
			b.contract(c)
		}
	}
	for _, a := range artifacts {
		b.file("extensions/"+a.name, g.extensionProducer(a.ext))
	}
	for _, res := range g.cfg.AdditionalResources {
		b.additional(res.Source, res.Destination)
	}
	if b.err != nil {
		return nil, b.err
	}
	return b.tree, nil
}

type loadedContract struct {
	id       string
	contract *openapi.Contract
}

// loadContracts fetches and parses the api contracts attached to integ concurrently.
func (g *Generator) loadContracts(ctx context.Context, integ integration.Integration) ([]loadedContract, error) {
	refs := integ.ResourcesOfKind(integration.ResourceKindOpenAPI)
	if len(refs) == 0 {
		return nil, nil
	}
	out := make([]loadedContract, len(refs))
	group, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		group.Go(func() error {
			doc, err := g.resources.LoadOpenAPI(gctx, ref.ID)
			if err != nil {
				return fmt.Errorf("failed to load api contract %q: %w", ref.ID, err)
			}
			c, err := openapi.Parse(gctx, doc.Document)
			if err != nil {
				return fmt.Errorf("failed to parse api contract %q: %w", ref.ID, err)
			}
			out[i] = loadedContract{id: ref.ID, contract: c}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Generator) extensionProducer(ext *integration.Extension) archive.Producer {
	return archive.ReaderFunc(func(ctx context.Context) (io.ReadCloser, int64, error) {
		rc, size, err := g.resources.OpenExtensionBinary(ctx, ext)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read extension %s: %w", ext.ExtensionID, err)
		}
		return rc, size, nil
	})
}

// treeBuilder accumulates entries and keeps the first error.
type treeBuilder struct {
	g    *Generator
	tree *archive.Tree
	data *projectData
	err  error
}

func (b *treeBuilder) file(dest string, producer archive.Producer, opts ...archive.FileOption) {
	if b.err != nil {
		return
	}
	if err := b.tree.File(dest, producer, opts...); err != nil {
		b.err = err
	}
}

func (b *treeBuilder) render(name, dest string, opts ...archive.FileOption) {
	if b.err != nil {
		return
	}
	res, err := b.g.resolver.Resolve(name)
	if err != nil {
		b.err = err
		return
	}
	b.file(dest, b.producer(res, dest), opts...)
}

func (b *treeBuilder) producer(res template.Resource, dest string) archive.Producer {
	if !res.IsTemplate() {
		return archive.Bytes(res.Content)
	}
	data := b.data
	return archive.DeferredFunc(func(context.Context) ([]byte, error) {
		engine := tplengine.NewEngine(tplengine.FormatFromName(dest))
		out, err := engine.ProcessString(string(res.Content), data)
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", res.Path, err)
		}
		return []byte(out.Text), nil
	})
}

func (b *treeBuilder) json(dest string, v any) {
	b.file(dest, archive.DeferredFunc(func(context.Context) ([]byte, error) {
		raw, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", dest, err)
		}
		return raw, nil
	}))
}

func (b *treeBuilder) contract(c loadedContract) {
	b.file(resourcesDir+"openapi/"+c.id+".json", archive.DeferredFunc(func(context.Context) ([]byte, error) {
		return c.contract.JSON()
	}))
}

// additional places an additional resource. A source that cannot be resolved fails the
// whole generation.
func (b *treeBuilder) additional(source, dest string) {
	if b.err != nil {
		return
	}
	placements, err := b.g.resolver.Expand(source, dest)
	if err != nil {
		if errors.Is(err, template.ErrResourceNotFound) {
			err = core.NewError(
				fmt.Errorf("additional resource %s: %w", source, err),
				core.CodeInvalidInput,
				map[string]any{"source": source, "destination": dest},
			)
		}
		b.err = err
		return
	}
	for _, p := range placements {
		b.file(path.Clean(p.Destination), b.producer(p.Resource, p.Destination))
	}
}
