package properties

import (
	"fmt"
	"maps"
	"slices"

	"dario.cat/mergo"
	"github.com/compozy/conduit/engine/core"
	"github.com/compozy/conduit/engine/integration"
	"github.com/gosimple/slug"
)

const oldStyleMessage = "old style connectors from camel-connector are not supported anymore, " +
	"make sure the integration satisfies connector.componentScheme or descriptor.componentScheme is present"

// ErrOldStyleConnector matches failures for endpoint steps that expose no component scheme.
var ErrOldStyleConnector = &core.Error{Code: core.CodeUnsupportedOperation, Message: oldStyleMessage}

type Options struct {
	SecretMasking bool
}

// Materializer flattens per step configuration into runtime properties.
type Materializer struct {
	opts Options
}

func New(opts Options) *Materializer {
	return &Materializer{opts: opts}
}

func (m *Materializer) SecretMasking() bool {
	return m.opts.SecretMasking
}

type Entry struct {
	Key    string
	Value  string
	Secret bool
}

// Properties is an ordered, key unique list of entries.
type Properties struct {
	entries []Entry
	index   map[string]int
}

func newProperties() *Properties {
	return &Properties{index: make(map[string]int)}
}

func (p *Properties) set(e Entry) {
	if i, ok := p.index[e.Key]; ok {
		p.entries[i] = e
		return
	}
	p.index[e.Key] = len(p.entries)
	p.entries = append(p.entries, e)
}

func (p *Properties) Get(key string) (string, bool) {
	i, ok := p.index[key]
	if !ok {
		return "", false
	}
	return p.entries[i].Value, true
}

func (p *Properties) Len() int {
	return len(p.entries)
}

func (p *Properties) Entries() []Entry {
	return slices.Clone(p.entries)
}

func (p *Properties) Keys() []string {
	out := make([]string, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e.Key)
	}
	return out
}

// Map returns the properties as a plain map.
func (p *Properties) Map() map[string]string {
	out := make(map[string]string, len(p.entries))
	for _, e := range p.entries {
		out[e.Key] = e.Value
	}
	return out
}

// Properties computes the runtime configuration of integ. Integration level properties are
// copied unprefixed, then every endpoint step with a component scheme contributes its
// configured properties under flow-{i}.{scheme}-{j}. Values are never masked here: the
// properties file is what placeholders in masked artifacts resolve against.
func (m *Materializer) Properties(integ integration.Integration) (*Properties, error) {
	out := newProperties()
	for _, key := range slices.Sorted(maps.Keys(integ.ConfiguredProperties)) {
		out.set(Entry{Key: key, Value: integ.ConfiguredProperties[key]})
	}
	for fi, flow := range integ.Flows {
		for si, step := range flow.Steps {
			prefix, ok, err := StepPrefix(fi, si, step)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			values, err := stepValues(step)
			if err != nil {
				return nil, fmt.Errorf("failed to merge properties of flow %d step %d: %w", fi, si, err)
			}
			for _, key := range slices.Sorted(maps.Keys(values)) {
				out.set(Entry{Key: prefix + "." + key, Value: values[key], Secret: step.IsSecret(key)})
			}
		}
	}
	return out, nil
}

// stepValues merges connection level properties under the step's own.
func stepValues(step integration.Step) (map[string]string, error) {
	values := maps.Clone(step.ConfiguredProperties)
	if values == nil {
		values = make(map[string]string)
	}
	if step.Connection != nil && len(step.Connection.ConfiguredProperties) > 0 {
		if err := mergo.Merge(&values, step.Connection.ConfiguredProperties); err != nil {
			return nil, err
		}
	}
	return values, nil
}

// Scheme resolves the component scheme of a step: the action descriptor first, then
// the connector.
func Scheme(step integration.Step) string {
	if d := step.ConnectorDescriptor(); d != nil && d.ComponentScheme != "" {
		return d.ComponentScheme
	}
	if c := step.Connector(); c != nil && c.ComponentScheme != "" {
		return c.ComponentScheme
	}
	return ""
}

// StepPrefix returns the property prefix of an endpoint step. ok is false for steps that
// contribute no properties. Endpoint steps bound to a connector without any component
// scheme are rejected.
func StepPrefix(flow, index int, step integration.Step) (prefix string, ok bool, err error) {
	if step.Kind != integration.StepKindEndpoint {
		return "", false, nil
	}
	scheme := Scheme(step)
	if scheme == "" {
		if step.Connection != nil {
			return "", false, oldStyleError(flow, index, step)
		}
		return "", false, nil
	}
	return fmt.Sprintf("flow-%d.%s-%d", flow, slug.Make(scheme), index), true, nil
}

func oldStyleError(flow, index int, step integration.Step) error {
	details := map[string]any{"flow": flow, "step": index}
	if step.ID != "" {
		details["step_id"] = step.ID
	}
	if c := step.Connector(); c != nil {
		details["connector"] = c.ID
	}
	return &core.Error{Code: core.CodeUnsupportedOperation, Message: oldStyleMessage, Details: details}
}

// Placeholder is the token written in place of a secret value. It resolves at runtime
// against the generated properties file.
func Placeholder(key string) string {
	return "{{" + key + "}}"
}

// MaskSecrets returns a copy of integ whose secret step and connection properties are
// replaced by placeholders. Without masking enabled the copy is unchanged.
func (m *Materializer) MaskSecrets(integ integration.Integration) (integration.Integration, error) {
	if !m.opts.SecretMasking {
		return integ.Clone(), nil
	}
	return integ.MapSteps(func(fi, si int, step integration.Step) (integration.Step, error) {
		prefix, ok, err := StepPrefix(fi, si, step)
		if err != nil || !ok {
			return step, err
		}
		for key := range step.ConfiguredProperties {
			if step.IsSecret(key) {
				step.ConfiguredProperties[key] = Placeholder(prefix + "." + key)
			}
		}
		if step.Connection != nil {
			for key := range step.Connection.ConfiguredProperties {
				if step.IsSecret(key) {
					step.Connection.ConfiguredProperties[key] = Placeholder(prefix + "." + key)
				}
			}
		}
		return step, nil
	})
}
