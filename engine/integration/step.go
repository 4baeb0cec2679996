package integration

import "strings"

type StepKind string

const (
	StepKindEndpoint         StepKind = "endpoint"
	StepKindMapper           StepKind = "mapper"
	StepKindRuleFilter       StepKind = "ruleFilter"
	StepKindExpressionFilter StepKind = "expressionFilter"
	StepKindExtension        StepKind = "extension"
	StepKindTemplate         StepKind = "template"
	StepKindLog              StepKind = "log"
	StepKindSplit            StepKind = "split"
	StepKindAggregate        StepKind = "aggregate"
	StepKindChoice           StepKind = "choice"
	StepKindHeaders          StepKind = "headers"
)

// Step is one unit of pipeline behavior within a flow.
type Step struct {
	ID                   string            `json:"id,omitempty"`
	Name                 string            `json:"name,omitempty"`
	Kind                 StepKind          `json:"stepKind"`
	Action               *Action           `json:"action,omitempty"`
	Connection           *Connection       `json:"connection,omitempty"`
	Extension            *Extension        `json:"extension,omitempty"`
	ConfiguredProperties map[string]string `json:"configuredProperties,omitempty"`
	Dependencies         []Dependency      `json:"dependencies,omitempty"`
}

func (s Step) ConfiguredProperty(key string) (string, bool) {
	v, ok := s.ConfiguredProperties[key]
	return v, ok
}

// Connector returns the connector bound through the step's connection, if any.
func (s Step) Connector() *Connector {
	if s.Connection == nil {
		return nil
	}
	return s.Connection.Connector
}

// ConnectorDescriptor returns the descriptor of a connector action, if the step has one.
func (s Step) ConnectorDescriptor() *Descriptor {
	if s.Action == nil || s.Action.ActionType != ActionTypeConnector {
		return nil
	}
	return &s.Action.Descriptor
}

// IsSecret reports whether a configured property is flagged secret by the connector
// or by the action's own property schema.
func (s Step) IsSecret(key string) bool {
	if c := s.Connector(); c != nil && c.IsSecret(key) {
		return true
	}
	if s.Action != nil {
		if p, ok := s.Action.Properties[key]; ok && p.Secret {
			return true
		}
	}
	return false
}

type TemplateLanguage string

const (
	TemplateLanguageMustache   TemplateLanguage = "mustache"
	TemplateLanguageVelocity   TemplateLanguage = "velocity"
	TemplateLanguageFreemarker TemplateLanguage = "freemarker"
)

const TemplateLanguageProperty = "language"

// TemplateLanguageOf reads the language of a template step. Unknown or missing values
// resolve to mustache.
func TemplateLanguageOf(s Step) TemplateLanguage {
	v, _ := s.ConfiguredProperty(TemplateLanguageProperty)
	switch TemplateLanguage(strings.ToLower(strings.TrimSpace(v))) {
	case TemplateLanguageVelocity:
		return TemplateLanguageVelocity
	case TemplateLanguageFreemarker:
		return TemplateLanguageFreemarker
	default:
		return TemplateLanguageMustache
	}
}

// Dependency returns the runtime component required to render templates in this language.
func (l TemplateLanguage) Dependency() Dependency {
	return MavenDependency("org.apache.camel:camel-" + string(l))
}
