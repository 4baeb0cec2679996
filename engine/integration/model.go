package integration

import "time"

// Integration is the declarative pipeline definition compiled into a project.
// Values are treated as immutable snapshots; the With* helpers return modified copies.
type Integration struct {
	ID                   string               `json:"id,omitempty"`
	Name                 string               `json:"name"`
	Description          string               `json:"description,omitempty"`
	Version              int                  `json:"version,omitempty"`
	Flows                []Flow               `json:"flows,omitempty"`
	Dependencies         []Dependency         `json:"dependencies,omitempty"`
	Resources            []ResourceIdentifier `json:"resources,omitempty"`
	ConfiguredProperties map[string]string    `json:"configuredProperties,omitempty"`
	Tags                 []string             `json:"tags,omitempty"`
	Deleted              bool                 `json:"isDeleted,omitempty"`
}

type Flow struct {
	ID           string       `json:"id,omitempty"`
	Name         string       `json:"name,omitempty"`
	Steps        []Step       `json:"steps,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

type ActionType string

const (
	ActionTypeConnector ActionType = "connector"
	ActionTypeStep      ActionType = "step"
)

type StepActionKind string

const (
	StepActionEndpoint StepActionKind = "ENDPOINT"
	StepActionBean     StepActionKind = "BEAN"
	StepActionStep     StepActionKind = "STEP"
)

// Action describes how a step executes. Connector actions carry a component scheme,
// step actions carry an entry point whose meaning depends on Kind.
type Action struct {
	ID         string                           `json:"id,omitempty"`
	Name       string                           `json:"name,omitempty"`
	ActionType ActionType                       `json:"actionType"`
	Descriptor Descriptor                       `json:"descriptor"`
	Properties map[string]ConfigurationProperty `json:"properties,omitempty"`
}

type Descriptor struct {
	ConnectorID          string            `json:"connectorId,omitempty"`
	ComponentScheme      string            `json:"componentScheme,omitempty"`
	ConfiguredProperties map[string]string `json:"configuredProperties,omitempty"`

	Kind       StepActionKind `json:"kind,omitempty"`
	Entrypoint string         `json:"entrypoint,omitempty"`
	Resource   string         `json:"resource,omitempty"`

	InputDataShape  *DataShape `json:"inputDataShape,omitempty"`
	OutputDataShape *DataShape `json:"outputDataShape,omitempty"`
}

func ConnectorAction(id string, d Descriptor) Action {
	return Action{ID: id, ActionType: ActionTypeConnector, Descriptor: d}
}

func StepAction(id string, kind StepActionKind, entrypoint string) Action {
	return Action{ID: id, ActionType: ActionTypeStep, Descriptor: Descriptor{Kind: kind, Entrypoint: entrypoint}}
}

type DataShape struct {
	Kind          string `json:"kind"`
	Type          string `json:"type,omitempty"`
	Name          string `json:"name,omitempty"`
	Specification string `json:"specification,omitempty"`
}

type Connection struct {
	ID                   string            `json:"id,omitempty"`
	Name                 string            `json:"name,omitempty"`
	Connector            *Connector        `json:"connector,omitempty"`
	ConfiguredProperties map[string]string `json:"configuredProperties,omitempty"`
}

type Connector struct {
	ID              string                           `json:"id"`
	Name            string                           `json:"name,omitempty"`
	Description     string                           `json:"description,omitempty"`
	ComponentScheme string                           `json:"componentScheme,omitempty"`
	Properties      map[string]ConfigurationProperty `json:"properties,omitempty"`
	Actions         []Action                         `json:"actions,omitempty"`
	Dependencies    []Dependency                     `json:"dependencies,omitempty"`
}

func (c *Connector) IsSecret(key string) bool {
	if c == nil {
		return false
	}
	p, ok := c.Properties[key]
	return ok && p.Secret
}

func (c *Connector) IsComponentProperty(key string) bool {
	if c == nil {
		return false
	}
	p, ok := c.Properties[key]
	return ok && p.ComponentProperty
}

type ConfigurationProperty struct {
	DisplayName       string `json:"displayName,omitempty"`
	Description       string `json:"description,omitempty"`
	Type              string `json:"type,omitempty"`
	ComponentProperty bool   `json:"componentProperty,omitempty"`
	Secret            bool   `json:"secret,omitempty"`
	Required          bool   `json:"required,omitempty"`
	DefaultValue      string `json:"defaultValue,omitempty"`
}

type ExtensionStatus string

const (
	ExtensionDraft     ExtensionStatus = "Draft"
	ExtensionInstalled ExtensionStatus = "Installed"
	ExtensionDeleted   ExtensionStatus = "Deleted"
)

type ExtensionType string

const (
	ExtensionTypeSteps      ExtensionType = "Steps"
	ExtensionTypeConnectors ExtensionType = "Connectors"
	ExtensionTypeLibraries  ExtensionType = "Libraries"
)

// Extension is an externally supplied binary capability bundle.
type Extension struct {
	ID            string                           `json:"id,omitempty"`
	ExtensionID   string                           `json:"extensionId"                 validate:"required"`
	Name          string                           `json:"name,omitempty"              validate:"omitempty,max=256"`
	Description   string                           `json:"description,omitempty"`
	Version       string                           `json:"version,omitempty"`
	Icon          string                           `json:"icon,omitempty"`
	Status        ExtensionStatus                  `json:"status,omitempty"`
	ExtensionType ExtensionType                    `json:"extensionType,omitempty"     validate:"omitempty,oneof=Steps Connectors Libraries"`
	Actions       []Action                         `json:"actions,omitempty"           validate:"dive"`
	Dependencies  []Dependency                     `json:"dependencies,omitempty"`
	Properties    map[string]ConfigurationProperty `json:"properties,omitempty"`
	Schemes       []string                         `json:"schemes,omitempty"`
	Tags          []string                         `json:"tags,omitempty"`
	UserID        string                           `json:"userId,omitempty"`
	CreatedAt     time.Time                        `json:"createdDate,omitzero"`
	LastUpdated   time.Time                        `json:"lastUpdated,omitzero"`
}

// ArtifactName is the file name of the extension binary inside a generated project.
func (e *Extension) ArtifactName() string {
	return e.ExtensionID + ".jar"
}

type ResourceKind string

const (
	ResourceKindOpenAPI     ResourceKind = "openapi"
	ResourceKindIntegration ResourceKind = "integration"
)

type ResourceIdentifier struct {
	Kind ResourceKind `json:"kind"`
	ID   string       `json:"id"`
	Name string       `json:"name,omitempty"`
}

// OpenAPI is an API contract document attached to an integration.
type OpenAPI struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Document []byte `json:"document"`
}

type DeploymentState string

const (
	DeploymentPublished   DeploymentState = "Published"
	DeploymentUnpublished DeploymentState = "Unpublished"
	DeploymentPending     DeploymentState = "Pending"
	DeploymentError       DeploymentState = "Error"
)

// Deployment is a versioned snapshot of an integration scheduled for a runtime.
type Deployment struct {
	ID            string          `json:"id"`
	IntegrationID string          `json:"integrationId"`
	Version       int             `json:"version"`
	CurrentState  DeploymentState `json:"currentState"`
	TargetState   DeploymentState `json:"targetState"`
	Spec          Integration     `json:"spec"`
	CreatedAt     time.Time       `json:"createdAt,omitzero"`
}

// Live reports whether the deployment is running a non deleted integration.
func (d *Deployment) Live() bool {
	return d.CurrentState == DeploymentPublished && !d.Spec.Deleted
}
