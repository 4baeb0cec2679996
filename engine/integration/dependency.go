package integration

import (
	"fmt"
	"strings"
)

type DependencyType string

const (
	DependencyMaven      DependencyType = "MAVEN"
	DependencyExtension  DependencyType = "EXTENSION"
	DependencyLibraryTag DependencyType = "EXTENSION_TAG"
)

func (t DependencyType) Valid() bool {
	switch t {
	case DependencyMaven, DependencyExtension, DependencyLibraryTag:
		return true
	}
	return false
}

// Dependency is a build requirement of the generated project: a maven coordinate,
// a library tag resolved against installed library extensions, or a reference to an extension.
type Dependency struct {
	Type DependencyType `json:"type"`
	ID   string         `json:"id"`
}

// DependencyKey is the identity used to deduplicate dependencies.
type DependencyKey struct {
	Type DependencyType
	ID   string
}

func MavenDependency(coordinates string) Dependency {
	return Dependency{Type: DependencyMaven, ID: coordinates}
}

func ExtensionDependency(extensionID string) Dependency {
	return Dependency{Type: DependencyExtension, ID: extensionID}
}

func LibraryTagDependency(tag string) Dependency {
	return Dependency{Type: DependencyLibraryTag, ID: tag}
}

func (d Dependency) IsMaven() bool      { return d.Type == DependencyMaven }
func (d Dependency) IsExtension() bool  { return d.Type == DependencyExtension }
func (d Dependency) IsLibraryTag() bool { return d.Type == DependencyLibraryTag }

// Key returns the (type, normalized id) identity of the dependency.
func (d Dependency) Key() DependencyKey {
	return DependencyKey{Type: d.Type, ID: d.NormalizedID()}
}

// NormalizedID trims whitespace and, for maven coordinates, the legacy "mvn:" prefix.
func (d Dependency) NormalizedID() string {
	id := strings.TrimSpace(d.ID)
	if d.Type == DependencyMaven {
		id = strings.TrimSpace(strings.TrimPrefix(id, "mvn:"))
	}
	return id
}

func (d Dependency) String() string {
	return fmt.Sprintf("%s:%s", d.Type, d.ID)
}

// Coordinates is a parsed maven coordinate.
type Coordinates struct {
	GroupID    string
	ArtifactID string
	Type       string
	Version    string
}

// Coordinates parses group:artifact[:version] or group:artifact:type:version.
func (d Dependency) Coordinates() (Coordinates, error) {
	if !d.IsMaven() {
		return Coordinates{}, fmt.Errorf("dependency %s is not a maven coordinate", d)
	}
	parts := strings.Split(d.NormalizedID(), ":")
	for _, p := range parts {
		if p == "" {
			return Coordinates{}, fmt.Errorf("malformed maven coordinate %q", d.ID)
		}
	}
	switch len(parts) {
	case 2:
		return Coordinates{GroupID: parts[0], ArtifactID: parts[1]}, nil
	case 3:
		return Coordinates{GroupID: parts[0], ArtifactID: parts[1], Version: parts[2]}, nil
	case 4:
		return Coordinates{GroupID: parts[0], ArtifactID: parts[1], Type: parts[2], Version: parts[3]}, nil
	default:
		return Coordinates{}, fmt.Errorf("malformed maven coordinate %q", d.ID)
	}
}
