package resources

// Directory names used when resources are exchanged as files.
const (
	DirIntegrations = "integrations"
	DirExtensions   = "extensions"
	DirOpenAPI      = "openapi"
	DirDeployments  = "deployments"
)

// DirForType maps a resource type to its directory in an export tree.
func DirForType(typ ResourceType) (string, bool) {
	switch typ {
	case ResourceIntegration:
		return DirIntegrations, true
	case ResourceExtension:
		return DirExtensions, true
	case ResourceOpenAPI:
		return DirOpenAPI, true
	case ResourceDeployment:
		return DirDeployments, true
	default:
		return "", false
	}
}

// ExchangeTypes lists the resource types that take part in import and export, in the
// order they are processed.
var ExchangeTypes = []ResourceType{
	ResourceExtension,
	ResourceOpenAPI,
	ResourceIntegration,
	ResourceDeployment,
}
