package routes

import "fmt"

// Version is the API version used in routing.
const Version = "v1"

// Base returns the versioned API base path (e.g., "/api/v1").
func Base() string {
	return fmt.Sprintf("/api/%s", Version)
}

func buildResourceRoute(resource string) string {
	return Base() + "/" + resource
}

// Integrations returns the integrations base path (e.g., "/api/v1/integrations").
func Integrations() string { return buildResourceRoute("integrations") }

// Extensions returns the extensions base path (e.g., "/api/v1/extensions").
func Extensions() string { return buildResourceRoute("extensions") }

// HealthVersioned returns the versioned health path (e.g., "/api/v1/health").
func HealthVersioned() string {
	return Base() + "/health"
}
