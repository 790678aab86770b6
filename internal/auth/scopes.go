package auth

// Scopes required by the API.
const (
	ScopePersons = "dcd:persons"
	ScopeGroups  = "dcd:groups"
	ScopeApps    = "dcd:apps"
)

// Resource kinds checked when a route names no specific object.
const (
	KindPersons = "persons"
	KindGroups  = "groups"
	KindApps    = "apps"
)

// ResourcePrefix namespaces resource kinds.
const ResourcePrefix = "dcd:"

// DefaultScopes is what Authenticate requires when called without scopes.
var DefaultScopes = []string{ScopePersons} //nolint:gochecknoglobals
