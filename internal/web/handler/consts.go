package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// HealthPath answers the liveness probe of a route group.
	HealthPath = "/health"

	// ErrNilACDFatalLogMsg is used if router, cfg or a dependency is nil.
	ErrNilACDFatalLogMsg = "router, cfg or dependency is nil"
)

// Status is the body of the health routes.
type Status struct {
	Status string `json:"status"`
}

// StatusOK is the body answered by a healthy service.
var StatusOK = Status{Status: "OK"} //nolint:gochecknoglobals
