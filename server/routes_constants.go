package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Token exchange: GET /<code>/client_id/<clientID>
	RouteExchange = "/{code}/client_id/{clientID}"

	// Operational routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
