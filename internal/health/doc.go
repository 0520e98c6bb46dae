// Package health provides the liveness, health and readiness endpoints.
//
// Readiness aggregates registered checks. Each proxy registers a TCP
// reachability check for its endpoint and each documents mount a check
// for its directory. While shutting down, readiness reports unhealthy.
//
// # Usage
//
//	checker := health.NewChecker(version, logger)
//	checker.RegisterCheck("endpoint:dataset",
//	    health.EndpointCheck(endpoint, time.Second, nil))
//
//	mux := http.NewServeMux()
//	checker.RegisterRoutes(mux)
package health
