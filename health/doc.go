// Package health reports the state of the service's components.
//
// A Checker reports one component as Healthy, Degraded or Unhealthy. An
// Aggregator runs a set of checkers concurrently under a shared timeout and
// folds their results into one Report; checkers registered with NonCritical
// can degrade the service but never make it unhealthy.
//
// # Checkers
//
//	queue := health.NewThresholdChecker("throttle_queue", func() float64 {
//	    return float64(coordinator.Stats().Kinds[fingerprint.KindForecast].ThrottleQueue)
//	}, health.ThresholdConfig{Warning: 20, Critical: 100})
//
//	agg := health.NewAggregator()
//	agg.Register("fetch", coordinator.HealthChecker())
//	agg.Register("throttle_queue", queue, health.NonCritical())
//
// # HTTP Endpoints
//
// RegisterRoutes mounts the probes on a chi router:
//
//	GET /healthz        liveness, always 200
//	GET /readyz         200 unless the report is unhealthy
//	GET /health         JSON report
//	GET /health/{name}  JSON result of one checker
package health
