// Package health provides liveness and readiness endpoints.
//
// Liveness (/healthz) only reports that the process is up. Readiness
// (/readyz) runs every registered check; it fails while the route server
// is not serving or a critical dependency is down.
//
//	checker := health.NewChecker(version)
//	checker.RegisterCheck("lifecycle", health.LifecycleCheck(manager))
//	checker.Register(mux)
package health
