// Package handlers contains HTTP health-check plumbing and reusable
// middleware shared by the API server.
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("database", handlers.NewDatabaseCheck(db))
//	checker.AddCheck("cache", handlers.NewCacheCheck(cache))
//	checker.AddCheck("content_api", handlers.NewExternalAPICheck(contentClient))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Printf("Health check failed: %s", status.Message)
//	}
//
// # Middleware
//
// The middleware here is framework-agnostic func(http.Handler) http.Handler,
// so it composes with chi's Use/With:
//
//	r.Use(handlers.SecurityHeadersMiddleware)
//	r.Use(handlers.RequestSizeLimitMiddleware(1 << 20))
//	r.With(handlers.CacheControlMiddleware(30*time.Second, false)).Get("/leaderboard", h)
//
// When implementing health checks:
//   - Use timeouts to prevent slow checks from blocking the response
//   - Include critical dependencies like database and cache
//   - Keep checks fast (< 1 second ideally)
package handlers
