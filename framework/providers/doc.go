// Package providers holds the service providers the framework registers
// for itself: configuration, logging, metrics, the update loop and the
// admin HTTP surface.
//
// Bound abstracts:
//   - "config"            → *config.Config
//   - "logger"            → zerolog.Logger
//   - "metrics.registry"  → *prometheus.Registry
//   - "metrics.lifecycle" → *metrics.Lifecycle
//   - "loop"              → *loop.Loop
//   - "router"            → *routing.Router
//   - "admin"             → *admin.Server
//
// Providers never resolve services inside Register; anything that needs
// another service is wired in Init.
package providers
