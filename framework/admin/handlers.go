// Package admin serves the read-only operational surface of a running
// Application: liveness, lifecycle status and Prometheus metrics.
package admin

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-uframework/framework/foundation"
	gohttp "github.com/km-arc/go-uframework/framework/http"
	"github.com/km-arc/go-uframework/framework/routing"
)

// Status is the body of GET /status.
type Status struct {
	ID        string   `json:"id"`
	Version   string   `json:"version"`
	Phase     string   `json:"phase"`
	Debug     string   `json:"debug_level"`
	Providers []string `json:"providers"`
	Bindings  []string `json:"bindings"`
}

// Routes mounts the admin endpoints on r. A nil gatherer leaves /metrics out.
// Unknown paths get a JSON 404.
func Routes(r *routing.Router, app *foundation.Application, gatherer prometheus.Gatherer) {
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		gohttp.NewResponse(w).NotFound()
	})
	r.Get("/healthz", Healthz(app))
	r.Get("/status", StatusHandler(app))
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
}

// Healthz answers 200 while the application is Running and 503 otherwise.
func Healthz(app *foundation.Application) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		res := gohttp.NewResponse(w)
		phase := app.Process()
		if phase != foundation.Running {
			res.ServiceUnavailable(phase.String())
			return
		}
		res.Success(map[string]string{"phase": phase.String()})
	}
}

// StatusHandler reports the lifecycle state of app.
func StatusHandler(app *foundation.Application) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		gohttp.NewResponse(w).Success(Snapshot(app))
	}
}

// Snapshot captures the current Status of app.
func Snapshot(app *foundation.Application) Status {
	providers := app.Providers()
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, fmt.Sprintf("%T", p))
	}
	return Status{
		ID:        app.ID(),
		Version:   foundation.Version().String(),
		Phase:     app.Process().String(),
		Debug:     app.DebugLevel().String(),
		Providers: names,
		Bindings:  app.Bindings(),
	}
}
