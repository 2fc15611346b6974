// Package metrics exposes the identity server's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the auth counters. A fresh registry per instance keeps
// tests independent.
type Metrics struct {
	registry *prometheus.Registry

	SignUps     *prometheus.CounterVec
	TokenGrants *prometheus.CounterVec
	RateLimited prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SignUps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "identityd_signups_total",
			Help: "Account registrations by outcome.",
		}, []string{"outcome"}),
		TokenGrants: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "identityd_token_grants_total",
			Help: "Token endpoint requests by grant type and outcome.",
		}, []string{"grant_type", "outcome"}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "identityd_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter.",
		}),
	}
}

// Handler serves the scrape endpoint for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
