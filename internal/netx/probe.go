// Package netx implements the connectivity prober: a bounded-time check of
// real network reachability, independent of the persisted offline mode.
package netx

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultProbeEndpoint is a well-known, highly available URL that
	// answers 204 without a body.
	DefaultProbeEndpoint = "https://clients3.google.com/generate_204"

	// DefaultProbeTimeout bounds a single probe.
	DefaultProbeTimeout = 5 * time.Second
)

// interfacesUp is a test seam for hasActiveInterface.
var interfacesUp = hasActiveInterface

// Prober answers "is the network reachable right now?". It never returns an
// error and never outlives its timeout: every failure mode (DNS, TLS, abort,
// deadline) collapses to false.
type Prober struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

// NewProber builds a Prober against the given endpoint. Zero values fall
// back to the package defaults.
func NewProber(endpoint string, timeout time.Duration) *Prober {
	if endpoint == "" {
		endpoint = DefaultProbeEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{
		endpoint: endpoint,
		timeout:  timeout,
		client:   &http.Client{},
	}
}

// CheckConnectivity issues one probe. If the host has no usable network
// interface it returns false immediately without a network call. Callers
// decide whether to re-probe; there are no retries.
func (p *Prober) CheckConnectivity(ctx context.Context) bool {
	if !interfacesUp() {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.endpoint, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode < http.StatusBadRequest
}

// hasActiveInterface reports whether any non-loopback interface is up and
// has at least one address. When the interface list itself cannot be read,
// the answer is true so the probe still gets a chance to decide.
func hasActiveInterface() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return true
	}
	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagUp == 0 || ifc.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := ifc.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}
