// Package httputil centralizes outbound HTTP client construction and
// error-response rendering for the HTTP layer.
package httputil

import (
	"net/http"
	"time"
)

// Clients groups the outbound HTTP clients the core depends on. Webhook
// carries the delivery pooling parameters (idle timeout 90s, max 10 idle
// per host).
type Clients struct {
	Webhook *http.Client
}

func NewClients(webhookTimeout time.Duration) *Clients {
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	if webhookTimeout <= 0 {
		webhookTimeout = 10 * time.Second
	}

	return &Clients{
		Webhook: &http.Client{
			Timeout:   webhookTimeout,
			Transport: transport,
		},
	}
}
