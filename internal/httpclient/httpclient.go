// Package httpclient builds the shared HTTP clients used by the catalog
// fetcher, episode resolver, guide fetcher, and streaming proxy.
//
// Two client shapes exist: API clients carry a whole-request timeout because
// catalog responses are finite JSON documents; the streaming client carries
// only dial/header timeouts because proxied media bodies may be unbounded.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"time"
)

const (
	DefaultTimeout         = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
	MaxIdleConnsPerHost    = 16

	dialTimeout           = 10 * time.Second
	responseHeaderTimeout = 60 * time.Second
)

// Options configures transport construction. FallbackDNSServers lists
// addresses (host or host:port; port 53 assumed) queried when resolving
// upstream hosts. The resolver is injected into the dialer here, never
// installed globally.
type Options struct {
	FallbackDNSServers []string

	// APITimeout overrides DefaultTimeout for the default client. Zero keeps
	// the default.
	APITimeout time.Duration
}

var (
	defaultClient   *http.Client
	streamingClient *http.Client
)

func init() {
	Configure(Options{})
}

// Configure rebuilds the shared clients. Call once at startup before any
// requests are issued; not safe to call concurrently with in-flight requests.
func Configure(opts Options) {
	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
	}
	if len(opts.FallbackDNSServers) > 0 {
		dialer.Resolver = fallbackResolver(opts.FallbackDNSServers)
	}
	apiTimeout := opts.APITimeout
	if apiTimeout <= 0 {
		apiTimeout = DefaultTimeout
	}
	defaultClient = &http.Client{
		Timeout: apiTimeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: MaxIdleConnsPerHost,
			IdleConnTimeout:     DefaultIdleConnTimeout,
		},
	}
	streamingClient = &http.Client{
		// No whole-request timeout: live streams are open-ended. Connect and
		// header waits are still bounded by the transport below.
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   MaxIdleConnsPerHost,
			IdleConnTimeout:       DefaultIdleConnTimeout,
			ResponseHeaderTimeout: responseHeaderTimeout,
		},
	}
}

// Default returns the shared tuned HTTP client for catalog and guide fetches.
func Default() *http.Client {
	return defaultClient
}

// WithTimeout returns a client with the given timeout and the same transport
// as Default.
func WithTimeout(timeout time.Duration) *http.Client {
	t, ok := defaultClient.Transport.(*http.Transport)
	if !ok {
		return &http.Client{Timeout: timeout}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: t,
	}
}

// ForStreaming returns the client used by the pass-through proxy: bounded
// connect and response-header waits, unbounded body reads.
func ForStreaming() *http.Client {
	return streamingClient
}

// fallbackResolver returns a resolver that dials the given DNS servers over
// the network directly. Servers are tried round-robin across lookups.
func fallbackResolver(servers []string) *net.Resolver {
	addrs := make([]string, 0, len(servers))
	for _, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		addrs = append(addrs, s)
	}
	var next int
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			d := net.Dialer{Timeout: 5 * time.Second}
			addr := addrs[next%len(addrs)]
			next++
			return d.DialContext(ctx, network, addr)
		},
	}
}
