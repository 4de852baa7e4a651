// Package httputil builds the pooled HTTP client used for the todo API.
package httputil

import (
	"net"
	"net/http"
	"time"
)

// ClientConfig holds HTTP client configuration.
type ClientConfig struct {
	MaxIdleConns        int           // 최대 유휴 연결 수
	MaxIdleConnsPerHost int           // 호스트당 최대 유휴 연결
	IdleConnTimeout     time.Duration // 유휴 연결 타임아웃
	DialTimeout         time.Duration
	TLSHandshakeTimeout time.Duration
	ResponseTimeout     time.Duration
	KeepAliveInterval   time.Duration
}

// DefaultClientConfig returns defaults for a single-origin REST API.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         5 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
		ResponseTimeout:     15 * time.Second,
		KeepAliveInterval:   30 * time.Second,
	}
}

// NewTransport creates a pooled transport.
func NewTransport(cfg ClientConfig) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAliveInterval,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ResponseHeaderTimeout: cfg.ResponseTimeout,
		ForceAttemptHTTP2:     true,
	}
}

// NewClient creates an HTTP client on top of base. A nil base uses
// NewTransport(cfg).
func NewClient(cfg ClientConfig, base http.RoundTripper) *http.Client {
	if base == nil {
		base = NewTransport(cfg)
	}
	return &http.Client{
		Transport: base,
		Timeout:   cfg.ResponseTimeout,
	}
}
