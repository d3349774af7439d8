package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// FallbackAddress is returned whenever the echo service cannot be reached or
// answers with something unusable.
const FallbackAddress = "127.0.0.1"

// DefaultEndpoint is a public IP-echo service answering {"ip": "..."}.
const DefaultEndpoint = "https://api.ipify.org?format=json"

// DefaultTimeout bounds a single lookup.
const DefaultTimeout = 3 * time.Second

// AddressResolver yields the caller's public network address. Implementations
// never fail; they return a fallback value instead.
type AddressResolver interface {
	Address(ctx context.Context) string
}

// Config holds IP echo client configuration.
type Config struct {
	Endpoint string        `json:"endpoint"`
	Timeout  time.Duration `json:"timeout"`
	Fallback string        `json:"fallback"`
}

// IPEcho resolves the public address with an HTTP GET against an echo service.
type IPEcho struct {
	endpoint string
	timeout  time.Duration
	fallback string
	client   *http.Client
	logger   *zap.Logger
}

// NewIPEcho creates a resolver. Zero config fields take the package defaults.
func NewIPEcho(cfg Config, logger *zap.Logger) *IPEcho {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Fallback == "" {
		cfg.Fallback = FallbackAddress
	}
	return &IPEcho{
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
		fallback: cfg.Fallback,
		client:   &http.Client{},
		logger:   logger,
	}
}

type echoResponse struct {
	IP string `json:"ip"`
}

// Address returns the echoed address, or the fallback on any failure.
func (e *IPEcho) Address(ctx context.Context) string {
	start := time.Now()
	ip, err := e.fetch(ctx)
	if err != nil {
		e.logger.Warn("address lookup failed, using fallback",
			zap.String("endpoint", e.endpoint),
			zap.String("fallback", e.fallback),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return e.fallback
	}
	return ip
}

func (e *IPEcho) fetch(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("lookup: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("lookup: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lookup: service returned status %d", resp.StatusCode)
	}

	var body echoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("lookup: decode response: %w", err)
	}
	if net.ParseIP(body.IP) == nil {
		return "", fmt.Errorf("lookup: invalid address %q", body.IP)
	}
	return body.IP, nil
}

// Static always returns the same address. Useful offline and in tests.
type Static string

// Address implements AddressResolver.
func (s Static) Address(context.Context) string { return string(s) }
