package external

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/origami/repo-data/metrics"
	"github.com/origami/repo-data/types"
)

const (
	encodingIdentity = "identity"
	encodingGzip     = "gzip"
)

// Statuses for which the build service will never succeed on retry: bad
// request, conflicting dependencies and compilation failure.
var nonRecoverableBuildStatuses = map[int]bool{
	http.StatusBadRequest: true,
	http.StatusConflict:   true,
	560:                   true,
}

type BundleSizes struct {
	Raw  int64
	Gzip int64
}

// SizeProber reports compiled bundle sizes.
type SizeProber interface {
	ProbeSizes(ctx context.Context, bundleURL string, bundleType string) (*BundleSizes, error)
}

type BuildServiceClient struct {
	hc       *http.Client
	timeout  time.Duration
	breakers map[string]*circuit.Breaker
	mu       sync.RWMutex
}

type BuildServiceOption func(*BuildServiceClient)

func WithBuildServiceHTTPClient(hc *http.Client) BuildServiceOption {
	return func(c *BuildServiceClient) {
		c.hc = hc
	}
}

// WithProbeTimeout bounds each HEAD request.
func WithProbeTimeout(timeout time.Duration) BuildServiceOption {
	return func(c *BuildServiceClient) {
		c.timeout = timeout
	}
}

func NewBuildServiceClient(opts ...BuildServiceOption) *BuildServiceClient {
	c := &BuildServiceClient{
		hc:       NewHTTPClient(0),
		timeout:  750 * time.Millisecond,
		breakers: make(map[string]*circuit.Breaker),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProbeSizes issues one uncompressed and one gzip HEAD request and returns
// both Content-Length values.
func (c *BuildServiceClient) ProbeSizes(ctx context.Context, bundleURL string, bundleType string) (*BundleSizes, error) {
	start := time.Now()
	defer func() {
		metrics.BundleProbeHistogram.WithLabelValues(bundleType).Observe(time.Since(start).Seconds())
	}()

	raw, err := c.probe(ctx, bundleURL, encodingIdentity)
	if err != nil {
		return nil, err
	}
	gz, err := c.probe(ctx, bundleURL, encodingGzip)
	if err != nil {
		return nil, err
	}
	return &BundleSizes{Raw: raw, Gzip: gz}, nil
}

func (c *BuildServiceClient) probe(ctx context.Context, bundleURL, encoding string) (int64, error) {
	host := hostOf(bundleURL)
	breaker := c.getBreaker(host)
	if !breaker.Ready() {
		return 0, types.NewError(types.BuildServiceError,
			fmt.Sprintf("circuit breaker open for build service %s", host), true)
	}

	var (
		size     int64
		finalErr error
	)
	err := breaker.Call(func() error {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, bundleURL, nil)
		if err != nil {
			finalErr = err
			return nil
		}
		req.Header.Set("Accept-Encoding", encoding)
		resp, err := c.hc.Do(req)
		if err != nil {
			return err
		}
		_ = resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			statusErr := types.NewError(types.BuildServiceError,
				fmt.Sprintf("build service returned status %d for %s", resp.StatusCode, bundleURL),
				!nonRecoverableBuildStatuses[resp.StatusCode])
			if statusErr.Recoverable {
				return statusErr
			}
			finalErr = statusErr
			return nil
		}
		size, err = strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
		if err != nil {
			finalErr = types.WrapError(types.BuildServiceError, err, true, "missing content length for %s", bundleURL)
		}
		return nil
	}, 0)
	if err != nil {
		var typed *types.Error
		if errors.As(err, &typed) {
			return 0, typed
		}
		return 0, types.WrapError(types.BuildServiceError, err, true, "probing %s", bundleURL)
	}
	return size, finalErr
}

// getBreaker returns the breaker of a build service host. Breakers trip after
// five consecutive recoverable failures.
func (c *BuildServiceClient) getBreaker(host string) *circuit.Breaker {
	c.mu.RLock()
	breaker, exists := c.breakers[host]
	c.mu.RUnlock()
	if exists {
		return breaker
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if breaker, exists := c.breakers[host]; exists {
		return breaker
	}
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ConsecutiveTripFunc(5),
	})
	c.breakers[host] = breaker
	return breaker
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Host
}
