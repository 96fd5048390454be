package jwks

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/aldabergenov/auth-service/internal/common/constants"
	"github.com/aldabergenov/auth-service/internal/common/logger"
	"github.com/aldabergenov/auth-service/internal/observability/metrics"
)

var (
	ErrKeyNotFound  = errors.New("no key found for kid")
	ErrRateLimited  = errors.New("jwks lookup rate limit exceeded")
	ErrInvalidKey   = errors.New("jwks document contains an invalid key")
	ErrFetchFailed  = errors.New("failed to fetch jwks document")
	ErrEmptyKeyID   = errors.New("token has no key id")
	ErrEmptyKeySet  = errors.New("jwks document contains no keys")
	ErrDecodeFailed = errors.New("failed to decode jwks document")
)

type jwksDocument struct {
	Keys []jwksKey `json:"keys"`
}

type jwksKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type cachedKey struct {
	key       *rsa.PublicKey
	fetchedAt time.Time
}

// Client resolves RSA public keys by kid from a remote JWKS endpoint.
// Resolved keys are cached with a TTL and remote fetches are bounded by
// a rate limiter and a request timeout, so a stalled or abusive key
// source degrades to verification failures instead of hung requests.
type Client struct {
	uri        string
	httpClient *http.Client
	limiter    *rate.Limiter
	cacheTTL   time.Duration
	log        *logger.Logger

	mu    sync.RWMutex
	cache map[string]cachedKey
}

type Option func(*Client)

func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.cacheTTL = ttl
	}
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

func NewClient(uri string, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		uri:        uri,
		httpClient: &http.Client{Timeout: constants.JWKSRequestTimeout},
		limiter:    rate.NewLimiter(constants.JWKSRequestsPerSecond, constants.JWKSRequestBurst),
		cacheTTL:   constants.JWKSCacheTTL,
		log:        log,
		cache:      make(map[string]cachedKey),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ResolveKey returns the public key for kid, serving from cache when
// fresh and refetching the key set otherwise.
func (c *Client) ResolveKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, ErrEmptyKeyID
	}

	c.mu.RLock()
	cached, ok := c.cache[kid]
	c.mu.RUnlock()

	if ok && time.Since(cached.fetchedAt) < c.cacheTTL {
		return cached.key, nil
	}

	if !c.limiter.Allow() {
		// serve a stale key over failing outright
		if ok {
			return cached.key, nil
		}
		return nil, ErrRateLimited
	}

	keys, err := c.fetch(ctx)
	if err != nil {
		if ok {
			c.log.Warnf("jwks refresh failed, serving stale key for kid=%s: %v", kid, err)
			return cached.key, nil
		}
		return nil, err
	}

	now := time.Now()
	c.mu.Lock()
	for id, key := range keys {
		c.cache[id] = cachedKey{key: key, fetchedAt: now}
	}
	c.mu.Unlock()

	key, found := keys[kid]
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, kid)
	}

	return key, nil
}

func (c *Client) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	metrics.JWKSFetchesTotal.Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.uri, nil)
	if err != nil {
		metrics.JWKSFetchErrors.Inc()
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.JWKSFetchErrors.Inc()
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.JWKSFetchErrors.Inc()
		return nil, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		metrics.JWKSFetchErrors.Inc()
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	if len(doc.Keys) == 0 {
		metrics.JWKSFetchErrors.Inc()
		return nil, ErrEmptyKeySet
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := parseRSAKey(k)
		if err != nil {
			c.log.Warnf("skipping invalid jwks key kid=%s: %v", k.Kid, err)
			continue
		}
		keys[k.Kid] = pub
	}

	if len(keys) == 0 {
		metrics.JWKSFetchErrors.Inc()
		return nil, ErrEmptyKeySet
	}

	return keys, nil
}

func parseRSAKey(k jwksKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("%w: modulus: %v", ErrInvalidKey, err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("%w: exponent: %v", ErrInvalidKey, err)
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e == 0 {
		return nil, fmt.Errorf("%w: zero exponent", ErrInvalidKey)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}
