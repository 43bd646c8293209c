package anubis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/pokerdex/internal/domain/user"
	"github.com/riskibarqy/pokerdex/internal/platform/resilience"
	"github.com/riskibarqy/pokerdex/internal/usecase"
)

// CircuitBreakerConfig controls the breaker guarding the introspection endpoint.
type CircuitBreakerConfig = resilience.CircuitBreakerConfig

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return resilience.DefaultCircuitBreakerConfig()
}

var errAnubisTransient = crerr.New("anubis transient failure")

const tokenCacheTTL = 30 * time.Second

type cachedPrincipal struct {
	principal user.Principal
	expiresAt time.Time
}

// Client resolves bearer tokens to principals through the anubis introspection API.
type Client struct {
	httpClient     *http.Client
	introspectURL  string
	adminKey       string
	logger         *slog.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool

	flight resilience.SingleFlight

	cacheMu sync.RWMutex
	cache   map[string]cachedPrincipal
	now     func() time.Time
}

func NewClient(httpClient *http.Client, baseURL, introspectPath, adminKey string, cbCfg CircuitBreakerConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	breakerCfg := normalizeCircuitBreakerConfig(cbCfg)

	return &Client{
		httpClient:     httpClient,
		introspectURL:  buildURL(baseURL, introspectPath),
		adminKey:       strings.TrimSpace(adminKey),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		cache:          make(map[string]cachedPrincipal),
		now:            time.Now,
	}
}

// VerifyAccessToken introspects token and returns the authenticated principal.
// Successful verdicts are cached briefly so bursts of requests carrying the
// same token hit anubis once.
func (c *Client) VerifyAccessToken(ctx context.Context, token string) (user.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return user.Principal{}, fmt.Errorf("%w: token is required", usecase.ErrUnauthorized)
	}

	key := hashToken(token)
	if principal, ok := c.cachedLookup(key); ok {
		return principal, nil
	}

	val, err, _ := c.flight.Do(key, func() (any, error) {
		return c.introspect(ctx, token)
	})
	if err != nil {
		return user.Principal{}, err
	}

	principal := val.(user.Principal)
	c.storeCached(key, principal)
	return principal, nil
}

func (c *Client) introspect(ctx context.Context, token string) (user.Principal, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "anubis circuit breaker rejected introspection", "state", c.breaker.State())
			return user.Principal{}, fmt.Errorf("%w: anubis is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	encoded, err := sonic.Marshal(introspectRequest{Token: token})
	if err != nil {
		return user.Principal{}, crerr.Wrap(err, "marshal introspect request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.introspectURL, bytes.NewReader(encoded))
	if err != nil {
		return user.Principal{}, crerr.Wrap(err, "create introspect request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.adminKey != "" {
		req.Header.Set("x-admin-key", c.adminKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		callErr := fmt.Errorf("%w: request introspection: %v", errAnubisTransient, err)
		c.recordCircuitResult(callErr)
		return user.Principal{}, fmt.Errorf("%w: anubis is unreachable", usecase.ErrDependencyUnavailable)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		callErr := fmt.Errorf("%w: read introspect response: %v", errAnubisTransient, err)
		c.recordCircuitResult(callErr)
		return user.Principal{}, crerr.Wrap(err, "read introspect response")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.recordCircuitResult(nil)
		return user.Principal{}, fmt.Errorf("%w: introspection denied", usecase.ErrUnauthorized)
	case resp.StatusCode == http.StatusForbidden:
		// Forbidden means our admin key is rejected, which is an
		// operator problem rather than a caller problem.
		c.recordCircuitResult(nil)
		c.logger.ErrorContext(ctx, "anubis rejected admin key", "status_code", resp.StatusCode)
		return user.Principal{}, fmt.Errorf("%w: anubis rejected service credentials", usecase.ErrDependencyUnavailable)
	case resp.StatusCode/100 == 5:
		callErr := fmt.Errorf("%w: introspection status=%d", errAnubisTransient, resp.StatusCode)
		c.recordCircuitResult(callErr)
		c.logger.WarnContext(ctx, "anubis introspection server error", "status_code", resp.StatusCode)
		return user.Principal{}, fmt.Errorf("%w: anubis introspection failed", usecase.ErrDependencyUnavailable)
	case resp.StatusCode != http.StatusOK:
		c.recordCircuitResult(nil)
		c.logger.WarnContext(ctx, "anubis introspection non-200", "status_code", resp.StatusCode)
		return user.Principal{}, crerr.Newf("anubis introspection failed with status %d", resp.StatusCode)
	}

	var decoded introspectResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		c.recordCircuitResult(nil)
		return user.Principal{}, crerr.Wrap(err, "unmarshal introspect response")
	}
	c.recordCircuitResult(nil)

	if !decoded.Active {
		return user.Principal{}, fmt.Errorf("%w: inactive token", usecase.ErrUnauthorized)
	}
	if strings.TrimSpace(decoded.UserID) == "" {
		return user.Principal{}, crerr.New("invalid introspect response: user_id is empty")
	}

	return user.Principal{
		UserID:   decoded.UserID,
		Username: decoded.Username,
		Email:    decoded.Email,
	}, nil
}

func (c *Client) recordCircuitResult(err error) {
	if !c.circuitEnabled {
		return
	}
	if isCircuitFailure(err) {
		c.breaker.RecordFailure()
		return
	}
	c.breaker.RecordSuccess()
}

func (c *Client) cachedLookup(key string) (user.Principal, bool) {
	c.cacheMu.RLock()
	entry, ok := c.cache[key]
	c.cacheMu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return user.Principal{}, false
	}
	return entry.principal, true
}

func (c *Client) storeCached(key string, principal user.Principal) {
	c.cacheMu.Lock()
	c.cache[key] = cachedPrincipal{
		principal: principal,
		expiresAt: c.now().Add(tokenCacheTTL),
	}
	c.cacheMu.Unlock()
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Active   bool   `json:"active"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
