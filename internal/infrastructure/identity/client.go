package identity

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"

	"github.com/NeseemGit/sb-squares/internal/domain/user"
	"github.com/NeseemGit/sb-squares/internal/platform/resilience"
	"github.com/NeseemGit/sb-squares/internal/usecase"
)

// errTransient marks failures that should trip the circuit breaker:
// transport errors and provider 5xx. A denied or inactive token is a normal
// outcome, not a dependency failure.
var errTransient = errors.New("identity provider transient failure")

// Client verifies bearer tokens against the identity provider's
// introspection endpoint. Concurrent verifications of the same token are
// collapsed, and a circuit breaker keeps a degraded provider from stalling
// every request.
type Client struct {
	httpClient    *http.Client
	introspectURL string
	logger        *slog.Logger

	breaker *resilience.CircuitBreaker
	flight  resilience.SingleFlight
}

func NewClient(httpClient *http.Client, baseURL, introspectPath string, cbCfg resilience.CircuitBreakerConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	c := &Client{
		httpClient:    httpClient,
		introspectURL: buildURL(baseURL, introspectPath),
		logger:        logger,
	}

	cbCfg = resilience.NormalizeCircuitBreakerConfig(cbCfg)
	if cbCfg.Enabled {
		c.breaker = resilience.NewCircuitBreaker(cbCfg.FailureThreshold, cbCfg.OpenTimeout, cbCfg.HalfOpenMaxReq)
	}

	return c
}

// VerifyAccessToken resolves a bearer token to the caller's principal.
func (c *Client) VerifyAccessToken(ctx context.Context, token string) (user.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return user.Principal{}, fmt.Errorf("%w: token is required", usecase.ErrUnauthorized)
	}

	val, err, _ := c.flight.Do(hashToken(token), func() (any, error) {
		return c.introspect(ctx, token)
	})
	if err != nil {
		return user.Principal{}, err
	}

	principal, ok := val.(user.Principal)
	if !ok {
		return user.Principal{}, fmt.Errorf("unexpected introspection result type %T", val)
	}
	return principal, nil
}

// GroupsForToken introspects a secondary credential for its group claims
// only. Some providers attach group claims to a different token type than
// the one used for authentication; an invalid or inactive secondary token
// yields no extra groups rather than an error.
func (c *Client) GroupsForToken(ctx context.Context, token string) []string {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	principal, err := c.VerifyAccessToken(ctx, token)
	if err != nil {
		c.logger.DebugContext(ctx, "secondary token introspection failed", "error", err)
		return nil
	}
	return principal.Groups
}

func (c *Client) introspect(ctx context.Context, token string) (user.Principal, error) {
	if c.breaker != nil {
		if err := c.breaker.Allow(); err != nil {
			return user.Principal{}, fmt.Errorf("%w: identity provider", err)
		}
	}

	principal, err := c.postIntrospect(ctx, token)
	if c.breaker != nil {
		if errors.Is(err, errTransient) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}

	return principal, err
}

func (c *Client) postIntrospect(ctx context.Context, token string) (user.Principal, error) {
	encoded, err := sonic.Marshal(introspectRequest{Token: token})
	if err != nil {
		return user.Principal{}, fmt.Errorf("marshal introspect request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.introspectURL, bytes.NewReader(encoded))
	if err != nil {
		return user.Principal{}, fmt.Errorf("create introspect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return user.Principal{}, errors.Mark(fmt.Errorf("%w: request introspection: %v", usecase.ErrDependencyUnavailable, err), errTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return user.Principal{}, fmt.Errorf("%w: introspection denied", usecase.ErrUnauthorized)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return user.Principal{}, errors.Mark(fmt.Errorf("%w: read introspect response: %v", usecase.ErrDependencyUnavailable, err), errTransient)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.WarnContext(ctx, "identity introspection non-200",
			"status_code", resp.StatusCode,
		)
		if resp.StatusCode >= http.StatusInternalServerError {
			return user.Principal{}, errors.Mark(
				fmt.Errorf("%w: identity introspection failed with status %d", usecase.ErrDependencyUnavailable, resp.StatusCode),
				errTransient,
			)
		}
		return user.Principal{}, fmt.Errorf("identity introspection failed with status %d", resp.StatusCode)
	}

	var decoded introspectResponse
	if err := sonic.Unmarshal(body, &decoded); err != nil {
		return user.Principal{}, fmt.Errorf("unmarshal introspect response: %w", err)
	}

	if !decoded.Active {
		return user.Principal{}, fmt.Errorf("%w: inactive token", usecase.ErrUnauthorized)
	}
	if strings.TrimSpace(decoded.UserID) == "" {
		return user.Principal{}, fmt.Errorf("invalid introspect response: user_id is empty")
	}

	return user.Principal{
		UserID: decoded.UserID,
		Email:  decoded.Email,
		Groups: decoded.Groups,
	}, nil
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Active bool     `json:"active"`
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Groups []string `json:"groups"`
}
