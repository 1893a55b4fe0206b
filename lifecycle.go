package snap

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Scope names a consent grant the user can approve on the gateway's
// consent screen.
type Scope string

const (
	ScopeCashier      Scope = "CASHIER"
	ScopeAgreementPay Scope = "AGREEMENT_PAY"
	ScopeQueryBalance Scope = "QUERY_BALANCE"
	ScopeBasicProfile Scope = "DEFAULT_BASIC_PROFILE"
	ScopeMiniWidget   Scope = "MINI_DANA"
)

// ChainState is the position of a consent chain in its lifecycle.
type ChainState string

const (
	StateNoConsent   ChainState = "NO_CONSENT"
	StateCodeIssued  ChainState = "CODE_ISSUED"
	StateTokenActive ChainState = "TOKEN_ACTIVE"
	StateOTTIssued   ChainState = "OTT_ISSUED"
	StateExpired     ChainState = "EXPIRED"
	StateRevoked     ChainState = "REVOKED"
)

// AuthorizationCode is the single-use credential produced by the
// out-of-band consent flow. Consumed exactly once by a token exchange.
type AuthorizationCode struct {
	Code      string
	Scopes    []Scope
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AccessToken is the long-lived credential bound to the consented scope
// and user. Invalidated by expiry, revocation, or an abnormal subject
// account on the gateway side.
type AccessToken struct {
	Token     string
	Scopes    []Scope
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// OneTimeToken authorizes exactly one widget-rendered operation. It
// expires quickly and cannot be reissued from a consumed token.
type OneTimeToken struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ConsentProvider obtains an authorization code through the external
// consent flow (browser, phone number, PIN). This module never
// implements it; it only consumes the resulting code.
type ConsentProvider interface {
	ObtainAuthorizationCode(ctx context.Context, scopes []Scope, userHint string) (AuthorizationCode, error)
}

// TokenExchanger performs the gateway calls that advance a consent
// chain. [GatewayExchanger] implements it over a signed-call client.
type TokenExchanger interface {
	ExchangeAuthCode(ctx context.Context, code AuthorizationCode) (AccessToken, error)
	ApplyOTT(ctx context.Context, token AccessToken, deviceID string) (OneTimeToken, error)
	Unbind(ctx context.Context, token AccessToken) error
}

// ConsentManager owns one consent chain per user reference. Unrelated
// chains mutate concurrently; each chain serializes its own mutations.
type ConsentManager struct {
	exchanger TokenExchanger
	clock     func() time.Time

	mu     sync.Mutex
	chains map[string]*ConsentChain
}

// ConsentOption customizes a [ConsentManager].
type ConsentOption func(*ConsentManager)

// WithConsentClock provides deterministic time in tests.
func WithConsentClock(fn func() time.Time) ConsentOption {
	return func(m *ConsentManager) {
		m.clock = fn
	}
}

// NewConsentManager builds a manager around the gateway exchanger.
func NewConsentManager(exchanger TokenExchanger, opts ...ConsentOption) *ConsentManager {
	m := &ConsentManager{
		exchanger: exchanger,
		clock:     time.Now,
		chains:    make(map[string]*ConsentChain),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(m)
	}
	return m
}

// Chain returns the consent chain for userRef, creating it on first use.
func (m *ConsentManager) Chain(userRef string) *ConsentChain {
	m.mu.Lock()
	defer m.mu.Unlock()
	chain, ok := m.chains[userRef]
	if !ok {
		chain = &ConsentChain{
			exchanger: m.exchanger,
			clock:     m.clock,
			state:     StateNoConsent,
			usedCodes: make(map[string]struct{}),
			usedOTTs:  make(map[string]struct{}),
		}
		m.chains[userRef] = chain
	}
	return chain
}

// ConsentChain tracks one user's AuthorizationCode → AccessToken → OTT
// progression. All mutations go through the chain mutex.
type ConsentChain struct {
	exchanger TokenExchanger
	clock     func() time.Time

	mu        sync.Mutex
	state     ChainState
	code      *AuthorizationCode
	token     *AccessToken
	ott       *OneTimeToken
	usedCodes map[string]struct{}
	usedOTTs  map[string]struct{}
}

// Authorize drives the external consent flow and grants the resulting
// code to the chain.
func (c *ConsentChain) Authorize(ctx context.Context, provider ConsentProvider, scopes []Scope, userHint string) error {
	if provider == nil {
		return errors.New("snap: consent provider is required")
	}
	code, err := provider.ObtainAuthorizationCode(ctx, scopes, userHint)
	if err != nil {
		return tagStage(err, StageConsent)
	}
	return c.Grant(code)
}

// Grant records an authorization code obtained out of band. The chain
// only receives the code; it never drives the consent UI itself.
func (c *ConsentChain) Grant(code AuthorizationCode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRevoked {
		return NewNotFoundError("consent chain is revoked", WithStage(StageConsent))
	}
	if code.Code == "" {
		return NewInvalidFormatError("authorization code is empty", WithStage(StageConsent))
	}
	if _, used := c.usedCodes[code.Code]; used {
		return NewUsedError("authorization code already consumed", WithStage(StageConsent))
	}
	c.code = &code
	c.state = StateCodeIssued
	return nil
}

// ExchangeCode consumes the granted authorization code for an access
// token. A second exchange of the same code fails as used, distinctly
// from invalid (malformed/unknown) and expired (valid but past TTL).
func (c *ConsentChain) ExchangeCode(ctx context.Context) (AccessToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateRevoked:
		return AccessToken{}, NewNotFoundError("consent chain is revoked", WithStage(StageTokenExchange))
	case StateExpired:
		return AccessToken{}, NewExpiredError("consent chain is expired", WithStage(StageTokenExchange))
	}
	if c.code == nil {
		return AccessToken{}, NewNotFoundError("no authorization code granted", WithStage(StageTokenExchange))
	}
	code := *c.code
	if _, used := c.usedCodes[code.Code]; used {
		return AccessToken{}, NewUsedError("authorization code already consumed", WithStage(StageTokenExchange))
	}
	if !code.ExpiresAt.IsZero() && !c.clock().Before(code.ExpiresAt) {
		c.state = StateExpired
		return AccessToken{}, NewExpiredError("authorization code expired", WithStage(StageTokenExchange))
	}
	token, err := c.exchanger.ExchangeAuthCode(ctx, code)
	if err != nil {
		return AccessToken{}, tagStage(err, StageTokenExchange)
	}
	// Consumed exactly once, success or not on later replays.
	c.usedCodes[code.Code] = struct{}{}
	c.code = nil
	c.token = &token
	c.state = StateTokenActive
	return token, nil
}

// Token returns the live access token for Authorization-Customer use.
func (c *ConsentChain) Token() (AccessToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveTokenLocked()
}

func (c *ConsentChain) liveTokenLocked() (AccessToken, error) {
	if c.state == StateRevoked {
		return AccessToken{}, NewNotFoundError("access token revoked", WithStage(StageTokenExchange))
	}
	if c.token == nil {
		return AccessToken{}, NewNotFoundError("no access token issued", WithStage(StageTokenExchange))
	}
	if !c.token.ExpiresAt.IsZero() && !c.clock().Before(c.token.ExpiresAt) {
		c.state = StateExpired
		return AccessToken{}, NewExpiredError("access token expired", WithStage(StageTokenExchange))
	}
	return *c.token, nil
}

// IssueOTT derives a fresh one-time token from the live access token.
// Token-stage problems (expired, revoked, never issued) keep their
// token-exchange stage tag; only genuine OTT-step failures are tagged
// ott.
func (c *ConsentChain) IssueOTT(ctx context.Context, deviceID string) (OneTimeToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	token, err := c.liveTokenLocked()
	if err != nil {
		return OneTimeToken{}, err
	}
	ott, err := c.exchanger.ApplyOTT(ctx, token, deviceID)
	if err != nil {
		return OneTimeToken{}, tagStage(err, StageOTT)
	}
	c.ott = &ott
	c.state = StateOTTIssued
	return ott, nil
}

// RedeemOTT consumes a one-time token for a single widget operation.
// Reuse fails as not found; a burned OTT leaves the access token and
// the rest of the chain intact.
func (c *ConsentChain) RedeemOTT(value string) (OneTimeToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRevoked {
		return OneTimeToken{}, NewNotFoundError("consent chain is revoked", WithStage(StageOTT))
	}
	if _, used := c.usedOTTs[value]; used {
		return OneTimeToken{}, NewNotFoundError("one-time token already consumed", WithStage(StageOTT))
	}
	if c.ott == nil || c.ott.Token != value {
		return OneTimeToken{}, NewNotFoundError("unknown one-time token", WithStage(StageOTT))
	}
	ott := *c.ott
	if !ott.ExpiresAt.IsZero() && !c.clock().Before(ott.ExpiresAt) {
		return OneTimeToken{}, NewExpiredError("one-time token expired", WithStage(StageOTT))
	}
	c.usedOTTs[value] = struct{}{}
	c.ott = nil
	if c.state == StateOTTIssued {
		c.state = StateTokenActive
	}
	return ott, nil
}

// Revoke unbinds the consent on the gateway and invalidates every
// derived credential in the chain immediately.
func (c *ConsentChain) Revoke(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRevoked {
		return nil
	}
	if c.token != nil {
		if err := c.exchanger.Unbind(ctx, *c.token); err != nil {
			return tagStage(err, StageTokenExchange)
		}
	}
	c.code = nil
	c.token = nil
	c.ott = nil
	c.state = StateRevoked
	return nil
}

// State evaluates the chain position, applying lazy expiry: no
// background timer is needed for correctness.
func (c *ConsentChain) State() ChainState {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()
	switch c.state {
	case StateCodeIssued:
		if c.code != nil && !c.code.ExpiresAt.IsZero() && !now.Before(c.code.ExpiresAt) {
			c.state = StateExpired
		}
	case StateTokenActive, StateOTTIssued:
		if c.token != nil && !c.token.ExpiresAt.IsZero() && !now.Before(c.token.ExpiresAt) {
			c.state = StateExpired
		}
	}
	return c.state
}

// tagStage stamps the consent-chain stage onto gateway errors that have
// not been attributed to an earlier stage yet. Plain errors pass
// through untouched.
func tagStage(err error, stage Stage) error {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return err
	}
	if gwErr.Stage == "" || gwErr.Stage == StageOperation {
		tagged := *gwErr
		tagged.Stage = stage
		return &tagged
	}
	return err
}
