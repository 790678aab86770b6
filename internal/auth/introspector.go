package auth

import (
	"context"
	"strings"
	"time"

	"github.com/datacentricdesign/profile-api/internal/hydra"
)

const (
	bearerPrefix   = "bearer "
	accessTokenTyp = "access_token"
)

// TokenIntrospector asks the authorization server about a token.
type TokenIntrospector interface {
	Introspect(ctx context.Context, token string, scopes ...string) (*hydra.Introspection, error)
}

// Principal is the identity behind a valid access token.
type Principal struct {
	Subject   string
	ClientID  string
	Scopes    []string
	TokenType string
	Expires   time.Time
}

// Introspector validates bearer tokens. End user tokens are never cached.
type Introspector struct {
	server TokenIntrospector
}

// NewIntrospector creates an Introspector asking server.
func NewIntrospector(server TokenIntrospector) *Introspector {
	return &Introspector{server: server}
}

// ExtractToken returns the token of an Authorization header value, falling back
// to the authorization query parameter when the header is empty.
func ExtractToken(header, query string) (string, error) {
	if header != "" {
		if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			return "", ErrMalformedCredential
		}

		token := strings.TrimSpace(header[len(bearerPrefix):])
		if token == "" {
			return "", ErrMalformedCredential
		}

		return token, nil
	}

	if query != "" {
		return query, nil
	}

	return "", ErrMissingCredential
}

// Introspect validates token and requires scopes, DefaultScopes when none are given.
func (i *Introspector) Introspect(ctx context.Context, token string, scopes ...string) (*Principal, error) {
	if token == "" {
		return nil, ErrMissingCredential
	}

	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	res, err := i.server.Introspect(ctx, token, scopes...)
	if err != nil {
		return nil, err
	}

	if !res.Active {
		return nil, ErrTokenInactive
	}

	if res.TokenType != "" && res.TokenType != accessTokenTyp {
		return nil, ErrWrongTokenType
	}

	p := &Principal{
		Subject:   res.Subject,
		ClientID:  res.ClientID,
		Scopes:    strings.Fields(res.Scope),
		TokenType: res.TokenType,
	}

	if res.Expires > 0 {
		p.Expires = time.Unix(res.Expires, 0)
	}

	return p, nil
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal of ctx, nil if there is none.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
