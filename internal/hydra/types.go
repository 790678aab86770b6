package hydra

// Client is an OAuth2 client registered at the authorization server.
type Client struct {
	ClientID                string         `json:"client_id"`
	ClientName              string         `json:"client_name,omitempty"`
	ClientSecret            string         `json:"client_secret,omitempty"` //nolint:gosec
	ClientURI               string         `json:"client_uri,omitempty"`
	LogoURI                 string         `json:"logo_uri,omitempty"`
	PolicyURI               string         `json:"policy_uri,omitempty"`
	TosURI                  string         `json:"tos_uri,omitempty"`
	Owner                   string         `json:"owner,omitempty"`
	RedirectURIs            []string       `json:"redirect_uris,omitempty"`
	PostLogoutRedirectURIs  []string       `json:"post_logout_redirect_uris,omitempty"`
	GrantTypes              []string       `json:"grant_types,omitempty"`
	ResponseTypes           []string       `json:"response_types,omitempty"`
	Scope                   string         `json:"scope,omitempty"`
	Audience                []string       `json:"audience,omitempty"`
	TokenEndpointAuthMethod string         `json:"token_endpoint_auth_method,omitempty"`
	Metadata                map[string]any `json:"metadata,omitempty"`
}

// LoginRequest describes a pending login.
type LoginRequest struct {
	Challenge                    string   `json:"challenge"`
	Skip                         bool     `json:"skip"`
	Subject                      string   `json:"subject"`
	SessionID                    string   `json:"session_id,omitempty"`
	RequestURL                   string   `json:"request_url"`
	RequestedScope               []string `json:"requested_scope"`
	RequestedAccessTokenAudience []string `json:"requested_access_token_audience"`
	Client                       Client   `json:"client"`
}

// ConsentRequest describes a pending consent.
type ConsentRequest struct {
	Challenge                    string         `json:"challenge"`
	Skip                         bool           `json:"skip"`
	Subject                      string         `json:"subject"`
	LoginChallenge               string         `json:"login_challenge,omitempty"`
	LoginSessionID               string         `json:"login_session_id,omitempty"`
	RequestURL                   string         `json:"request_url"`
	RequestedScope               []string       `json:"requested_scope"`
	RequestedAccessTokenAudience []string       `json:"requested_access_token_audience"`
	Client                       Client         `json:"client"`
	Context                      map[string]any `json:"context,omitempty"`
}

// LogoutRequest describes a pending logout.
type LogoutRequest struct {
	Subject     string `json:"subject"`
	SessionID   string `json:"sid"`
	RequestURL  string `json:"request_url"`
	RPInitiated bool   `json:"rp_initiated"`
}

// AcceptLogin is the body accepting a login.
type AcceptLogin struct {
	Subject     string         `json:"subject"`
	Remember    bool           `json:"remember"`
	RememberFor int            `json:"remember_for"`
	ACR         string         `json:"acr,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
}

// AcceptConsent is the body accepting a consent.
type AcceptConsent struct {
	GrantScope               []string       `json:"grant_scope"`
	GrantAccessTokenAudience []string       `json:"grant_access_token_audience"`
	Remember                 bool           `json:"remember"`
	RememberFor              int            `json:"remember_for"`
	Session                  ConsentSession `json:"session"`
}

// ConsentSession holds the claims added to the issued tokens.
type ConsentSession struct {
	AccessToken map[string]any `json:"access_token,omitempty"`
	IDToken     map[string]any `json:"id_token,omitempty"`
}

// Reject is the body rejecting a login, a consent or a logout.
type Reject struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorHint        string `json:"error_hint,omitempty"`
	ErrorDebug       string `json:"error_debug,omitempty"`
	StatusCode       int    `json:"status_code,omitempty"`
}

// Completed is the answer to an accept or a reject.
type Completed struct {
	RedirectTo string `json:"redirect_to"`
}

// Introspection is the answer of the token introspection endpoint.
type Introspection struct {
	Active    bool     `json:"active"`
	Subject   string   `json:"sub"`
	Expires   int64    `json:"exp"`
	IssuedAt  int64    `json:"iat"`
	Scope     string   `json:"scope"`
	TokenType string   `json:"token_type"`
	ClientID  string   `json:"client_id"`
	Username  string   `json:"username,omitempty"`
	Audience  []string `json:"aud,omitempty"`
}

// PreviousConsent is a consent session previously granted by a subject.
type PreviousConsent struct {
	ConsentRequest           ConsentRequest `json:"consent_request"`
	GrantScope               []string       `json:"grant_scope"`
	GrantAccessTokenAudience []string       `json:"grant_access_token_audience"`
	Remember                 bool           `json:"remember"`
	RememberFor              int            `json:"remember_for"`
	HandledAt                string         `json:"handled_at,omitempty"`
}
