// Package auth authenticates API requests with OAuth2 bearer tokens and
// authorizes them with the policy engine.
//
// # Authentication
//
// Authenticate reads the access token from the Authorization header, or from
// the authorization query parameter when there is no header, and introspects it
// at the authorization server. An active access token carrying the required
// scopes yields a Principal stored in the fiber locals and in the request
// context. Any other token stops the request with one of:
//   - MissingCredential: no token at all
//   - MalformedCredential: an Authorization header without the bearer scheme
//   - TokenInactive: expired, revoked, unknown, or missing a required scope
//   - WrongTokenType: a token that is not an access token, e.g. a refresh token
//
// # Authorization
//
// CheckPolicy asks the policy engine whether the authenticated subject may do
// an action on a resource. The resource is the resource kind (dcd:persons,
// dcd:groups, dcd:apps) unless the route names a specific person or group,
// in which case that object is checked instead.
//
// Example usage:
//
//	router.Get("/:personId",
//	    auth.Authenticate(introspector, auth.ScopePersons),
//	    auth.CheckPolicy(policies, auth.KindPersons, policy.ActionRead),
//	    handler,
//	)
package auth
