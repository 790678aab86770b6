package flow

import (
	"slices"
	"strings"

	"github.com/datacentricdesign/profile-api/internal/db/models"
)

// Scopes adding claims to the id token.
const (
	ScopeProfile = "profile"
	ScopeEmail   = "email"
	ScopePhone   = "phone"
)

// BuildIDTokenClaims returns the id token claims the scopes give access to.
// Scopes without claims add nothing.
func BuildIDTokenClaims(scopes []string, p *models.Person) map[string]any {
	claims := map[string]any{}

	if slices.Contains(scopes, ScopeProfile) {
		claims["id"] = p.ID
		claims["sub"] = p.ID
		claims["username"] = strings.TrimPrefix(p.ID, models.PersonIDPrefix)
		claims["name"] = p.Name
		claims["given_name"] = p.Name
		claims["profile"] = p.Name
		claims["family_n"] = ""
	}

	if slices.Contains(scopes, ScopeEmail) {
		claims["email"] = p.Email
		claims["email_verified"] = false
	}

	if slices.Contains(scopes, ScopePhone) {
		claims["phone_number"] = ""
		claims["phone_verified"] = false
	}

	return claims
}
