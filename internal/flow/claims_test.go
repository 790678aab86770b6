package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datacentricdesign/profile-api/internal/db/models"
)

func TestBuildIDTokenClaims(t *testing.T) {
	p := &models.Person{ID: "dcd:persons:alice", Name: "Alice", Email: "alice@x.com"}

	profile := map[string]any{
		"id":         "dcd:persons:alice",
		"sub":        "dcd:persons:alice",
		"username":   "alice",
		"name":       "Alice",
		"given_name": "Alice",
		"profile":    "Alice",
		"family_n":   "",
	}

	testCases := []struct {
		name   string
		scopes []string
		want   map[string]any
	}{
		{"none", nil, map[string]any{}},
		{"openid only", []string{"openid"}, map[string]any{}},
		{"profile first", []string{"profile"}, profile},
		{"email", []string{"openid", "email"}, map[string]any{"email": "alice@x.com", "email_verified": false}},
		{"phone", []string{"phone"}, map[string]any{"phone_number": "", "phone_verified": false}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BuildIDTokenClaims(tc.scopes, p))
		})
	}

	all := BuildIDTokenClaims([]string{"openid", "profile", "email", "phone"}, p)
	assert.Len(t, all, len(profile)+4)
}
