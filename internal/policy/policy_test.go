package policy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/datacentricdesign/profile-api/internal/apperror"
	"github.com/datacentricdesign/profile-api/internal/db/controller/ledger"
	"github.com/datacentricdesign/profile-api/internal/db/dbtest"
	"github.com/datacentricdesign/profile-api/internal/db/models"
	"github.com/datacentricdesign/profile-api/internal/keto"
	"github.com/datacentricdesign/profile-api/internal/keto/ketotest"
)

const (
	alice = "dcd:persons:alice"
	bob   = "dcd:persons:bob"
	lab   = "dcd:groups:lab"
)

func setup(t *testing.T) (*Service, *ketotest.Server, *gorm.DB) {
	t.Helper()

	srv := ketotest.NewServer()
	t.Cleanup(srv.Close)

	db := dbtest.Open(t)

	return New(keto.New(srv.URL, time.Second, false), db, ""), srv, db
}

func countRoles(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(&models.Role{}).Count(&n).Error)

	return n
}

func TestActionsFor(t *testing.T) {
	testCases := []struct {
		role string
		want []string
	}{
		{RoleUser, []string{"dcd:actions:create", "dcd:actions:list"}},
		{RoleReader, []string{"dcd:actions:read", "dcd:actions:list"}},
		{RoleOwner, []string{
			"dcd:actions:create", "dcd:actions:list", "dcd:actions:read", "dcd:actions:update",
			"dcd:actions:delete", "dcd:actions:grant", "dcd:actions:revoke",
		}},
		{RoleSubject, []string{"dcd:actions:create", "dcd:actions:read", "dcd:actions:update"}},
		{RolePerson, []string{"dcd:actions:read", "dcd:actions:update", "dcd:actions:delete"}},
		{RoleGroupAdmin, []string{"dcd:actions:read", "dcd:actions:update", "dcd:actions:delete"}},
		{"superuser", []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.role, func(t *testing.T) {
			assert.Equal(t, tc.want, ActionsFor(tc.role))
		})
	}
}

func TestGrantThenRevokeKeepsOneRow(t *testing.T) {
	s, srv, db := setup(t)
	ctx := context.Background()

	require.NoError(t, s.Grant(ctx, alice, alice, RolePerson))

	id, err := ledger.FindID(db, alice, alice, RolePerson)
	require.NoError(t, err)

	p, ok := srv.Policy(id)
	require.True(t, ok)
	assert.Equal(t, "allow", p.Effect)
	assert.Equal(t, []string{alice}, p.Subjects)
	assert.Equal(t, []string{alice}, p.Resources)
	assert.Equal(t, ActionsFor(RolePerson), p.Actions)

	require.NoError(t, s.Revoke(ctx, alice, alice, RolePerson))

	assert.Equal(t, int64(1), countRoles(t, db))
	assert.Len(t, srv.Policies(), 1)

	p, ok = srv.Policy(id)
	require.True(t, ok)
	assert.Equal(t, "deny", p.Effect)

	r, err := ledger.Find(db, alice, alice, RolePerson)
	require.NoError(t, err)
	assert.Equal(t, models.EffectDeny, r.Effect)
}

func TestRevokeUnknownCreatesDeny(t *testing.T) {
	s, srv, db := setup(t)

	require.NoError(t, s.Revoke(context.Background(), bob, alice, RoleReader))

	id, err := ledger.FindID(db, bob, alice, RoleReader)
	require.NoError(t, err)

	p, ok := srv.Policy(id)
	require.True(t, ok)
	assert.Equal(t, "deny", p.Effect)
}

func TestGrantEngineDownKeepsLedgerRow(t *testing.T) {
	s, srv, db := setup(t)
	ctx := context.Background()

	srv.Down(true)

	err := s.Grant(ctx, alice, alice, RolePerson)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.UpstreamError))

	id, err := ledger.FindID(db, alice, alice, RolePerson)
	require.NoError(t, err, "the ledger row is the source of the policy id")

	srv.Down(false)

	require.NoError(t, s.Grant(ctx, alice, alice, RolePerson))
	_, ok := srv.Policy(id)
	assert.True(t, ok, "the retry reuses the recorded id")
	assert.Equal(t, int64(1), countRoles(t, db))
}

func TestDeletePolicy(t *testing.T) {
	s, srv, db := setup(t)
	ctx := context.Background()

	require.NoError(t, s.Grant(ctx, alice, alice, RolePerson))
	require.NoError(t, s.DeletePolicy(ctx, alice, alice, RolePerson))

	assert.Empty(t, srv.Policies())
	assert.Equal(t, int64(0), countRoles(t, db))

	err := s.DeletePolicy(ctx, alice, alice, RolePerson)
	assert.True(t, apperror.Is(err, apperror.NotFound))
}

func TestDeletePolicyGoneRemotely(t *testing.T) {
	s, srv, db := setup(t)
	ctx := context.Background()

	require.NoError(t, s.Grant(ctx, alice, alice, RolePerson))

	id, err := ledger.FindID(db, alice, alice, RolePerson)
	require.NoError(t, err)

	// drop the remote policy behind the service's back
	require.NoError(t, keto.New(srv.URL, time.Second, false).DeletePolicy(ctx, id))

	require.NoError(t, s.DeletePolicy(ctx, alice, alice, RolePerson))
	assert.Equal(t, int64(0), countRoles(t, db))
}

func TestCheck(t *testing.T) {
	s, srv, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, s.Grant(ctx, alice, alice, RolePerson))

	require.NoError(t, s.Check(ctx, keto.AccessRequest{Subject: alice, Resource: alice, Action: Action(ActionRead)}))

	err := s.Check(ctx, keto.AccessRequest{Subject: bob, Resource: alice, Action: Action(ActionRead)})
	require.ErrorIs(t, err, ErrNotAllowed)
	assert.Equal(t, 4031, apperror.KindOf(err).Code())

	srv.Down(true)

	err = s.Check(ctx, keto.AccessRequest{Subject: alice, Resource: alice, Action: Action(ActionRead)})
	assert.True(t, apperror.Is(err, apperror.UpstreamError))
}

func TestCreateRole(t *testing.T) {
	s, srv, db := setup(t)
	ctx := context.Background()

	err := s.CreateRole(ctx, alice, "lab", nil)
	require.ErrorIs(t, err, ErrGroupPrefix)

	require.NoError(t, s.CreateRole(ctx, alice, lab, []string{alice, bob}))

	members, ok := srv.Role(lab)
	require.True(t, ok)
	assert.Equal(t, []string{alice, bob}, members)

	_, err = ledger.FindID(db, alice, lab, RoleGroupAdmin)
	require.NoError(t, err)

	require.NoError(t, s.Check(ctx, keto.AccessRequest{Subject: alice, Resource: lab, Action: Action(ActionUpdate)}))
	require.ErrorIs(t,
		s.Check(ctx, keto.AccessRequest{Subject: bob, Resource: lab, Action: Action(ActionUpdate)}),
		ErrNotAllowed)

	r, err := s.ReadRole(ctx, lab)
	require.NoError(t, err)
	assert.Equal(t, lab, r.ID)
}

func TestDeleteRole(t *testing.T) {
	s, srv, db := setup(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRole(ctx, alice, lab, []string{alice}))
	require.NoError(t, s.DeleteRole(ctx, lab))

	_, ok := srv.Role(lab)
	assert.False(t, ok)
	assert.Empty(t, srv.Policies())
	assert.Equal(t, int64(0), countRoles(t, db))

	_, err := s.ReadRole(ctx, lab)
	assert.True(t, apperror.Is(err, apperror.NotFound))

	assert.True(t, apperror.Is(s.DeleteRole(ctx, lab), apperror.NotFound))
}

func TestMembers(t *testing.T) {
	s, srv, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRole(ctx, alice, lab, []string{alice}))
	require.NoError(t, s.AddMembers(ctx, lab, bob))

	members, _ := srv.Role(lab)
	assert.Equal(t, []string{alice, bob}, members)

	require.NoError(t, s.CheckMembership(ctx, bob, lab))

	require.NoError(t, s.RemoveMember(ctx, lab, bob))

	err := s.CheckMembership(ctx, bob, lab)
	assert.True(t, apperror.Is(err, apperror.Forbidden))
	assert.Contains(t, err.Error(), "is not member of the group")
}

func TestListRolesOfMember(t *testing.T) {
	s, srv, _ := setup(t)
	ctx := context.Background()

	srv.SetRole("dcd:groups:public", alice, bob)
	require.NoError(t, s.CreateRole(ctx, alice, lab, []string{alice, bob}))

	groups, err := s.ListRolesOfMember(ctx, bob)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	for _, g := range groups {
		assert.False(t, g.IsAdmin)
		assert.Empty(t, g.Members, "members are hidden from non admins")
	}

	groups, err = s.ListRolesOfMember(ctx, alice)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	byID := map[string]Group{}
	for _, g := range groups {
		byID[g.ID] = g
	}

	assert.True(t, byID[lab].IsAdmin)
	assert.Equal(t, []string{alice, bob}, byID[lab].Members)
	assert.False(t, byID["dcd:groups:public"].IsAdmin)
}
