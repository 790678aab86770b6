package person

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/datacentricdesign/profile-api/internal/apperror"
	"github.com/datacentricdesign/profile-api/internal/db/controller/ledger"
	personstore "github.com/datacentricdesign/profile-api/internal/db/controller/person"
	"github.com/datacentricdesign/profile-api/internal/db/dbtest"
	"github.com/datacentricdesign/profile-api/internal/db/models"
	"github.com/datacentricdesign/profile-api/internal/hydra"
	"github.com/datacentricdesign/profile-api/internal/hydra/hydratest"
	"github.com/datacentricdesign/profile-api/internal/keto"
	"github.com/datacentricdesign/profile-api/internal/keto/ketotest"
	"github.com/datacentricdesign/profile-api/internal/password"
	"github.com/datacentricdesign/profile-api/internal/policy"
)

var defaultGroups = []string{"dcd:groups:public", "dcd:groups:user"}

type fixture struct {
	svc   *Service
	db    *gorm.DB
	keto  *ketotest.Server
	hydra *hydratest.Server
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.Open(t)

	k := ketotest.NewServer()
	t.Cleanup(k.Close)

	h := hydratest.NewServer()
	t.Cleanup(h.Close)

	hasher, err := password.New(password.SHA256, "test-key")
	require.NoError(t, err)

	store, err := personstore.New(db, hasher)
	require.NoError(t, err)

	admin, err := hydra.New(context.Background(), hydra.Config{AdminURL: h.URL, Timeout: time.Second})
	require.NoError(t, err)

	policies := policy.New(keto.New(k.URL, time.Second, false), db, "")

	return &fixture{
		svc:   New(store, policies, admin, defaultGroups),
		db:    db,
		keto:  k,
		hydra: h,
	}
}

func alice() Registration {
	return Registration{ID: "dcd:persons:alice", Name: "Alice", Email: "alice@x.com", Password: "longenough1"}
}

func TestRegister(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.Register(ctx, alice())
	require.NoError(t, err)
	assert.Equal(t, "dcd:persons:alice", p.ID)
	assert.Equal(t, "alice@x.com", p.Email)
	assert.Empty(t, p.Password)

	var stored models.Person
	require.NoError(t, f.db.First(&stored, "id = ?", p.ID).Error)
	assert.NotEqual(t, "longenough1", stored.Password)

	for _, g := range defaultGroups {
		members, ok := f.keto.Role(g)
		require.True(t, ok, g)
		assert.Contains(t, members, p.ID)
	}

	id, err := ledger.FindID(f.db, p.ID, p.ID, policy.RolePerson)
	require.NoError(t, err)

	pol, ok := f.keto.Policy(id)
	require.True(t, ok)
	assert.Equal(t, "allow", pol.Effect)

	_, err = f.svc.Register(ctx, Registration{
		ID: "dcd:persons:alice2", Name: "Alice", Email: "alice@x.com", Password: "longenough1",
	})
	require.ErrorIs(t, err, ErrEmailInUse)
	assert.True(t, apperror.Is(err, apperror.DuplicateIdentity))

	_, err = f.svc.Register(ctx, Registration{
		ID: "dcd:persons:alice", Name: "Alice", Email: "other@x.com", Password: "longenough1",
	})
	require.ErrorIs(t, err, ErrIDInUse)
}

func TestRegisterValidation(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(r *Registration)
		message string
	}{
		{"missing name", func(r *Registration) { r.Name = "" }, "Add field name."},
		{"missing email", func(r *Registration) { r.Email = "" }, "Add field email."},
		{"bad email", func(r *Registration) { r.Email = "alice" }, "The field 'email' must be a valid email address."},
		{"missing id", func(r *Registration) { r.ID = "" }, "Add field id."},
		{"bad prefix", func(r *Registration) { r.ID = "alice" }, ErrIDPrefix.Message},
		{"bare prefix", func(r *Registration) { r.ID = "dcd:persons:" }, ErrIDPrefix.Message},
		{"short password", func(r *Registration) { r.Password = "short" }, ErrPasswordTooShort.Message},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := setup(t)

			r := alice()
			tc.mutate(&r)

			_, err := f.svc.Register(context.Background(), r)
			require.Error(t, err)
			assert.True(t, apperror.Is(err, apperror.ValidationError), "got %v", err)
			assert.Equal(t, tc.message, err.Error())

			var n int64
			require.NoError(t, f.db.Model(&models.Person{}).Count(&n).Error)
			assert.Zero(t, n)
			assert.Empty(t, f.keto.Policies())
		})
	}
}

func TestConcurrentRegisterOneWinner(t *testing.T) {
	f := setup(t)

	const attempts = 6

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		won     int
		lost    int
		unknown []error
	)

	for i := range attempts {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := f.svc.Register(context.Background(), Registration{
				ID:       fmt.Sprintf("dcd:persons:alice%d", i),
				Name:     "Alice",
				Email:    "alice@x.com",
				Password: "longenough1",
			})

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				won++
			case apperror.Is(err, apperror.DuplicateIdentity):
				lost++
			default:
				unknown = append(unknown, err)
			}
		}()
	}

	wg.Wait()

	assert.Empty(t, unknown)
	assert.Equal(t, 1, won)
	assert.Equal(t, attempts-1, lost)
}

func TestRegisterGrantFailureLeavesNoPerson(t *testing.T) {
	f := setup(t)
	f.keto.Down(true)

	_, err := f.svc.Register(context.Background(), alice())
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.UpstreamError))

	ok, err := f.svc.Exists(context.Background(), "dcd:persons:alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEdit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, alice())
	require.NoError(t, err)

	p, err := f.svc.Edit(ctx, "dcd:persons:alice", Update{Name: "Alice L.", Email: "alice@lab.org"})
	require.NoError(t, err)
	assert.Equal(t, "Alice L.", p.Name)

	_, err = f.svc.Edit(ctx, "dcd:persons:alice", Update{Name: "Alice"})
	assert.True(t, apperror.Is(err, apperror.ValidationError))
}

func TestDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, alice())
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, "dcd:persons:alice"))
	assert.Empty(t, f.keto.Policies())

	_, err = ledger.FindID(f.db, "dcd:persons:alice", "dcd:persons:alice", policy.RolePerson)
	assert.True(t, apperror.Is(err, apperror.NotFound))

	_, err = f.svc.Get(ctx, "dcd:persons:alice")
	assert.True(t, apperror.Is(err, apperror.NotFound))

	assert.True(t, apperror.Is(f.svc.Delete(ctx, "dcd:persons:alice"), apperror.NotFound))
}

func TestCheckCredentials(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, alice())
	require.NoError(t, err)

	id, err := f.svc.CheckCredentials(ctx, "alice@x.com", "longenough1")
	require.NoError(t, err)
	assert.Equal(t, "dcd:persons:alice", id)

	id, err = f.svc.CheckCredentials(ctx, "alice@x.com", "wrong-password")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestApps(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.hydra.AddSession("dcd:persons:alice", hydra.PreviousConsent{
		ConsentRequest: hydra.ConsentRequest{Client: hydra.Client{ClientID: "bucket"}},
		GrantScope:     []string{"openid"},
	})

	apps, err := f.svc.Apps(ctx, "dcd:persons:alice")
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "bucket", apps[0].ConsentRequest.Client.ClientID)

	require.NoError(t, f.svc.RevokeApp(ctx, "dcd:persons:alice", "bucket"))
	assert.Equal(t, []string{"dcd:persons:alice/bucket"}, f.hydra.Revoked())

	apps, err = f.svc.Apps(ctx, "dcd:persons:alice")
	require.NoError(t, err)
	assert.Empty(t, apps)
}
