package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datacentricdesign/profile-api/internal/config"
	"github.com/datacentricdesign/profile-api/internal/db/dbtest"
	"github.com/datacentricdesign/profile-api/internal/db/models"
	"github.com/datacentricdesign/profile-api/internal/hydra/hydratest"
	"github.com/datacentricdesign/profile-api/internal/keto/ketotest"
)

const adminID = "dcd:persons:admin"

func testConfig(hydraURL, ketoURL string) *config.Config {
	return &config.Config{
		Webserver: config.Webserver{
			URL:  "http://localhost",
			CSRF: config.CSRF{Storage: config.CSRFStorageMemory},
		},
		OAuth2: config.OAuth2{HydraAdminURL: hydraURL, RequestTimeout: time.Second},
		Policy: config.Policy{
			KetoURL:       ketoURL,
			DefaultGroups: []string{GroupPublic, GroupUser},
		},
		Crypto: config.Crypto{Algorithm: "sha256", Key: "test-key"},
		Admin: config.Admin{
			ID: adminID, Email: "admin@x.com", Name: "Admin", Password: "adminpassword",
		},
	}
}

func TestWireSeedsAdmin(t *testing.T) {
	h := hydratest.NewServer()
	t.Cleanup(h.Close)

	k := ketotest.NewServer()
	t.Cleanup(k.Close)

	db := dbtest.Open(t)
	cfg := testConfig(h.URL, k.URL)

	d, err := Wire(context.Background(), cfg, db)
	require.NoError(t, err)
	require.NotNil(t, d.webService)

	var admin models.Person
	require.NoError(t, db.First(&admin, "id = ?", adminID).Error)
	assert.Equal(t, "admin@x.com", admin.Email)

	members, ok := k.Role(GroupAdmin)
	require.True(t, ok)
	assert.Equal(t, []string{adminID}, members)

	for _, g := range []string{GroupPublic, GroupUser} {
		members, ok = k.Role(g)
		require.True(t, ok, g)
		assert.Contains(t, members, adminID, "admin joins the default group %s", g)
	}

	var rows int64
	require.NoError(t, db.Model(&models.Role{}).Count(&rows).Error)

	// a second start finds the admin and seeds nothing
	_, err = Wire(context.Background(), cfg, db)
	require.NoError(t, err)

	var again int64
	require.NoError(t, db.Model(&models.Role{}).Count(&again).Error)
	assert.Equal(t, rows, again)
}

func TestWireSurvivesPolicyEngineDown(t *testing.T) {
	h := hydratest.NewServer()
	t.Cleanup(h.Close)

	k := ketotest.NewServer()
	t.Cleanup(k.Close)
	k.Down(true)

	db := dbtest.Open(t)

	_, err := Wire(context.Background(), testConfig(h.URL, k.URL), db)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Person{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOpenDBRejectsUnknownEngine(t *testing.T) {
	_, err := OpenDB(&config.Config{DB: config.DB{Engine: "oracle"}})
	require.ErrorIs(t, err, ErrUnsupportedEngine)
}

func TestOpenDBSQLite(t *testing.T) {
	db, err := OpenDB(&config.Config{DB: config.DB{Engine: config.DBEngineSQLite, Path: t.TempDir() + "/p.db"}})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	assert.True(t, db.Migrator().HasTable(&models.Person{}))
	assert.True(t, db.Migrator().HasTable(&models.Role{}))
}
