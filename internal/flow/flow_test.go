package flow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datacentricdesign/profile-api/internal/apperror"
	"github.com/datacentricdesign/profile-api/internal/config"
	personstore "github.com/datacentricdesign/profile-api/internal/db/controller/person"
	"github.com/datacentricdesign/profile-api/internal/db/dbtest"
	"github.com/datacentricdesign/profile-api/internal/hydra"
	"github.com/datacentricdesign/profile-api/internal/hydra/hydratest"
	"github.com/datacentricdesign/profile-api/internal/keto"
	"github.com/datacentricdesign/profile-api/internal/keto/ketotest"
	"github.com/datacentricdesign/profile-api/internal/password"
	"github.com/datacentricdesign/profile-api/internal/person"
	"github.com/datacentricdesign/profile-api/internal/policy"
)

const (
	aliceID       = "dcd:persons:alice"
	alicePassword = "longenough1"
)

type fixture struct {
	ctrl  *Controller
	hydra *hydratest.Server
	keto  *ketotest.Server
	ctx   context.Context
}

func testConfig() *config.Config {
	return &config.Config{
		Webserver: config.Webserver{URL: "https://profile.test"},
		OAuth2: config.OAuth2{
			FirstPartyApps:    []string{"first-party"},
			LogoutFallbackURL: "https://fallback.test",
		},
		Scopes: []config.Scope{
			{ID: "openid", Name: "OpenID", Desc: "Sign you in"},
			{ID: "profile", Name: "Profile", Desc: "Read your name"},
		},
	}
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.Open(t)

	h := hydratest.NewServer()
	t.Cleanup(h.Close)

	k := ketotest.NewServer()
	t.Cleanup(k.Close)

	hasher, err := password.New(password.SHA256, "test-key")
	require.NoError(t, err)

	store, err := personstore.New(db, hasher)
	require.NoError(t, err)

	admin, err := hydra.New(context.Background(), hydra.Config{AdminURL: h.URL, Timeout: time.Second})
	require.NoError(t, err)

	policies := policy.New(keto.New(k.URL, time.Second, false), db, "")
	people := person.New(store, policies, admin, []string{"dcd:groups:user"})

	_, err = people.Register(context.Background(), person.Registration{
		ID: aliceID, Name: "Alice", Email: "alice@x.com", Password: alicePassword,
	})
	require.NoError(t, err)

	return &fixture{
		ctrl:  New(admin, people, testConfig()),
		hydra: h,
		keto:  k,
		ctx:   context.Background(),
	}
}

func (f *fixture) lastDecision(t *testing.T) hydratest.Decision {
	t.Helper()

	d := f.hydra.Decisions()
	require.NotEmpty(t, d)

	return d[len(d)-1]
}

func TestLoginChallenge(t *testing.T) {
	f := setup(t)
	f.hydra.AddLogin(hydra.LoginRequest{Challenge: "fresh", Client: hydra.Client{ClientID: "app", ClientName: "App"}})
	f.hydra.AddLogin(hydra.LoginRequest{Challenge: "known", Skip: true, Subject: aliceID})

	t.Run("form", func(t *testing.T) {
		step, err := f.ctrl.LoginChallenge(f.ctx, "fresh", "csrf-1")
		require.NoError(t, err)
		assert.Empty(t, step.RedirectTo)

		ui, ok := step.Body().(LoginUI)
		require.True(t, ok)
		assert.Equal(t, "https://profile.test", ui.BaseURL)
		assert.Equal(t, "csrf-1", ui.CSRFToken)
		assert.Equal(t, "fresh", ui.Challenge)
		assert.Equal(t, FormError{}, ui.Error)
		require.NotNil(t, ui.Client)
		assert.Equal(t, "App", ui.Client.ClientName)
		assert.Empty(t, f.hydra.Decisions())
	})

	t.Run("skip", func(t *testing.T) {
		step, err := f.ctrl.LoginChallenge(f.ctx, "known", "csrf-1")
		require.NoError(t, err)
		assert.Equal(t, hydratest.RedirectBase+"login/accept?challenge=known", step.RedirectTo)
		assert.Equal(t, Redirect{RedirectTo: step.RedirectTo}, step.Body())

		d := f.lastDecision(t)
		assert.Equal(t, "accept", d.Action)
		assert.Equal(t, aliceID, d.Body["subject"])
	})

	t.Run("unknown challenge", func(t *testing.T) {
		_, err := f.ctrl.LoginChallenge(f.ctx, "nope", "csrf-1")
		require.Error(t, err)
		assert.True(t, apperror.Is(err, apperror.UpstreamError))
	})

	t.Run("empty challenge", func(t *testing.T) {
		_, err := f.ctrl.LoginChallenge(f.ctx, "", "csrf-1")
		assert.True(t, apperror.Is(err, apperror.ValidationError))
	})
}

func TestSignIn(t *testing.T) {
	testCases := []struct {
		name     string
		email    string
		password string
		accepted bool
	}{
		{"email", "alice@x.com", alicePassword, true},
		{"id", aliceID, alicePassword, true},
		{"wrong password", "alice@x.com", "wrongpass1", false},
		{"unknown email", "bob@x.com", alicePassword, false},
		{"empty", "", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := setup(t)
			f.hydra.AddLogin(hydra.LoginRequest{Challenge: "c1"})

			step, err := f.ctrl.SignIn(f.ctx, SignInForm{
				Challenge: "c1", Email: tc.email, Password: tc.password, Remember: "true",
			})
			require.NoError(t, err)

			if !tc.accepted {
				ui, ok := step.UI.(LoginUI)
				require.True(t, ok)
				assert.Equal(t, MsgBadCredentials, ui.Error.Message)
				assert.Equal(t, "c1", ui.Challenge)
				assert.Empty(t, ui.CSRFToken)
				assert.Empty(t, f.hydra.Decisions())

				return
			}

			assert.NotEmpty(t, step.RedirectTo)

			d := f.lastDecision(t)
			assert.Equal(t, "login", d.Flow)
			assert.Equal(t, aliceID, d.Body["subject"])
			assert.Equal(t, true, d.Body["remember"])
			assert.InDelta(t, RememberFor, d.Body["remember_for"], 0)
		})
	}
}

func TestSignUp(t *testing.T) {
	f := setup(t)
	f.hydra.AddLogin(hydra.LoginRequest{Challenge: "c2"})

	step, err := f.ctrl.SignUp(f.ctx, SignUpForm{
		Challenge: "c2", ID: "dcd:persons:bob", Name: "Bob", Email: "bob@x.com", Password: "bobspassword",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, step.RedirectTo)

	d := f.lastDecision(t)
	assert.Equal(t, "dcd:persons:bob", d.Body["subject"])
	assert.Equal(t, false, d.Body["remember"])

	t.Run("rejected input", func(t *testing.T) {
		testCases := []struct {
			name string
			form SignUpForm
			code int
		}{
			{"short password", SignUpForm{ID: "dcd:persons:carl", Name: "C", Email: "c@x.com", Password: "short"}, 4001},
			{"missing prefix", SignUpForm{ID: "carl", Name: "C", Email: "c@x.com", Password: "longenough"}, 4001},
			{"id taken", SignUpForm{ID: aliceID, Name: "A", Email: "other@x.com", Password: "longenough"}, 4002},
			{"email taken", SignUpForm{ID: "dcd:persons:carl", Name: "C", Email: "alice@x.com", Password: "longenough"}, 4002},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				before := len(f.hydra.Decisions())
				tc.form.Challenge = "c2"

				step, err := f.ctrl.SignUp(f.ctx, tc.form)
				require.NoError(t, err)

				ui, ok := step.UI.(LoginUI)
				require.True(t, ok)
				assert.Equal(t, tc.code, ui.Error.Code)
				assert.NotEmpty(t, ui.Error.Message)
				assert.Len(t, f.hydra.Decisions(), before)
			})
		}
	})
}

func TestSignUpPolicyEngineDown(t *testing.T) {
	f := setup(t)
	f.hydra.AddLogin(hydra.LoginRequest{Challenge: "c3"})
	f.keto.Down(true)

	_, err := f.ctrl.SignUp(f.ctx, SignUpForm{
		Challenge: "c3", ID: "dcd:persons:dan", Name: "Dan", Email: "dan@x.com", Password: "danspassword",
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.UpstreamError))
	assert.Empty(t, f.hydra.Decisions())
}

func TestConsentChallenge(t *testing.T) {
	f := setup(t)
	f.hydra.AddConsent(hydra.ConsentRequest{
		Challenge:      "ask",
		Subject:        aliceID,
		RequestedScope: []string{"openid", "profile", "dcd:things"},
		Client:         hydra.Client{ClientID: "third-party"},
	})
	f.hydra.AddConsent(hydra.ConsentRequest{
		Challenge:                    "trusted",
		Subject:                      aliceID,
		RequestedScope:               []string{"openid", "email"},
		RequestedAccessTokenAudience: []string{"https://api.test"},
		Client:                       hydra.Client{ClientID: "first-party"},
	})
	f.hydra.AddConsent(hydra.ConsentRequest{
		Challenge:      "again",
		Skip:           true,
		Subject:        aliceID,
		RequestedScope: []string{"profile"},
		Client:         hydra.Client{ClientID: "third-party"},
	})

	t.Run("form", func(t *testing.T) {
		step, err := f.ctrl.ConsentChallenge(f.ctx, "ask", "csrf-2")
		require.NoError(t, err)

		ui, ok := step.UI.(ConsentUI)
		require.True(t, ok)
		assert.Equal(t, "csrf-2", ui.CSRFToken)
		assert.Equal(t, "openid,profile,dcd:things", ui.Scopes)
		assert.Equal(t, []config.Scope{
			{ID: "openid", Name: "OpenID", Desc: "Sign you in"},
			{ID: "profile", Name: "Profile", Desc: "Read your name"},
			{ID: "dcd:things", Name: "dcd:things"},
		}, ui.RequestedScope)
		require.NotNil(t, ui.User)
		assert.Equal(t, "alice@x.com", ui.User.Email)
		assert.Empty(t, ui.User.Password)
		assert.Empty(t, f.hydra.Decisions())
	})

	t.Run("first party", func(t *testing.T) {
		step, err := f.ctrl.ConsentChallenge(f.ctx, "trusted", "csrf-2")
		require.NoError(t, err)
		assert.Equal(t, hydratest.RedirectBase+"consent/accept?challenge=trusted", step.RedirectTo)

		d := f.lastDecision(t)
		assert.Equal(t, []any{"openid", "email"}, d.Body["grant_scope"])
		assert.Equal(t, []any{"https://api.test"}, d.Body["grant_access_token_audience"])

		session, ok := d.Body["session"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, map[string]any{"email": "alice@x.com", "email_verified": false}, session["id_token"])
	})

	t.Run("skip", func(t *testing.T) {
		step, err := f.ctrl.ConsentChallenge(f.ctx, "again", "csrf-2")
		require.NoError(t, err)
		assert.NotEmpty(t, step.RedirectTo)

		session, ok := f.lastDecision(t).Body["session"].(map[string]any)
		require.True(t, ok)
		idToken, ok := session["id_token"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "alice", idToken["username"])
	})
}

func TestConsent(t *testing.T) {
	f := setup(t)
	f.hydra.AddConsent(hydra.ConsentRequest{
		Challenge:                    "c4",
		Subject:                      aliceID,
		RequestedScope:               []string{"openid", "profile", "email"},
		RequestedAccessTokenAudience: []string{"https://api.test"},
		Client:                       hydra.Client{ClientID: "third-party"},
	})

	t.Run("deny", func(t *testing.T) {
		step, err := f.ctrl.Consent(f.ctx, ConsentForm{Challenge: "c4", Submit: SubmitDeny})
		require.NoError(t, err)
		assert.Equal(t, hydratest.RedirectBase+"consent/reject?challenge=c4", step.RedirectTo)

		d := f.lastDecision(t)
		assert.Equal(t, "access_denied", d.Body["error"])
		assert.Equal(t, "The resource owner denied the request", d.Body["error_description"])
	})

	t.Run("allow", func(t *testing.T) {
		step, err := f.ctrl.Consent(f.ctx, ConsentForm{
			Challenge: "c4", Submit: "Allow access", Scopes: "openid, profile", Remember: "on",
		})
		require.NoError(t, err)
		assert.Equal(t, hydratest.RedirectBase+"consent/accept?challenge=c4", step.RedirectTo)

		d := f.lastDecision(t)
		assert.Equal(t, []any{"openid", "profile"}, d.Body["grant_scope"])
		assert.Equal(t, true, d.Body["remember"])
		assert.InDelta(t, RememberFor, d.Body["remember_for"], 0)

		session, ok := d.Body["session"].(map[string]any)
		require.True(t, ok)
		idToken, ok := session["id_token"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, aliceID, idToken["sub"])
		assert.NotContains(t, idToken, "email")
	})
}

func TestLogout(t *testing.T) {
	f := setup(t)
	f.hydra.AddLogout("bye", hydra.LogoutRequest{Subject: aliceID})

	step, err := f.ctrl.LogoutChallenge(f.ctx, "bye", "csrf-3")
	require.NoError(t, err)
	assert.Equal(t, LogoutUI{CSRFToken: "csrf-3", Challenge: "bye"}, step.UI)

	_, err = f.ctrl.LogoutChallenge(f.ctx, "unknown", "csrf-3")
	require.Error(t, err)

	step, err = f.ctrl.Logout(f.ctx, LogoutForm{Challenge: "bye", Submit: SubmitNo})
	require.NoError(t, err)
	assert.Equal(t, "https://fallback.test", step.RedirectTo)
	assert.Equal(t, "reject", f.lastDecision(t).Action)

	step, err = f.ctrl.Logout(f.ctx, LogoutForm{Challenge: "bye", Submit: "Yes"})
	require.NoError(t, err)
	assert.Equal(t, hydratest.RedirectBase+"logout/accept?challenge=bye", step.RedirectTo)
}

func TestTruthy(t *testing.T) {
	for v, want := range map[string]bool{
		"": false, "true": true, "1": true, "on": true, "yes": true,
		"false": false, "0": false, "off": false, "no": false,
	} {
		assert.Equal(t, want, Truthy(v), v)
	}
}
