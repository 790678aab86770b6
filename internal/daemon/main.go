// Package daemon wires the profile service: database, authorization server,
// policy engine, services and web server.
package daemon

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/datacentricdesign/profile-api/internal/auth"
	"github.com/datacentricdesign/profile-api/internal/config"
	personstore "github.com/datacentricdesign/profile-api/internal/db/controller/person"
	"github.com/datacentricdesign/profile-api/internal/flow"
	"github.com/datacentricdesign/profile-api/internal/hydra"
	"github.com/datacentricdesign/profile-api/internal/keto"
	"github.com/datacentricdesign/profile-api/internal/password"
	"github.com/datacentricdesign/profile-api/internal/person"
	"github.com/datacentricdesign/profile-api/internal/policy"
	"github.com/datacentricdesign/profile-api/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
}

// Start starts the Daemon's web service and blocks until it stops.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// New creates a new Daemon instance with the provided configuration.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	return Wire(ctx, cfg, db)
}

// Wire builds the services on top of db and creates the web service.
func Wire(ctx context.Context, cfg *config.Config, db *gorm.DB) (*Daemon, error) {
	tokenURL := cfg.OAuth2.TokenURL
	if tokenURL == "" && cfg.OAuth2.ClientID != "" {
		var err error
		if tokenURL, err = hydra.DiscoverTokenURL(ctx, cfg.OAuth2.IssuerURL); err != nil {
			return nil, err
		}

		log.Info().Str("tokenURL", tokenURL).Msg("token endpoint discovered")
	}

	admin, err := hydra.New(ctx, hydra.Config{
		AdminURL:     cfg.OAuth2.HydraAdminURL,
		TokenURL:     tokenURL,
		ClientID:     cfg.OAuth2.ClientID,
		ClientSecret: cfg.OAuth2.ClientSecret,
		Scopes:       cfg.OAuth2.Scope,
		Timeout:      cfg.OAuth2.RequestTimeout,
		Secured:      cfg.Webserver.Secured,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.New(cfg.Crypto.Algorithm, cfg.Crypto.Key)
	if err != nil {
		return nil, err
	}

	store, err := personstore.New(db, hasher)
	if err != nil {
		return nil, err
	}

	engine := keto.New(cfg.Policy.KetoURL, cfg.OAuth2.RequestTimeout, cfg.Webserver.Secured)
	policies := policy.New(engine, db, cfg.Policy.CheckFlavor)
	people := person.New(store, policies, admin, cfg.Policy.DefaultGroups)

	seed(ctx, cfg.Admin, people, policies)

	webService, err := web.New(cfg, web.Deps{
		Flow:         flow.New(admin, people, cfg),
		Introspector: auth.NewIntrospector(admin),
		Persons:      people,
		Groups:       policies,
		Clients:      admin,
	})
	if err != nil {
		return nil, err
	}

	return &Daemon{cfg: cfg, webService: webService}, nil
}
