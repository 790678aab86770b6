package daemon

import (
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/datacentricdesign/profile-api/internal/config"
	"github.com/datacentricdesign/profile-api/internal/db/dsn"
	"github.com/datacentricdesign/profile-api/internal/db/models"
	"github.com/datacentricdesign/profile-api/internal/logger/adapter/stdlogger"
)

const slowQueryThreshold = 200 * time.Millisecond

// ErrUnsupportedEngine is returned for an unknown DB.Engine.
var ErrUnsupportedEngine = errors.New("unsupported database engine")

func dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DB.Engine {
	case config.DBEnginePostgres:
		return postgres.Open(dsn.Create(cfg)), nil
	case config.DBEngineMySQL:
		return gormmysql.Open(dsn.Create(cfg)), nil
	case config.DBEngineSQLite:
		return sqlite.Open(dsn.Create(cfg)), nil
	default:
		return nil, errors.Wrap(ErrUnsupportedEngine, cfg.DB.Engine)
	}
}

// OpenDB connects to the configured database and migrates the tables.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	level := gormlogger.Warn
	if cfg.DevMode {
		level = gormlogger.Info
	}

	db, err := gorm.Open(d, &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(stdlogger.New("gorm"), gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	if err = db.AutoMigrate(
		&models.Person{},
		&models.Role{},
	); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	return db, nil
}
