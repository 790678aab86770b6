// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/datacentricdesign/profile-api/internal/config"
)

// Create builds the gorm Data Source Name for the configured engine.
func Create(cfg *config.Config) string {
	db := cfg.DB

	switch db.Engine {
	case config.DBEngineMySQL:
		return mysqlDSN(db)
	case config.DBEngineSQLite:
		if db.Path == "" {
			return ":memory:"
		}

		return db.Path
	default:
		parts := []string{
			"host=" + db.Host,
			"port=" + strconv.Itoa(db.Port),
			"user=" + db.User,
			"password=" + db.Password,
			"dbname=" + db.Name,
		}
		if db.Extras != "" {
			parts = append(parts, db.Extras)
		}

		return strings.Join(parts, " ")
	}
}

// URI builds the connection string expected by the gofiber storage drivers.
// Postgres gets a URL, mysql the go-sql-driver DSN.
func URI(cfg *config.Config) string {
	db := cfg.DB

	if db.Engine == config.DBEngineMySQL {
		return mysqlDSN(db)
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(db.User, db.Password),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   "/" + db.Name,
	}

	// postgres extras are key=value pairs separated by spaces
	if db.Extras != "" {
		q := url.Values{}
		for _, kv := range strings.Fields(db.Extras) {
			if k, v, ok := strings.Cut(kv, "="); ok {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.String()
}

func mysqlDSN(db config.DB) string {
	out := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
		db.User,
		db.Password,
		db.Host,
		db.Port,
		db.Name,
	)

	if db.Extras != "" {
		out += "?" + db.Extras
	}

	return out
}
