package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrEmptyHydraAdminURL error if config oauth2.hydraAdminURL is empty.
	ErrEmptyHydraAdminURL = errors.New("toml config oauth2.hydraAdminURL can not be empty")

	// ErrEmptyKetoURL error if config policy.ketoURL is empty.
	ErrEmptyKetoURL = errors.New("toml config policy.ketoURL can not be empty")

	// ErrEmptyCryptoKey error if config crypto.key is empty.
	ErrEmptyCryptoKey = errors.New("toml config crypto.key can not be empty")

	// ErrUnsupportedDBEngine error if config db.engine is not postgres, mysql or sqlite.
	ErrUnsupportedDBEngine = errors.New("toml config db.engine is not supported")

	// ErrUnsupportedCSRFStorage error if config webserver.csrf.storage is not memory, postgres or mysql.
	ErrUnsupportedCSRFStorage = errors.New("toml config webserver.csrf.storage is not supported")
)
