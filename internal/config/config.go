// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix of env variables overriding single config keys, e.g. PROFILE_WEBSERVER_PORT.
	EnvPrefix = "PROFILE"

	// EnvConfigJSON is the env variable holding a JSON document merged over the file config.
	EnvConfigJSON = "PROFILE_API_CONFIG_JSON"

	defaultShutDownTime   = 5
	defaultRequestTimeout = 15 * time.Second
	defaultLogoutFallback = "https://dwd.tudelft.nl"
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(path, "main.toml"))
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	if err = v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("webserver.shutdowntime", defaultShutDownTime)
	v.SetDefault("webserver.csrf.storage", CSRFStorageMemory)
	v.SetDefault("oauth2.requesttimeout", defaultRequestTimeout)
	v.SetDefault("oauth2.logoutfallbackurl", defaultLogoutFallback)
	v.SetDefault("policy.checkflavor", "regex")
	v.SetDefault("crypto.algorithm", "sha256")
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read json config override")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate the config settings the service can not start without
// and fills in defaults for the optional ones.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.OAuth2.HydraAdminURL == "" {
		return errors.Wrap(ErrEmptyHydraAdminURL, invalidErrMessage)
	}

	if c.Policy.KetoURL == "" {
		return errors.Wrap(ErrEmptyKetoURL, invalidErrMessage)
	}

	if c.Crypto.Key == "" {
		return errors.Wrap(ErrEmptyCryptoKey, invalidErrMessage)
	}

	switch c.DB.Engine {
	case DBEnginePostgres, DBEngineMySQL, DBEngineSQLite:
	default:
		return errors.Wrapf(ErrUnsupportedDBEngine, "%s: %q", invalidErrMessage, c.DB.Engine)
	}

	switch c.Webserver.CSRF.Storage {
	case "":
		c.Webserver.CSRF.Storage = CSRFStorageMemory
	case CSRFStorageMemory, CSRFStoragePostgres, CSRFStorageMySQL:
	default:
		return errors.Wrapf(ErrUnsupportedCSRFStorage, "%s: %q", invalidErrMessage, c.Webserver.CSRF.Storage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTime
	}

	if c.OAuth2.RequestTimeout == 0 {
		c.OAuth2.RequestTimeout = defaultRequestTimeout
	}

	if c.OAuth2.LogoutFallbackURL == "" {
		c.OAuth2.LogoutFallbackURL = defaultLogoutFallback
	}

	if len(c.Policy.DefaultGroups) == 0 {
		c.Policy.DefaultGroups = []string{"dcd:groups:public", "dcd:groups:user"}
	}

	if c.Policy.CheckFlavor == "" {
		c.Policy.CheckFlavor = "regex"
	}

	return nil
}
