// Package config resolves nanotodo settings from defaults, a config file,
// the environment and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/arthur-debert/nanotodo/internal/logging"
	"github.com/arthur-debert/nanotodo/store"
	"github.com/spf13/viper"
)

// Setting keys
const (
	KeyPort          = "port"
	KeyStoreDriver   = "store.driver"
	KeyStorePath     = "store.path"
	KeyStoreURI      = "store.uri"
	KeyTelegramToken = "telegram.token"
	KeyServer        = "server"
	KeyLogLevel      = "log.level"
	KeyLogFile       = "log.file"
)

const (
	// EnvPrefix prefixes every environment override, e.g. NANOTODO_STORE_DRIVER
	EnvPrefix = "NANOTODO"
	// ConfigEnv names an explicit config file
	ConfigEnv = "NANOTODO_CONFIG"
	// ConfigName is the base name searched for in the config paths
	ConfigName = "nanotodo"
)

// Config is the resolved configuration
type Config struct {
	Port          int
	Store         store.Config
	TelegramToken string
	Server        string
	LogLevel      string
	LogFile       string
}

// Addr is the listen address for the HTTP server
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// New returns a viper instance with defaults, environment bindings and the
// config file loaded. configFile overrides NANOTODO_CONFIG; when both are
// empty the file is searched for and may be absent.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault(KeyPort, 3000)
	v.SetDefault(KeyStoreDriver, store.DriverJSON)
	v.SetDefault(KeyStorePath, "todos.json")
	v.SetDefault(KeyStoreURI, "mongodb://localhost:27017/todoapp")
	v.SetDefault(KeyTelegramToken, "")
	v.SetDefault(KeyServer, "http://localhost:3000")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Unprefixed names used by existing deployments
	bindings := map[string][]string{
		KeyPort:          {"NANOTODO_PORT", "PORT"},
		KeyStoreURI:      {"NANOTODO_STORE_URI", "MONGODB_URI"},
		KeyTelegramToken: {"NANOTODO_TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, err
		}
	}

	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}
	return v, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName(ConfigName)
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.nanotodo")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Load extracts and validates the configuration held by v
func Load(v *viper.Viper) (Config, error) {
	c := Config{
		Port: v.GetInt(KeyPort),
		Store: store.Config{
			Driver: strings.ToLower(v.GetString(KeyStoreDriver)),
			Path:   v.GetString(KeyStorePath),
			URI:    v.GetString(KeyStoreURI),
		},
		TelegramToken: v.GetString(KeyTelegramToken),
		Server:        v.GetString(KeyServer),
		LogLevel:      v.GetString(KeyLogLevel),
		LogFile:       v.GetString(KeyLogFile),
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the values that cannot be checked later without side effects
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Store.Driver != "mongo" && !slices.Contains(store.Drivers, c.Store.Driver) {
		return fmt.Errorf("unknown store driver %q (want one of %s)", c.Store.Driver, strings.Join(store.Drivers, ", "))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
