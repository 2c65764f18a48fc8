// Package config loads the calmanager configuration from a TOML file,
// CALMANAGER_* environment variables and command line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/guilherme-santos/calmanager/internal"
)

const (
	FileName  = "calmanager.toml"
	EnvPrefix = "CALMANAGER"
)

type Google struct {
	CredentialsFile   string  `mapstructure:"credentials_file" toml:"credentials_file"`
	RedirectAddr      string  `mapstructure:"redirect_addr" toml:"redirect_addr"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" toml:"requests_per_second"`
}

type CalDAV struct {
	URL      string `mapstructure:"url" toml:"url"`
	Username string `mapstructure:"username" toml:"username"`
	Password string `mapstructure:"password" toml:"password,omitempty"`
}

type Config struct {
	Source   string `mapstructure:"source" toml:"source"`
	Database string `mapstructure:"database" toml:"database"`
	LogFile  string `mapstructure:"log_file" toml:"log_file"`
	Verbose  bool   `mapstructure:"verbose" toml:"verbose"`

	Google Google `mapstructure:"google" toml:"google"`
	CalDAV CalDAV `mapstructure:"caldav" toml:"caldav"`
}

func Default() Config {
	dir := Dir()
	return Config{
		Source:   internal.PlatformLocal,
		Database: filepath.Join(dir, "calmanager.db"),
		LogFile:  filepath.Join(dir, "calmanager.log"),
		Google: Google{
			CredentialsFile:   filepath.Join(dir, "credentials.json"),
			RedirectAddr:      "localhost:8080",
			RequestsPerSecond: 5,
		},
	}
}

// Dir is where the configuration, the database and the logs live by
// default.
func Dir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "calmanager")
	}
	return "."
}

// Load reads the configuration. file may be empty, in which case FileName is
// looked up in the working directory and in Dir. flags, if not nil, are
// bound by their names (dashes standing for underscores).
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath(Dir())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var flagKeys = map[string]string{
	"source":   "source",
	"database": "db",
	"verbose":  "verbose",
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("source", cfg.Source)
	v.SetDefault("database", cfg.Database)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("google.credentials_file", cfg.Google.CredentialsFile)
	v.SetDefault("google.redirect_addr", cfg.Google.RedirectAddr)
	v.SetDefault("google.requests_per_second", cfg.Google.RequestsPerSecond)
	v.SetDefault("caldav.url", cfg.CalDAV.URL)
	v.SetDefault("caldav.username", cfg.CalDAV.Username)
	v.SetDefault("caldav.password", cfg.CalDAV.Password)
}

func (c Config) Validate() error {
	switch c.Source {
	case internal.PlatformLocal:
	case internal.PlatformGoogle:
		if c.Google.CredentialsFile == "" {
			return errors.New("config: google.credentials_file is required for the google source")
		}
	case internal.PlatformCalDAV:
		if c.CalDAV.URL == "" {
			return errors.New("config: caldav.url is required for the caldav source")
		}
	default:
		return fmt.Errorf("config: unknown source %q (expected %s, %s or %s)",
			c.Source, internal.PlatformLocal, internal.PlatformGoogle, internal.PlatformCalDAV)
	}
	if c.Database == "" {
		return errors.New("config: database is required")
	}
	return nil
}

// Write saves cfg to path as TOML, creating its directory. An existing file
// is left alone unless overwrite is set.
func Write(path string, cfg Config, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flag |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flag, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: encoding: %w", err)
	}
	return f.Close()
}
