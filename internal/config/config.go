// Package config loads ratbagd and ratbagctl configuration.
//
// Values come from, in increasing priority: built-in defaults, the
// ratbagd.yaml file, RATBAGD_* environment variables and command line
// flags bound with BindFlags. Nested keys map to environment variables by
// replacing dots with underscores, so logging.level is RATBAGD_LOGGING_LEVEL.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/libratbag/ratbag-go/pkg/devicedb"
	"github.com/libratbag/ratbag-go/pkg/transport"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "RATBAGD"

// FileName is the configuration file name searched for without an explicit
// path. Any extension viper understands is accepted.
const FileName = "ratbagd"

// SearchPaths lists the directories searched for FileName, in order.
var SearchPaths = []string{".", "~/.config/ratbag", "/etc/ratbag"}

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Journal drivers.
const (
	JournalNone   = "none"
	JournalSQLite = "sqlite"
	JournalFile   = "file"
)

// Config is the root configuration.
type Config struct {
	// Address is where the daemon listens and the client dials.
	Address string `mapstructure:"address"`

	// DataDir holds the .device database. Empty disables live devices.
	DataDir string `mapstructure:"data_dir"`

	// Probes are the devices the daemon pretends to find on startup.
	Probes []ProbeConfig `mapstructure:"probes"`

	// TestDevices are description files loaded on startup.
	TestDevices []string `mapstructure:"test_devices"`

	Journal     JournalConfig   `mapstructure:"journal"`
	Discovery   DiscoveryConfig `mapstructure:"discovery"`
	ProtocolLog string          `mapstructure:"protocol_log"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Client      ClientConfig    `mapstructure:"client"`
}

// ProbeConfig describes one static probe.
type ProbeConfig struct {
	Sysname string `mapstructure:"sysname"`
	Name    string `mapstructure:"name"`
	Bus     uint16 `mapstructure:"bus"`
	VID     uint16 `mapstructure:"vid"`
	PID     uint16 `mapstructure:"pid"`
}

// Probe converts p to a device database probe.
func (p ProbeConfig) Probe() devicedb.Probe {
	return devicedb.Probe{Sysname: p.Sysname, Name: p.Name, BusType: p.Bus, VID: p.VID, PID: p.PID}
}

// JournalConfig selects where commits are journaled.
type JournalConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`

	// Keep bounds the SQLite journal per device on startup; 0 keeps all.
	Keep int `mapstructure:"keep"`
}

// DiscoveryConfig controls mDNS advertisement.
type DiscoveryConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Instance  string        `mapstructure:"instance"`
	Interface string        `mapstructure:"interface"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LoggingConfig controls operational logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ClientConfig holds ratbagctl settings.
type ClientConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// New returns a viper instance with defaults and environment overrides
// configured.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("address", transport.DefaultAddress)
	v.SetDefault("data_dir", "")
	v.SetDefault("test_devices", []string{})
	v.SetDefault("journal.driver", JournalNone)
	v.SetDefault("journal.path", "")
	v.SetDefault("journal.keep", 0)
	v.SetDefault("discovery.enabled", false)
	v.SetDefault("discovery.instance", "")
	v.SetDefault("discovery.interface", "")
	v.SetDefault("discovery.timeout", 3*time.Second)
	v.SetDefault("protocol_log", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("client.timeout", 10*time.Second)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds command line flags to configuration keys. Flag names map
// to keys by replacing dashes with underscores; names listed in aliases
// map to the given key instead.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, aliases map[string]string) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := aliases[f.Name]
		if !ok {
			key = strings.ReplaceAll(f.Name, "-", "_")
		}
		if bindErr := v.BindPFlag(key, f); bindErr != nil && err == nil {
			err = bindErr
		}
	})
	return err
}

// Load reads the configuration file and decodes the result. An empty path
// searches SearchPaths; a missing file is not an error then. An explicit
// path must exist.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("expanding config path: %w", err)
		}
		v.SetConfigFile(expanded)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName(FileName)
		for _, dir := range SearchPaths {
			if expanded, err := homedir.Expand(dir); err == nil {
				v.AddConfigPath(expanded)
			}
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading ~ in every file system path.
func (c *Config) expandPaths() error {
	paths := []*string{&c.DataDir, &c.Journal.Path, &c.ProtocolLog}
	for i := range c.TestDevices {
		paths = append(paths, &c.TestDevices[i])
	}
	for _, p := range paths {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expanding %q: %w", *p, err)
		}
		*p = expanded
	}

	if addr, ok := strings.CutPrefix(c.Address, "unix:"); ok && strings.HasPrefix(addr, "~") {
		expanded, err := homedir.Expand(addr)
		if err != nil {
			return fmt.Errorf("expanding %q: %w", c.Address, err)
		}
		c.Address = "unix:" + expanded
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if _, err := transport.ParseAddress(c.Address); err != nil {
		errs = append(errs, fmt.Errorf("%w: address: %v", ErrInvalid, err))
	}

	switch c.Journal.Driver {
	case JournalNone:
	case JournalSQLite, JournalFile:
		if c.Journal.Path == "" {
			errs = append(errs, fmt.Errorf("%w: journal.path is required for driver %q", ErrInvalid, c.Journal.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: journal.driver %q (want none, sqlite or file)", ErrInvalid, c.Journal.Driver))
	}
	if c.Journal.Keep < 0 {
		errs = append(errs, fmt.Errorf("%w: journal.keep must not be negative", ErrInvalid))
	}

	if len(c.Probes) > 0 && c.DataDir == "" {
		errs = append(errs, fmt.Errorf("%w: probes need data_dir", ErrInvalid))
	}
	seen := make(map[string]bool, len(c.Probes))
	for i, p := range c.Probes {
		if p.Sysname == "" {
			errs = append(errs, fmt.Errorf("%w: probes[%d].sysname is required", ErrInvalid, i))
			continue
		}
		if seen[p.Sysname] {
			errs = append(errs, fmt.Errorf("%w: probes[%d].sysname %q is duplicated", ErrInvalid, i, p.Sysname))
		}
		seen[p.Sysname] = true
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: logging.format %q (want text or json)", ErrInvalid, c.Logging.Format))
	}

	if c.Client.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: client.timeout must be positive", ErrInvalid))
	}
	return errors.Join(errs...)
}
