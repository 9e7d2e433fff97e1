// Package config layers fleetctl settings: command-line flags, then
// FLEETCTL_* environment variables, then an optional fleetctl.{toml,yaml}
// file, then defaults.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/eniac111/fleetctl/internal/ssh"
	"github.com/eniac111/fleetctl/internal/types"
)

const (
	EnvPrefix = "fleetctl"
	FileName  = "fleetctl"
)

const (
	KeyInventory             = "inventory"
	KeyHostID                = "host_id"
	KeyHostTags              = "host_tags"
	KeyParallel              = "parallel"
	KeyWorkers               = "workers"
	KeyOutput                = "output"
	KeyConnectTimeout        = "connect_timeout"
	KeyKnownHosts            = "known_hosts"
	KeyIdentityFiles         = "identity_files"
	KeyInsecureIgnoreHostKey = "insecure_ignore_host_key"
	KeySSHConfig             = "ssh_config"
	KeyLogLevel              = "log_level"
)

const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

type Config struct {
	Inventory             string        `mapstructure:"inventory"`
	HostID                string        `mapstructure:"host_id"`
	HostTags              string        `mapstructure:"host_tags"`
	Parallel              bool          `mapstructure:"parallel"`
	Workers               int           `mapstructure:"workers"`
	Output                string        `mapstructure:"output"`
	ConnectTimeout        time.Duration `mapstructure:"connect_timeout"`
	KnownHosts            string        `mapstructure:"known_hosts"`
	IdentityFiles         []string      `mapstructure:"identity_files"`
	InsecureIgnoreHostKey bool          `mapstructure:"insecure_ignore_host_key"`
	SSHConfig             string        `mapstructure:"ssh_config"`
	LogLevel              string        `mapstructure:"log_level"`
}

// New returns a viper instance looking for the config file in dirs, or in
// the working directory and $HOME/.config/fleetctl when dirs is empty.
func New(dirs ...string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(FileName)
	if len(dirs) == 0 {
		dirs = append(dirs, ".")
		if home, err := os.UserHomeDir(); err == nil {
			dirs = append(dirs, filepath.Join(home, ".config", "fleetctl"))
		}
	}
	for _, d := range dirs {
		v.AddConfigPath(d)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyInventory, "")
	v.SetDefault(KeyHostID, "")
	v.SetDefault(KeyHostTags, "")
	v.SetDefault(KeyParallel, false)
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyOutput, OutputJSON)
	v.SetDefault(KeyConnectTimeout, ssh.DefaultConnectTimeout)
	v.SetDefault(KeyKnownHosts, "")
	v.SetDefault(KeyIdentityFiles, []string{})
	v.SetDefault(KeyInsecureIgnoreHostKey, false)
	v.SetDefault(KeySSHConfig, "")
	v.SetDefault(KeyLogLevel, "")
	return v
}

// Load reads the config file, if there is one, and decodes every layer.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, pkgerrors.Wrap(err, "read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, pkgerrors.Wrap(err, "decode config")
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Output {
	case OutputJSON, OutputYAML:
	default:
		return types.Errorf(types.ErrOther, "unsupported output format %q (want json or yaml)", c.Output)
	}
	if c.Workers < 0 {
		return types.Errorf(types.ErrOther, "workers must not be negative, got %d", c.Workers)
	}
	if c.ConnectTimeout < 0 {
		return types.Errorf(types.ErrOther, "connect_timeout must not be negative, got %s", c.ConnectTimeout)
	}
	return nil
}

// SSH returns the transport settings.
func (c Config) SSH() ssh.Config {
	return ssh.Config{
		KnownHostsFile:        c.KnownHosts,
		IdentityFiles:         c.IdentityFiles,
		InsecureIgnoreHostKey: c.InsecureIgnoreHostKey,
		SSHConfigFile:         c.SSHConfig,
		ConnectTimeout:        c.ConnectTimeout,
	}
}
