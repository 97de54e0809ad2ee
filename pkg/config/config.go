// Package config loads the herd configuration file.
//
// Scalar settings, providers and clusters are read with viper, so every key
// can be overridden from the environment with the HERD_ prefix, for example
// HERD_PROVIDERS_HETZNER_TOKEN. Task tables are decoded separately to keep
// the order their keys are declared in.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/xetys/herd/pkg/clustermanager"
	"github.com/xetys/herd/pkg/tasks"
)

// EnvPrefix prefixes environment overrides
const EnvPrefix = "HERD"

// Config is the loaded configuration
type Config struct {
	ParallelConnections int                      `mapstructure:"parallel_connections" validate:"min=1"`
	ReadinessTimeout    time.Duration            `mapstructure:"readiness_timeout" validate:"gte=0"`
	Providers           ProvidersConfig          `mapstructure:"providers"`
	Clusters            map[string]ClusterConfig `mapstructure:"clusters" validate:"dive"`
	SSH                 SSHConfig                `mapstructure:"ssh"`
	Tasks               map[string]tasks.Task    `mapstructure:"-"`
}

// ProvidersConfig holds the credentials of each provider
type ProvidersConfig struct {
	Hetzner HetznerConfig `mapstructure:"hetzner"`
}

// HetznerConfig configures the Hetzner Cloud gateway
type HetznerConfig struct {
	Token              string  `mapstructure:"token"`
	DefaultRegion      string  `mapstructure:"default_region"`
	Network            string  `mapstructure:"network"`
	MutationsPerSecond float64 `mapstructure:"mutations_per_second" validate:"gte=0"`
}

// ClusterConfig is one [clusters.<name>] table
type ClusterConfig struct {
	Name              string   `mapstructure:"-"`
	Provider          string   `mapstructure:"provider" validate:"oneof=hetzner"`
	Region            string   `mapstructure:"region"`
	RegionSuffix      bool     `mapstructure:"region_suffix"`
	ServerCount       int      `mapstructure:"server_count" validate:"gte=0"`
	MinCores          int      `mapstructure:"min_cores" validate:"gte=0"`
	MinRAM            int      `mapstructure:"min_ram" validate:"gte=0"`
	MinDisk           int      `mapstructure:"min_disk" validate:"gte=0"`
	MaxMonthlyCost    float64  `mapstructure:"max_monthly_cost" validate:"gt=0"`
	Image             string   `mapstructure:"image" validate:"required"`
	SSHKeys           []string `mapstructure:"ssh_keys"`
	Backups           bool     `mapstructure:"backups"`
	IPv6              bool     `mapstructure:"ipv6"`
	PrivateNetworking bool     `mapstructure:"private_networking"`
}

// SSHConfig holds the credentials used to log into nodes
type SSHConfig struct {
	Path       string `mapstructure:"path"`
	Password   string `mapstructure:"password"`
	User       string `mapstructure:"user" validate:"required"`
	Port       int    `mapstructure:"port" validate:"min=1,max=65535"`
	KnownHosts string `mapstructure:"known_hosts"`
}

var clusterDefaults = map[string]interface{}{
	"provider":         "hetzner",
	"min_cores":        1,
	"min_ram":          256,
	"min_disk":         10,
	"max_monthly_cost": 20.0,
	"image":            "ubuntu-22.04",
}

// Load reads and validates the configuration file at path
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	// viper lowercases keys, so cluster names are matched case-insensitively
	for name, cluster := range cfg.Clusters {
		if err := applyClusterDefaults(v, name, &cluster); err != nil {
			return nil, err
		}
		cluster.Name = name
		cfg.Clusters[name] = cluster
	}

	if err := expandPaths(&cfg.SSH); err != nil {
		return nil, err
	}

	taskTable, err := loadTasks(path)
	if err != nil {
		return nil, err
	}
	cfg.Tasks = taskTable

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("parallel_connections", clustermanager.DefaultConcurrency)
	v.SetDefault("readiness_timeout", clustermanager.DefaultReadinessOptions().Timeout.String())

	v.SetDefault("providers.hetzner.token", "")
	v.SetDefault("providers.hetzner.default_region", "fsn1")
	v.SetDefault("providers.hetzner.network", "")
	v.SetDefault("providers.hetzner.mutations_per_second", 2)

	v.SetDefault("ssh.path", "~/.ssh/id_rsa")
	v.SetDefault("ssh.password", "")
	v.SetDefault("ssh.user", "root")
	v.SetDefault("ssh.port", 22)
	v.SetDefault("ssh.known_hosts", "")
}

func applyClusterDefaults(v *viper.Viper, name string, cluster *ClusterConfig) error {
	sub := v.Sub("clusters." + name)
	if sub == nil {
		return fmt.Errorf("cluster '%s' must be a table", name)
	}
	for key, value := range clusterDefaults {
		if !sub.IsSet(key) {
			sub.Set(key, value)
		}
	}
	return sub.Unmarshal(cluster)
}

func expandPaths(ssh *SSHConfig) error {
	var err error
	if ssh.Path, err = homedir.Expand(ssh.Path); err != nil {
		return fmt.Errorf("expanding ssh.path: %w", err)
	}
	if ssh.KnownHosts, err = homedir.Expand(ssh.KnownHosts); err != nil {
		return fmt.Errorf("expanding ssh.known_hosts: %w", err)
	}
	return nil
}

func validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			messages := make([]string, 0, len(invalid))
			for _, fieldErr := range invalid {
				messages = append(messages, fmt.Sprintf("%s: failed on '%s'", fieldErr.Namespace(), fieldErr.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(messages, ", "))
		}
		return err
	}

	if err := clustermanager.CheckNaming(cfg.ClusterSpecs(), cfg.Providers.Hetzner.DefaultRegion); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ClusterNames returns the configured cluster names in sorted order
func (c *Config) ClusterNames() []string {
	names := make([]string, 0, len(c.Clusters))
	for name := range c.Clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cluster returns the spec of a configured cluster
func (c *Config) Cluster(name string) (clustermanager.ClusterSpec, error) {
	cluster, ok := c.Clusters[strings.ToLower(name)]
	if !ok {
		return clustermanager.ClusterSpec{}, fmt.Errorf("cluster '%s' not found", name)
	}
	return cluster.Spec(), nil
}

// ClusterSpecs returns the specs of all clusters sorted by name
func (c *Config) ClusterSpecs() []clustermanager.ClusterSpec {
	specs := make([]clustermanager.ClusterSpec, 0, len(c.Clusters))
	for _, name := range c.ClusterNames() {
		specs = append(specs, c.Clusters[name].Spec())
	}
	return specs
}

// Spec converts the cluster table into the desired state of the cluster
func (c ClusterConfig) Spec() clustermanager.ClusterSpec {
	return clustermanager.ClusterSpec{
		Name:         c.Name,
		Provider:     c.Provider,
		Region:       c.Region,
		RegionSuffix: c.RegionSuffix,
		DesiredCount: c.ServerCount,
		Constraints: clustermanager.Constraints{
			MinCores:       c.MinCores,
			MinRAM:         c.MinRAM,
			MinDisk:        c.MinDisk,
			MaxMonthlyCost: c.MaxMonthlyCost,
		},
		Image:             c.Image,
		SSHKeys:           c.SSHKeys,
		Backups:           c.Backups,
		IPv6:              c.IPv6,
		PrivateNetworking: c.PrivateNetworking,
	}
}

// SSHCommunicatorConfig returns the SSH settings for the communicator
func (c *Config) SSHCommunicatorConfig() clustermanager.SSHConfig {
	return clustermanager.SSHConfig{
		User:           c.SSH.User,
		Port:           c.SSH.Port,
		KeyPath:        c.SSH.Path,
		Password:       c.SSH.Password,
		KnownHostsPath: c.SSH.KnownHosts,
	}
}
