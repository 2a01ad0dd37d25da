package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"
)

const (
	// CLI configuration
	CLIName    = "bootstrap"
	CLIVersion = "1.0.0"

	// Shipped placeholder values. A run refuses to start while either is unchanged.
	PlaceholderUser   = "CHANGE_ME"
	PlaceholderSSHKey = "ssh-ed25519 AAAA... CHANGE_ME"

	EnvPrefix = "bootstrap"
)

var (
	ErrPlaceholder = errors.New("placeholder value not customized")
	ErrInvalid     = errors.New("invalid configuration")
)

// DefaultPackages is installed after the system upgrade.
var DefaultPackages = []string{
	"sudo",
	"ufw",
	"fail2ban",
	"unattended-upgrades",
	"apt-listchanges",
	"locales",
	"openssh-server",
	"curl",
	"ca-certificates",
}

// Debian's default NAME_REGEX, capped at the 32 character login limit.
var usernamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_-]{0,31}$`)

var rebootTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

type Config struct {
	User     string         `mapstructure:"user" yaml:"user"`
	SSHKey   string         `mapstructure:"ssh_key" yaml:"ssh_key"`
	Timezone string         `mapstructure:"timezone" yaml:"timezone"`
	Locale   string         `mapstructure:"locale" yaml:"locale"`
	Packages []string       `mapstructure:"packages" yaml:"packages"`
	Fail2ban Fail2banConfig `mapstructure:"fail2ban" yaml:"fail2ban"`
	Upgrades UpgradesConfig `mapstructure:"upgrades" yaml:"upgrades"`
	LogDir   string         `mapstructure:"log_dir" yaml:"log_dir"`
}

// Fail2banConfig holds the [DEFAULT] thresholds of jail.local, in seconds and attempts.
type Fail2banConfig struct {
	BanTime  int `mapstructure:"bantime" yaml:"bantime"`
	FindTime int `mapstructure:"findtime" yaml:"findtime"`
	MaxRetry int `mapstructure:"maxretry" yaml:"maxretry"`
}

type UpgradesConfig struct {
	RebootTime string `mapstructure:"reboot_time" yaml:"reboot_time"`
}

// Default returns the compiled-in configuration, placeholders included.
func Default() *Config {
	return &Config{
		User:     PlaceholderUser,
		SSHKey:   PlaceholderSSHKey,
		Timezone: "UTC",
		Locale:   "en_US.UTF-8",
		Packages: append([]string(nil), DefaultPackages...),
		Fail2ban: Fail2banConfig{BanTime: 3600, FindTime: 600, MaxRetry: 5},
		Upgrades: UpgradesConfig{RebootTime: "02:00"},
		LogDir:   "/tmp",
	}
}

// defaults flattens Default into viper keys.
func defaults() map[string]any {
	d := Default()
	return map[string]any{
		"user":                 d.User,
		"ssh_key":              d.SSHKey,
		"timezone":             d.Timezone,
		"locale":               d.Locale,
		"packages":             d.Packages,
		"fail2ban.bantime":     d.Fail2ban.BanTime,
		"fail2ban.findtime":    d.Fail2ban.FindTime,
		"fail2ban.maxretry":    d.Fail2ban.MaxRetry,
		"upgrades.reboot_time": d.Upgrades.RebootTime,
		"log_dir":              d.LogDir,
	}
}

// flagKeys maps config keys to the command-line flags that may override them.
var flagKeys = map[string]string{
	"user":     "user",
	"ssh_key":  "ssh-key",
	"timezone": "timezone",
	"log_dir":  "log-dir",
}

// Load resolves the configuration from defaults, the YAML file, BOOTSTRAP_*
// environment variables and flags, in increasing precedence. An explicit path
// must exist; the default search locations may be empty.
func Load(flags *pflag.FlagSet, path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(ConfigDir)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	c.User = strings.TrimSpace(c.User)
	c.SSHKey = strings.TrimSpace(c.SSHKey)

	return &c, nil
}

// Validate rejects placeholder and malformed values. It must pass before any
// host mutation.
func (c *Config) Validate() error {
	if c.User == "" || c.User == PlaceholderUser {
		return fmt.Errorf("%w: user must be set (currently %q)", ErrPlaceholder, c.User)
	}
	if c.SSHKey == "" || c.SSHKey == PlaceholderSSHKey {
		return fmt.Errorf("%w: ssh_key must be set to a real public key", ErrPlaceholder)
	}
	if !usernamePattern.MatchString(c.User) {
		return fmt.Errorf("%w: %q is not a valid login name", ErrInvalid, c.User)
	}
	if c.User == "root" {
		return fmt.Errorf("%w: user must be a non-root account", ErrInvalid)
	}
	if _, err := c.PublicKey(); err != nil {
		return err
	}
	if c.Timezone == "" {
		return fmt.Errorf("%w: timezone is empty", ErrInvalid)
	}
	if c.Locale == "" {
		return fmt.Errorf("%w: locale is empty", ErrInvalid)
	}
	if len(c.Packages) == 0 {
		return fmt.Errorf("%w: package list is empty", ErrInvalid)
	}
	if c.Fail2ban.BanTime <= 0 || c.Fail2ban.FindTime <= 0 || c.Fail2ban.MaxRetry <= 0 {
		return fmt.Errorf("%w: fail2ban thresholds must be positive", ErrInvalid)
	}
	if !rebootTimePattern.MatchString(c.Upgrades.RebootTime) {
		return fmt.Errorf("%w: reboot_time %q is not HH:MM", ErrInvalid, c.Upgrades.RebootTime)
	}
	return nil
}

// PublicKey parses the configured key as a single authorized_keys line.
func (c *Config) PublicKey() (ssh.PublicKey, error) {
	if strings.ContainsAny(c.SSHKey, "\r\n") {
		return nil, fmt.Errorf("%w: ssh_key must be a single line", ErrInvalid)
	}
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(c.SSHKey))
	if err != nil {
		return nil, fmt.Errorf("%w: ssh_key: %v", ErrInvalid, err)
	}
	return pub, nil
}

// KeyFingerprint returns the SHA256 fingerprint of the configured key, or "" if it does not parse.
func (c *Config) KeyFingerprint() string {
	pub, err := c.PublicKey()
	if err != nil {
		return ""
	}
	return ssh.FingerprintSHA256(pub)
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return buf.Bytes(), nil
}

const starterHeader = `# bootstrap configuration
# Replace user and ssh_key before running "bootstrap run".
# Values may also come from BOOTSTRAP_<KEY> environment variables or flags.
`

// WriteStarter writes a configuration file holding the defaults. It never
// overwrites an existing file.
func WriteStarter(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	data, err := Default().Marshal()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", filepath.Dir(path), err)
	}
	// The file names the admin account and key; keep it private.
	if err := os.WriteFile(path, append([]byte(starterHeader), data...), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
