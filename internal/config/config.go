// Package config manages git-lab configuration: per-host credentials in the
// user's config directory and per-repository settings inside the git dir.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

const (
	ConfigDir  = "git-lab"
	ConfigFile = "config.toml"

	// ConfigEnv overrides the location of the global config file.
	ConfigEnv = "GIT_LAB_CONFIG"

	// SchemaVersion is the version written by Save.
	SchemaVersion = 1
)

// AuthType selects how a host credential is turned into a token.
type AuthType string

const (
	AuthToken   AuthType = "token"
	AuthCommand AuthType = "command"
)

// HostEntry is the stored configuration of one hosting instance.
type HostEntry struct {
	AuthType AuthType `toml:"auth_type"`
	Token    string   `toml:"token,omitempty"`
	Command  string   `toml:"command,omitempty"`

	// WorkBranchPrefix is the reserved branch prefix the instance expects
	// for branches pushed to upstream in the work branch workflow.
	WorkBranchPrefix string `toml:"work_branch_prefix,omitempty"`
}

// Config is the global git-lab configuration
type Config struct {
	Version int                   `toml:"version"`
	Hosts   map[string]*HostEntry `toml:"hosts"`
	path    string                // path to the config file
}

// defaultWorkBranchPrefixes lists instances known to reserve a branch prefix.
var defaultWorkBranchPrefixes = map[string]string{
	"invent.kde.org": "work/",
}

// DefaultPath returns the location of the global config file.
func DefaultPath() (string, error) {
	if p := os.Getenv(ConfigEnv); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(dir, ConfigDir, ConfigFile), nil
}

// Load loads the global configuration. A missing file yields an empty config.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile loads the configuration stored at path.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{Version: SchemaVersion, Hosts: map[string]*HostEntry{}, path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	// Files written before the schema was versioned carry no version key
	// but already use the version 1 layout.
	if cfg.Version == 0 {
		cfg.Version = SchemaVersion
	}
	if cfg.Version > SchemaVersion {
		return nil, fmt.Errorf("config %s has schema version %d, this git-lab understands up to %d",
			path, cfg.Version, SchemaVersion)
	}
	if cfg.Hosts == nil {
		cfg.Hosts = map[string]*HostEntry{}
	}

	for host, entry := range cfg.Hosts {
		if err := entry.validate(); err != nil {
			return nil, fmt.Errorf("config %s: host %s: %w", path, host, err)
		}
	}

	cfg.path = path
	return cfg, nil
}

// Save writes the configuration to disk with owner-only permissions,
// since it may contain tokens.
func (c *Config) Save() error {
	c.Version = SchemaVersion
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return os.WriteFile(c.path, data, 0600)
}

// Path returns the path of the config file
func (c *Config) Path() string {
	return c.path
}

// Credential returns the credential stored for hostname, matched exactly.
func (c *Config) Credential(hostname string) (Credential, bool) {
	entry, ok := c.Hosts[hostname]
	if !ok {
		return nil, false
	}
	switch entry.AuthType {
	case AuthCommand:
		return CommandCredential(entry.Command), true
	default:
		return TokenCredential(entry.Token), true
	}
}

// SetToken stores a personal access token for hostname.
func (c *Config) SetToken(hostname, token string) {
	entry := c.entry(hostname)
	entry.AuthType = AuthToken
	entry.Token = token
	entry.Command = ""
}

// SetCommand stores a command whose output is the token for hostname.
func (c *Config) SetCommand(hostname, command string) {
	entry := c.entry(hostname)
	entry.AuthType = AuthCommand
	entry.Command = command
	entry.Token = ""
}

// WorkBranchPrefix returns the reserved work branch prefix for hostname,
// or "" if the instance has no such convention.
func (c *Config) WorkBranchPrefix(hostname string) string {
	if entry, ok := c.Hosts[hostname]; ok && entry.WorkBranchPrefix != "" {
		return entry.WorkBranchPrefix
	}
	return defaultWorkBranchPrefixes[hostname]
}

// Instances returns the configured hostnames in sorted order.
func (c *Config) Instances() []string {
	hosts := make([]string, 0, len(c.Hosts))
	for h := range c.Hosts {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

func (c *Config) entry(hostname string) *HostEntry {
	if c.Hosts == nil {
		c.Hosts = map[string]*HostEntry{}
	}
	entry, ok := c.Hosts[hostname]
	if !ok {
		entry = &HostEntry{}
		c.Hosts[hostname] = entry
	}
	return entry
}

func (e *HostEntry) validate() error {
	switch e.AuthType {
	case AuthToken, "":
		if e.Token == "" {
			return fmt.Errorf("auth_type token requires a token")
		}
	case AuthCommand:
		if e.Command == "" {
			return fmt.Errorf("auth_type command requires a command")
		}
	default:
		return fmt.Errorf("unknown auth_type %q", e.AuthType)
	}
	return nil
}
