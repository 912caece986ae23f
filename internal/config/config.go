package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/llehouerou/wavecord/internal/presence"
)

const appName = "wavecord"

// Defaults.
const (
	DefaultClientID = "1456601764731293911"
	DefaultListen   = "127.0.0.1:47321"
	DefaultLogLevel = "info"
	DefaultMPDAddr  = "localhost:6600"
)

type Config struct {
	LogLevel string `koanf:"log_level"` // "debug", "info", "warn", "error"

	// Discord application settings
	Discord DiscordConfig `koanf:"discord"`

	// Local command server used by the front-end
	Server ServerConfig `koanf:"server"`

	// Playback sources (relay now playing without a front-end)
	MPRIS MPRISConfig `koanf:"mpris"`
	MPD   MPDConfig   `koanf:"mpd"`

	// Desktop notifications when presence delivery fails or recovers
	Notify NotifyConfig `koanf:"notify"`
}

// DiscordConfig holds the presence application settings.
type DiscordConfig struct {
	ClientID    string `koanf:"client_id"`
	LargeImage  string `koanf:"large_image"`  // asset key uploaded to the application
	AutoConnect bool   `koanf:"auto_connect"` // connect at startup instead of waiting for init_discord
}

// ServerConfig holds the command server settings.
type ServerConfig struct {
	Listen         string   `koanf:"listen"`
	AllowedOrigins []string `koanf:"allowed_origins"` // browser origins allowed to send commands
}

// MPRISConfig enables the D-Bus MPRIS source (Linux only).
type MPRISConfig struct {
	Enabled bool   `koanf:"enabled"`
	Player  string `koanf:"player"` // bus name filter, e.g. "spotify"; empty means any player
}

// MPDConfig enables the MPD source.
type MPDConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Network  string `koanf:"network"` // "tcp" or "unix"
	Address  string `koanf:"address"` // host:port or socket path
	Password string `koanf:"password"`
}

// NotifyConfig controls desktop notifications (Linux only).
type NotifyConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Load reads the config files in priority order and applies defaults.
// extra, when non-empty, is loaded last and must exist.
func Load(extra string) (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	if extra != "" {
		if err := k.Load(file.Provider(expandPath(extra)), toml.Parser()); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Discord: DiscordConfig{AutoConnect: true},
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	c.Discord.ClientID = strings.TrimSpace(c.Discord.ClientID)
	if c.Discord.ClientID == "" {
		c.Discord.ClientID = DefaultClientID
	}
	if c.Discord.LargeImage == "" {
		c.Discord.LargeImage = presence.DefaultLargeImage
	}

	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}

	if c.MPD.Network == "" {
		c.MPD.Network = "tcp"
	}
	if c.MPD.Address == "" {
		c.MPD.Address = DefaultMPDAddr
	}
	if c.MPD.Network == "unix" {
		c.MPD.Address = expandPath(c.MPD.Address)
	}
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/wavecord/config.toml
		filepath.Join(xdg.ConfigHome, appName, "config.toml"),
		// 2. ./config.toml (pwd, highest priority)
		"config.toml",
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// HasSources returns true if any playback source is enabled.
func (c *Config) HasSources() bool {
	return c.MPRIS.Enabled || c.MPD.Enabled
}
