package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config is loaded once at startup: struct defaults first, then
// GAMESHELF_-prefixed environment variables on top. Nesting uses a double
// underscore, e.g. GAMESHELF_STEAM__API_KEY -> steam.api_key.
type Config struct {
	HTTPAddr string       `koanf:"http_addr"`
	TCPAddr  string       `koanf:"tcp_addr"`
	Auth     AuthConfig   `koanf:"auth"`
	Steam    SteamConfig  `koanf:"steam"`
	Import   ImportConfig `koanf:"import"`
}

type AuthConfig struct {
	JWTSecret   string `koanf:"jwt_secret"`
	JWTIssuer   string `koanf:"jwt_issuer"`
	JWTTTLHours int    `koanf:"jwt_ttl_hours"`
}

func (a AuthConfig) JWTDuration() time.Duration {
	return time.Duration(a.JWTTTLHours) * time.Hour
}

// SteamConfig holds the environment defaults for the Web API credential and
// account. Import requests may override both per call.
type SteamConfig struct {
	APIKey   string `koanf:"api_key"`
	SteamID  string `koanf:"steam_id"`
	StoreURL string `koanf:"store_url"` // override to point at cmd/mock-steam locally
	APIURL   string `koanf:"api_url"`
}

type ImportConfig struct {
	Concurrency    int    `koanf:"concurrency"`
	GroupDelayMS   int    `koanf:"group_delay_ms"`
	BackoffDelayMS int    `koanf:"backoff_delay_ms"`
	DenylistApps   string `koanf:"denylist_apps"`  // comma-separated appids
	DenylistSlugs  string `koanf:"denylist_slugs"` // comma-separated slugs
}

func (i ImportConfig) GroupDelay() time.Duration {
	return time.Duration(i.GroupDelayMS) * time.Millisecond
}

func (i ImportConfig) BackoffDelay() time.Duration {
	return time.Duration(i.BackoffDelayMS) * time.Millisecond
}

func defaultConfig() Config {
	return Config{
		HTTPAddr: ":8080",
		TCPAddr:  ":7070",
		Auth: AuthConfig{
			// dev default (change for demo / production)
			JWTSecret:   "dev-secret-change-me",
			JWTIssuer:   "gameshelf",
			JWTTTLHours: 24,
		},
		Steam: SteamConfig{
			StoreURL: "https://store.steampowered.com",
			APIURL:   "https://api.steampowered.com",
		},
		Import: ImportConfig{
			Concurrency:    4,
			GroupDelayMS:   250,
			BackoffDelayMS: 15000,
		},
	}
}

func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if err := k.Load(env.Provider("GAMESHELF_", ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "GAMESHELF_"))
	return strings.ReplaceAll(s, "__", ".")
}

// SplitList parses a comma-separated config value into trimmed entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
