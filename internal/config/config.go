package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Config is the top-level configuration structure.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Personas  []PersonaConfig `json:"personas"`
	Content   string          `json:"content_path"`
	Responder ResponderConfig `json:"responder"`
	Lookup    LookupConfig    `json:"lookup"`
	Gateway   GatewayConfig   `json:"gateway"`
	Database  DatabaseConfig  `json:"database"`
	Idle      IdleConfig      `json:"idle"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type PersonaConfig struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

// ResponderConfig tunes every agent. Zero values keep the agent defaults;
// a negative embellish probability turns embellishment off.
type ResponderConfig struct {
	EmbellishProbability float64  `json:"embellish_probability"`
	NoEmbellish          []string `json:"no_embellish,omitempty"`
	TimeAware            []string `json:"time_aware,omitempty"`
	InitialMood          string   `json:"initial_mood"`
	IdleSeconds          int      `json:"idle_seconds"`
	MaxTranscript        int      `json:"max_transcript"`
}

type LookupConfig struct {
	Endpoint  string `json:"endpoint"`
	TimeoutMS int    `json:"timeout_ms"`
	Fallback  string `json:"fallback"`
	Disabled  bool   `json:"disabled"`
}

type GatewayConfig struct {
	DefaultAgent       string                  `json:"default_agent"`
	RESTTimeoutSeconds int                     `json:"rest_timeout_seconds"`
	Avatars            map[string]AvatarConfig `json:"avatars"` // agent name -> avatar
	Slack              SlackGatewayConfig      `json:"slack"`
	Discord            DiscordGatewayConfig    `json:"discord"`
}

type AvatarConfig struct {
	IconURL string `json:"icon_url"`
	Emoji   string `json:"emoji"`
}

type SlackGatewayConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	AppToken string `json:"app_token"`
}

type DiscordGatewayConfig struct {
	Enabled  bool              `json:"enabled"`
	BotToken string            `json:"bot_token"`
	Webhooks map[string]string `json:"webhooks"` // channel ID -> webhook URL
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Redis    RedisConfig    `json:"redis"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

type IdleConfig struct {
	Enabled         bool `json:"enabled"`
	IntervalSeconds int  `json:"interval_seconds"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// expandEnv substitutes ${VAR} and ${VAR:default} with environment values.
func expandEnv(data []byte) []byte {
	return []byte(envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	}))
}

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(expandEnv(data), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3210
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if len(c.Personas) == 0 {
		c.Personas = DefaultPersonas()
	}
	if c.Idle.IntervalSeconds <= 0 {
		c.Idle.IntervalSeconds = 5
	}
	if c.Gateway.RESTTimeoutSeconds <= 0 {
		c.Gateway.RESTTimeoutSeconds = 30
	}
}

// DefaultPersonas are registered when the config names none.
func DefaultPersonas() []PersonaConfig {
	return []PersonaConfig{
		{Name: "Static", Age: 18, Gender: "Female"},
		{Name: "Steele", Age: 19, Gender: "Male"},
	}
}
