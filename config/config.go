package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Battle     BattleConfig     `mapstructure:"battle"`
	Difficulty DifficultyConfig `mapstructure:"difficulty"`
	Security   SecurityConfig   `mapstructure:"security"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`
	AdminKey string `mapstructure:"admin_key"`
}

// BattleConfig holds the per-tick combat tunables consumed by the AI engine.
type BattleConfig struct {
	TickMs               int     `mapstructure:"tick_ms"`
	BaseSpeed            float64 `mapstructure:"base_speed"`         // px/s before aggressiveness scaling
	AttackCooldownMs     float64 `mapstructure:"attack_cooldown_ms"` // fixed, archetype-independent
	HitboxLifetimeMs     float64 `mapstructure:"hitbox_lifetime_ms"`
	ProjectileLifetimeMs float64 `mapstructure:"projectile_lifetime_ms"`
	ProjectileSpeed      float64 `mapstructure:"projectile_speed"` // px/s
	EventBufSize         int     `mapstructure:"event_buf_size"`   // pubsub per-subscriber buffer
}

// DifficultyConfig scales NPC behavior globally. Passed into the engine
// explicitly so tests can tune it per instance.
type DifficultyConfig struct {
	AggressivenessFactor float64 `mapstructure:"aggressiveness_factor"`
}

type SecurityConfig struct {
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	// AllowedOrigins lists the WebSocket origins that are permitted.
	// An empty slice allows all origins (useful for local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// TickInterval returns the encounter tick interval as a duration.
func (b BattleConfig) TickInterval() time.Duration {
	return time.Duration(b.TickMs) * time.Millisecond
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("battle.tick_ms", 50)
	v.SetDefault("battle.base_speed", 220)
	v.SetDefault("battle.attack_cooldown_ms", 1500)
	v.SetDefault("battle.hitbox_lifetime_ms", 200)
	v.SetDefault("battle.projectile_lifetime_ms", 1200)
	v.SetDefault("battle.projectile_speed", 600)
	v.SetDefault("battle.event_buf_size", 256)
	v.SetDefault("difficulty.aggressiveness_factor", 1.0)
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
