package config

import (
	"time"

	"github.com/spf13/viper"
)

// RateLimitConfig configures the Redis token bucket in front of /api.  The
// defaults allow 100 requests per IP per hour.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

func LoadRateLimitConfig() RateLimitConfig {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_CAPACITY", 100)
	v.SetDefault("RATE_LIMIT_REFILL_TOKENS", 100)
	v.SetDefault("RATE_LIMIT_REFILL_INTERVAL", time.Hour)
	v.SetDefault("RATE_LIMIT_TTL", 2*time.Hour)
	v.SetDefault("RATE_LIMIT_KEY_STRATEGY", "ip")
	v.SetDefault("RATE_LIMIT_PREFIX", "tours:rl")
	v.SetDefault("RATE_LIMIT_DEBUG", false)

	def := RateLimitConfig{
		Enabled:        v.GetBool("RATE_LIMIT_ENABLED"),
		Capacity:       v.GetInt("RATE_LIMIT_CAPACITY"),
		RefillTokens:   v.GetInt("RATE_LIMIT_REFILL_TOKENS"),
		RefillInterval: v.GetDuration("RATE_LIMIT_REFILL_INTERVAL"),
		TTL:            v.GetDuration("RATE_LIMIT_TTL"),
		KeyStrategy:    v.GetString("RATE_LIMIT_KEY_STRATEGY"),
		Prefix:         v.GetString("RATE_LIMIT_PREFIX"),
		Debug:          v.GetBool("RATE_LIMIT_DEBUG"),
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Hour
	}
	if minTTL := 2 * def.RefillInterval; def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}
