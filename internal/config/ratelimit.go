package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig parameterises one Redis token bucket.  The service runs
// two buckets: a general one for the public API and a tighter per-IP bucket
// in front of QR check-in, plus one for the public mailbox forms.
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

// LoadRateLimitConfig reads the general RATE_LIMIT_* bucket.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if b := envInt("RATE_LIMIT_BURST", -1); b > 0 {
		cfg.Capacity = b
	}
	return cfg.normalize()
}

// LoadCheckinRateLimitConfig reads the check-in bucket: 120 scans per
// minute per client IP unless overridden.
func LoadCheckinRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("CHECKIN_RATE_LIMIT_CAPACITY", 120),
		RefillTokens:   envInt("CHECKIN_RATE_LIMIT_REFILL_TOKENS", 120),
		RefillInterval: envDur("CHECKIN_RATE_LIMIT_REFILL_INTERVAL", time.Minute),
		TTL:            envDur("CHECKIN_RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    "ip",
		Prefix:         envStr("CHECKIN_RATE_LIMIT_PREFIX", "rl:checkin"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	return cfg.normalize()
}

// LoadFormRateLimitConfig reads the mailbox form bucket: 5 submissions per
// 10 minutes per client IP unless overridden.
func LoadFormRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("FORM_RATE_LIMIT_CAPACITY", 5),
		RefillTokens:   envInt("FORM_RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("FORM_RATE_LIMIT_REFILL_INTERVAL", 2*time.Minute),
		TTL:            envDur("FORM_RATE_LIMIT_TTL", 30*time.Minute),
		KeyStrategy:    "ip",
		Prefix:         envStr("FORM_RATE_LIMIT_PREFIX", "rl:form"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	return cfg.normalize()
}

func (c RateLimitConfig) normalize() RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
