package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Rule is a per-endpoint budget. A request matches when its method equals
// Method and its path carries the rule's prefix and suffix. All requests
// matching one rule share a bucket per client, so every path parameter value
// draws from the same budget.
type Rule struct {
	Method string
	Prefix string
	Suffix string
	Limit  int // requests per Window; <= 0 means unlimited
	Window time.Duration
	Burst  int // bucket capacity; defaults to Limit
}

func (r *Rule) matches(path, method string) bool {
	return method == r.Method &&
		strings.HasPrefix(path, r.Prefix) &&
		strings.HasSuffix(path, r.Suffix)
}

// keyPath is the rule's identity for bucket keying.
func (r *Rule) keyPath(string) string {
	return r.Prefix + "*" + r.Suffix
}

// Config holds limiter configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Exempt          map[string]bool
	Blocked         map[string]bool
	Rules           []Rule
}

// LoadConfig reads limiter configuration from the environment and attaches
// the built-in endpoint rules.
func LoadConfig() *Config {
	if !getEnvBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", 300),
		DefaultWindow:   getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Exempt:          parseIPList(os.Getenv("RATE_LIMIT_EXEMPT")),
		Blocked:         parseIPList(os.Getenv("RATE_LIMIT_BLOCKED")),
		Rules:           DefaultRules(),
	}
}

// DefaultRules returns the built-in endpoint budgets. More specific rules
// come first; matching stops at the first hit.
func DefaultRules() []Rule {
	return []Rule{
		// Model-backed endpoints: each call spends provider quota.
		{Method: "POST", Prefix: "/generations/", Suffix: "/regenerate", Limit: 3, Window: time.Minute, Burst: 2},
		{Method: "POST", Prefix: "/generations", Suffix: "", Limit: 5, Window: time.Minute, Burst: 3},
		{Method: "POST", Prefix: "/questions/", Suffix: "/answer", Limit: 10, Window: time.Minute, Burst: 5},
		// Key create and test both probe the provider.
		{Method: "POST", Prefix: "/keys", Suffix: "", Limit: 20, Window: time.Minute, Burst: 10},

		// Credential guessing protection.
		{Method: "POST", Prefix: "/auth/", Suffix: "", Limit: 30, Window: time.Minute, Burst: 10},
	}
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of client IDs into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
