package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// EnvLoader reads bootstrap settings that have to be known before the
// config file is located.
type EnvLoader struct {
	prefix string
}

func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{prefix: prefix}
}

// GetString returns defaultValue when the variable is unset or empty.
func (e *EnvLoader) GetString(key, defaultValue string) string {
	if value := os.Getenv(e.buildKey(key)); value != "" {
		return value
	}
	return defaultValue
}

// GetBool accepts true/1/yes/on and false/0/no/off; anything else yields
// defaultValue.
func (e *EnvLoader) GetBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(e.buildKey(key)))
	if value == "" {
		return defaultValue
	}

	switch value {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func (e *EnvLoader) GetDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(e.buildKey(key))
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// buildKey: prefix="COURTSIDE", key="CONFIG_PATH" -> "COURTSIDE_CONFIG_PATH"
func (e *EnvLoader) buildKey(key string) string {
	if e.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s_%s", e.prefix, key)
}
