package util

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// GetEnv returns the value of the environment variable key or defaultVal if unset.
func GetEnv(key string, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}

	return defaultVal
}

func GetEnvAsInt(key string, defaultVal int) int {
	strVal := GetEnv(key, "")

	if val, err := strconv.Atoi(strVal); err == nil {
		return val
	}

	return defaultVal
}

func GetEnvAsUint32(key string, defaultVal uint32) uint32 {
	strVal := GetEnv(key, "")

	if val, err := strconv.ParseUint(strVal, 10, 32); err == nil {
		return uint32(val)
	}

	return defaultVal
}

func GetEnvAsInt64(key string, defaultVal int64) int64 {
	strVal := GetEnv(key, "")

	if val, err := strconv.ParseInt(strVal, 10, 64); err == nil {
		return val
	}

	return defaultVal
}

func GetEnvAsBool(key string, defaultVal bool) bool {
	strVal := GetEnv(key, "")

	if val, err := strconv.ParseBool(strVal); err == nil {
		return val
	}

	return defaultVal
}

// GetEnvAsDuration parses values like "1500ms" or "2s". Invalid values fall back to defaultVal.
func GetEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	strVal := GetEnv(key, "")

	if len(strVal) == 0 {
		return defaultVal
	}

	val, err := time.ParseDuration(strVal)
	if err != nil {
		log.Warn().Str("key", key).Str("value", strVal).Err(err).Msg("Failed to parse duration from env, using default")
		return defaultVal
	}

	return val
}

// GetEnvAsStringArr splits the value of key by separator. An unset or empty value returns defaultVal.
func GetEnvAsStringArr(key string, defaultVal []string, separator ...string) []string {
	strVal := GetEnv(key, "")

	if len(strVal) == 0 {
		return defaultVal
	}

	sep := ","
	if len(separator) >= 1 {
		sep = separator[0]
	}

	parts := strings.Split(strVal, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	return parts
}
