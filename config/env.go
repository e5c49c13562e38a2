package config

import "os"

// GetEnv reads an environment variable, empty string when unset
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetEnvOr reads an environment variable with a fallback default
func GetEnvOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
