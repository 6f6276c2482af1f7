package utils

import "os"

// SafeEnv reads key from the environment, substituting fallback when the
// variable is unset or blank.
func SafeEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
