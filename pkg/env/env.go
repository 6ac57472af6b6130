package env

import "os"

// Get reads the environment variable, falling back when unset or empty. Used
// at bootstrap before the typed config is loaded.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
