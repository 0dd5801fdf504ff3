package util

import (
	"log/slog"
	"os"
	"strings"
)

// ParseBoolEnv reads a boolean environment variable, falling back to def when
// the variable is unset or holds something unrecognizable. Truthy spellings
// are true/1/yes/on; falsy spellings are false/0/no/off, case-insensitive.
func ParseBoolEnv(key string, def bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch raw {
	case "":
		return def
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	slog.Warn("ParseBoolEnv: unrecognized value, falling back to default", "key", key, "value", raw, "default", def)
	return def
}
