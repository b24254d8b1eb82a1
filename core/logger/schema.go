package logger

import "strings"

var allowedLevels = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

var allowedStatus = map[string]struct{}{
	"ok":        {},
	"fail":      {},
	"skip":      {},
	"retry":     {},
	"denied":    {},
	"cancelled": {},
}

var allowedOutcome = map[string]struct{}{
	"ok":        {},
	"fail":      {},
	"denied":    {},
	"cancelled": {},
}

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := allowedLevels[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

// defaultKeyOrder fixes the leading columns; remaining keys follow alphabetically.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"action",
	"cb_key",
	"stage",
	"membership",
	"outcome",
	"duration_ms",
	"messages",
	"kb",
	"media",
	"created",
	"payload",
	"username",
	"mode",
	"listen",
	"public_url",
	"endpoint",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"cause",
	"attempts",
}
