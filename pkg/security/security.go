// Package security provides validation, sanitization, and limits for the galaxysync package.
package security

import (
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/jdziat/galaxy-sync/pkg/core"
)

// Security limits and configuration
const (
	// MaxRetryBudget is the hard limit for scheduler passes per run
	MaxRetryBudget = 1000

	// MaxConcurrency is the hard limit for sibling fan-out
	MaxConcurrency = 256

	// MaxErrorMessageLength is the maximum length for stored error messages
	MaxErrorMessageLength = 4096

	// MaxOutputLength is the maximum length for stored job stdout/stderr
	MaxOutputLength = 64 << 10

	// MaxObjectKeyLength is the maximum length for blob storage keys
	MaxObjectKeyLength = 1024

	// MaxObjectNameLength is the maximum length of the name part of a key
	MaxObjectNameLength = 200
)

// unsafeNameChars matches anything outside a conservative file name alphabet
var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]+`)

// SanitizeErrorMessage truncates and sanitizes error messages for storage
func SanitizeErrorMessage(msg string) string {
	return sanitize(msg, MaxErrorMessageLength)
}

// SanitizeOutput truncates and sanitizes job stdout/stderr for storage
func SanitizeOutput(out string) string {
	return sanitize(out, MaxOutputLength)
}

func sanitize(msg string, limit int) string {
	if msg == "" {
		return ""
	}

	// Remove any null bytes or control characters (except newlines)
	var sanitized strings.Builder
	sanitized.Grow(len(msg))

	for _, r := range msg {
		if r == utf8.RuneError {
			continue
		}
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()

	if utf8.RuneCountInString(result) > limit {
		runes := []rune(result)
		result = string(runes[:limit-3]) + "..."
	}

	return result
}

// ObjectKey builds a fresh random-prefixed storage key for a dataset name.
func ObjectKey(name string) string {
	return uuid.New().String() + "/" + SanitizeObjectName(name)
}

// SanitizeObjectName reduces a remote dataset name to a safe file name.
func SanitizeObjectName(name string) string {
	name = strings.TrimSpace(path.Base(strings.ReplaceAll(name, "\\", "/")))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "dataset"
	}
	if len(name) > MaxObjectNameLength {
		name = name[:MaxObjectNameLength]
	}
	return name
}

// ValidateObjectKey rejects keys that could escape the storage root
func ValidateObjectKey(key string) error {
	if key == "" || len(key) > MaxObjectKeyLength {
		return core.ErrInvalidObjectKey
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return core.ErrInvalidObjectKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return core.ErrInvalidObjectKey
		}
	}
	return nil
}

// ValidateOwnerID rejects an empty owner
func ValidateOwnerID(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return core.ErrNoOwner
	}
	return nil
}

// ClampRetryBudget ensures the retry budget is within limits
func ClampRetryBudget(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxRetryBudget {
		return MaxRetryBudget
	}
	return n
}

// ClampConcurrency ensures concurrency is within limits
func ClampConcurrency(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxConcurrency {
		return MaxConcurrency
	}
	return n
}
