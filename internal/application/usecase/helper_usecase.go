// internal/application/usecase/helper_usecase.go
package usecase

import (
	"errors"
	"strings"
)

var (
	ErrSessionNotFound     = errors.New("usecase: session not found")
	ErrUnknownCollection   = errors.New("usecase: unknown collection kind")
	ErrItemNotInCollection = errors.New("usecase: item not in collection")
)

// MaskUID keeps only the tail of a Firebase UID for logs.
func MaskUID(uid string) string {
	t := strings.TrimSpace(uid)
	if t == "" {
		return ""
	}
	if len(t) <= 6 {
		return "***"
	}
	return "***" + t[len(t)-6:]
}
