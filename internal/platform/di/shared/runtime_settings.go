// internal/platform/di/shared/runtime_settings.go
package shared

import (
	"errors"
	"strings"
	"time"

	appcfg "storefront/internal/infra/config"
)

const (
	// minimum sweep period for idle-session eviction
	minEvictInterval = 30 * time.Second
)

// RuntimeSettings is config-resolved runtime settings (normalized once).
// It intentionally contains only "values" (no external clients).
type RuntimeSettings struct {
	CartCollection     string
	WishlistCollection string

	DebounceInterval time.Duration
	VerifyWrites     bool

	// 0 disables idle-session eviction.
	SessionIdleTTL time.Duration
	EvictInterval  time.Duration

	AllowedOrigins []string
}

// ResolveRuntimeSettings resolves and normalizes runtime settings from cfg.
//
// Notes:
// - This function is side-effect free (no logging).
// - It returns warnings as strings so callers can decide how to surface them.
func ResolveRuntimeSettings(cfg *appcfg.Config) (RuntimeSettings, []string, error) {
	if cfg == nil {
		return RuntimeSettings{}, nil, errors.New("shared.runtime_settings: cfg is nil")
	}

	var warns []string
	s := RuntimeSettings{
		CartCollection:     strings.TrimSpace(cfg.CartCollection),
		WishlistCollection: strings.TrimSpace(cfg.WishlistCollection),
		DebounceInterval:   cfg.DebounceInterval,
		VerifyWrites:       cfg.VerifyWrites,
		SessionIdleTTL:     cfg.SessionIdleTTL,
		AllowedOrigins:     append([]string(nil), cfg.AllowedOrigins...),
	}

	if s.DebounceInterval < 100*time.Millisecond {
		warns = append(warns, "debounce interval below 100ms; every keystroke-rate mutation becomes a remote write")
	}
	if s.VerifyWrites {
		warns = append(warns, "verify_writes enabled; each save issues an extra read")
	}

	if s.SessionIdleTTL > 0 {
		s.EvictInterval = s.SessionIdleTTL / 4
		if s.EvictInterval < minEvictInterval {
			s.EvictInterval = minEvictInterval
		}
	} else {
		warns = append(warns, "session idle TTL is 0; sessions are never evicted")
	}

	if len(s.AllowedOrigins) == 0 {
		s.AllowedOrigins = []string{"*"}
	}
	for _, o := range s.AllowedOrigins {
		if o == "*" {
			warns = append(warns, "CORS allows any origin")
			break
		}
	}

	return s, warns, nil
}
