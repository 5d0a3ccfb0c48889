// internal/platform/di/shared/runtime_settings_validate.go
package shared

import (
	"fmt"
	"strings"
)

// Validate performs hard validation for RuntimeSettings.
func (s RuntimeSettings) Validate() error {
	// Collections must never be empty once resolved (defaults exist).
	if s.CartCollection == "" {
		return fmt.Errorf("shared.runtime_settings: CartCollection is empty")
	}
	if s.WishlistCollection == "" {
		return fmt.Errorf("shared.runtime_settings: WishlistCollection is empty")
	}
	if s.CartCollection == s.WishlistCollection {
		return fmt.Errorf("shared.runtime_settings: cart and wishlist share collection %q", s.CartCollection)
	}
	for name, v := range map[string]string{
		"CartCollection":     s.CartCollection,
		"WishlistCollection": s.WishlistCollection,
	} {
		// Firestore collection IDs cannot contain '/'.
		if strings.ContainsAny(v, "/ \t\r\n") {
			return fmt.Errorf("shared.runtime_settings: %s contains '/' or whitespace (got %q)", name, v)
		}
	}

	if s.DebounceInterval <= 0 {
		return fmt.Errorf("shared.runtime_settings: DebounceInterval must be positive (got %s)", s.DebounceInterval)
	}
	if s.SessionIdleTTL < 0 {
		return fmt.Errorf("shared.runtime_settings: SessionIdleTTL must not be negative (got %s)", s.SessionIdleTTL)
	}

	for _, o := range s.AllowedOrigins {
		if o == "*" {
			continue
		}
		if !(strings.HasPrefix(o, "http://") || strings.HasPrefix(o, "https://")) {
			return fmt.Errorf("shared.runtime_settings: origin must start with http:// or https:// (got %q)", o)
		}
		if strings.Contains(strings.SplitN(o, "://", 2)[1], "/") {
			return fmt.Errorf("shared.runtime_settings: origin must not include a path (got %q)", o)
		}
	}
	return nil
}
