//go:build production

package flow

import "github.com/migratemate/cancellation-flow/internal/domain"

// VariantOverrideEnabled reports whether this build honors forced variants.
const VariantOverrideEnabled = false

// PreferencePath is unavailable in production builds.
func PreferencePath() (string, error) { return "", nil }

// LoadPreferredVariant always yields "" in production builds.
func LoadPreferredVariant(string) domain.DownsellVariant { return "" }

// SavePreferredVariant is a no-op in production builds.
func SavePreferredVariant(string, domain.DownsellVariant) error { return nil }
