//go:build !production

package flow

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/migratemate/cancellation-flow/internal/domain"
)

// VariantOverrideEnabled reports whether this build honors forced variants.
const VariantOverrideEnabled = true

// PreferencePath is where a forced variant is remembered between runs.
func PreferencePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cancellation-flow", "force_variant"), nil
}

// LoadPreferredVariant reads a remembered forced variant. A missing or
// unreadable preference yields "".
func LoadPreferredVariant(path string) domain.DownsellVariant {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	v := domain.DownsellVariant(strings.ToUpper(strings.TrimSpace(string(data))))
	if !v.Valid() {
		return ""
	}
	return v
}

// SavePreferredVariant remembers v for later runs.
func SavePreferredVariant(path string, v domain.DownsellVariant) error {
	if !v.Valid() {
		return errors.New("variant must be A or B")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(v), 0o644)
}
