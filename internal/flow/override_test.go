//go:build !production

package flow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migratemate/cancellation-flow/internal/domain"
)

func TestPreferredVariantRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "force_variant")
	assert.Empty(t, LoadPreferredVariant(path))

	require.NoError(t, SavePreferredVariant(path, domain.VariantB))
	assert.Equal(t, domain.VariantB, LoadPreferredVariant(path))

	require.NoError(t, os.WriteFile(path, []byte(" a \n"), 0o644))
	assert.Equal(t, domain.VariantA, LoadPreferredVariant(path))

	require.NoError(t, os.WriteFile(path, []byte("Z"), 0o644))
	assert.Empty(t, LoadPreferredVariant(path))

	assert.Error(t, SavePreferredVariant(path, "Z"))
}

func TestForcedVariantIgnoresInvalid(t *testing.T) {
	m := NewMachine(Session{UserID: "user-1"}, nil, WithForcedVariant("Z"))
	assert.Equal(t, domain.VariantB, m.ResolveVariant())
}
