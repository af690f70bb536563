package flow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/migratemate/cancellation-flow/internal/domain"
)

func TestComputeDownsellPrice(t *testing.T) {
	cases := []struct {
		cents int
		want  int
	}{
		{2500, 15},
		{2900, 19},
		{4000, 24},
		{1000, 6},
		{999, 6},
		{2550, 15},
		{0, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ComputeDownsellPrice(tc.cents), "cents=%d", tc.cents)
	}
}

func TestComputeDownsellDisplay(t *testing.T) {
	assert.Equal(t, DownsellDisplay{OriginalPrice: 25, DownsellPrice: 15}, ComputeDownsellDisplay(nil))

	price := 2950
	assert.Equal(t, DownsellDisplay{OriginalPrice: 30, DownsellPrice: 18}, ComputeDownsellDisplay(&price))

	price = 2900
	assert.Equal(t, DownsellDisplay{OriginalPrice: 29, DownsellPrice: 19}, ComputeDownsellDisplay(&price))
}

func TestComputeVariant_PinnedIDs(t *testing.T) {
	cases := map[string]domain.DownsellVariant{
		"":                                     domain.VariantA,
		"a":                                    domain.VariantB,
		"b":                                    domain.VariantA,
		"abc":                                  domain.VariantA,
		"seed-user":                            domain.VariantB,
		"user-1":                               domain.VariantB,
		"user-2":                               domain.VariantA,
		"550e8400-e29b-41d4-a716-446655440001": domain.VariantA,
		"550e8400-e29b-41d4-a716-446655440002": domain.VariantB,
		"é":                                    domain.VariantB,
		"😀":                                    domain.VariantB,
	}
	for id, want := range cases {
		assert.Equal(t, want, ComputeVariant(id), "id=%q", id)
	}
}

func TestComputeVariant_Stable(t *testing.T) {
	for i := 0; i < 5; i++ {
		assert.Equal(t, ComputeVariant("user-1"), ComputeVariant("user-1"))
	}
}

func TestIsFollowUpComplete(t *testing.T) {
	reason := func(r domain.CancellationReason) *domain.CancellationReason { return &r }

	assert.False(t, IsFollowUpComplete(nil, "a long enough answer to anything at all"))
	assert.True(t, IsFollowUpComplete(reason(domain.ReasonTooExpensive), "10"))
	assert.False(t, IsFollowUpComplete(reason(domain.ReasonTooExpensive), "   "))

	assert.False(t, IsFollowUpComplete(reason(domain.ReasonOther), "too short"))
	assert.True(t, IsFollowUpComplete(reason(domain.ReasonOther), strings.Repeat("x", 25)))
	assert.False(t, IsFollowUpComplete(reason(domain.ReasonOther), strings.Repeat("x", 24)))
	assert.False(t, IsFollowUpComplete(reason(domain.ReasonPlatformNotHelpful), "   "+strings.Repeat("x", 24)+"   "))
	assert.True(t, IsFollowUpComplete(reason(domain.ReasonDecidedNotToMove), strings.Repeat("é", 25)))
}
