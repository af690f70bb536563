package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCancellation_ApplyKeepsUntouchedFields(t *testing.T) {
	roles := "1-5"
	lawyer := true
	c := &Cancellation{ID: "c1", DownsellVariant: VariantB, RolesApplied: &roles, HasImmigrationLawyer: &lawyer}

	feedback := "x"
	c.Apply(CancellationPatch{Feedback: &feedback})

	assert.Equal(t, "x", *c.Feedback)
	assert.Equal(t, "1-5", *c.RolesApplied)
	assert.True(t, *c.HasImmigrationLawyer)
	assert.Equal(t, VariantB, c.DownsellVariant)
}

func TestCancellation_ApplyCopiesValues(t *testing.T) {
	c := &Cancellation{ID: "c1"}
	feedback := "before"
	c.Apply(CancellationPatch{Feedback: &feedback})

	feedback = "after"
	assert.Equal(t, "before", *c.Feedback)

	clone := c.Clone()
	*clone.Feedback = "changed"
	assert.Equal(t, "before", *c.Feedback)
}

func TestCancellationPatch_Empty(t *testing.T) {
	assert.True(t, CancellationPatch{}.Empty())
	accepted := false
	assert.False(t, CancellationPatch{AcceptedDownsell: &accepted}.Empty())
}

func TestEnums(t *testing.T) {
	assert.True(t, VariantA.Valid())
	assert.False(t, DownsellVariant("C").Valid())
	assert.True(t, ReasonOther.Valid())
	assert.False(t, CancellationReason("Bored").Valid())
	assert.Len(t, CancellationReasons, 5)
	assert.Equal(t, SubscriptionStatusPendingCancellation, StatusForPending(true))
	assert.Equal(t, SubscriptionStatusActive, StatusForPending(false))
}
