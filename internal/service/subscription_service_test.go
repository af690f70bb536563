package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migratemate/cancellation-flow/internal/domain"
	"github.com/migratemate/cancellation-flow/internal/events"
)

func TestSubscriptionService_SetPendingCancellation(t *testing.T) {
	f := newFixture(t)
	_, sub := f.seed(t)
	ctx := context.Background()

	updated, err := f.subscriptions.SetPendingCancellation(ctx, sub.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusPendingCancellation, updated.Status)
	assert.Equal(t, sub.MonthlyPrice, updated.MonthlyPrice)
	require.Len(t, f.published, 1)
	assert.Equal(t, events.EventSubscriptionStatusChanged, f.published[0].Type)

	// repeating the same request emits nothing new
	_, err = f.subscriptions.SetPendingCancellation(ctx, sub.ID, true)
	require.NoError(t, err)
	assert.Len(t, f.published, 1)

	updated, err = f.subscriptions.SetPendingCancellation(ctx, sub.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, updated.Status)
}

func TestSubscriptionService_RequiresID(t *testing.T) {
	f := newFixture(t)
	_, err := f.subscriptions.SetPendingCancellation(context.Background(), " ", true)
	assert.Error(t, err)
}
