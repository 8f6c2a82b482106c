//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentflow-backend/internal/domains/notification/model"
	"rentflow-backend/internal/testutil/pgtest"
)

func TestNotificationRepository_IdempotentCreate(t *testing.T) {
	pool := pgtest.NewPool(t)
	ctx := context.Background()
	repo := NewNotificationRepository(pool)

	key := "payment_completed:7:100"
	refType := model.ReferencePayment
	refID := int64(7)
	n := &model.Notification{
		UserID:         100,
		Type:           model.TypePaymentCompleted,
		Title:          "Payment received",
		Message:        "Your payment of NPR 15000 was received",
		Data:           []byte(`{"payment_id":7}`),
		ReferenceType:  &refType,
		ReferenceID:    &refID,
		IdempotencyKey: &key,
	}

	created, err := repo.Create(ctx, n)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, n.ID)

	dup := *n
	dup.ID = 0
	created, err = repo.Create(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, created)

	list, err := repo.List(ctx, model.ListRequest{UserID: 100})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.JSONEq(t, `{"payment_id":7}`, string(list[0].Data))
	assert.False(t, list[0].IsRead)
}

func TestNotificationRepository_MarkAsRead(t *testing.T) {
	pool := pgtest.NewPool(t)
	ctx := context.Background()
	repo := NewNotificationRepository(pool)

	n := &model.Notification{UserID: 100, Type: model.TypePaymentFailed, Title: "t", Message: "m"}
	_, err := repo.Create(ctx, n)
	require.NoError(t, err)

	assert.ErrorIs(t, repo.MarkAsRead(ctx, n.ID, 999), model.ErrNotificationNotFound)
	require.NoError(t, repo.MarkAsRead(ctx, n.ID, 100))

	unread, err := repo.List(ctx, model.ListRequest{UserID: 100, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)

	all, err := repo.List(ctx, model.ListRequest{UserID: 100})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsRead)
	assert.NotNil(t, all[0].ReadAt)
}
