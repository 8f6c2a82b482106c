package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentflow-backend/internal/domains/notification/model"
)

type fakeRepo struct {
	byKey     map[string]*model.Notification
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byKey: map[string]*model.Notification{}}
}

func (f *fakeRepo) Create(ctx context.Context, n *model.Notification) (bool, error) {
	if f.createErr != nil {
		return false, f.createErr
	}
	if _, ok := f.byKey[*n.IdempotencyKey]; ok {
		return false, nil
	}
	n.ID = int64(len(f.byKey) + 1)
	f.byKey[*n.IdempotencyKey] = n
	return true, nil
}

func (f *fakeRepo) List(ctx context.Context, req model.ListRequest) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range f.byKey {
		if n.UserID == req.UserID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (f *fakeRepo) MarkAsRead(ctx context.Context, id, userID int64) error {
	for _, n := range f.byKey {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return model.ErrNotificationNotFound
}

func TestNotifyPaymentEvent(t *testing.T) {
	repo := newFakeRepo()
	svc := NewNotificationService(repo)

	evt := PaymentEvent{
		Event:       "payment.completed",
		PaymentID:   7,
		AgreementID: 42,
		RenterID:    100,
		LandlordID:  200,
		Amount:      "15000",
	}

	n, err := svc.NotifyPaymentEvent(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	renter := repo.byKey["payment.completed:7:renter"]
	require.NotNil(t, renter)
	assert.Equal(t, int64(100), renter.UserID)
	assert.Equal(t, model.TypePaymentCompleted, renter.Type)
	assert.Contains(t, renter.Message, "agreement #42")
	assert.Equal(t, int64(7), *renter.ReferenceID)

	// redelivery of the same task creates nothing new
	n, err = svc.NotifyPaymentEvent(context.Background(), evt)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, repo.byKey, 2)
}

func TestNotifyPaymentEventFailed(t *testing.T) {
	repo := newFakeRepo()
	svc := NewNotificationService(repo)

	n, err := svc.NotifyPaymentEvent(context.Background(), PaymentEvent{
		Event:     "payment.failed",
		PaymentID: 8,
		RenterID:  100,
		Amount:    "500",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "missing landlord is skipped")
	assert.Equal(t, model.TypePaymentFailed, repo.byKey["payment.failed:8:renter"].Type)
}

func TestNotifyPaymentEventErrors(t *testing.T) {
	repo := newFakeRepo()
	svc := NewNotificationService(repo)

	_, err := svc.NotifyPaymentEvent(context.Background(), PaymentEvent{Event: "payment.refunded"})
	assert.ErrorContains(t, err, "unknown payment event")

	repo.createErr = errors.New("db down")
	_, err = svc.NotifyPaymentEvent(context.Background(), PaymentEvent{Event: "payment.completed", PaymentID: 1, RenterID: 1})
	assert.ErrorContains(t, err, "db down")
}

func TestMarkAsRead(t *testing.T) {
	repo := newFakeRepo()
	svc := NewNotificationService(repo)
	_, err := svc.NotifyPaymentEvent(context.Background(), PaymentEvent{Event: "payment.completed", PaymentID: 1, RenterID: 5})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.MarkAsRead(context.Background(), 1, 6), model.ErrNotificationNotFound)
	require.NoError(t, svc.MarkAsRead(context.Background(), 1, 5))

	list, err := svc.List(context.Background(), model.ListRequest{UserID: 5})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsRead)
}
