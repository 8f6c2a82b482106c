package job

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	agreementModel "rentflow-backend/internal/domains/agreement/model"
	notificationService "rentflow-backend/internal/domains/notification/service"
	"rentflow-backend/internal/domains/payment/model"
	"rentflow-backend/internal/shared"
)

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) NotifyPaymentEvent(ctx context.Context, evt notificationService.PaymentEvent) (int, error) {
	args := m.Called(ctx, evt)
	return args.Int(0), args.Error(1)
}

type mockReconciler struct{ mock.Mock }

func (m *mockReconciler) ReconcileStalePayments(ctx context.Context, timeout time.Duration, limit int) (*model.ReconcileResult, error) {
	args := m.Called(ctx, timeout, limit)
	res, _ := args.Get(0).(*model.ReconcileResult)
	return res, args.Error(1)
}

type mockBuilder struct{ mock.Mock }

func (m *mockBuilder) BuildStatement(ctx context.Context, payload model.ExportStatementPayload) (string, error) {
	args := m.Called(ctx, payload)
	return args.String(0), args.Error(1)
}

func task(t *testing.T, typ string, v interface{}) *asynq.Task {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return asynq.NewTask(typ, b)
}

func TestNotifyHandler(t *testing.T) {
	n := &mockNotifier{}
	h := NewNotifyHandler(n)

	n.On("NotifyPaymentEvent", mock.Anything, notificationService.PaymentEvent{
		Event:       model.EventPaymentCompleted,
		PaymentID:   7,
		AgreementID: 42,
		RenterID:    100,
		LandlordID:  200,
		Amount:      "15000",
	}).Return(2, nil)

	err := h.ProcessTask(context.Background(), task(t, shared.TypePaymentNotify, model.PaymentNotifyPayload{
		Event:       model.EventPaymentCompleted,
		PaymentID:   7,
		AgreementID: 42,
		RenterID:    100,
		LandlordID:  200,
		Amount:      decimal.NewFromInt(15000),
	}))

	require.NoError(t, err)
	n.AssertExpectations(t)
}

func TestNotifyHandler_Errors(t *testing.T) {
	n := &mockNotifier{}
	h := NewNotifyHandler(n)

	err := h.ProcessTask(context.Background(), asynq.NewTask(shared.TypePaymentNotify, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.ProcessTask(context.Background(), task(t, shared.TypePaymentNotify, model.PaymentNotifyPayload{Event: model.EventPaymentFailed}))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	n.On("NotifyPaymentEvent", mock.Anything, mock.Anything).Return(0, errors.New("db down"))
	err = h.ProcessTask(context.Background(), task(t, shared.TypePaymentNotify, model.PaymentNotifyPayload{
		Event:     model.EventPaymentFailed,
		PaymentID: 7,
	}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestExpireStaleHandler(t *testing.T) {
	r := &mockReconciler{}
	h := NewExpireStaleHandler(r, 30*time.Minute, 100)

	r.On("ReconcileStalePayments", mock.Anything, 30*time.Minute, 100).Return(&model.ReconcileResult{Checked: 3}, nil).Once()
	require.NoError(t, h.ProcessTask(context.Background(), asynq.NewTask(shared.TypeExpireStalePayments, nil)))

	r.On("ReconcileStalePayments", mock.Anything, 45*time.Minute, 10).Return(&model.ReconcileResult{Errors: 1}, nil).Once()
	require.NoError(t, h.ProcessTask(context.Background(), task(t, shared.TypeExpireStalePayments, model.ExpireStalePaymentsPayload{
		TimeoutMinutes: 45,
		Limit:          10,
	})))

	r.On("ReconcileStalePayments", mock.Anything, 30*time.Minute, 100).Return(nil, errors.New("db down")).Once()
	assert.Error(t, h.ProcessTask(context.Background(), asynq.NewTask(shared.TypeExpireStalePayments, nil)))

	r.AssertExpectations(t)
}

func TestExportStatementHandler(t *testing.T) {
	b := &mockBuilder{}
	h := NewExportStatementHandler(b)

	ok := model.ExportStatementPayload{ExportID: "e1", AgreementID: 42, ObjectKey: "statements/agreement-42/e1.xlsx"}
	b.On("BuildStatement", mock.Anything, ok).Return(ok.ObjectKey, nil)
	require.NoError(t, h.ProcessTask(context.Background(), task(t, shared.TypeExportPaymentStatement, ok)))

	gone := model.ExportStatementPayload{ExportID: "e2", AgreementID: 999}
	b.On("BuildStatement", mock.Anything, gone).Return("", agreementModel.ErrAgreementNotFound)
	err := h.ProcessTask(context.Background(), task(t, shared.TypeExportPaymentStatement, gone))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	flaky := model.ExportStatementPayload{ExportID: "e3", AgreementID: 42}
	b.On("BuildStatement", mock.Anything, flaky).Return("", errors.New("minio down"))
	err = h.ProcessTask(context.Background(), task(t, shared.TypeExportPaymentStatement, flaky))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}
