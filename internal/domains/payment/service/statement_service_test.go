package service

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	agreementModel "rentflow-backend/internal/domains/agreement/model"
	"rentflow-backend/internal/domains/payment/model"
	"rentflow-backend/internal/shared"
	"rentflow-backend/pkg/jwt"
)

type memoryStorage struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	m.objects[key] = data
	m.types[key] = contentType
	return key, nil
}

func (m *memoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memoryStorage) PresignedGetURL(ctx context.Context, key, filename string, expiry time.Duration) (string, error) {
	return "https://minio.local/" + key + "?filename=" + filename, nil
}

func newStatementEnv(t *testing.T) (*statementService, *store, *memoryStorage, *fakeQueue) {
	t.Helper()
	st := newStore()
	storage := newMemoryStorage()
	q := &fakeQueue{}
	svc := NewStatementService(
		&fakePaymentRepo{store: st},
		&fakeAgreementRepo{store: st},
		storage,
		q,
		0,
	).(*statementService)
	svc.now = func() time.Time { return st.clock }
	return svc, st, storage, q
}

func TestRequestStatement(t *testing.T) {
	svc, st, _, q := newStatementEnv(t)
	st.addAgreement(agreementID, agreementModel.StatusActive, renterID, landlordID)

	resp, err := svc.RequestStatement(context.Background(), renter(), agreementID)
	require.NoError(t, err)

	_, err = uuid.Parse(resp.ExportID)
	require.NoError(t, err)
	assert.Equal(t, StatementObjectKey(agreementID, resp.ExportID), resp.ObjectKey)

	require.Len(t, q.tasks, 1)
	assert.Equal(t, shared.TypeExportPaymentStatement, q.tasks[0].Type())

	var payload model.ExportStatementPayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &payload))
	assert.Equal(t, resp.ExportID, payload.ExportID)
	assert.Equal(t, agreementID, payload.AgreementID)
	assert.Equal(t, renterID, payload.RequestedBy)
}

func TestRequestStatement_Access(t *testing.T) {
	svc, st, _, q := newStatementEnv(t)
	st.addAgreement(agreementID, agreementModel.StatusActive, renterID, landlordID)

	_, err := svc.RequestStatement(context.Background(), model.Viewer{UserID: 9, Role: jwt.RoleRenter}, agreementID)
	requireCode(t, err, model.ErrCodeForbidden)

	_, err = svc.RequestStatement(context.Background(), renter(), 999)
	requireCode(t, err, model.ErrCodeAgreementNotFound)

	assert.Empty(t, q.tasks)
}

func TestBuildStatement(t *testing.T) {
	svc, st, storage, _ := newStatementEnv(t)
	st.addAgreement(agreementID, agreementModel.StatusActive, renterID, landlordID)
	st.addPayment(agreementID, 15000, model.PaymentStatusFailed, st.clock.Add(-2*time.Hour))
	paid := st.addPayment(agreementID, 15000, model.PaymentStatusCompleted, st.clock.Add(-time.Hour))

	exportID := uuid.NewString()
	key, err := svc.BuildStatement(context.Background(), model.ExportStatementPayload{
		ExportID:    exportID,
		AgreementID: agreementID,
	})
	require.NoError(t, err)
	assert.Equal(t, StatementObjectKey(agreementID, exportID), key)
	assert.Equal(t, model.StatementContentType, storage.types[key])

	f, err := excelize.OpenReader(bytes.NewReader(storage.objects[key]))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Payments")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, "Payment ID", rows[0][0])
	assert.Equal(t, "Failure Reason", rows[0][9])
	// newest first
	assert.Equal(t, "2", rows[1][0])
	assert.Equal(t, model.PaymentStatusCompleted, rows[1][3])

	total, err := f.GetCellValue("Payments", "C5")
	require.NoError(t, err)
	assert.Equal(t, "15000", total)

	summary, err := f.GetRows("Agreement")
	require.NoError(t, err)
	assert.Equal(t, []string{"Agreement ID", "42"}, summary[0])
	assert.Equal(t, []string{"Status", "ACTIVE"}, summary[2])
	assert.Equal(t, []string{"Total Paid", "15000"}, summary[6])
	assert.EqualValues(t, 2, paid.ID)
}

func TestBuildStatement_MissingAgreement(t *testing.T) {
	svc, _, storage, _ := newStatementEnv(t)

	_, err := svc.BuildStatement(context.Background(), model.ExportStatementPayload{
		ExportID:    uuid.NewString(),
		AgreementID: 999,
	})

	assert.ErrorIs(t, err, agreementModel.ErrAgreementNotFound)
	assert.Empty(t, storage.objects)
}

func TestGetStatementURL(t *testing.T) {
	svc, st, storage, _ := newStatementEnv(t)
	st.addAgreement(agreementID, agreementModel.StatusActive, renterID, landlordID)
	exportID := uuid.NewString()

	_, err := svc.GetStatementURL(context.Background(), renter(), agreementID, "not-a-uuid")
	requireCode(t, err, model.ErrCodeInvalidRequest)

	_, err = svc.GetStatementURL(context.Background(), renter(), agreementID, exportID)
	requireCode(t, err, model.ErrCodeStatementNotFound)

	storage.objects[StatementObjectKey(agreementID, exportID)] = []byte("xlsx")

	resp, err := svc.GetStatementURL(context.Background(), renter(), agreementID, exportID)
	require.NoError(t, err)
	assert.Contains(t, resp.URL, StatementObjectKey(agreementID, exportID))
	assert.Contains(t, resp.URL, "agreement-42-payments.xlsx")
	assert.Equal(t, st.clock.Add(15*time.Minute), resp.ExpiresAt)
}
