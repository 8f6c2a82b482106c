package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	agreementModel "rentflow-backend/internal/domains/agreement/model"
	agreementRepo "rentflow-backend/internal/domains/agreement/repository"
	"rentflow-backend/internal/domains/payment/model"
	repo "rentflow-backend/internal/domains/payment/repository"
	"rentflow-backend/internal/shared"
	"rentflow-backend/pkg/logger"
)

// =====================================================
// STATEMENT SERVICE INTERFACE
// =====================================================
type StatementService interface {
	// RequestStatement queues an xlsx export of an agreement's payments
	RequestStatement(ctx context.Context, viewer model.Viewer, agreementID int64) (*model.StatementRequestResponse, error)

	// BuildStatement renders and uploads the workbook (worker side)
	BuildStatement(ctx context.Context, payload model.ExportStatementPayload) (string, error)

	// GetStatementURL returns a presigned download link for a finished export
	GetStatementURL(ctx context.Context, viewer model.Viewer, agreementID int64, exportID string) (*model.StatementURLResponse, error)
}

// ObjectStorage is satisfied by storage.MinIOStorage
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	PresignedGetURL(ctx context.Context, key, filename string, expiry time.Duration) (string, error)
}

type statementService struct {
	paymentRepo   repo.PaymentRepository
	agreementRepo agreementRepo.AgreementRepository
	storage       ObjectStorage
	queue         TaskEnqueuer
	urlExpiry     time.Duration
	now           func() time.Time
}

func NewStatementService(
	paymentRepo repo.PaymentRepository,
	agreementRepo agreementRepo.AgreementRepository,
	storage ObjectStorage,
	queue TaskEnqueuer,
	urlExpiry time.Duration,
) StatementService {
	if urlExpiry <= 0 {
		urlExpiry = 15 * time.Minute
	}
	return &statementService{
		paymentRepo:   paymentRepo,
		agreementRepo: agreementRepo,
		storage:       storage,
		queue:         queue,
		urlExpiry:     urlExpiry,
		now:           time.Now,
	}
}

// StatementObjectKey is where an export lives in the bucket
func StatementObjectKey(agreementID int64, exportID string) string {
	return fmt.Sprintf("statements/agreement-%d/%s.xlsx", agreementID, exportID)
}

// =====================================================
// REQUEST
// =====================================================

func (s *statementService) RequestStatement(
	ctx context.Context,
	viewer model.Viewer,
	agreementID int64,
) (*model.StatementRequestResponse, error) {
	if _, err := s.visibleAgreement(ctx, viewer, agreementID); err != nil {
		return nil, err
	}

	exportID := uuid.NewString()
	payload := model.ExportStatementPayload{
		ExportID:    exportID,
		AgreementID: agreementID,
		ObjectKey:   StatementObjectKey(agreementID, exportID),
		RequestedBy: viewer.UserID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, model.NewInternalError(err)
	}

	_, err = s.queue.EnqueueContext(
		ctx,
		asynq.NewTask(shared.TypeExportPaymentStatement, body),
		asynq.Queue(shared.QueueLow),
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.TaskID(exportID),
	)
	if err != nil {
		return nil, model.NewInternalError(fmt.Errorf("enqueue statement export: %w", err))
	}

	logger.Info("Payment statement export queued", map[string]interface{}{
		"agreement_id": agreementID,
		"export_id":    exportID,
	})

	return &model.StatementRequestResponse{
		ExportID:  exportID,
		ObjectKey: payload.ObjectKey,
	}, nil
}

// =====================================================
// BUILD (worker)
// =====================================================

func (s *statementService) BuildStatement(ctx context.Context, payload model.ExportStatementPayload) (string, error) {
	agreement, err := s.agreementRepo.GetByID(ctx, payload.AgreementID)
	if err != nil {
		return "", fmt.Errorf("load agreement: %w", err)
	}

	payments, err := s.paymentRepo.ListByAgreement(ctx, payload.AgreementID)
	if err != nil {
		return "", fmt.Errorf("list payments: %w", err)
	}

	data, err := BuildStatementWorkbook(agreement, payments, s.now())
	if err != nil {
		return "", err
	}

	key := payload.ObjectKey
	if key == "" {
		key = StatementObjectKey(payload.AgreementID, payload.ExportID)
	}

	if _, err := s.storage.Upload(ctx, key, data, model.StatementContentType); err != nil {
		return "", err
	}

	return key, nil
}

// BuildStatementWorkbook renders an agreement's payments as xlsx
func BuildStatementWorkbook(
	agreement *agreementModel.Agreement,
	payments []*model.Payment,
	generatedAt time.Time,
) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Payments"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headers := []string{
		"Payment ID",
		"Payment Date",
		"Amount",
		"Status",
		"Gateway",
		"Transaction ID",
		"Reference ID",
		"Completed At",
		"Failed At",
		"Failure Reason",
	}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		f.SetCellStyle(sheet, "A1", last, style)
	}

	paid := decimal.Zero
	for i, p := range payments {
		row := i + 2
		cell := func(col int) string {
			c, _ := excelize.CoordinatesToCellName(col, row)
			return c
		}

		f.SetCellValue(sheet, cell(1), p.ID)
		f.SetCellValue(sheet, cell(2), p.CreatedAt.Format(time.RFC3339))
		f.SetCellValue(sheet, cell(3), p.Amount.InexactFloat64())
		f.SetCellValue(sheet, cell(4), p.Status)
		f.SetCellValue(sheet, cell(5), p.Gateway)
		f.SetCellValue(sheet, cell(6), deref(p.TransactionID))
		f.SetCellValue(sheet, cell(7), deref(p.ReferenceID))
		f.SetCellValue(sheet, cell(8), formatTime(p.CompletedAt))
		f.SetCellValue(sheet, cell(9), formatTime(p.FailedAt))
		f.SetCellValue(sheet, cell(10), deref(p.FailureReason))

		if p.IsCompleted() {
			paid = paid.Add(p.Amount)
		}
	}

	totalRow := len(payments) + 3
	f.SetCellValue(sheet, fmt.Sprintf("B%d", totalRow), "Total paid")
	f.SetCellValue(sheet, fmt.Sprintf("C%d", totalRow), paid.InexactFloat64())

	// Agreement summary
	summary := "Agreement"
	if _, err := f.NewSheet(summary); err != nil {
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}
	rows := [][2]interface{}{
		{"Agreement ID", agreement.ID},
		{"Booking ID", agreement.BookingID},
		{"Status", agreement.Status.String()},
		{"Start Date", formatTime(agreement.StartDate)},
		{"End Date", formatTime(agreement.EndDate)},
		{"Payments", len(payments)},
		{"Total Paid", paid.String()},
		{"Generated At", generatedAt.UTC().Format(time.RFC3339)},
	}
	for i, r := range rows {
		f.SetCellValue(summary, fmt.Sprintf("A%d", i+1), r[0])
		f.SetCellValue(summary, fmt.Sprintf("B%d", i+1), r[1])
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// =====================================================
// DOWNLOAD
// =====================================================

func (s *statementService) GetStatementURL(
	ctx context.Context,
	viewer model.Viewer,
	agreementID int64,
	exportID string,
) (*model.StatementURLResponse, error) {
	if _, err := uuid.Parse(exportID); err != nil {
		return nil, model.NewInvalidRequestError(fmt.Errorf("invalid export id: %w", err))
	}

	if _, err := s.visibleAgreement(ctx, viewer, agreementID); err != nil {
		return nil, err
	}

	key := StatementObjectKey(agreementID, exportID)
	ok, err := s.storage.Exists(ctx, key)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if !ok {
		return nil, model.NewStatementNotFoundError(exportID)
	}

	filename := fmt.Sprintf("agreement-%d-payments.xlsx", agreementID)
	url, err := s.storage.PresignedGetURL(ctx, key, filename, s.urlExpiry)
	if err != nil {
		return nil, model.NewInternalError(err)
	}

	return &model.StatementURLResponse{
		URL:       url,
		ExpiresAt: s.now().Add(s.urlExpiry),
	}, nil
}

func (s *statementService) visibleAgreement(
	ctx context.Context,
	viewer model.Viewer,
	agreementID int64,
) (*agreementModel.Agreement, error) {
	agreement, err := s.agreementRepo.GetByID(ctx, agreementID)
	if err != nil {
		if errors.Is(err, agreementModel.ErrAgreementNotFound) {
			return nil, model.NewAgreementNotFoundError(agreementID)
		}
		return nil, model.NewInternalError(err)
	}
	if !viewer.CanAccess(agreement) {
		return nil, model.NewForbiddenError()
	}
	return agreement, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
