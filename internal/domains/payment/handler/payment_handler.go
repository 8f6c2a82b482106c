package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"rentflow-backend/internal/domains/payment/model"
	"rentflow-backend/internal/domains/payment/service"
	"rentflow-backend/internal/shared/middleware"
	res "rentflow-backend/internal/shared/response"
	"rentflow-backend/internal/shared/utils"
)

type PaymentHandler struct {
	paymentService   service.PaymentService
	statementService service.StatementService

	// defaults for the admin-triggered sweep
	staleTimeout time.Duration
	staleLimit   int
}

// NewPaymentHandler creates new payment handler
func NewPaymentHandler(
	paymentService service.PaymentService,
	statementService service.StatementService,
	staleTimeout time.Duration,
	staleLimit int,
) *PaymentHandler {
	return &PaymentHandler{
		paymentService:   paymentService,
		statementService: statementService,
		staleTimeout:     staleTimeout,
		staleLimit:       staleLimit,
	}
}

// =====================================================
// ESEWA ENDPOINTS
// =====================================================

// InitializeAgreementPayment creates a Pending payment and returns the signed eSewa form
// POST /api/v1/esewa/initialize-agreement-payment
func (h *PaymentHandler) InitializeAgreementPayment(c *gin.Context) {
	// Step 1: Caller
	viewer, ok := getViewer(c)
	if !ok {
		res.Unauthorized(c, "Unauthorized")
		return
	}

	// Step 2: Bind request body
	var req model.InitiatePaymentRequest
	if err := bindJSON(c, &req); err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeInvalidRequest, "Please provide all required fields")
		return
	}

	// Step 3: Call service
	result, err := h.paymentService.InitiateAgreementPayment(c.Request.Context(), viewer, req)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	// Step 4: Return response
	res.Payload(c, http.StatusOK, gin.H{
		"payment":       result.Payment,
		"paymentData":   result.PaymentData,
		"paymentParams": result.PaymentParams,
	})
}

// CompletePayment is the eSewa success redirect
// GET /api/v1/esewa/complete-payment?data=<base64>
func (h *PaymentHandler) CompletePayment(c *gin.Context) {
	payment, err := h.paymentService.CompletePayment(c.Request.Context(), c.Query("data"))
	if err != nil {
		// the gateway redirect reports an unknown payment as a bad request
		writeError(c, err, map[string]int{model.ErrCodePaymentNotFound: http.StatusBadRequest})
		return
	}

	res.Payload(c, http.StatusOK, gin.H{
		"message": "Payment completed successfully",
		"payment": payment,
	})
}

// PaymentFailed is called by the client when eSewa redirects to the failure URL
// POST /api/v1/esewa/payment-failed
func (h *PaymentHandler) PaymentFailed(c *gin.Context) {
	var req model.FailPaymentRequest
	if err := bindJSON(c, &req); err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeInvalidRequest, "Payment ID is required")
		return
	}

	result, err := h.paymentService.FailPayment(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	res.Payload(c, http.StatusOK, gin.H{
		"message":   "Payment marked as failed",
		"payment":   result.Payment,
		"agreement": result.Agreement,
	})
}

// GetAgreementPaymentStatus returns the latest payment of an agreement
// GET /api/v1/esewa/agreement-payment-status/:agreementId
func (h *PaymentHandler) GetAgreementPaymentStatus(c *gin.Context) {
	viewer, ok := getViewer(c)
	if !ok {
		res.Unauthorized(c, "Unauthorized")
		return
	}

	agreementID, err := utils.ParseID(c.Param("agreementId"))
	if err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeInvalidRequest, "Invalid agreement ID")
		return
	}

	result, err := h.paymentService.GetAgreementPaymentStatus(c.Request.Context(), viewer, agreementID)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	res.Payload(c, http.StatusOK, gin.H{
		"payment":   result.Payment,
		"agreement": result.Agreement,
	})
}

// =====================================================
// HISTORY & STATEMENTS
// =====================================================

// ListAgreementPayments returns every payment attempt of an agreement, newest first
// GET /api/v1/esewa/agreement-payments/:agreementId
func (h *PaymentHandler) ListAgreementPayments(c *gin.Context) {
	viewer, ok := getViewer(c)
	if !ok {
		res.Unauthorized(c, "Unauthorized")
		return
	}

	agreementID, err := utils.ParseID(c.Param("agreementId"))
	if err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeInvalidRequest, "Invalid agreement ID")
		return
	}

	payments, err := h.paymentService.ListAgreementPayments(c.Request.Context(), viewer, agreementID)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	res.SuccessWithMeta(c, http.StatusOK, payments, &res.Meta{Total: len(payments)})
}

// RequestStatement queues an xlsx statement export
// POST /api/v1/esewa/agreement-payments/:agreementId/statement
func (h *PaymentHandler) RequestStatement(c *gin.Context) {
	viewer, ok := getViewer(c)
	if !ok {
		res.Unauthorized(c, "Unauthorized")
		return
	}

	agreementID, err := utils.ParseID(c.Param("agreementId"))
	if err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeInvalidRequest, "Invalid agreement ID")
		return
	}

	result, err := h.statementService.RequestStatement(c.Request.Context(), viewer, agreementID)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	res.Success(c, http.StatusAccepted, "Statement export queued", result)
}

// GetStatementURL returns a presigned download URL for a finished export
// GET /api/v1/esewa/agreement-payments/:agreementId/statements/:exportId
func (h *PaymentHandler) GetStatementURL(c *gin.Context) {
	viewer, ok := getViewer(c)
	if !ok {
		res.Unauthorized(c, "Unauthorized")
		return
	}

	agreementID, err := utils.ParseID(c.Param("agreementId"))
	if err != nil {
		res.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeInvalidRequest, "Invalid agreement ID")
		return
	}

	result, err := h.statementService.GetStatementURL(c.Request.Context(), viewer, agreementID, c.Param("exportId"))
	if err != nil {
		writeError(c, err, nil)
		return
	}

	res.Success(c, http.StatusOK, "OK", result)
}

// =====================================================
// ADMIN
// =====================================================

// ReconcileStalePayments runs the stale payment sweep immediately
// POST /api/v1/admin/payments/reconcile?timeout_minutes=30&limit=100
func (h *PaymentHandler) ReconcileStalePayments(c *gin.Context) {
	timeout := h.staleTimeout
	if raw := c.Query("timeout_minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes < 1 {
			res.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeInvalidRequest, "timeout_minutes must be a positive integer")
			return
		}
		timeout = time.Duration(minutes) * time.Minute
	}

	limit := h.staleLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			res.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeInvalidRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	result, err := h.paymentService.ReconcileStalePayments(c.Request.Context(), timeout, limit)
	if err != nil {
		writeError(c, err, nil)
		return
	}

	res.Success(c, http.StatusOK, "Reconciliation finished", result)
}

// =====================================================
// ERROR MAPPING HELPER
// =====================================================

func mapPaymentError(err error) (statusCode int, errorCode string) {
	// Default
	statusCode = http.StatusInternalServerError
	errorCode = model.ErrCodeInternalError

	var paymentErr *model.PaymentError
	if !errors.As(err, &paymentErr) {
		return statusCode, errorCode
	}
	errorCode = paymentErr.Code

	switch paymentErr.Code {
	case model.ErrCodeInvalidRequest,
		model.ErrCodePaymentDataRequired,
		model.ErrCodeInvalidPaymentData,
		model.ErrCodeAgreementNotPayable,
		model.ErrCodeAlreadyPaid,
		model.ErrCodeAlreadyCompleted,
		model.ErrCodeAlreadyFailed,
		model.ErrCodeInvalidSignature,
		model.ErrCodeGatewayStatus,
		model.ErrCodeAmountMismatch:
		statusCode = http.StatusBadRequest
	case model.ErrCodePaymentNotFound,
		model.ErrCodeAgreementNotFound,
		model.ErrCodeStatementNotFound:
		statusCode = http.StatusNotFound
	case model.ErrCodeInvalidTransition, model.ErrCodeInitiationInFlight:
		statusCode = http.StatusConflict
	case model.ErrCodeForbidden:
		statusCode = http.StatusForbidden
	default:
		statusCode = http.StatusInternalServerError
	}

	return statusCode, errorCode
}

// writeError renders a service error. overrides remaps the status of specific codes.
func writeError(c *gin.Context, err error, overrides map[string]int) {
	statusCode, errCode := mapPaymentError(err)
	if s, ok := overrides[errCode]; ok {
		statusCode = s
	}

	var paymentErr *model.PaymentError
	if !errors.As(err, &paymentErr) {
		res.ErrorResponse(c, statusCode, errCode, err.Error())
		return
	}

	message := paymentErr.Message
	if statusCode == http.StatusInternalServerError && paymentErr.Err != nil {
		message = paymentErr.Err.Error()
	}

	if paymentErr.Payment != nil {
		res.ErrorWithDetails(c, statusCode, errCode, message, gin.H{"payment": paymentErr.Payment})
		return
	}
	res.ErrorResponse(c, statusCode, errCode, message)
}

// =====================================================
// HELPER FUNCTIONS
// =====================================================

// getViewer extracts the caller set by AuthMiddleware
func getViewer(c *gin.Context) (model.Viewer, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return model.Viewer{}, false
	}
	return model.Viewer{UserID: userID, Role: middleware.Role(c)}, true
}

// bindJSON binds JSON request body
func bindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
