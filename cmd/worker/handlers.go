package main

import (
	"github.com/hibiken/asynq"

	paymentJob "rentflow-backend/internal/domains/payment/job"
	"rentflow-backend/internal/shared"
	"rentflow-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	notify          *paymentJob.NotifyHandler
	expireStale     *paymentJob.ExpireStaleHandler
	exportStatement *paymentJob.ExportStatementHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		notify:          paymentJob.NewNotifyHandler(c.NotificationService),
		expireStale:     paymentJob.NewExpireStaleHandler(c.PaymentService, c.StaleTimeout(), c.Config.Jobs.StaleBatchSize),
		exportStatement: paymentJob.NewExportStatementHandler(c.StatementService),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypePaymentNotify, h.notify.ProcessTask)
	mux.HandleFunc(shared.TypeExpireStalePayments, h.expireStale.ProcessTask)
	mux.HandleFunc(shared.TypeExportPaymentStatement, h.exportStatement.ProcessTask)
}
