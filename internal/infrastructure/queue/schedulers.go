package queue

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"rentflow-backend/internal/config"
	paymentModel "rentflow-backend/internal/domains/payment/model"
	"rentflow-backend/internal/shared"
	"rentflow-backend/pkg/logger"
)

// cronRegistrar is the part of *asynq.Scheduler used here
type cronRegistrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

type Scheduler struct {
	scheduler *asynq.Scheduler
	registrar cronRegistrar
	jobConfig config.JobConfig
}

func NewScheduler(redisOpt asynq.RedisClientOpt, jobConfig config.JobConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		registrar: scheduler,
		jobConfig: jobConfig,
	}
}

func (s *Scheduler) RegisterPaymentJobs() error {
	return s.registerExpireStalePaymentsJob()
}

// ================================================
// Stale payment sweep (every 10 minutes by default)
// ================================================
func (s *Scheduler) registerExpireStalePaymentsJob() error {
	payload, err := json.Marshal(paymentModel.ExpireStalePaymentsPayload{
		TimeoutMinutes: s.jobConfig.PaymentTimeoutMinutes,
		Limit:          s.jobConfig.StaleBatchSize,
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(shared.TypeExpireStalePayments, payload)

	_, err = s.registrar.Register(
		s.jobConfig.StalePaymentCron,
		task,
		asynq.Queue(shared.QueueDefault),
		asynq.MaxRetry(1),
		asynq.Timeout(5*time.Minute),
		// a slow sweep must not overlap the next tick
		asynq.Unique(5*time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register ExpireStalePayments job", err)
		return err
	}

	logger.Info("Registered ExpireStalePayments", map[string]interface{}{
		"cron":            s.jobConfig.StalePaymentCron,
		"timeout_minutes": s.jobConfig.PaymentTimeoutMinutes,
	})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
