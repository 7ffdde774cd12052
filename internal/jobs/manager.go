package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"mystery_hunt_backend/internal/service"
	"mystery_hunt_backend/pkg/logger"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeSendMail = "mail:send"

	queueDefault = "default"
	queueLow     = "low"
)

// JobManager 基于 Redis 的邮件任务队列
type JobManager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewJobManager(redisAddr, password string, db, concurrency int) *JobManager {
	redisOpt := asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: password,
		DB:       db,
	}
	if concurrency <= 0 {
		concurrency = 5
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueDefault: 3, // 提示邮件
			queueLow:     1, // 审核结果通知
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Log.Error("Job failed", zap.String("type", task.Type()), zap.Error(err))
		}),
		Logger: &zapAsynqLogger{},
	})

	return &JobManager{
		client: asynq.NewClient(redisOpt),
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

func (jm *JobManager) RegisterHandlers(deliverer *service.MailDeliverer) {
	jm.mux.HandleFunc(TypeSendMail, HandleSendMail(deliverer))
}

// Start 非阻塞启动 worker
func (jm *JobManager) Start() error {
	logger.Log.Info("Starting mail job worker")
	return jm.server.Start(jm.mux)
}

func (jm *JobManager) Stop() {
	logger.Log.Info("Stopping mail job worker")
	jm.server.Shutdown()
	jm.client.Close()
}

// Dispatch 实现 service.MailDispatcher
func (jm *JobManager) Dispatch(ctx context.Context, job service.MailJob) error {
	task, err := NewSendMailTask(job)
	if err != nil {
		return err
	}

	queue := queueDefault
	if job.Kind == service.MailKindReview {
		queue = queueLow
	}

	info, err := jm.client.EnqueueContext(ctx, task,
		asynq.Queue(queue),
		asynq.MaxRetry(3),
		asynq.Timeout(60*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue mail task: %w", err)
	}

	logger.Log.Info("Queued mail job",
		zap.String("id", info.ID),
		zap.String("kind", job.Kind),
		zap.String("queue", queue))
	return nil
}

func NewSendMailTask(job service.MailJob) (*asynq.Task, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mail payload: %w", err)
	}
	return asynq.NewTask(TypeSendMail, payload), nil
}

func HandleSendMail(deliverer *service.MailDeliverer) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var job service.MailJob
		if err := json.Unmarshal(task.Payload(), &job); err != nil {
			return fmt.Errorf("failed to unmarshal mail payload: %w: %v", asynq.SkipRetry, err)
		}
		if err := deliverer.Deliver(ctx, job); err != nil {
			return fmt.Errorf("failed to send %s mail to %s: %w", job.Kind, job.To, err)
		}
		logger.Log.Info("Mail sent", zap.String("kind", job.Kind), zap.String("to", job.To))
		return nil
	}
}

type zapAsynqLogger struct{}

func (l *zapAsynqLogger) Debug(args ...interface{}) {
	logger.Log.Debug(fmt.Sprint(args...), zap.String("component", "asynq"))
}

func (l *zapAsynqLogger) Info(args ...interface{}) {
	logger.Log.Info(fmt.Sprint(args...), zap.String("component", "asynq"))
}

func (l *zapAsynqLogger) Warn(args ...interface{}) {
	logger.Log.Warn(fmt.Sprint(args...), zap.String("component", "asynq"))
}

func (l *zapAsynqLogger) Error(args ...interface{}) {
	logger.Log.Error(fmt.Sprint(args...), zap.String("component", "asynq"))
}

func (l *zapAsynqLogger) Fatal(args ...interface{}) {
	logger.Log.Error(fmt.Sprint(args...), zap.String("component", "asynq"))
}
