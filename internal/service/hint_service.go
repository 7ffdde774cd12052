package service

import (
	"context"
	"fmt"
	"mystery_hunt_backend/internal/repository"
	"mystery_hunt_backend/internal/util"
	"mystery_hunt_backend/pkg/logger"
	"mystery_hunt_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// HintAck 提示请求已受理
type HintAck struct {
	Detail string `json:"detail"`
}

// HintService 发送提示邮件，与作答进度完全独立
type HintService struct {
	QuestionRepo *repository.QuestionRepository
	UserRepo     *repository.UserRepository
	Dispatcher   MailDispatcher
	Redis        *redis.Client
	Settings     *GameSettings
}

func NewHintService(
	questionRepo *repository.QuestionRepository,
	userRepo *repository.UserRepository,
	dispatcher MailDispatcher,
	rdb *redis.Client,
	settings *GameSettings,
) *HintService {
	return &HintService{
		QuestionRepo: questionRepo,
		UserRepo:     userRepo,
		Dispatcher:   dispatcher,
		Redis:        rdb,
		Settings:     settings,
	}
}

func hintKey(userID, questionID uint) string {
	return fmt.Sprintf("mystery:hint:%d:%d", userID, questionID)
}

// RequestHint 把题目的第一封提示邮件发给玩家
func (s *HintService) RequestHint(ctx context.Context, userID uint, questionRef string) (*HintAck, error) {
	questionID, err := util.ParseQuestionRef(questionRef)
	if err != nil {
		return nil, err
	}
	question, err := s.QuestionRepo.FindByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	hint, err := s.QuestionRepo.FirstHint(ctx, question.ID)
	if err != nil {
		return nil, err
	}
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := hintKey(userID, question.ID)
	if err := s.acquire(ctx, key); err != nil {
		monitoring.HintRequests.WithLabelValues("throttled").Inc()
		return nil, err
	}

	job := MailJob{
		Kind:     MailKindHint,
		To:       user.Email,
		Subject:  hint.Subject,
		Body:     hint.Body,
		ImageRef: hint.ImageRef,
	}
	if err := s.Dispatcher.Dispatch(ctx, job); err != nil {
		s.release(key)
		monitoring.HintRequests.WithLabelValues("failed").Inc()
		logger.Log.Error("Failed to dispatch hint mail",
			zap.Uint("user_id", userID),
			zap.Uint("question_id", question.ID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", util.ErrCollaboratorFailure, err)
	}

	monitoring.HintRequests.WithLabelValues("sent").Inc()
	return &HintAck{Detail: "Hint successfully sent"}, nil
}

// acquire 冷却期内重复请求返回 ErrHintThrottled；Redis 不可用时放行
func (s *HintService) acquire(ctx context.Context, key string) error {
	cooldown := s.Settings.Get().HintCooldown()
	if s.Redis == nil || cooldown <= 0 {
		return nil
	}
	ok, err := s.Redis.SetNX(ctx, key, 1, cooldown).Result()
	if err != nil {
		logger.Log.Warn("Hint throttle unavailable", zap.String("key", key), zap.Error(err))
		return nil
	}
	if !ok {
		return util.ErrHintThrottled
	}
	return nil
}

func (s *HintService) release(key string) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(context.Background(), key).Err(); err != nil {
		logger.Log.Warn("Failed to release hint throttle", zap.String("key", key), zap.Error(err))
	}
}
