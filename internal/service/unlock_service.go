package service

import (
	"context"
	"fmt"
	"mystery_hunt_backend/internal/model"
	"mystery_hunt_backend/internal/repository"
	"mystery_hunt_backend/pkg/keylock"
	"mystery_hunt_backend/pkg/logger"
	"mystery_hunt_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// UnlockService 关卡完成判定与下一关解锁
type UnlockService struct {
	LevelRepo    *repository.LevelRepository
	QuestionRepo *repository.QuestionRepository
	AnswerRepo   *repository.AnswerRepository
	ProgressRepo *repository.ProgressRepository
	Progress     *ProgressService
	Settings     *GameSettings

	locks *keylock.KeyLock
}

func NewUnlockService(
	levelRepo *repository.LevelRepository,
	questionRepo *repository.QuestionRepository,
	answerRepo *repository.AnswerRepository,
	progress *ProgressService,
	settings *GameSettings,
) *UnlockService {
	return &UnlockService{
		LevelRepo:    levelRepo,
		QuestionRepo: questionRepo,
		AnswerRepo:   answerRepo,
		ProgressRepo: progress.ProgressRepo,
		Progress:     progress,
		Settings:     settings,
		locks:        keylock.New(),
	}
}

// EvaluateByID 按关卡ID评估
func (s *UnlockService) EvaluateByID(ctx context.Context, userID, levelID uint) (*model.PresentView, error) {
	level, err := s.LevelRepo.FindByID(ctx, levelID)
	if err != nil {
		return nil, err
	}
	return s.Evaluate(ctx, userID, level)
}

// Evaluate 关卡全部题目都有正式答案时：标记完成、解锁下一关、发放奖励。
// 未完成时不做任何修改；重复调用结果一致。没有下一关时返回 nil。
func (s *UnlockService) Evaluate(ctx context.Context, userID uint, level *model.Level) (*model.PresentView, error) {
	unlock := s.locks.Lock(fmt.Sprintf("%d:%d", userID, level.ID))
	defer unlock()

	questionIDs, err := s.QuestionRepo.IDsByLevel(ctx, level.ID)
	if err != nil {
		return nil, err
	}
	if len(questionIDs) == 0 {
		return nil, nil
	}
	solved, err := s.AnswerRepo.SolvedQuestionIDs(ctx, userID, questionIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range questionIDs {
		if !solved[id] {
			return nil, nil
		}
	}

	if _, err := s.Progress.Ensure(ctx, userID); err != nil {
		return nil, err
	}

	added, err := s.ProgressRepo.AddCompletedLevel(ctx, userID, level.ID)
	if err != nil {
		return nil, err
	}
	if added {
		monitoring.LevelsCompleted.Inc()
		logger.Log.Info("Level completed", zap.Uint("user_id", userID), zap.Uint("level_id", level.ID))
	}

	var scope uint
	if s.Settings.Get().ScopeUnlockToMystery {
		scope = level.MysteryID
	}
	next, err := s.LevelRepo.Next(ctx, level, scope)
	if err != nil {
		return nil, err
	}
	if next == nil {
		logger.Log.Debug("No further levels to unlock", zap.Uint("level_id", level.ID))
		return nil, nil
	}

	added, err = s.ProgressRepo.AddUnlockedLevel(ctx, userID, next.ID)
	if err != nil {
		return nil, err
	}
	if added {
		monitoring.LevelsUnlocked.Inc()
		logger.Log.Info("Level unlocked", zap.Uint("user_id", userID), zap.Uint("level_id", next.ID))
	}

	present, err := s.LevelRepo.FindPresentByLevel(ctx, level.ID)
	if err != nil || present == nil {
		return nil, err
	}
	added, err = s.ProgressRepo.AddCollectedPresent(ctx, userID, present.ID)
	if err != nil {
		return nil, err
	}
	if added {
		monitoring.PresentsCollected.Inc()
	}
	return present.View(), nil
}
