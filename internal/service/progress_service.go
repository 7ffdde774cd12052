package service

import (
	"context"
	"mystery_hunt_backend/internal/model"
	"mystery_hunt_backend/internal/repository"
	"mystery_hunt_backend/pkg/logger"

	"go.uber.org/zap"
)

type ProgressService struct {
	ProgressRepo *repository.ProgressRepository
	LevelRepo    *repository.LevelRepository
}

func NewProgressService(progressRepo *repository.ProgressRepository, levelRepo *repository.LevelRepository) *ProgressService {
	return &ProgressService{ProgressRepo: progressRepo, LevelRepo: levelRepo}
}

// Ensure 首次访问时创建进度并解锁全局第一关
func (s *ProgressService) Ensure(ctx context.Context, userID uint) (*model.UserProgress, error) {
	p, created, err := s.ProgressRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if created {
		first, err := s.LevelRepo.First(ctx, 0)
		if err != nil {
			return nil, err
		}
		if first != nil {
			if _, err := s.ProgressRepo.AddUnlockedLevel(ctx, userID, first.ID); err != nil {
				return nil, err
			}
			logger.Log.Debug("Progress created", zap.Uint("user_id", userID), zap.Uint("first_level", first.ID))
		}
	}
	return p, nil
}

// RecordAttempt 每次落库的作答都计入总次数
func (s *ProgressService) RecordAttempt(ctx context.Context, userID uint) error {
	if _, err := s.Ensure(ctx, userID); err != nil {
		return err
	}
	return s.ProgressRepo.IncrementAttempts(ctx, userID)
}

// Fetch 返回进度快照
func (s *ProgressService) Fetch(ctx context.Context, userID uint) (*model.ProgressView, error) {
	p, err := s.Ensure(ctx, userID)
	if err != nil {
		return nil, err
	}
	completed, err := s.ProgressRepo.CompletedLevelIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	unlocked, err := s.ProgressRepo.UnlockedLevelIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	presents, err := s.ProgressRepo.CollectedPresentIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &model.ProgressView{
		CompletedLevels:   make([]string, 0, len(completed)),
		UnlockedLevels:    make([]string, 0, len(unlocked)),
		CollectedPresents: make([]string, 0, len(presents)),
		TotalAttempts:     p.TotalAttempts,
	}
	for _, id := range completed {
		view.CompletedLevels = append(view.CompletedLevels, model.LevelRef(id))
	}
	for _, id := range unlocked {
		view.UnlockedLevels = append(view.UnlockedLevels, model.LevelRef(id))
	}
	for _, id := range presents {
		view.CollectedPresents = append(view.CollectedPresents, model.PresentRef(id))
	}
	return view, nil
}

// Sets 三个集合的原始ID，用于列表页计算状态
func (s *ProgressService) Sets(ctx context.Context, userID uint) (completed, unlocked map[uint]bool, err error) {
	if _, err = s.Ensure(ctx, userID); err != nil {
		return nil, nil, err
	}
	c, err := s.ProgressRepo.CompletedLevelIDs(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	u, err := s.ProgressRepo.UnlockedLevelIDs(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	completed = make(map[uint]bool, len(c))
	for _, id := range c {
		completed[id] = true
	}
	unlocked = make(map[uint]bool, len(u))
	for _, id := range u {
		unlocked[id] = true
	}
	return completed, unlocked, nil
}
