package service

import (
	"context"
	"mystery_hunt_backend/internal/repository"
	"mystery_hunt_backend/internal/util"
	"mystery_hunt_backend/pkg/logger"
	"strings"
	"time"

	"go.uber.org/zap"
)

type MysteryView struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedBy   uint      `json:"createdBy"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	HomePage    string    `json:"homePage,omitempty"`
	JoinStatus  bool      `json:"joinStatus"`
}

type MysteryService struct {
	MysteryRepo  *repository.MysteryRepository
	LevelRepo    *repository.LevelRepository
	ProgressRepo *repository.ProgressRepository
	Progress     *ProgressService

	now func() time.Time
}

func NewMysteryService(mysteryRepo *repository.MysteryRepository, levelRepo *repository.LevelRepository, progress *ProgressService) *MysteryService {
	return &MysteryService{
		MysteryRepo:  mysteryRepo,
		LevelRepo:    levelRepo,
		ProgressRepo: progress.ProgressRepo,
		Progress:     progress,
		now:          time.Now,
	}
}

// ListVisible 可见的活动及当前用户是否已加入
func (s *MysteryService) ListVisible(ctx context.Context, userID uint) ([]MysteryView, error) {
	list, err := s.MysteryRepo.ListVisible(ctx)
	if err != nil {
		return nil, err
	}
	joined, err := s.MysteryRepo.JoinedMysteryIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]MysteryView, 0, len(list))
	for i := range list {
		m := &list[i]
		views = append(views, MysteryView{
			ID:          m.ID,
			Name:        m.Name,
			Description: m.Description,
			Image:       m.ImageRef,
			IsActive:    m.IsActive(now),
			CreatedBy:   m.CreatedBy,
			StartsAt:    m.StartsAt,
			EndsAt:      m.EndsAt,
			HomePage:    m.HomePage,
			JoinStatus:  joined[m.ID],
		})
	}
	return views, nil
}

// Join 凭口令加入活动，并解锁该活动的第一关
func (s *MysteryService) Join(ctx context.Context, userID, mysteryID uint, pin string) error {
	m, err := s.MysteryRepo.FindByID(ctx, mysteryID)
	if err != nil {
		return err
	}
	if !m.IsVisible {
		return util.ErrMysteryNotFound
	}
	if strings.TrimSpace(pin) != m.JoiningPin {
		return util.ErrInvalidPin
	}
	if !m.IsActive(s.now()) {
		return util.ErrMysteryInactive
	}

	if err := s.MysteryRepo.AddParticipant(ctx, m.ID, userID); err != nil {
		return err
	}
	if _, err := s.Progress.Ensure(ctx, userID); err != nil {
		return err
	}
	first, err := s.LevelRepo.First(ctx, m.ID)
	if err != nil {
		return err
	}
	if first != nil {
		if _, err := s.ProgressRepo.AddUnlockedLevel(ctx, userID, first.ID); err != nil {
			return err
		}
	}

	logger.Log.Info("Player joined mystery", zap.Uint("user_id", userID), zap.Uint("mystery_id", m.ID))
	return nil
}
