package service

import (
	"context"
	"mystery_hunt_backend/internal/model"
	"mystery_hunt_backend/internal/repository"
)

// QuestionStatus 题目对当前玩家的状态
type QuestionStatus struct {
	Completed bool `json:"completed"`
	Pending   bool `json:"pending"`
}

type LevelQuestionSummary struct {
	ID     string         `json:"id"`
	Status QuestionStatus `json:"status"`
}

type LevelSummary struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Quest       string                 `json:"quest"`
	MysteryID   uint                   `json:"mysteryId"`
	IsUnlocked  bool                   `json:"isUnlocked"`
	IsCompleted bool                   `json:"isCompleted"`
	Questions   []LevelQuestionSummary `json:"questions"`
	Present     *model.PresentView     `json:"present"`
}

type QuestionDetail struct {
	ID            string         `json:"id"`
	LevelID       string         `json:"levelId"`
	Question      string         `json:"question"`
	QuestionImage string         `json:"questionImage,omitempty"`
	MaxAttempts   int            `json:"maxAttempts"`
	Attempts      int64          `json:"attempts"`
	Status        QuestionStatus `json:"status"`
	Type          string         `json:"type"`
}

type LevelDetail struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Quest       string             `json:"quest"`
	MysteryID   uint               `json:"mysteryId"`
	IsUnlocked  bool               `json:"isUnlocked"`
	IsCompleted bool               `json:"isCompleted"`
	Questions   []QuestionDetail   `json:"questions"`
	Present     *model.PresentView `json:"present"`
}

// LevelService 关卡列表与详情的只读视图
type LevelService struct {
	LevelRepo  *repository.LevelRepository
	AnswerRepo *repository.AnswerRepository
	ReviewRepo *repository.ReviewRepository
	Progress   *ProgressService
	Settings   *GameSettings
}

func NewLevelService(
	levelRepo *repository.LevelRepository,
	answerRepo *repository.AnswerRepository,
	reviewRepo *repository.ReviewRepository,
	progress *ProgressService,
	settings *GameSettings,
) *LevelService {
	return &LevelService{
		LevelRepo:  levelRepo,
		AnswerRepo: answerRepo,
		ReviewRepo: reviewRepo,
		Progress:   progress,
		Settings:   settings,
	}
}

type questionState struct {
	solved  map[uint]bool
	pending map[uint]bool
}

func (s *LevelService) loadQuestionState(ctx context.Context, userID uint, questionIDs []uint) (*questionState, error) {
	solved, err := s.AnswerRepo.SolvedQuestionIDs(ctx, userID, questionIDs)
	if err != nil {
		return nil, err
	}
	pending, err := s.ReviewRepo.PendingQuestionIDs(ctx, userID, questionIDs)
	if err != nil {
		return nil, err
	}
	return &questionState{solved: solved, pending: pending}, nil
}

func (st *questionState) status(questionID uint) QuestionStatus {
	if st.solved[questionID] {
		return QuestionStatus{Completed: true}
	}
	return QuestionStatus{Pending: st.pending[questionID]}
}

// presentIfCompleted 奖励只对已完成关卡展示
func presentIfCompleted(level *model.Level, completed bool) *model.PresentView {
	if !completed || level.Present == nil {
		return nil
	}
	return level.Present.View()
}

// ListLevels 某个活动下的全部关卡，活动的第一关始终显示为已解锁
func (s *LevelService) ListLevels(ctx context.Context, userID, mysteryID uint) ([]LevelSummary, error) {
	levels, err := s.LevelRepo.ListByMystery(ctx, mysteryID)
	if err != nil {
		return nil, err
	}
	completed, unlocked, err := s.Progress.Sets(ctx, userID)
	if err != nil {
		return nil, err
	}

	var questionIDs []uint
	for _, l := range levels {
		for _, q := range l.Questions {
			questionIDs = append(questionIDs, q.ID)
		}
	}
	state, err := s.loadQuestionState(ctx, userID, questionIDs)
	if err != nil {
		return nil, err
	}

	result := make([]LevelSummary, 0, len(levels))
	for i := range levels {
		l := &levels[i]
		summary := LevelSummary{
			ID:          model.LevelRef(l.ID),
			Name:        l.Name,
			Quest:       l.Quest,
			MysteryID:   l.MysteryID,
			IsUnlocked:  i == 0 || unlocked[l.ID],
			IsCompleted: completed[l.ID],
			Questions:   make([]LevelQuestionSummary, 0, len(l.Questions)),
			Present:     presentIfCompleted(l, completed[l.ID]),
		}
		for _, q := range l.Questions {
			summary.Questions = append(summary.Questions, LevelQuestionSummary{
				ID:     model.QuestionRef(q.ID),
				Status: state.status(q.ID),
			})
		}
		result = append(result, summary)
	}
	return result, nil
}

// GetLevelDetail 单个关卡详情；attempts 对审核题统计审核次数，其余统计作答次数
func (s *LevelService) GetLevelDetail(ctx context.Context, userID, levelID uint) (*LevelDetail, error) {
	level, err := s.LevelRepo.FindWithContent(ctx, levelID)
	if err != nil {
		return nil, err
	}
	completed, unlocked, err := s.Progress.Sets(ctx, userID)
	if err != nil {
		return nil, err
	}
	first, err := s.LevelRepo.First(ctx, level.MysteryID)
	if err != nil {
		return nil, err
	}

	questionIDs := make([]uint, 0, len(level.Questions))
	for _, q := range level.Questions {
		questionIDs = append(questionIDs, q.ID)
	}
	state, err := s.loadQuestionState(ctx, userID, questionIDs)
	if err != nil {
		return nil, err
	}
	answerCounts, err := s.AnswerRepo.AttemptCounts(ctx, userID, questionIDs)
	if err != nil {
		return nil, err
	}
	reviewCounts, err := s.ReviewRepo.CountsByQuestions(ctx, userID, questionIDs)
	if err != nil {
		return nil, err
	}

	detail := &LevelDetail{
		ID:          model.LevelRef(level.ID),
		Name:        level.Name,
		Quest:       level.Quest,
		MysteryID:   level.MysteryID,
		IsUnlocked:  unlocked[level.ID] || (first != nil && first.ID == level.ID),
		IsCompleted: completed[level.ID],
		Questions:   make([]QuestionDetail, 0, len(level.Questions)),
		Present:     presentIfCompleted(level, completed[level.ID]),
	}
	defaultMax := s.Settings.Get().DefaultMaxAttempts
	for _, q := range level.Questions {
		attempts := answerCounts[q.ID]
		if q.AnswerType.IsReview() {
			attempts = reviewCounts[q.ID]
		}
		limit := q.MaxAttempts
		if limit <= 0 {
			limit = defaultMax
		}
		detail.Questions = append(detail.Questions, QuestionDetail{
			ID:            model.QuestionRef(q.ID),
			LevelID:       model.LevelRef(level.ID),
			Question:      q.Text,
			QuestionImage: q.ImageRef,
			MaxAttempts:   limit,
			Attempts:      attempts,
			Status:        state.status(q.ID),
			Type:          string(q.AnswerType),
		})
	}
	return detail, nil
}
