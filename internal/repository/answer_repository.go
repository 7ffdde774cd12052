package repository

import (
	"context"
	"fmt"
	"mystery_hunt_backend/internal/model"
	"mystery_hunt_backend/internal/util"

	"gorm.io/gorm"
)

type AnswerRepository struct {
	DB *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) *AnswerRepository {
	return &AnswerRepository{DB: db}
}

type questionCount struct {
	QuestionID uint
	Total      int64
}

// Create 写入作答记录；正式答案冲突时返回 ErrStorageConflict
func (r *AnswerRepository) Create(ctx context.Context, a *model.Answer) error {
	if a.IsCorrect {
		a.SolvedKey = model.SolvedKeyFor(a.UserID, a.QuestionID)
	} else {
		a.SolvedKey = nil
	}
	err := r.DB.WithContext(ctx).Create(a).Error
	if isDuplicateKey(err) {
		return fmt.Errorf("answer user=%d question=%d: %w", a.UserID, a.QuestionID, util.ErrStorageConflict)
	}
	return err
}

// HasCanonical 是否已有正式答案
func (r *AnswerRepository) HasCanonical(ctx context.Context, userID, questionID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Answer{}).
		Where("user_id = ? AND question_id = ? AND is_correct = ?", userID, questionID, true).
		Count(&count).Error
	return count > 0, err
}

// CountAttempts 某人某题的作答次数
func (r *AnswerRepository) CountAttempts(ctx context.Context, userID, questionID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Answer{}).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		Count(&count).Error
	return count, err
}

// SolvedQuestionIDs 给定题目中已正式作答的集合
func (r *AnswerRepository) SolvedQuestionIDs(ctx context.Context, userID uint, questionIDs []uint) (map[uint]bool, error) {
	solved := make(map[uint]bool)
	if len(questionIDs) == 0 {
		return solved, nil
	}
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Answer{}).
		Where("user_id = ? AND question_id IN ? AND is_correct = ?", userID, questionIDs, true).
		Pluck("question_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		solved[id] = true
	}
	return solved, nil
}

// AttemptCounts 按题目统计作答次数
func (r *AnswerRepository) AttemptCounts(ctx context.Context, userID uint, questionIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64)
	if len(questionIDs) == 0 {
		return counts, nil
	}
	var rows []questionCount
	err := r.DB.WithContext(ctx).Model(&model.Answer{}).
		Select("question_id, COUNT(*) AS total").
		Where("user_id = ? AND question_id IN ?", userID, questionIDs).
		Group("question_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.QuestionID] = row.Total
	}
	return counts, nil
}
