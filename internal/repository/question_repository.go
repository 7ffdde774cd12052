package repository

import (
	"context"
	"errors"
	"mystery_hunt_backend/internal/model"
	"mystery_hunt_backend/internal/util"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Create(q).Error
}

func (r *QuestionRepository) FindByID(ctx context.Context, id uint) (*model.Question, error) {
	var q model.Question
	if err := r.DB.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, notFound(err, util.ErrQuestionNotFound)
	}
	return &q, nil
}

func (r *QuestionRepository) IDsByLevel(ctx context.Context, levelID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Question{}).
		Where("level_id = ?", levelID).
		Order("id asc").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *QuestionRepository) CreateHint(ctx context.Context, h *model.HintMail) error {
	return r.DB.WithContext(ctx).Create(h).Error
}

// FirstHint 题目的第一封提示邮件
func (r *QuestionRepository) FirstHint(ctx context.Context, questionID uint) (*model.HintMail, error) {
	var h model.HintMail
	err := r.DB.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("id asc").
		First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNoHint
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}
