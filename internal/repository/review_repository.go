package repository

import (
	"context"
	"mystery_hunt_backend/internal/model"
	"mystery_hunt_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type ReviewRepository struct {
	DB *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{DB: db}
}

func (r *ReviewRepository) Create(ctx context.Context, review *model.Review) error {
	if review.Status == "" {
		review.Status = model.ReviewPending
	}
	return r.DB.WithContext(ctx).Create(review).Error
}

func (r *ReviewRepository) FindByID(ctx context.Context, id uint) (*model.Review, error) {
	var review model.Review
	if err := r.DB.WithContext(ctx).First(&review, id).Error; err != nil {
		return nil, notFound(err, util.ErrReviewNotFound)
	}
	return &review, nil
}

// CountByUserQuestion 某人某题提交过的审核数量（含已驳回）
func (r *ReviewRepository) CountByUserQuestion(ctx context.Context, userID, questionID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Review{}).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		Count(&count).Error
	return count, err
}

// CountsByQuestions 按题目统计审核数量
func (r *ReviewRepository) CountsByQuestions(ctx context.Context, userID uint, questionIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64)
	if len(questionIDs) == 0 {
		return counts, nil
	}
	var rows []questionCount
	err := r.DB.WithContext(ctx).Model(&model.Review{}).
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

// CompareAndSetStatus 仅当当前状态为 from 时更新，返回是否更新成功
func (r *ReviewRepository) CompareAndSetStatus(ctx context.Context, id uint, from, to model.ReviewStatus, reviewerID uint) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Review{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":      to,
			"reviewer_id": reviewerID,
		})
	return res.RowsAffected == 1, res.Error
}

// StampReviewed 记录审核完成时间，只有第一次写入返回 true
func (r *ReviewRepository) StampReviewed(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Review{}).
		Where("id = ? AND reviewed_at IS NULL", id).
		Update("reviewed_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReviewItem 审核列表中的一行
type ReviewItem struct {
	model.Review
	QuestionText string `json:"question"`
	LevelID      uint   `json:"levelId"`
	UserName     string `json:"userName"`
}

// ListPending 待审核列表，mysteryID 为 0 时列出全部
func (r *ReviewRepository) ListPending(ctx context.Context, mysteryID uint, page, limit int) ([]ReviewItem, int64, error) {
	base := func() *gorm.DB {
		q := r.DB.WithContext(ctx).Table("reviews").
			Joins("JOIN questions ON questions.id = reviews.question_id").
			Joins("JOIN levels ON levels.id = questions.level_id").
			Joins("LEFT JOIN users ON users.id = reviews.user_id").
			Where("reviews.status = ?", model.ReviewPending)
		if mysteryID > 0 {
			q = q.Where("levels.mystery_id = ?", mysteryID)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []ReviewItem
	err := base().
		Select("reviews.*, questions.text AS question_text, questions.level_id AS level_id, users.name AS user_name").
		Order("reviews.created_at asc, reviews.id asc").
		Offset((page - 1) * limit).
		Limit(limit).
		Scan(&items).Error
	return items, total, err
}

// PendingQuestionIDs 给定题目中仍有待审核记录的集合
func (r *ReviewRepository) PendingQuestionIDs(ctx context.Context, userID uint, questionIDs []uint) (map[uint]bool, error) {
	pending := make(map[uint]bool)
	if len(questionIDs) == 0 {
		return pending, nil
	}
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.Review{}).
		Where("user_id = ? AND question_id IN ? AND status = ?", userID, questionIDs, model.ReviewPending).
		Pluck("question_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		pending[id] = true
	}
	return pending, nil
}
