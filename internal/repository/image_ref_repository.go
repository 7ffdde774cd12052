package repository

import (
	"context"
	"mystery_hunt_backend/internal/model"

	"gorm.io/gorm"
)

// ImageRefRepository 查询图片引用被谁使用
type ImageRefRepository struct {
	DB *gorm.DB
}

func NewImageRefRepository(db *gorm.DB) *ImageRefRepository {
	return &ImageRefRepository{DB: db}
}

func (r *ImageRefRepository) exists(ctx context.Context, m interface{}, query string, args ...interface{}) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(m).Where(query, args...).Limit(1).Count(&count).Error
	return count > 0, err
}

// IsPublished 活动、题目、提示或奖励引用了该图片
func (r *ImageRefRepository) IsPublished(ctx context.Context, ref string) (bool, error) {
	for _, m := range []interface{}{&model.Question{}, &model.HintMail{}, &model.Present{}, &model.Mystery{}} {
		ok, err := r.exists(ctx, m, "image_ref = ?", ref)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// IsUploadedBy 图片是否为该用户提交的答案
func (r *ImageRefRepository) IsUploadedBy(ctx context.Context, ref string, userID uint) (bool, error) {
	ok, err := r.exists(ctx, &model.Answer{}, "answer_image_ref = ? AND user_id = ?", ref, userID)
	if err != nil || ok {
		return ok, err
	}
	return r.exists(ctx, &model.Review{}, "answer_image_ref = ? AND user_id = ?", ref, userID)
}
