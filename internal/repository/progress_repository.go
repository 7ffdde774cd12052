package repository

import (
	"context"
	"mystery_hunt_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressRepository 进度只提供新增，不提供删除
type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// GetOrCreate 并发安全地获取或创建进度，created 表示本次调用创建了记录
func (r *ProgressRepository) GetOrCreate(ctx context.Context, userID uint) (*model.UserProgress, bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&model.UserProgress{UserID: userID})
	if res.Error != nil {
		return nil, false, res.Error
	}

	var p model.UserProgress
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, false, err
	}
	return &p, res.RowsAffected == 1, nil
}

func (r *ProgressRepository) insertIgnore(ctx context.Context, row interface{}) (bool, error) {
	res := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	return res.RowsAffected == 1, res.Error
}

// AddCompletedLevel 返回是否为新增
func (r *ProgressRepository) AddCompletedLevel(ctx context.Context, userID, levelID uint) (bool, error) {
	return r.insertIgnore(ctx, &model.ProgressCompletedLevel{UserID: userID, LevelID: levelID})
}

func (r *ProgressRepository) AddUnlockedLevel(ctx context.Context, userID, levelID uint) (bool, error) {
	return r.insertIgnore(ctx, &model.ProgressUnlockedLevel{UserID: userID, LevelID: levelID})
}

func (r *ProgressRepository) AddCollectedPresent(ctx context.Context, userID, presentID uint) (bool, error) {
	return r.insertIgnore(ctx, &model.ProgressCollectedPresent{UserID: userID, PresentID: presentID})
}

// IncrementAttempts 累加总作答次数
func (r *ProgressRepository) IncrementAttempts(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).Model(&model.UserProgress{}).
		Where("user_id = ?", userID).
		UpdateColumn("total_attempts", gorm.Expr("total_attempts + ?", 1)).Error
}

func (r *ProgressRepository) CompletedLevelIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.ProgressCompletedLevel{}).
		Where("user_id = ?", userID).Order("level_id asc").Pluck("level_id", &ids).Error
	return ids, err
}

func (r *ProgressRepository) UnlockedLevelIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.ProgressUnlockedLevel{}).
		Where("user_id = ?", userID).Order("level_id asc").Pluck("level_id", &ids).Error
	return ids, err
}

func (r *ProgressRepository) CollectedPresentIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.ProgressCollectedPresent{}).
		Where("user_id = ?", userID).Order("present_id asc").Pluck("present_id", &ids).Error
	return ids, err
}
