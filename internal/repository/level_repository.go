package repository

import (
	"context"
	"errors"
	"mystery_hunt_backend/internal/model"
	"mystery_hunt_backend/internal/util"

	"gorm.io/gorm"
)

type LevelRepository struct {
	DB *gorm.DB
}

func NewLevelRepository(db *gorm.DB) *LevelRepository {
	return &LevelRepository{DB: db}
}

func (r *LevelRepository) Create(ctx context.Context, level *model.Level) error {
	return r.DB.WithContext(ctx).Create(level).Error
}

func (r *LevelRepository) FindByID(ctx context.Context, id uint) (*model.Level, error) {
	var level model.Level
	if err := r.DB.WithContext(ctx).First(&level, id).Error; err != nil {
		return nil, notFound(err, util.ErrLevelNotFound)
	}
	return &level, nil
}

// FindWithContent 连同题目（按ID排序）和奖励一起加载
func (r *LevelRepository) FindWithContent(ctx context.Context, id uint) (*model.Level, error) {
	var level model.Level
	err := r.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Present").
		First(&level, id).Error
	if err != nil {
		return nil, notFound(err, util.ErrLevelNotFound)
	}
	return &level, nil
}

func (r *LevelRepository) ListByMystery(ctx context.Context, mysteryID uint) ([]model.Level, error) {
	var levels []model.Level
	err := r.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Present").
		Where("mystery_id = ?", mysteryID).
		Order("id asc").
		Find(&levels).Error
	return levels, err
}

// Next 排序键严格大于当前关卡的最小关卡，mysteryID 为 0 时不限定活动
func (r *LevelRepository) Next(ctx context.Context, current *model.Level, mysteryID uint) (*model.Level, error) {
	var next model.Level
	q := r.DB.WithContext(ctx).Where("id > ?", current.ID)
	if mysteryID > 0 {
		q = q.Where("mystery_id = ?", mysteryID)
	}
	err := q.Order("id asc").First(&next).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &next, nil
}

// First 全局或某个活动中的第一关
func (r *LevelRepository) First(ctx context.Context, mysteryID uint) (*model.Level, error) {
	var level model.Level
	q := r.DB.WithContext(ctx)
	if mysteryID > 0 {
		q = q.Where("mystery_id = ?", mysteryID)
	}
	err := q.Order("id asc").First(&level).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &level, nil
}

func (r *LevelRepository) CreatePresent(ctx context.Context, p *model.Present) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *LevelRepository) FindPresentByLevel(ctx context.Context, levelID uint) (*model.Present, error) {
	var p model.Present
	err := r.DB.WithContext(ctx).Where("level_id = ?", levelID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
