package repository

import (
	"context"
	"mystery_hunt_backend/internal/model"
	"mystery_hunt_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MysteryRepository struct {
	DB *gorm.DB
}

func NewMysteryRepository(db *gorm.DB) *MysteryRepository {
	return &MysteryRepository{DB: db}
}

func (r *MysteryRepository) Create(ctx context.Context, m *model.Mystery) error {
	return r.DB.WithContext(ctx).Create(m).Error
}

func (r *MysteryRepository) FindByID(ctx context.Context, id uint) (*model.Mystery, error) {
	var m model.Mystery
	if err := r.DB.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err, util.ErrMysteryNotFound)
	}
	return &m, nil
}

func (r *MysteryRepository) FindByPin(ctx context.Context, pin string) (*model.Mystery, error) {
	var m model.Mystery
	if err := r.DB.WithContext(ctx).Where("joining_pin = ?", pin).First(&m).Error; err != nil {
		return nil, notFound(err, util.ErrMysteryNotFound)
	}
	return &m, nil
}

func (r *MysteryRepository) ListVisible(ctx context.Context) ([]model.Mystery, error) {
	var list []model.Mystery
	err := r.DB.WithContext(ctx).
		Where("is_visible = ?", true).
		Order("starts_at asc, id asc").
		Find(&list).Error
	return list, err
}

// AddParticipant 重复加入不报错
func (r *MysteryRepository) AddParticipant(ctx context.Context, mysteryID, userID uint) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.MysteryParticipant{MysteryID: mysteryID, UserID: userID}).Error
}

// JoinedMysteryIDs 用户已加入的活动
func (r *MysteryRepository) JoinedMysteryIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.MysteryParticipant{}).
		Where("user_id = ?", userID).
		Pluck("mystery_id", &ids).Error
	if err != nil {
		return nil, err
	}
	joined := make(map[uint]bool, len(ids))
	for _, id := range ids {
		joined[id] = true
	}
	return joined, nil
}
