package model

import "time"

// UserProgress 玩家进度，三个集合分别存放在关联表中且只增不减
type UserProgress struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint      `gorm:"uniqueIndex;not null" json:"userId"`
	TotalAttempts int       `gorm:"default:0" json:"totalAttempts"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (UserProgress) TableName() string {
	return "user_progresses"
}

type ProgressCompletedLevel struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false"`
	LevelID   uint      `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ProgressCompletedLevel) TableName() string {
	return "progress_completed_levels"
}

type ProgressUnlockedLevel struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false"`
	LevelID   uint      `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ProgressUnlockedLevel) TableName() string {
	return "progress_unlocked_levels"
}

type ProgressCollectedPresent struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false"`
	PresentID uint      `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ProgressCollectedPresent) TableName() string {
	return "progress_collected_presents"
}

// ProgressView 对外的进度快照
type ProgressView struct {
	CompletedLevels   []string `json:"completedLevels"`
	UnlockedLevels    []string `json:"unlockedLevels"`
	CollectedPresents []string `json:"collectedPresents"`
	TotalAttempts     int      `json:"totalAttempts"`
}
