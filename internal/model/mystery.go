package model

import "time"

// swagger:model Mystery
type Mystery struct {
	BaseModel
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	ImageRef    string    `gorm:"size:255" json:"imageRef"`
	HomePage    string    `gorm:"type:text" json:"homePage"`
	JoiningPin  string    `gorm:"size:20;uniqueIndex;not null" json:"-"`
	IsVisible   bool      `gorm:"not null" json:"isVisible"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	CreatedBy   uint      `gorm:"index" json:"createdBy"`

	Levels []Level `gorm:"foreignKey:MysteryID" json:"-"`
}

func (Mystery) TableName() string {
	return "mysteries"
}

// IsActive 当前时间是否在活动窗口内，未设置结束时间视为长期开放
func (m *Mystery) IsActive(now time.Time) bool {
	if now.Before(m.StartsAt) {
		return false
	}
	return m.EndsAt.IsZero() || !now.After(m.EndsAt)
}

// MysteryParticipant 玩家加入记录
type MysteryParticipant struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MysteryID uint      `gorm:"not null;uniqueIndex:idx_mystery_participant" json:"mysteryId"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_mystery_participant" json:"userId"`
	JoinedAt  time.Time `gorm:"autoCreateTime" json:"joinedAt"`
}

func (MysteryParticipant) TableName() string {
	return "mystery_participants"
}
