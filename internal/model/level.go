package model

import "fmt"

// Level 关卡，ID 即排序键
//
// swagger:model Level
type Level struct {
	BaseModel
	MysteryID uint   `gorm:"index;not null" json:"mysteryId"`
	Name      string `gorm:"size:100;not null" json:"name"`
	Quest     string `gorm:"type:text" json:"quest"`

	Questions []Question `gorm:"foreignKey:LevelID" json:"-"`
	Present   *Present   `gorm:"foreignKey:LevelID" json:"-"`
}

func (Level) TableName() string {
	return "levels"
}

// LevelRef 对外的关卡标识
func LevelRef(id uint) string {
	return fmt.Sprintf("level-%d", id)
}
