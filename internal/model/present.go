package model

import "fmt"

// Present 通关奖励，每个关卡至多一个
type Present struct {
	BaseModel
	LevelID  uint   `gorm:"uniqueIndex;not null" json:"levelId"`
	Type     string `gorm:"size:10" json:"type"`
	Title    string `gorm:"size:100" json:"title"`
	Content  string `gorm:"type:text" json:"content"`
	ImageRef string `gorm:"size:255" json:"image"`
}

func (Present) TableName() string {
	return "presents"
}

// PresentView 返回给客户端的奖励
type PresentView struct {
	ID      string `json:"id"`
	LevelID string `json:"levelId"`
	Title   string `json:"title"`
	Type    string `json:"type"`
	Content string `json:"content"`
	Image   string `json:"image,omitempty"`
}

func (p *Present) View() *PresentView {
	if p == nil {
		return nil
	}
	return &PresentView{
		ID:      PresentRef(p.ID),
		LevelID: LevelRef(p.LevelID),
		Title:   p.Title,
		Type:    p.Type,
		Content: p.Content,
		Image:   p.ImageRef,
	}
}

func PresentRef(id uint) string {
	return fmt.Sprintf("present-%d", id)
}
