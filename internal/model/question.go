package model

import (
	"fmt"
	"strings"
)

// AnswerType 题目的作答类型
type AnswerType string

const (
	AnswerMatch             AnswerType = "match"
	AnswerDescriptive       AnswerType = "descriptive"
	AnswerImage             AnswerType = "image"
	AnswerDescriptiveReview AnswerType = "descriptive-review"
	AnswerImageReview       AnswerType = "image-review"
	AnswerPuzzle            AnswerType = "puzzle"
)

var answerTypes = map[AnswerType]bool{
	AnswerMatch:             true,
	AnswerDescriptive:       true,
	AnswerImage:             true,
	AnswerDescriptiveReview: true,
	AnswerImageReview:       true,
	AnswerPuzzle:            true,
}

// ParseAnswerType 只接受已知类型
func ParseAnswerType(s string) (AnswerType, bool) {
	t := AnswerType(strings.ToLower(strings.TrimSpace(s)))
	return t, answerTypes[t]
}

// IsReview 需要人工审核的类型
func (t AnswerType) IsReview() bool {
	return t == AnswerDescriptiveReview || t == AnswerImageReview
}

// NeedsImage 需要上传图片作答
func (t AnswerType) NeedsImage() bool {
	return t == AnswerImage || t == AnswerImageReview
}

// swagger:model Question
type Question struct {
	BaseModel
	LevelID       uint       `gorm:"index;not null" json:"levelId"`
	Text          string     `gorm:"type:text;not null" json:"question"`
	ImageRef      string     `gorm:"size:255" json:"questionImage"`
	CorrectAnswer string     `gorm:"type:text" json:"-"`
	AnswerType    AnswerType `gorm:"size:30;default:'descriptive'" json:"type"`
	MaxAttempts   int        `gorm:"default:3" json:"maxAttempts"`

	HintMails []HintMail `gorm:"foreignKey:QuestionID" json:"-"`
}

func (Question) TableName() string {
	return "questions"
}

// QuestionRef 对外的题目标识
func QuestionRef(id uint) string {
	return fmt.Sprintf("q%d", id)
}

// HintMail 题目的提示邮件
type HintMail struct {
	BaseModel
	QuestionID uint   `gorm:"index;not null" json:"questionId"`
	Subject    string `gorm:"size:100;not null" json:"subject"`
	Body       string `gorm:"type:text" json:"body"`
	ImageRef   string `gorm:"size:255" json:"imageRef"`
}

func (HintMail) TableName() string {
	return "hint_mails"
}
