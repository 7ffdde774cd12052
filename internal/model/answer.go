package model

import (
	"fmt"
	"time"
)

// Answer 作答记录；IsCorrect 的那一条为正式答案，SolvedKey 保证每人每题唯一
type Answer struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint      `gorm:"index:idx_answer_user_question;not null" json:"userId"`
	QuestionID     uint      `gorm:"index:idx_answer_user_question;not null" json:"questionId"`
	SolvedKey      *string   `gorm:"size:64;uniqueIndex" json:"-"`
	IsCorrect      bool      `gorm:"default:false" json:"isCorrect"`
	Attempts       int       `gorm:"default:1" json:"attempts"`
	AnswerText     string    `gorm:"type:text" json:"answerText"`
	AnswerImageRef string    `gorm:"size:255" json:"answerImage,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (Answer) TableName() string {
	return "answers"
}

// SolvedKeyFor 正式答案的唯一键
func SolvedKeyFor(userID, questionID uint) *string {
	k := fmt.Sprintf("%d:%d", userID, questionID)
	return &k
}
