package model

import "time"

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Review 人工审核请求
type Review struct {
	ID             uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint         `gorm:"index:idx_review_user_question;not null" json:"userId"`
	QuestionID     uint         `gorm:"index:idx_review_user_question;not null" json:"questionId"`
	AnswerText     string       `gorm:"type:text" json:"answerText"`
	AnswerImageRef string       `gorm:"size:255" json:"answerImage,omitempty"`
	Status         ReviewStatus `gorm:"size:10;index;default:'pending'" json:"status"`
	ReviewerID     *uint        `json:"reviewerId,omitempty"`
	ReviewedAt     *time.Time   `json:"reviewedAt,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

func (Review) TableName() string {
	return "reviews"
}
