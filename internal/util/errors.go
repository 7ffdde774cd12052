package util

import "errors"

var (
	ErrUserNotFound     = errors.New("用户不存在")
	ErrEmailRegistered  = errors.New("该邮箱已被注册")
	ErrPermissionDenied = errors.New("permission denied")

	ErrValidation              = errors.New("validation error")
	ErrInvalidReference        = errors.New("invalid reference")
	ErrNotFound                = errors.New("not found")
	ErrQuestionNotFound        = errors.New("question not found")
	ErrLevelNotFound           = errors.New("level not found")
	ErrMysteryNotFound         = errors.New("mystery not found")
	ErrReviewNotFound          = errors.New("review not found")
	ErrDuplicateSubmission     = errors.New("question already answered")
	ErrAttemptsExhausted       = errors.New("max attempts")
	ErrUnsupportedQuestionType = errors.New("unsupported question type")
	ErrStorageConflict         = errors.New("storage conflict")
	ErrCollaboratorFailure     = errors.New("collaborator failure")
	ErrBlobFetch               = errors.New("blob fetch failed")
	ErrReviewClosed            = errors.New("review already closed")
	ErrNoHint                  = errors.New("no hint available")
	ErrHintThrottled           = errors.New("hint requested too recently")
	ErrInvalidPin              = errors.New("invalid joining pin")
	ErrMysteryInactive         = errors.New("mystery is not active")
)

// IsNotFound 任意一种资源不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrLevelNotFound) ||
		errors.Is(err, ErrMysteryNotFound) ||
		errors.Is(err, ErrReviewNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrNoHint)
}
