package service

import (
	"context"
	"errors"
	"fmt"
	"mystery_hunt_backend/internal/model"
	"mystery_hunt_backend/internal/repository"
	"mystery_hunt_backend/internal/util"
	"mystery_hunt_backend/pkg/logger"
	"mystery_hunt_backend/pkg/monitoring"
	"mystery_hunt_backend/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ReviewService 人工审核流程
type ReviewService struct {
	ReviewRepo   *repository.ReviewRepository
	AnswerRepo   *repository.AnswerRepository
	QuestionRepo *repository.QuestionRepository
	UserRepo     *repository.UserRepository
	Unlock       *UnlockService
	Progress     *ProgressService
	Settings     *GameSettings
	Dispatcher   MailDispatcher

	now func() time.Time
}

func NewReviewService(
	reviewRepo *repository.ReviewRepository,
	answerRepo *repository.AnswerRepository,
	questionRepo *repository.QuestionRepository,
	userRepo *repository.UserRepository,
	unlock *UnlockService,
	progress *ProgressService,
	settings *GameSettings,
	dispatcher MailDispatcher,
) *ReviewService {
	return &ReviewService{
		ReviewRepo:   reviewRepo,
		AnswerRepo:   answerRepo,
		QuestionRepo: questionRepo,
		UserRepo:     userRepo,
		Unlock:       unlock,
		Progress:     progress,
		Settings:     settings,
		Dispatcher:   dispatcher,
		now:          time.Now,
	}
}

// maxAttempts 题目未设置时使用全局默认值
func maxAttempts(q *model.Question, settings *GameSettings) int64 {
	if q.MaxAttempts > 0 {
		return int64(q.MaxAttempts)
	}
	return int64(settings.Get().DefaultMaxAttempts)
}

// Create 新建待审核记录，达到次数上限时返回 ErrAttemptsExhausted
func (s *ReviewService) Create(ctx context.Context, userID uint, question *model.Question, text, imageRef string) (*model.Review, error) {
	count, err := s.ReviewRepo.CountByUserQuestion(ctx, userID, question.ID)
	if err != nil {
		return nil, err
	}
	if count >= maxAttempts(question, s.Settings) {
		return nil, util.ErrAttemptsExhausted
	}

	review := &model.Review{
		UserID:         userID,
		QuestionID:     question.ID,
		AnswerText:     text,
		AnswerImageRef: imageRef,
		Status:         model.ReviewPending,
	}
	if err := s.ReviewRepo.Create(ctx, review); err != nil {
		return nil, err
	}
	if err := s.Progress.RecordAttempt(ctx, userID); err != nil {
		return nil, err
	}
	return review, nil
}

// Transition 审核通过或驳回。通过时生成正式答案并评估关卡，已有正式答案时不再重复生成。
func (s *ReviewService) Transition(ctx context.Context, reviewID uint, to model.ReviewStatus, moderatorID uint) (review *model.Review, err error) {
	ctx, span := tracing.StartSpan(ctx, "ReviewService.Transition",
		attribute.Int64("review.id", int64(reviewID)),
		attribute.String("review.to", string(to)))
	defer func() { tracing.EndSpan(span, err) }()

	if to != model.ReviewApproved && to != model.ReviewRejected {
		return nil, fmt.Errorf("%w: unknown review status %q", util.ErrValidation, to)
	}

	review, err = s.ReviewRepo.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.Status != model.ReviewPending {
		return s.reclose(ctx, review, to)
	}

	swapped, err := s.ReviewRepo.CompareAndSetStatus(ctx, review.ID, model.ReviewPending, to, moderatorID)
	if err != nil {
		return nil, err
	}
	if !swapped {
		// 并发审核，以已落库的状态为准
		current, err := s.ReviewRepo.FindByID(ctx, reviewID)
		if err != nil {
			return nil, err
		}
		return s.reclose(ctx, current, to)
	}
	review.Status = to
	review.ReviewerID = &moderatorID
	monitoring.ReviewTransitions.WithLabelValues(string(to)).Inc()

	if err := s.complete(ctx, review); err != nil {
		return nil, err
	}
	logger.Log.Info("Review closed",
		zap.Uint("review_id", review.ID),
		zap.String("status", string(to)),
		zap.Uint("moderator_id", moderatorID))
	return review, nil
}

// reclose 对已关闭的审核重复同一操作。上次收尾中途失败时在这里补完，答案与通知都不会重复
func (s *ReviewService) reclose(ctx context.Context, review *model.Review, to model.ReviewStatus) (*model.Review, error) {
	if review.Status != to {
		return nil, util.ErrReviewClosed
	}
	if err := s.complete(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

// complete 状态已落库之后的收尾：生成答案、评估关卡、记录时间、通知玩家
func (s *ReviewService) complete(ctx context.Context, review *model.Review) error {
	if review.Status == model.ReviewApproved {
		if err := s.finalize(ctx, review); err != nil {
			return err
		}
	}
	if review.ReviewedAt != nil {
		return nil
	}

	reviewedAt := s.now()
	stamped, err := s.ReviewRepo.StampReviewed(ctx, review.ID, reviewedAt)
	if err != nil {
		return err
	}
	if !stamped {
		current, err := s.ReviewRepo.FindByID(ctx, review.ID)
		if err != nil {
			return err
		}
		review.ReviewedAt = current.ReviewedAt
		return nil
	}
	review.ReviewedAt = &reviewedAt
	s.notifyPlayer(ctx, review)
	return nil
}

func (s *ReviewService) finalize(ctx context.Context, review *model.Review) error {
	exists, err := s.AnswerRepo.HasCanonical(ctx, review.UserID, review.QuestionID)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.createAnswer(ctx, review); err != nil {
			return err
		}
	}

	// 关卡评估是幂等的，已有答案时也要再跑一次以补上中断的解锁
	question, err := s.QuestionRepo.FindByID(ctx, review.QuestionID)
	if err != nil {
		return err
	}
	if _, err := s.Unlock.EvaluateByID(ctx, review.UserID, question.LevelID); err != nil {
		return err
	}
	return nil
}

func (s *ReviewService) createAnswer(ctx context.Context, review *model.Review) error {
	answer := &model.Answer{
		UserID:         review.UserID,
		QuestionID:     review.QuestionID,
		IsCorrect:      true,
		Attempts:       1,
		AnswerText:     review.AnswerText,
		AnswerImageRef: review.AnswerImageRef,
	}
	if err := s.AnswerRepo.Create(ctx, answer); err != nil && !errors.Is(err, util.ErrStorageConflict) {
		return err
	}
	return nil
}

// notifyPlayer 审核结果通知，失败只记日志
func (s *ReviewService) notifyPlayer(ctx context.Context, review *model.Review) {
	if s.Dispatcher == nil || s.UserRepo == nil {
		return
	}
	user, err := s.UserRepo.FindByID(ctx, review.UserID)
	if err != nil {
		logger.Log.Warn("Review notification skipped", zap.Uint("review_id", review.ID), zap.Error(err))
		return
	}

	body := fmt.Sprintf("Your answer to question %s was %s.", model.QuestionRef(review.QuestionID), review.Status)
	job := MailJob{
		Kind:    MailKindReview,
		To:      user.Email,
		Subject: "Your answer has been reviewed",
		Body:    body,
	}
	if err := s.Dispatcher.Dispatch(ctx, job); err != nil {
		logger.Log.Warn("Failed to dispatch review notification", zap.Uint("review_id", review.ID), zap.Error(err))
	}
}

// ListPending 待审核列表
func (s *ReviewService) ListPending(ctx context.Context, mysteryID uint, page, limit int) (*util.PageResponse, error) {
	items, total, err := s.ReviewRepo.ListPending(ctx, mysteryID, page, limit)
	if err != nil {
		return nil, err
	}
	return &util.PageResponse{List: items, Total: total, Page: page, Limit: limit}, nil
}
