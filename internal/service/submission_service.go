package service

import (
	"context"
	"errors"
	"fmt"
	"mystery_hunt_backend/internal/model"
	"mystery_hunt_backend/internal/repository"
	"mystery_hunt_backend/internal/util"
	"mystery_hunt_backend/pkg/keylock"
	"mystery_hunt_backend/pkg/logger"
	"mystery_hunt_backend/pkg/monitoring"
	"mystery_hunt_backend/pkg/tracing"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SubmitPayload 玩家提交的内容
type SubmitPayload struct {
	Text  string
	Image []byte
}

// SubmitResult 作答结果，Correct 为 nil 表示待审核或无变化
type SubmitResult struct {
	Correct *bool              `json:"correct"`
	Pending bool               `json:"pending,omitempty"`
	Present *model.PresentView `json:"present"`
	Message string             `json:"message,omitempty"`
}

// BlobSaver 保存提交的图片
type BlobSaver interface {
	Save(ctx context.Context, dir string, data []byte) (string, error)
}

// SubmissionService 作答入口：校验、按题型分发、写入、评估解锁
type SubmissionService struct {
	QuestionRepo *repository.QuestionRepository
	AnswerRepo   *repository.AnswerRepository
	ReviewRepo   *repository.ReviewRepository
	Reviews      *ReviewService
	Unlock       *UnlockService
	Progress     *ProgressService
	Blobs        BlobSaver
	Settings     *GameSettings

	locks *keylock.KeyLock
}

func NewSubmissionService(
	questionRepo *repository.QuestionRepository,
	answerRepo *repository.AnswerRepository,
	reviewRepo *repository.ReviewRepository,
	reviews *ReviewService,
	unlock *UnlockService,
	progress *ProgressService,
	blobs BlobSaver,
	settings *GameSettings,
) *SubmissionService {
	return &SubmissionService{
		QuestionRepo: questionRepo,
		AnswerRepo:   answerRepo,
		ReviewRepo:   reviewRepo,
		Reviews:      reviews,
		Unlock:       unlock,
		Progress:     progress,
		Blobs:        blobs,
		Settings:     settings,
		locks:        keylock.New(),
	}
}

func boolPtr(b bool) *bool { return &b }

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func exhausted() *SubmitResult {
	return &SubmitResult{Correct: boolPtr(false), Message: util.MsgMaxAttempts}
}

// Submit 处理一次作答
func (s *SubmissionService) Submit(ctx context.Context, userID uint, questionRef string, payload SubmitPayload) (result *SubmitResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "SubmissionService.Submit",
		attribute.String("question.ref", questionRef),
		attribute.Int64("user.id", int64(userID)))
	defer func() { tracing.EndSpan(span, err) }()

	questionID, err := util.ParseQuestionRef(questionRef)
	if err != nil {
		return nil, err
	}
	question, err := s.QuestionRepo.FindByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	answerType, ok := model.ParseAnswerType(string(question.AnswerType))
	if !ok {
		return nil, fmt.Errorf("%w: %q", util.ErrUnsupportedQuestionType, question.AnswerType)
	}

	unlock := s.locks.Lock(fmt.Sprintf("%d:%d", userID, question.ID))
	defer unlock()

	solved, err := s.AnswerRepo.HasCanonical(ctx, userID, question.ID)
	if err != nil {
		return nil, err
	}
	if solved {
		s.recheckLevel(ctx, userID, question)
		monitoring.SubmissionsTotal.WithLabelValues(string(answerType), "duplicate").Inc()
		return nil, util.ErrDuplicateSubmission
	}

	var attempts int64
	if answerType.IsReview() {
		attempts, err = s.ReviewRepo.CountByUserQuestion(ctx, userID, question.ID)
	} else {
		attempts, err = s.AnswerRepo.CountAttempts(ctx, userID, question.ID)
	}
	if err != nil {
		return nil, err
	}
	if attempts >= maxAttempts(question, s.Settings) {
		monitoring.SubmissionsTotal.WithLabelValues(string(answerType), "exhausted").Inc()
		return exhausted(), nil
	}

	text := strings.TrimSpace(payload.Text)
	if answerType.NeedsImage() && len(payload.Image) == 0 {
		return nil, fmt.Errorf("%w: answer image is required", util.ErrValidation)
	}

	switch answerType {
	case model.AnswerDescriptiveReview, model.AnswerImageReview:
		return s.submitReview(ctx, userID, question, answerType, text, payload.Image)

	case model.AnswerMatch:
		if text == "" {
			return nil, fmt.Errorf("%w: answer is required", util.ErrValidation)
		}
		correct := normalizeAnswer(text) == normalizeAnswer(question.CorrectAnswer)
		if err := s.record(ctx, userID, question, correct, int(attempts)+1, text, ""); err != nil {
			return nil, err
		}
		if !correct {
			monitoring.SubmissionsTotal.WithLabelValues(string(answerType), "incorrect").Inc()
			return &SubmitResult{Correct: boolPtr(false), Message: util.MsgIncorrect}, nil
		}

	case model.AnswerImage:
		ref, err := s.saveImage(ctx, payload.Image, "answers")
		if err != nil {
			return nil, err
		}
		if err := s.record(ctx, userID, question, true, int(attempts)+1, "", ref); err != nil {
			return nil, err
		}

	case model.AnswerDescriptive:
		if text == "" {
			return nil, fmt.Errorf("%w: answer is required", util.ErrValidation)
		}
		if err := s.record(ctx, userID, question, true, int(attempts)+1, text, ""); err != nil {
			return nil, err
		}

	case model.AnswerPuzzle:
		if text != s.Settings.Get().PuzzleToken {
			monitoring.SubmissionsTotal.WithLabelValues(string(answerType), "ignored").Inc()
			return &SubmitResult{Message: util.MsgNoChange}, nil
		}
		if err := s.record(ctx, userID, question, true, int(attempts)+1, text, ""); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: %q", util.ErrUnsupportedQuestionType, answerType)
	}

	monitoring.SubmissionsTotal.WithLabelValues(string(answerType), "correct").Inc()
	present, err := s.Unlock.EvaluateByID(ctx, userID, question.LevelID)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Correct: boolPtr(true), Present: present, Message: util.MsgCorrect}, nil
}

func (s *SubmissionService) submitReview(ctx context.Context, userID uint, question *model.Question, answerType model.AnswerType, text string, image []byte) (*SubmitResult, error) {
	var ref string
	if answerType == model.AnswerImageReview {
		saved, err := s.saveImage(ctx, image, "review_answers")
		if err != nil {
			return nil, err
		}
		ref = saved
		text = ""
	} else if text == "" {
		return nil, fmt.Errorf("%w: answer text is required", util.ErrValidation)
	}

	if _, err := s.Reviews.Create(ctx, userID, question, text, ref); err != nil {
		if errors.Is(err, util.ErrAttemptsExhausted) {
			return exhausted(), nil
		}
		return nil, err
	}
	monitoring.SubmissionsTotal.WithLabelValues(string(answerType), "pending").Inc()
	return &SubmitResult{Pending: true, Message: util.MsgPending}, nil
}

// record 写入作答记录并计入总次数；正式答案冲突视为重复提交
func (s *SubmissionService) record(ctx context.Context, userID uint, question *model.Question, correct bool, attempt int, text, imageRef string) error {
	answer := &model.Answer{
		UserID:         userID,
		QuestionID:     question.ID,
		IsCorrect:      correct,
		Attempts:       attempt,
		AnswerText:     text,
		AnswerImageRef: imageRef,
	}
	if err := s.AnswerRepo.Create(ctx, answer); err != nil {
		if errors.Is(err, util.ErrStorageConflict) {
			s.recheckLevel(ctx, userID, question)
			return util.ErrDuplicateSubmission
		}
		return err
	}
	return s.Progress.RecordAttempt(ctx, userID)
}

func (s *SubmissionService) saveImage(ctx context.Context, data []byte, dir string) (string, error) {
	if _, err := util.ValidateMimeType(data, util.AllowedImageTypes); err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrValidation, err)
	}
	if s.Blobs == nil {
		return "", fmt.Errorf("%w: no blob store configured", util.ErrCollaboratorFailure)
	}
	ref, err := s.Blobs.Save(ctx, dir, data)
	if err != nil {
		if !errors.Is(err, util.ErrCollaboratorFailure) {
			err = fmt.Errorf("%w: %v", util.ErrCollaboratorFailure, err)
		}
		return "", err
	}
	return ref, nil
}

// recheckLevel 补偿之前因竞争漏掉的解锁，失败只记日志
func (s *SubmissionService) recheckLevel(ctx context.Context, userID uint, question *model.Question) {
	if _, err := s.Unlock.EvaluateByID(ctx, userID, question.LevelID); err != nil {
		logger.Log.Warn("Level re-check failed",
			zap.Uint("user_id", userID),
			zap.Uint("level_id", question.LevelID),
			zap.Error(err))
	}
}
