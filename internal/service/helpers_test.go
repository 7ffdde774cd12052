package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mystery_hunt_backend/internal/config"
	"mystery_hunt_backend/internal/model"
	"mystery_hunt_backend/internal/repository"
	"mystery_hunt_backend/pkg/database"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// 1x1 PNG
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

type fakeBlobs struct {
	mu    sync.Mutex
	saved map[string][]byte
	err   error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{saved: make(map[string][]byte)}
}

func (f *fakeBlobs) Save(_ context.Context, dir string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	ref := fmt.Sprintf("%s/%d.png", dir, len(f.saved)+1)
	f.saved[ref] = data
	return ref, nil
}

func (f *fakeBlobs) Fetch(_ context.Context, ref string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, "", f.err
	}
	data, ok := f.saved[ref]
	if !ok {
		return nil, "", errors.New("no such blob")
	}
	return data, "image/png", nil
}

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []MailJob
	err  error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, job MailJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

func (d *recordingDispatcher) sent() []MailJob {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]MailJob(nil), d.jobs...)
}

type testEnv struct {
	db       *gorm.DB
	settings *GameSettings
	blobs    *fakeBlobs
	mails    *recordingDispatcher

	users     *repository.UserRepository
	mysteries *repository.MysteryRepository
	levels    *repository.LevelRepository
	questions *repository.QuestionRepository
	answers   *repository.AnswerRepository
	reviews   *repository.ReviewRepository
	progressR *repository.ProgressRepository

	progress   *ProgressService
	unlock     *UnlockService
	review     *ReviewService
	submission *SubmissionService
	levelView  *LevelService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}, "test")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	env := &testEnv{
		db: db,
		settings: NewGameSettings(config.GameConfig{
			PuzzleToken:          "puzzlesolved",
			DefaultMaxAttempts:   3,
			ScopeUnlockToMystery: true,
		}),
		blobs:     newFakeBlobs(),
		mails:     &recordingDispatcher{},
		users:     repository.NewUserRepository(db),
		mysteries: repository.NewMysteryRepository(db),
		levels:    repository.NewLevelRepository(db),
		questions: repository.NewQuestionRepository(db),
		answers:   repository.NewAnswerRepository(db),
		reviews:   repository.NewReviewRepository(db),
		progressR: repository.NewProgressRepository(db),
	}
	env.progress = NewProgressService(env.progressR, env.levels)
	env.unlock = NewUnlockService(env.levels, env.questions, env.answers, env.progress, env.settings)
	env.review = NewReviewService(env.reviews, env.answers, env.questions, env.users, env.unlock, env.progress, env.settings, env.mails)
	env.submission = NewSubmissionService(env.questions, env.answers, env.reviews, env.review, env.unlock, env.progress, env.blobs, env.settings)
	env.levelView = NewLevelService(env.levels, env.answers, env.reviews, env.progress, env.settings)
	return env
}

func (e *testEnv) user(t *testing.T, name string, role model.UserRole) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.com", Password: "x", Role: role}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *testEnv) mystery(t *testing.T, id uint, pin string) *model.Mystery {
	t.Helper()
	m := &model.Mystery{
		BaseModel:  model.BaseModel{ID: id},
		Name:       fmt.Sprintf("mystery %d", id),
		JoiningPin: pin,
		IsVisible:  true,
		StartsAt:   time.Now().Add(-time.Hour),
		EndsAt:     time.Now().Add(time.Hour),
	}
	require.NoError(t, e.mysteries.Create(context.Background(), m))
	return m
}

func (e *testEnv) level(t *testing.T, id, mysteryID uint) *model.Level {
	t.Helper()
	l := &model.Level{BaseModel: model.BaseModel{ID: id}, MysteryID: mysteryID, Name: fmt.Sprintf("level %d", id)}
	require.NoError(t, e.levels.Create(context.Background(), l))
	return l
}

func (e *testEnv) present(t *testing.T, levelID uint, title string) *model.Present {
	t.Helper()
	p := &model.Present{LevelID: levelID, Type: "text", Title: title, Content: "reward"}
	require.NoError(t, e.levels.CreatePresent(context.Background(), p))
	return p
}

func (e *testEnv) question(t *testing.T, levelID uint, typ model.AnswerType, answer string, maxAttempts int) *model.Question {
	t.Helper()
	q := &model.Question{LevelID: levelID, Text: "what?", AnswerType: typ, CorrectAnswer: answer, MaxAttempts: maxAttempts}
	require.NoError(t, e.questions.Create(context.Background(), q))
	return q
}

// solve 直接写入正式答案，不经过提交流程
func (e *testEnv) solve(t *testing.T, userID uint, q *model.Question) {
	t.Helper()
	require.NoError(t, e.answers.Create(context.Background(), &model.Answer{
		UserID: userID, QuestionID: q.ID, IsCorrect: true, Attempts: 1, AnswerText: "seeded",
	}))
}

func (e *testEnv) view(t *testing.T, userID uint) *model.ProgressView {
	t.Helper()
	v, err := e.progress.Fetch(context.Background(), userID)
	require.NoError(t, err)
	return v
}

// canonicalCount 某人某题的正式答案条数
func (e *testEnv) canonicalCount(t *testing.T, userID, questionID uint) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&model.Answer{}).
		Where("user_id = ? AND question_id = ? AND is_correct = ?", userID, questionID, true).
		Count(&count).Error)
	return count
}
