package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"mystery_hunt_backend/internal/config"
	"mystery_hunt_backend/internal/model"
	"mystery_hunt_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 活动 1：level 1 -> level 2，level 1 带奖励
func newSubmitFixture(t *testing.T, env *testEnv) (*model.Level, *model.Present) {
	env.mystery(t, 1, "PIN-1")
	l1 := env.level(t, 1, 1)
	env.level(t, 2, 1)
	p := env.present(t, 1, "compass")
	return l1, p
}

func submit(env *testEnv, userID uint, q *model.Question, text string) (*SubmitResult, error) {
	return env.submission.Submit(context.Background(), userID, model.QuestionRef(q.ID), SubmitPayload{Text: text})
}

func TestSubmitMatchAnswerIgnoresCaseAndWhitespace(t *testing.T) {
	env := newTestEnv(t)
	_, present := newSubmitFixture(t, env)
	q := env.question(t, 1, model.AnswerMatch, "paris", 3)

	res, err := submit(env, 7, q, "  Paris ")
	require.NoError(t, err)
	require.NotNil(t, res.Correct)
	assert.True(t, *res.Correct)
	assert.Equal(t, util.MsgCorrect, res.Message)
	require.NotNil(t, res.Present)
	assert.Equal(t, model.PresentRef(present.ID), res.Present.ID)

	count, err := env.answers.CountAttempts(context.Background(), 7, q.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	view := env.view(t, 7)
	assert.Equal(t, []string{"level-1"}, view.CompletedLevels)
	assert.Contains(t, view.UnlockedLevels, "level-2")
	assert.Equal(t, 1, view.TotalAttempts)
}

func TestSubmitIncorrectThenCorrect(t *testing.T) {
	env := newTestEnv(t)
	newSubmitFixture(t, env)
	q := env.question(t, 1, model.AnswerMatch, "paris", 3)

	res, err := submit(env, 7, q, "london")
	require.NoError(t, err)
	require.NotNil(t, res.Correct)
	assert.False(t, *res.Correct)
	assert.Nil(t, res.Present)

	solved, err := env.answers.HasCanonical(context.Background(), 7, q.ID)
	require.NoError(t, err)
	assert.False(t, solved)

	res, err = submit(env, 7, q, "PARIS")
	require.NoError(t, err)
	assert.True(t, *res.Correct)
	assert.Equal(t, 2, env.view(t, 7).TotalAttempts)
}

func TestSubmitStopsAtMaxAttempts(t *testing.T) {
	env := newTestEnv(t)
	newSubmitFixture(t, env)
	q := env.question(t, 1, model.AnswerMatch, "paris", 3)

	for i := 0; i < 3; i++ {
		res, err := submit(env, 7, q, "rome")
		require.NoError(t, err)
		assert.False(t, *res.Correct)
		assert.Equal(t, util.MsgIncorrect, res.Message)
	}

	res, err := submit(env, 7, q, "paris")
	require.NoError(t, err)
	require.NotNil(t, res.Correct)
	assert.False(t, *res.Correct)
	assert.Equal(t, util.MsgMaxAttempts, res.Message)

	count, err := env.answers.CountAttempts(context.Background(), 7, q.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count, "no answer is stored once the limit is reached")
	assert.Equal(t, 3, env.view(t, 7).TotalAttempts)
	assert.Empty(t, env.view(t, 7).CompletedLevels)
}

func TestSubmitUsesDefaultLimitWhenQuestionHasNone(t *testing.T) {
	env := newTestEnv(t)
	newSubmitFixture(t, env)
	env.settings.Update(config.GameConfig{PuzzleToken: "puzzlesolved", DefaultMaxAttempts: 2, ScopeUnlockToMystery: true})
	q := env.question(t, 1, model.AnswerMatch, "paris", 0)
	// 建表默认值为 3，这里清零以走全局默认值
	require.NoError(t, env.db.Model(q).UpdateColumn("max_attempts", 0).Error)

	for i := 0; i < 2; i++ {
		_, err := submit(env, 7, q, "rome")
		require.NoError(t, err)
	}
	res, err := submit(env, 7, q, "rome")
	require.NoError(t, err)
	assert.Equal(t, util.MsgMaxAttempts, res.Message)
}

func TestSubmitDuplicateIsRejected(t *testing.T) {
	env := newTestEnv(t)
	newSubmitFixture(t, env)
	q := env.question(t, 1, model.AnswerMatch, "paris", 3)

	_, err := submit(env, 7, q, "paris")
	require.NoError(t, err)

	_, err = submit(env, 7, q, "paris")
	assert.ErrorIs(t, err, util.ErrDuplicateSubmission)

	assert.EqualValues(t, 1, env.canonicalCount(t, 7, q.ID))
}

func TestSubmitDuplicateRepairsMissedLevelCompletion(t *testing.T) {
	env := newTestEnv(t)
	newSubmitFixture(t, env)
	q1 := env.question(t, 1, model.AnswerMatch, "paris", 3)
	q2 := env.question(t, 1, model.AnswerMatch, "rome", 3)
	env.solve(t, 7, q1)
	env.solve(t, 7, q2)
	require.Empty(t, env.view(t, 7).CompletedLevels)

	_, err := submit(env, 7, q1, "paris")
	assert.ErrorIs(t, err, util.ErrDuplicateSubmission)

	view := env.view(t, 7)
	assert.Equal(t, []string{"level-1"}, view.CompletedLevels)
	assert.Contains(t, view.UnlockedLevels, "level-2")
	assert.Len(t, view.CollectedPresents, 1)
}

func TestSubmitConcurrentCorrectAnswersStoreOneCanonical(t *testing.T) {
	env := newTestEnv(t)
	newSubmitFixture(t, env)
	q := env.question(t, 1, model.AnswerMatch, "paris", 3)

	const n = 10
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		correct    int
		duplicates int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := submit(env, 7, q, "paris")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, util.ErrDuplicateSubmission):
				duplicates++
			case err == nil && res.Correct != nil && *res.Correct:
				correct++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, correct)
	assert.Equal(t, n-1, duplicates)
	assert.EqualValues(t, 1, env.canonicalCount(t, 7, q.ID))
	assert.Len(t, env.view(t, 7).CollectedPresents, 1)
}

func TestSubmitPuzzleRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	newSubmitFixture(t, env)
	q := env.question(t, 1, model.AnswerPuzzle, "", 3)

	res, err := submit(env, 7, q, "almost there")
	require.NoError(t, err)
	assert.Nil(t, res.Correct)
	assert.Equal(t, util.MsgNoChange, res.Message)

	count, err := env.answers.CountAttempts(context.Background(), 7, q.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	res, err = submit(env, 7, q, "puzzlesolved")
	require.NoError(t, err)
	require.NotNil(t, res.Correct)
	assert.True(t, *res.Correct)
}

func TestSubmitDescriptiveIsAcceptedWithoutCheck(t *testing.T) {
	env := newTestEnv(t)
	newSubmitFixture(t, env)
	q := env.question(t, 1, model.AnswerDescriptive, "", 3)

	res, err := submit(env, 7, q, "a red door with a brass knocker")
	require.NoError(t, err)
	assert.True(t, *res.Correct)

	_, err = submit(env, 8, q, "   ")
	assert.ErrorIs(t, err, util.ErrValidation)
}

func TestSubmitImageStoresBlob(t *testing.T) {
	env := newTestEnv(t)
	newSubmitFixture(t, env)
	q := env.question(t, 1, model.AnswerImage, "", 3)
	ctx := context.Background()

	res, err := env.submission.Submit(ctx, 7, model.QuestionRef(q.ID), SubmitPayload{Image: pngBytes})
	require.NoError(t, err)
	assert.True(t, *res.Correct)
	assert.Len(t, env.blobs.saved, 1)

	var answer model.Answer
	require.NoError(t, env.db.Where("user_id = ? AND question_id = ?", 7, q.ID).First(&answer).Error)
	assert.Contains(t, answer.AnswerImageRef, "answers/")
}

func TestSubmitImageValidation(t *testing.T) {
	env := newTestEnv(t)
	newSubmitFixture(t, env)
	q := env.question(t, 1, model.AnswerImage, "", 3)
	ctx := context.Background()

	_, err := env.submission.Submit(ctx, 7, model.QuestionRef(q.ID), SubmitPayload{Text: "no image"})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = env.submission.Submit(ctx, 7, model.QuestionRef(q.ID), SubmitPayload{Image: []byte("plain text, not a picture")})
	assert.ErrorIs(t, err, util.ErrValidation)
	assert.Empty(t, env.blobs.saved)
}

func TestSubmitBlobFailureIsCollaboratorError(t *testing.T) {
	env := newTestEnv(t)
	newSubmitFixture(t, env)
	q := env.question(t, 1, model.AnswerImage, "", 3)
	env.blobs.err = errors.New("bucket unreachable")

	_, err := env.submission.Submit(context.Background(), 7, model.QuestionRef(q.ID), SubmitPayload{Image: pngBytes})
	assert.ErrorIs(t, err, util.ErrCollaboratorFailure)

	count, err := env.answers.CountAttempts(context.Background(), 7, q.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSubmitRejectsUnknownQuestionType(t *testing.T) {
	env := newTestEnv(t)
	newSubmitFixture(t, env)
	q := env.question(t, 1, model.AnswerType("essay"), "", 3)

	_, err := submit(env, 7, q, "anything")
	assert.ErrorIs(t, err, util.ErrUnsupportedQuestionType)
}

func TestSubmitBadReferences(t *testing.T) {
	env := newTestEnv(t)
	newSubmitFixture(t, env)
	ctx := context.Background()

	_, err := env.submission.Submit(ctx, 7, "x12", SubmitPayload{Text: "a"})
	assert.ErrorIs(t, err, util.ErrInvalidReference)

	_, err = env.submission.Submit(ctx, 7, "q999", SubmitPayload{Text: "a"})
	assert.ErrorIs(t, err, util.ErrQuestionNotFound)
}
