package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"mystery_hunt_backend/internal/model"
	"mystery_hunt_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
mysteries:
  - name: Harbour
    joining_pin: harbour-1
    starts_at: 2024-01-01T00:00:00Z
    levels:
      - name: Dock
        quest: Find the ship
        present:
          type: text
          title: Compass
          content: points north
        questions:
          - question: Ship name?
            answer_type: match
            answer: Mary Rose
            hints:
              - subject: Look at the bow
                body: The name is painted there
          - question: Photo of the anchor
            answer_type: image
            max_attempts: 2
      - name: Lighthouse
        questions:
          - question: Describe the lamp
            answer_type: descriptive-review
          - question: Solve the box
            answer_type: puzzle
`

func TestImportCatalog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewCatalogService(env.db)

	stats, err := svc.ImportReader(ctx, strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	assert.Equal(t, &ImportStats{Mysteries: 1, Levels: 2, Questions: 4}, stats)

	m, err := env.mysteries.FindByPin(ctx, "harbour-1")
	require.NoError(t, err)
	assert.True(t, m.IsVisible)
	assert.True(t, m.EndsAt.IsZero())
	assert.True(t, m.IsActive(time.Now()))

	levels, err := env.levels.ListByMystery(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	require.Len(t, levels[0].Questions, 2)
	assert.Equal(t, model.AnswerMatch, levels[0].Questions[0].AnswerType)
	assert.Equal(t, 3, levels[0].Questions[0].MaxAttempts)
	assert.Equal(t, model.AnswerImage, levels[0].Questions[1].AnswerType)
	assert.Equal(t, 2, levels[0].Questions[1].MaxAttempts)
	assert.Equal(t, model.AnswerPuzzle, levels[1].Questions[1].AnswerType)

	present, err := env.levels.FindPresentByLevel(ctx, levels[0].ID)
	require.NoError(t, err)
	require.NotNil(t, present)
	assert.Equal(t, "Compass", present.Title)

	hint, err := env.questions.FirstHint(ctx, levels[0].Questions[0].ID)
	require.NoError(t, err)
	require.NotNil(t, hint)
	assert.Equal(t, "Look at the bow", hint.Subject)

	// 同一口令再次导入时跳过
	stats, err = svc.ImportReader(ctx, strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	assert.Equal(t, &ImportStats{Skipped: 1}, stats)
}

func TestImportExampleCatalog(t *testing.T) {
	env := newTestEnv(t)
	f, err := os.Open("../../configs/catalog.example.yaml")
	require.NoError(t, err)
	defer f.Close()

	stats, err := NewCatalogService(env.db).ImportReader(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Mysteries)
	assert.NotZero(t, stats.Questions)
}

func TestParseCatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{
			name: "unknown field",
			doc:  "mysteries:\n  - name: A\n    joining_pin: a\n    colour: red\n",
			want: util.ErrValidation,
		},
		{
			name: "missing pin",
			doc:  "mysteries:\n  - name: A\n",
			want: util.ErrValidation,
		},
		{
			name: "level without questions",
			doc:  "mysteries:\n  - name: A\n    joining_pin: a\n    levels:\n      - name: L\n",
			want: util.ErrValidation,
		},
		{
			name: "unsupported type",
			doc:  "mysteries:\n  - name: A\n    joining_pin: a\n    levels:\n      - name: L\n        questions:\n          - question: Q\n            answer_type: essay\n",
			want: util.ErrUnsupportedQuestionType,
		},
		{
			name: "match without answer",
			doc:  "mysteries:\n  - name: A\n    joining_pin: a\n    levels:\n      - name: L\n        questions:\n          - question: Q\n            answer_type: match\n",
			want: util.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
