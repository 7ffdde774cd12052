package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseAnswerType(t *testing.T) {
	typ, ok := ParseAnswerType(" Image-Review ")
	assert.True(t, ok)
	assert.Equal(t, AnswerImageReview, typ)
	assert.True(t, typ.IsReview())
	assert.True(t, typ.NeedsImage())

	typ, ok = ParseAnswerType("descriptive")
	assert.True(t, ok)
	assert.False(t, typ.IsReview())
	assert.False(t, typ.NeedsImage())

	_, ok = ParseAnswerType("essay")
	assert.False(t, ok)
}

func TestMysteryIsActive(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	m := Mystery{StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)}
	assert.True(t, m.IsActive(now))
	assert.True(t, m.IsActive(m.EndsAt))
	assert.False(t, m.IsActive(now.Add(2*time.Hour)))
	assert.False(t, m.IsActive(now.Add(-2*time.Hour)))

	open := Mystery{StartsAt: now.Add(-time.Hour)}
	assert.True(t, open.IsActive(now.AddDate(5, 0, 0)))
}

func TestRefs(t *testing.T) {
	assert.Equal(t, "q12", QuestionRef(12))
	assert.Equal(t, "level-3", LevelRef(3))
	assert.Equal(t, "present-9", PresentRef(9))
	assert.Equal(t, "4:12", *SolvedKeyFor(4, 12))
}

func TestPresentView(t *testing.T) {
	var missing *Present
	assert.Nil(t, missing.View())

	v := (&Present{BaseModel: BaseModel{ID: 2}, LevelID: 1, Title: "compass", Type: "text"}).View()
	assert.Equal(t, "present-2", v.ID)
	assert.Equal(t, "level-1", v.LevelID)
}
