package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuestionRef(t *testing.T) {
	for ref, want := range map[string]uint{"q12": 12, "12": 12, " q7 ": 7} {
		id, err := ParseQuestionRef(ref)
		require.NoError(t, err, ref)
		assert.Equal(t, want, id, ref)
	}
	for _, ref := range []string{"", "q", "x12", "q0", "q-1", "level-3"} {
		_, err := ParseQuestionRef(ref)
		assert.ErrorIs(t, err, ErrInvalidReference, ref)
	}
}

func TestParseLevelRef(t *testing.T) {
	id, err := ParseLevelRef("level-3")
	require.NoError(t, err)
	assert.Equal(t, uint(3), id)

	id, err = ParseLevelRef("4")
	require.NoError(t, err)
	assert.Equal(t, uint(4), id)

	_, err = ParseLevelRef("lvl-3")
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestPageParams(t *testing.T) {
	page, limit := PageParams("", "")
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	page, limit = PageParams("3", "50")
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, limit)

	page, limit = PageParams("-1", "1000")
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)
}

func TestMustParseUint(t *testing.T) {
	assert.Equal(t, uint(5), MustParseUint("5"))
	assert.Equal(t, uint(0), MustParseUint("abc"))
}
