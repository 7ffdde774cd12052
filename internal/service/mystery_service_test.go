package service

import (
	"context"
	"testing"
	"time"

	"mystery_hunt_backend/internal/model"
	"mystery_hunt_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinUnlocksFirstLevelOfMystery(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewMysteryService(env.mysteries, env.levels, env.progress)

	env.mystery(t, 1, "alpha")
	env.mystery(t, 2, "bravo")
	env.level(t, 1, 1)
	env.level(t, 2, 2)
	env.level(t, 3, 2)
	player := env.user(t, "ann", model.Player)

	require.NoError(t, svc.Join(ctx, player.ID, 2, " bravo "))
	// 重复加入不报错
	require.NoError(t, svc.Join(ctx, player.ID, 2, "bravo"))

	unlocked, err := env.progressR.UnlockedLevelIDs(ctx, player.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{1, 2}, unlocked)

	views, err := svc.ListVisible(ctx, player.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	status := map[uint]bool{}
	for _, v := range views {
		status[v.ID] = v.JoinStatus
		assert.True(t, v.IsActive)
	}
	assert.Equal(t, map[uint]bool{1: false, 2: true}, status)
}

func TestJoinRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewMysteryService(env.mysteries, env.levels, env.progress)
	player := env.user(t, "bob", model.Player)

	env.mystery(t, 1, "alpha")
	require.NoError(t, env.mysteries.Create(ctx, &model.Mystery{
		BaseModel: model.BaseModel{ID: 2}, Name: "hidden", JoiningPin: "hidden", IsVisible: false,
	}))
	require.NoError(t, env.mysteries.Create(ctx, &model.Mystery{
		BaseModel: model.BaseModel{ID: 3}, Name: "later", JoiningPin: "later", IsVisible: true,
		StartsAt: time.Now().Add(24 * time.Hour),
	}))

	assert.ErrorIs(t, svc.Join(ctx, player.ID, 1, "wrong"), util.ErrInvalidPin)
	assert.ErrorIs(t, svc.Join(ctx, player.ID, 2, "hidden"), util.ErrMysteryNotFound)
	assert.ErrorIs(t, svc.Join(ctx, player.ID, 3, "later"), util.ErrMysteryInactive)
	assert.ErrorIs(t, svc.Join(ctx, player.ID, 99, "alpha"), util.ErrMysteryNotFound)

	views, err := svc.ListVisible(ctx, player.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		assert.False(t, v.JoinStatus)
		if v.ID == 3 {
			assert.False(t, v.IsActive)
		}
	}
}

func TestJoinMysteryWithoutLevels(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewMysteryService(env.mysteries, env.levels, env.progress)
	env.mystery(t, 1, "alpha")
	player := env.user(t, "cat", model.Player)

	require.NoError(t, svc.Join(ctx, player.ID, 1, "alpha"))

	unlocked, err := env.progressR.UnlockedLevelIDs(ctx, player.ID)
	require.NoError(t, err)
	assert.Empty(t, unlocked)
}
