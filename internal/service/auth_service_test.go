package service

import (
	"context"
	"testing"
	"time"

	"mystery_hunt_backend/internal/config"
	"mystery_hunt_backend/internal/model"
	"mystery_hunt_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) (*AuthService, *testEnv) {
	env := newTestEnv(t)
	cfg := config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}
	return NewAuthService(env.users, util.NewSecretStore(cfg.Secret), cfg), env
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ann", " Ann@Example.com ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.Equal(t, model.Player, user.Role)
	assert.NotEqual(t, "s3cret", user.Password)

	token, logged, err := svc.Login(ctx, "ANN@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	claims, err := util.ParseJWT(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.Player, claims.Role)

	_, err = util.ParseJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ann", "ann@example.com", "pw")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "Ann 2", "ANN@example.com", "pw")
	assert.ErrorIs(t, err, util.ErrEmailRegistered)
}

func TestLoginFailures(t *testing.T) {
	svc, env := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Bob", "bob@example.com", "pw")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "bob@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody@example.com", "pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, env.db.Model(&model.User{}).Where("id = ?", user.ID).Update("disabled", true).Error)
	_, _, err = svc.Login(ctx, "bob@example.com", "pw")
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestLoginSignsWithRotatedSecret(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "Cat", "cat@example.com", "pw")
	require.NoError(t, err)

	assert.True(t, svc.Secrets.Set("rotated-secret"))
	assert.False(t, svc.Secrets.Set("rotated-secret"))

	token, _, err := svc.Login(ctx, "cat@example.com", "pw")
	require.NoError(t, err)
	_, err = util.ParseJWT(token, "rotated-secret")
	assert.NoError(t, err)
	_, err = util.ParseJWT(token, "test-secret")
	assert.Error(t, err)
}
