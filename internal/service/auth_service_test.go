package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/isnotcursed/polymarket-casino-slot/internal/models"
	"github.com/isnotcursed/polymarket-casino-slot/internal/repository"
	"github.com/isnotcursed/polymarket-casino-slot/internal/utils"
)

// setupAuthService 组装测试用认证服务
func setupAuthService(t *testing.T) *AuthService {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.User{}, &models.Wallet{})
	require.NoError(t, err)

	return NewAuthService(
		repository.NewUserRepository(db),
		repository.NewWalletRepository(db),
		utils.NewJWTManager("test-secret", time.Hour),
		1000,
		zap.NewNop(),
	)
}

func TestAuthService_Register(t *testing.T) {
	svc := setupAuthService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, &RegisterRequest{
		Username: "player_one",
		Password: "secret123",
	})
	require.NoError(t, err)

	assert.NotZero(t, resp.UserID)
	assert.Equal(t, "player_one", resp.Username)
	assert.NotEmpty(t, resp.Token)
	// 注册自动开通演示钱包
	assert.InDelta(t, 1000.0, resp.Balance, 1e-9)
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := setupAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *RegisterRequest
		want error
	}{
		{"用户名过短", &RegisterRequest{Username: "ab", Password: "secret123"}, ErrInvalidUsername},
		{"用户名含非法字符", &RegisterRequest{Username: "bad name!", Password: "secret123"}, ErrInvalidUsername},
		{"密码过短", &RegisterRequest{Username: "player_two", Password: "123"}, ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	svc := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Username: "player_one", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &RegisterRequest{Username: "player_one", Password: "other456"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestAuthService_Login(t *testing.T) {
	svc := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Username: "player_one", Password: "secret123"})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &LoginRequest{Username: "player_one", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	// 令牌可以通过校验
	claims, err := svc.ValidateToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, claims.UserID)
	assert.Equal(t, "player_one", claims.Username)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Username: "player_one", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &LoginRequest{Username: "player_one", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, &LoginRequest{Username: "no_such_user", Password: "secret123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
