package service

import (
	"context"
	"errors"
	"regexp"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/isnotcursed/polymarket-casino-slot/internal/models"
	"github.com/isnotcursed/polymarket-casino-slot/internal/repository"
	"github.com/isnotcursed/polymarket-casino-slot/internal/utils"
)

var (
	ErrUserExists         = errors.New("用户名已存在")
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrInvalidUsername    = errors.New("用户名格式非法")
	ErrWeakPassword       = errors.New("密码长度不足")
	ErrUserDisabled       = errors.New("账号已禁用")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	UserID   uint    `json:"user_id"`
	Username string  `json:"username"`
	Token    string  `json:"token"`
	Balance  float64 `json:"balance"`
}

// AuthService 认证服务
type AuthService struct {
	userRepo    repository.UserRepository
	walletRepo  repository.WalletRepository
	jwtManager  *utils.JWTManager
	demoBalance float64
	logger      *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(
	userRepo repository.UserRepository,
	walletRepo repository.WalletRepository,
	jwtManager *utils.JWTManager,
	demoBalance float64,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo:    userRepo,
		walletRepo:  walletRepo,
		jwtManager:  jwtManager,
		demoBalance: demoBalance,
		logger:      logger,
	}
}

// Register 注册新用户并开通演示钱包
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if !usernamePattern.MatchString(req.Username) {
		return nil, ErrInvalidUsername
	}
	if len(req.Password) < 6 {
		return nil, ErrWeakPassword
	}

	if existing, _ := s.userRepo.FindByUsername(ctx, req.Username); existing != nil {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: req.Username,
		Password: string(hash),
		Status:   "active",
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	wallet, err := s.walletRepo.EnsureWallet(ctx, user.ID, s.demoBalance)
	if err != nil {
		return nil, err
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, err
	}

	s.logger.Info("新用户注册",
		zap.Uint("user_id", user.ID),
		zap.String("username", user.Username))

	return &AuthResponse{
		UserID:   user.ID,
		Username: user.Username,
		Token:    token,
		Balance:  wallet.Balance,
	}, nil
}

// Login 登录
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, ErrUserDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	wallet, err := s.walletRepo.EnsureWallet(ctx, user.ID, s.demoBalance)
	if err != nil {
		return nil, err
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		UserID:   user.ID,
		Username: user.Username,
		Token:    token,
		Balance:  wallet.Balance,
	}, nil
}

// ValidateToken 验证令牌
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error) {
	return s.jwtManager.ValidateToken(token)
}
