package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Huzaifa785/rewear-backend/config"
	"github.com/Huzaifa785/rewear-backend/internal/dto"
	"github.com/Huzaifa785/rewear-backend/internal/model"
	"github.com/Huzaifa785/rewear-backend/internal/repository"
	"github.com/Huzaifa785/rewear-backend/pkg/jwt"
)

// TokenBlacklist 注销 Token 的存储（Redis）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthService 认证业务接口
type AuthService interface {
	// Register 注册并发放注册奖励积分
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TokenResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// Logout 将 Access Token 加入黑名单；未启用 Redis 时为空操作
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
}

type authService struct {
	cfg       *config.Config
	repo      *repository.Repository
	ledger    *Ledger
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例；blacklist 可为 nil
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	ledger *Ledger,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:       cfg,
		repo:      repo,
		ledger:    ledger,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		logger:    logger,
	}
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TokenResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// 1. 唯一性预检（唯一索引兜底）
	for _, login := range []string{username, email} {
		if _, err := s.repo.User.GetByLogin(ctx, login); err == nil {
			return nil, ErrUserExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询用户失败", zap.Error(err))
			return nil, err
		}
	}

	// 2. 密码哈希 (bcrypt)
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         "member",
		IsActive:     true,
	}

	// 3. 创建用户与注册奖励在同一事务
	bonus := s.cfg.Points.SignupBonus
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.User.Create(ctx, user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUserExists
			}
			s.logger.Error("创建用户失败", zap.Error(err))
			return err
		}
		if bonus <= 0 {
			return nil
		}
		row, err := s.ledger.Credit(ctx, tx, Posting{
			UserID:      user.UserID,
			Amount:      bonus,
			Type:        model.TxSignupBonus,
			Description: "注册奖励",
		})
		if err != nil {
			return err
		}
		user.PointsBalance = row.BalanceAfter
		user.TotalPointsEarned = bonus
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("用户注册成功", zap.String("user_id", user.UserID), zap.String("username", user.Username))
	return s.issueTokens(user)
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户（用户名或邮箱）
	login := strings.TrimSpace(req.Login)
	if strings.Contains(login, "@") {
		login = strings.ToLower(login)
	}
	user, err := s.repo.User.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	// 3. 生成 Token 对
	return s.issueTokens(user)
}

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.blacklist == nil || jti == "" {
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, jti, time.Until(expiresAt)); err != nil {
		s.logger.Error("Token 加入黑名单失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *authService) issueTokens(user *model.User) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, user.Role)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         toUserResponse(user),
	}, nil
}

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:            u.UserID,
		Username:      u.Username,
		Email:         u.Email,
		Role:          u.Role,
		PointsBalance: u.PointsBalance,
		CreatedAt:     dto.FormatTime(u.CreatedAt),
	}
}
