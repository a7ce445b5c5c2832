package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Huzaifa785/rewear-backend/internal/model"
	pkgerrors "github.com/Huzaifa785/rewear-backend/pkg/errors"
)

// UserRepository 用户与积分钱包数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByLogin 按用户名或邮箱查询
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	// ApplyCredit 原子增加余额与累计获得，返回记账后余额
	ApplyCredit(ctx context.Context, userID string, amount int) (int, error)
	// ApplyDebit 原子扣减余额并增加累计消费；余额不足时返回 ErrConditionFailed
	ApplyDebit(ctx context.Context, userID string, amount int) (int, error)
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	if !validID(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var user model.User
	err := r.db.WithContext(ctx).
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", login, login).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) ApplyCredit(ctx context.Context, userID string, amount int) (int, error) {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"points_balance":      gorm.Expr("points_balance + ?", amount),
			"total_points_earned": gorm.Expr("total_points_earned + ?", amount),
			"version":             gorm.Expr("version + 1"),
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return r.balance(ctx, userID)
}

func (r *userRepo) ApplyDebit(ctx context.Context, userID string, amount int) (int, error) {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("user_id = ? AND points_balance >= ?", userID, amount).
		Updates(map[string]interface{}{
			"points_balance":     gorm.Expr("points_balance - ?", amount),
			"total_points_spent": gorm.Expr("total_points_spent + ?", amount),
			"version":            gorm.Expr("version + 1"),
			"updated_at":         time.Now().UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, pkgerrors.ErrConditionFailed
	}
	return r.balance(ctx, userID)
}

func (r *userRepo) balance(ctx context.Context, userID string) (int, error) {
	var balance int
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Select("points_balance").
		Where("user_id = ?", userID).
		Scan(&balance).Error
	return balance, err
}
