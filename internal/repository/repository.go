package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User             UserRepository
	Item             ItemRepository
	Swap             SwapRepository
	PointTransaction PointTransactionRepository
	Notification     NotificationRepository

	// Tx 事务执行器；为 nil 时直接在当前聚合上执行 fn
	Tx Transactor
}

// Transactor 在单个数据库事务内执行 fn
// fn 收到的 *Repository 绑定同一事务连接；fn 返回错误时整体回滚
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *Repository) error) error
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:             NewUserRepo(db),
		Item:             NewItemRepo(db),
		Swap:             NewSwapRepo(db),
		PointTransaction: NewPointTransactionRepo(db),
		Notification:     NewNotificationRepo(db),
		Tx:               &gormTransactor{db: db},
	}
}

// Transaction 在事务内执行 fn，所有状态变更要么全部提交，要么全部回滚
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.Tx == nil {
		return fn(r)
	}
	return r.Tx.Transaction(ctx, fn)
}

// gormTransactor 基于 GORM 的事务实现；嵌套调用时 GORM 使用 SAVEPOINT
type gormTransactor struct {
	db *gorm.DB
}

func (t *gormTransactor) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// validID 主键均为 UUID，格式非法按记录不存在处理
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
