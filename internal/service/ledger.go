package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Huzaifa785/rewear-backend/internal/model"
	"github.com/Huzaifa785/rewear-backend/internal/repository"
	pkgerrors "github.com/Huzaifa785/rewear-backend/pkg/errors"
)

// Posting 一次积分记账
type Posting struct {
	UserID      string
	Amount      int // 正整数；Debit 写入流水时取负
	Type        model.TransactionType
	Description string
	SwapID      *string
	ItemID      *string
}

// Ledger 积分账本
//
// 余额缓存与流水行在同一事务内写入：先对 users 做原子增减（扣减带 balance >= amount 条件），
// 再以返回的新余额追加流水。调用方必须传入绑定事务的 Repository。
type Ledger struct {
	logger *zap.Logger
}

// NewLedger 创建账本
func NewLedger(logger *zap.Logger) *Ledger {
	return &Ledger{logger: logger}
}

// Credit 入账
func (l *Ledger) Credit(ctx context.Context, tx *repository.Repository, p Posting) (*model.PointTransaction, error) {
	if p.Amount <= 0 {
		return nil, ErrInvalidPostingAmount
	}

	balance, err := tx.User.ApplyCredit(ctx, p.UserID, p.Amount)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		l.logger.Error("积分入账失败", zap.String("user_id", p.UserID), zap.Error(err))
		return nil, err
	}

	return l.append(ctx, tx, p, p.Amount, balance)
}

// Debit 扣减；余额不足时返回 ErrInsufficientPoints 且不产生任何变更
func (l *Ledger) Debit(ctx context.Context, tx *repository.Repository, p Posting) (*model.PointTransaction, error) {
	if p.Amount <= 0 {
		return nil, ErrInvalidPostingAmount
	}

	balance, err := tx.User.ApplyDebit(ctx, p.UserID, p.Amount)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrConditionFailed) {
			// 条件未命中：区分用户不存在与余额不足
			if _, getErr := tx.User.GetByID(ctx, p.UserID); errors.Is(getErr, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, ErrInsufficientPoints
		}
		l.logger.Error("积分扣减失败", zap.String("user_id", p.UserID), zap.Error(err))
		return nil, err
	}

	return l.append(ctx, tx, p, -p.Amount, balance)
}

func (l *Ledger) append(ctx context.Context, tx *repository.Repository, p Posting, signed, balance int) (*model.PointTransaction, error) {
	row := &model.PointTransaction{
		UserID:          p.UserID,
		Amount:          signed,
		BalanceAfter:    balance,
		TransactionType: p.Type,
		SwapID:          p.SwapID,
		ItemID:          p.ItemID,
		Description:     p.Description,
	}
	if err := tx.PointTransaction.Create(ctx, row); err != nil {
		l.logger.Error("写入积分流水失败", zap.String("user_id", p.UserID), zap.Error(err))
		return nil, fmt.Errorf("写入积分流水: %w", err)
	}
	return row, nil
}

// ── 物品可用性守卫 ──

// ItemGuard 物品状态翻转；全部为条件更新，未命中即视为冲突
type ItemGuard struct{}

// Reserve available → pending_swap
func (ItemGuard) Reserve(ctx context.Context, tx *repository.Repository, itemID, swapID string) error {
	return guardTransition(ctx, tx, itemID, model.ItemAvailable, model.ItemPendingSwap, swapID)
}

// Release pending_swap → available
func (ItemGuard) Release(ctx context.Context, tx *repository.Repository, itemID string) error {
	return guardTransition(ctx, tx, itemID, model.ItemPendingSwap, model.ItemAvailable, "")
}

// Finalize pending_swap → swapped（终态）
func (ItemGuard) Finalize(ctx context.Context, tx *repository.Repository, itemID string) error {
	return guardTransition(ctx, tx, itemID, model.ItemPendingSwap, model.ItemSwapped, "")
}

func guardTransition(ctx context.Context, tx *repository.Repository, itemID string, from, to model.ItemStatus, swapID string) error {
	err := tx.Item.TransitionStatus(ctx, itemID, from, to)
	if errors.Is(err, pkgerrors.ErrConditionFailed) {
		if swapID != "" {
			return fmt.Errorf("物品 %s 无法为交换 %s 预留: %w", itemID, swapID, ErrItemUnavailable)
		}
		return fmt.Errorf("物品 %s %s → %s: %w", itemID, from, to, ErrItemUnavailable)
	}
	return err
}
