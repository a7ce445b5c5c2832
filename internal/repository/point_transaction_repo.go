package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Huzaifa785/rewear-backend/internal/model"
)

// PointTransactionRepository 积分流水数据访问接口（只追加）
type PointTransactionRepository interface {
	Create(ctx context.Context, tx *model.PointTransaction) error
	// ListByUser 分页查询流水，txType 为空时不过滤
	ListByUser(ctx context.Context, userID string, txType model.TransactionType, offset, limit int) ([]model.PointTransaction, int64, error)
	// ListAllByUser 导出用，按时间正序返回全部流水
	ListAllByUser(ctx context.Context, userID string) ([]model.PointTransaction, error)
	// SumByUser 流水金额合计，用于余额对账
	SumByUser(ctx context.Context, userID string) (int64, error)
}

type pointTransactionRepo struct {
	db *gorm.DB
}

// NewPointTransactionRepo 创建 PointTransactionRepository 实例
func NewPointTransactionRepo(db *gorm.DB) PointTransactionRepository {
	return &pointTransactionRepo{db: db}
}

func (r *pointTransactionRepo) Create(ctx context.Context, tx *model.PointTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *pointTransactionRepo) ListByUser(ctx context.Context, userID string, txType model.TransactionType, offset, limit int) ([]model.PointTransaction, int64, error) {
	var txs []model.PointTransaction
	var total int64

	db := r.db.WithContext(ctx).Model(&model.PointTransaction{}).
		Where("user_id = ?", userID)
	if txType != "" {
		db = db.Where("transaction_type = ?", txType)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("created_at DESC, transaction_id DESC").
		Find(&txs).Error
	return txs, total, err
}

func (r *pointTransactionRepo) ListAllByUser(ctx context.Context, userID string) ([]model.PointTransaction, error) {
	var txs []model.PointTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&txs).Error
	return txs, err
}

func (r *pointTransactionRepo) SumByUser(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&model.PointTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ?", userID).
		Scan(&sum).Error
	return sum, err
}
