package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Huzaifa785/rewear-backend/internal/model"
	pkgerrors "github.com/Huzaifa785/rewear-backend/pkg/errors"
)

// SwapBox 交换列表方向
type SwapBox string

const (
	SwapBoxAll      SwapBox = "all"
	SwapBoxSent     SwapBox = "sent"     // 我发起的
	SwapBoxReceived SwapBox = "received" // 我收到的
)

// SwapListFilter 交换列表过滤条件
type SwapListFilter struct {
	UserID string
	Box    SwapBox
	Status *model.SwapStatus
}

// OverdueFilter 批量过期的范围；字段均为空时作用于全部逾期记录
type OverdueFilter struct {
	UserID  string
	SwapIDs []string
}

// SwapView 交换读模型投影：显式 JOIN 物品与用户，不在状态机内做关联加载
type SwapView struct {
	model.Swap
	ItemTitle         string `json:"item_title"`
	ItemPointsValue   int    `json:"item_points_value"`
	OfferedItemTitle  string `json:"offered_item_title,omitempty"`
	RequesterUsername string `json:"requester_username"`
	OwnerUsername     string `json:"owner_username"`
}

// SwapRepository 交换数据访问接口
type SwapRepository interface {
	Create(ctx context.Context, swap *model.Swap) error
	GetByID(ctx context.Context, id string) (*model.Swap, error)
	// GetByIDForUpdate 使用 SELECT ... FOR UPDATE 行级锁查询，必须在事务内调用
	GetByIDForUpdate(ctx context.Context, id string) (*model.Swap, error)
	// UpdateStatus 条件更新：仅当当前状态为 from 时写入 swap 的状态与响应字段
	UpdateStatus(ctx context.Context, swap *model.Swap, from model.SwapStatus) error
	ExistsPending(ctx context.Context, itemID, requesterID string) (bool, error)

	// ListOverdueIDs 查询已过期但仍为 pending 的交换 ID（按过期时间升序）
	ListOverdueIDs(ctx context.Context, now time.Time, limit int) ([]string, error)
	// ExpireOverdue 将范围内逾期的 pending 交换置为 expired，返回影响行数
	ExpireOverdue(ctx context.Context, filter OverdueFilter, now time.Time) (int64, error)

	// ── 读模型 ──

	GetView(ctx context.Context, id string) (*SwapView, error)
	List(ctx context.Context, filter SwapListFilter, offset, limit int) ([]SwapView, int64, error)
	// CountByStatus 按状态聚合计数
	CountByStatus(ctx context.Context, userID string, box SwapBox) (map[model.SwapStatus]int64, error)
	// ListRecent 与用户相关的最近交换（按创建时间倒序）
	ListRecent(ctx context.Context, userID string, limit int) ([]SwapView, error)
}

type swapRepo struct {
	db *gorm.DB
}

// NewSwapRepo 创建 SwapRepository 实例
func NewSwapRepo(db *gorm.DB) SwapRepository {
	return &swapRepo{db: db}
}

func (r *swapRepo) Create(ctx context.Context, swap *model.Swap) error {
	return r.db.WithContext(ctx).Create(swap).Error
}

func (r *swapRepo) GetByID(ctx context.Context, id string) (*model.Swap, error) {
	if !validID(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var swap model.Swap
	err := r.db.WithContext(ctx).
		Where("swap_id = ?", id).
		First(&swap).Error
	if err != nil {
		return nil, err
	}
	return &swap, nil
}

func (r *swapRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Swap, error) {
	if !validID(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var swap model.Swap
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("swap_id = ?", id).
		First(&swap).Error
	if err != nil {
		return nil, err
	}
	return &swap, nil
}

func (r *swapRepo) UpdateStatus(ctx context.Context, swap *model.Swap, from model.SwapStatus) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&model.Swap{}).
		Where("swap_id = ? AND status = ?", swap.SwapID, from).
		Updates(map[string]interface{}{
			"status":         swap.Status,
			"owner_response": swap.OwnerResponse,
			"responded_at":   swap.RespondedAt,
			"completed_at":   swap.CompletedAt,
			"version":        gorm.Expr("version + 1"),
			"updated_at":     now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrConditionFailed
	}
	swap.Version++
	swap.UpdatedAt = now
	return nil
}

func (r *swapRepo) ExistsPending(ctx context.Context, itemID, requesterID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Swap{}).
		Where("item_id = ? AND requester_id = ? AND status = ?", itemID, requesterID, model.SwapPending).
		Count(&count).Error
	return count > 0, err
}

func (r *swapRepo) ListOverdueIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Swap{}).
		Where("status = ? AND expires_at < ?", model.SwapPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Pluck("swap_id", &ids).Error
	return ids, err
}

func (r *swapRepo) ExpireOverdue(ctx context.Context, filter OverdueFilter, now time.Time) (int64, error) {
	db := r.db.WithContext(ctx).
		Model(&model.Swap{}).
		Where("status = ? AND expires_at < ?", model.SwapPending, now)
	if filter.UserID != "" {
		db = db.Where("requester_id = ? OR item_owner_id = ?", filter.UserID, filter.UserID)
	}
	if len(filter.SwapIDs) > 0 {
		db = db.Where("swap_id IN ?", filter.SwapIDs)
	}

	result := db.Updates(map[string]interface{}{
		"status":     model.SwapExpired,
		"version":    gorm.Expr("version + 1"),
		"updated_at": now.UTC(),
	})
	return result.RowsAffected, result.Error
}

// ── 读模型 ──

func (r *swapRepo) viewQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("swaps AS s").
		Select(`s.*,
			it.title AS item_title,
			it.points_value AS item_points_value,
			COALESCE(oi.title, '') AS offered_item_title,
			ru.username AS requester_username,
			ou.username AS owner_username`).
		Joins("JOIN items AS it ON it.item_id = s.item_id").
		Joins("LEFT JOIN items AS oi ON oi.item_id = s.offered_item_id").
		Joins("JOIN users AS ru ON ru.user_id = s.requester_id").
		Joins("JOIN users AS ou ON ou.user_id = s.item_owner_id")
}

func applyBox(db *gorm.DB, userID string, box SwapBox) *gorm.DB {
	switch box {
	case SwapBoxSent:
		return db.Where("s.requester_id = ?", userID)
	case SwapBoxReceived:
		return db.Where("s.item_owner_id = ?", userID)
	default:
		return db.Where("s.requester_id = ? OR s.item_owner_id = ?", userID, userID)
	}
}

func (r *swapRepo) GetView(ctx context.Context, id string) (*SwapView, error) {
	if !validID(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var views []SwapView
	err := r.viewQuery(ctx).
		Where("s.swap_id = ?", id).
		Limit(1).
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &views[0], nil
}

func (r *swapRepo) List(ctx context.Context, filter SwapListFilter, offset, limit int) ([]SwapView, int64, error) {
	var total int64
	countDB := applyBox(r.db.WithContext(ctx).Table("swaps AS s"), filter.UserID, filter.Box)
	if filter.Status != nil {
		countDB = countDB.Where("s.status = ?", *filter.Status)
	}
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db := applyBox(r.viewQuery(ctx), filter.UserID, filter.Box)
	if filter.Status != nil {
		db = db.Where("s.status = ?", *filter.Status)
	}

	var views []SwapView
	err := db.Order("s.created_at DESC").
		Offset(offset).Limit(limit).
		Scan(&views).Error
	return views, total, err
}

func (r *swapRepo) CountByStatus(ctx context.Context, userID string, box SwapBox) (map[model.SwapStatus]int64, error) {
	var rows []struct {
		Status model.SwapStatus
		Count  int64
	}
	err := applyBox(r.db.WithContext(ctx).Table("swaps AS s"), userID, box).
		Select("s.status AS status, COUNT(*) AS count").
		Group("s.status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.SwapStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *swapRepo) ListRecent(ctx context.Context, userID string, limit int) ([]SwapView, error) {
	var views []SwapView
	err := applyBox(r.viewQuery(ctx), userID, SwapBoxAll).
		Order("s.created_at DESC").
		Limit(limit).
		Scan(&views).Error
	return views, err
}
