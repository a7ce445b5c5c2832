package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Huzaifa785/rewear-backend/internal/model"
	pkgerrors "github.com/Huzaifa785/rewear-backend/pkg/errors"
)

// ItemRepository 物品数据访问接口
type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) error
	GetByID(ctx context.Context, id string) (*model.Item, error)
	// GetByIDForUpdate 使用 SELECT ... FOR UPDATE 行级锁查询，必须在事务内调用
	GetByIDForUpdate(ctx context.Context, id string) (*model.Item, error)
	// Update 更新可编辑字段（乐观锁）
	Update(ctx context.Context, item *model.Item) error
	// TransitionStatus 条件更新状态：仅当当前状态为 from 且物品有效时生效
	TransitionStatus(ctx context.Context, id string, from, to model.ItemStatus) error
}

type itemRepo struct {
	db *gorm.DB
}

// NewItemRepo 创建 ItemRepository 实例
func NewItemRepo(db *gorm.DB) ItemRepository {
	return &itemRepo{db: db}
}

func (r *itemRepo) Create(ctx context.Context, item *model.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *itemRepo) GetByID(ctx context.Context, id string) (*model.Item, error) {
	if !validID(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var item model.Item
	err := r.db.WithContext(ctx).
		Where("item_id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Item, error) {
	if !validID(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var item model.Item
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("item_id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepo) Update(ctx context.Context, item *model.Item) error {
	oldVersion := item.Version
	result := r.db.WithContext(ctx).
		Model(&model.Item{}).
		Where("item_id = ? AND version = ?", item.ItemID, oldVersion).
		Updates(map[string]interface{}{
			"title":        item.Title,
			"description":  item.Description,
			"points_value": item.PointsValue,
			"status":       item.Status,
			"is_active":    item.IsActive,
			"version":      oldVersion + 1,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	item.Version = oldVersion + 1
	return nil
}

func (r *itemRepo) TransitionStatus(ctx context.Context, id string, from, to model.ItemStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.Item{}).
		Where("item_id = ? AND status = ? AND is_active = ?", id, from, true).
		Updates(map[string]interface{}{
			"status":     to,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrConditionFailed
	}
	return nil
}
