package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Huzaifa785/rewear-backend/config"
	"github.com/Huzaifa785/rewear-backend/internal/dto"
	"github.com/Huzaifa785/rewear-backend/internal/model"
	"github.com/Huzaifa785/rewear-backend/internal/notify"
	"github.com/Huzaifa785/rewear-backend/internal/repository"
)

// ItemService 物品发布与维护
//
// 交换中（pending_swap）或已交换（swapped）的物品不可修改、下架。
type ItemService interface {
	Create(ctx context.Context, ownerID string, req *dto.CreateItemRequest) (*dto.CreateItemResponse, error)
	Get(ctx context.Context, itemID string) (*dto.ItemResponse, error)
	Update(ctx context.Context, ownerID, itemID string, req *dto.UpdateItemRequest) (*dto.ItemResponse, error)
	Withdraw(ctx context.Context, ownerID, itemID string) (*dto.ItemResponse, error)
}

type itemService struct {
	cfg      config.PointsConfig
	repo     *repository.Repository
	ledger   *Ledger
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewItemService 创建 ItemService 实例
func NewItemService(cfg config.PointsConfig, repo *repository.Repository, ledger *Ledger, notifier notify.Notifier, logger *zap.Logger) ItemService {
	if notifier == nil {
		notifier = notify.Nop
	}
	return &itemService{cfg: cfg, repo: repo, ledger: ledger, notifier: notifier, logger: logger}
}

// listingAward 上架奖励：物品价值的 25%，不低于配置的保底值
func (s *itemService) listingAward(value int) int {
	return max(s.cfg.ListingAwardMin, value/4)
}

func (s *itemService) Create(ctx context.Context, ownerID string, req *dto.CreateItemRequest) (resp *dto.CreateItemResponse, err error) {
	ctx, end := startSpan(ctx, "ItemService.Create", attribute.String("owner_id", ownerID))
	defer func() { end(err) }()

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: 标题不能为空", ErrItemValidation)
	}
	if req.PointsValue <= 0 {
		return nil, fmt.Errorf("%w: points_value 必须为正整数", ErrItemValidation)
	}

	item := &model.Item{
		OwnerID:     ownerID,
		Title:       title,
		Description: req.Description,
		PointsValue: req.PointsValue,
		Status:      model.ItemAvailable,
		IsActive:    true,
	}
	award := s.listingAward(req.PointsValue)

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Item.Create(ctx, item); err != nil {
			s.logger.Error("创建物品失败", zap.Error(err))
			return err
		}
		if award <= 0 {
			return nil
		}
		itemRef := item.ItemID
		_, err := s.ledger.Credit(ctx, tx, Posting{
			UserID:      ownerID,
			Amount:      award,
			Type:        model.TxItemListed,
			Description: fmt.Sprintf("发布「%s」获得积分", item.Title),
			ItemID:      &itemRef,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if award > 0 {
		s.notifier.Dispatch(notify.Event{
			Kind:       notify.KindPointsEarned,
			Recipients: []string{ownerID},
			Title:      "获得积分",
			Message:    fmt.Sprintf("发布「%s」，获得 %d 积分", item.Title, award),
			Payload: map[string]interface{}{
				"points":  award,
				"reason":  string(model.TxItemListed),
				"item_id": item.ItemID,
			},
		})
	}

	return &dto.CreateItemResponse{Item: toItemResponse(item), PointsAwarded: award}, nil
}

func (s *itemService) Get(ctx context.Context, itemID string) (*dto.ItemResponse, error) {
	item, err := s.repo.Item.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		s.logger.Error("查询物品失败", zap.Error(err))
		return nil, err
	}
	out := toItemResponse(item)
	return &out, nil
}

func (s *itemService) Update(ctx context.Context, ownerID, itemID string, req *dto.UpdateItemRequest) (*dto.ItemResponse, error) {
	item, err := s.loadEditable(ctx, ownerID, itemID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: 标题不能为空", ErrItemValidation)
		}
		item.Title = title
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.PointsValue != nil {
		if *req.PointsValue <= 0 {
			return nil, fmt.Errorf("%w: points_value 必须为正整数", ErrItemValidation)
		}
		item.PointsValue = *req.PointsValue
	}

	// 读取后被交换预留时版本号已变化，乐观锁拒绝写入
	if err := s.repo.Item.Update(ctx, item); err != nil {
		s.logger.Warn("更新物品失败", zap.String("item_id", itemID), zap.Error(err))
		return nil, err
	}

	out := toItemResponse(item)
	return &out, nil
}

func (s *itemService) Withdraw(ctx context.Context, ownerID, itemID string) (*dto.ItemResponse, error) {
	item, err := s.loadEditable(ctx, ownerID, itemID)
	if err != nil {
		return nil, err
	}

	item.Status = model.ItemWithdrawn
	item.IsActive = false
	if err := s.repo.Item.Update(ctx, item); err != nil {
		s.logger.Warn("下架物品失败", zap.String("item_id", itemID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("物品已下架", zap.String("item_id", itemID), zap.String("owner_id", ownerID))
	out := toItemResponse(item)
	return &out, nil
}

// loadEditable 物主本人、未下架、且不在交换流程中的物品才可编辑
func (s *itemService) loadEditable(ctx context.Context, ownerID, itemID string) (*model.Item, error) {
	item, err := s.repo.Item.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		s.logger.Error("查询物品失败", zap.Error(err))
		return nil, err
	}
	if item.OwnerID != ownerID {
		return nil, ErrItemNotFound
	}
	if item.Status.Locked() {
		return nil, ErrItemLocked
	}
	if !item.IsActive {
		return nil, ErrItemUnavailable
	}
	return item, nil
}

func toItemResponse(it *model.Item) dto.ItemResponse {
	return dto.ItemResponse{
		ID:          it.ItemID,
		OwnerID:     it.OwnerID,
		Title:       it.Title,
		Description: it.Description,
		PointsValue: it.PointsValue,
		Status:      it.Status.String(),
		IsActive:    it.IsActive,
		CreatedAt:   dto.FormatTime(it.CreatedAt),
		UpdatedAt:   dto.FormatTime(it.UpdatedAt),
	}
}
