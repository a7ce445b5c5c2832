package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Huzaifa785/rewear-backend/internal/dto"
	"github.com/Huzaifa785/rewear-backend/internal/model"
	"github.com/Huzaifa785/rewear-backend/internal/notify"
	"github.com/Huzaifa785/rewear-backend/internal/repository"
	pkgerrors "github.com/Huzaifa785/rewear-backend/pkg/errors"
)

// recentActivityLimit 统计接口返回的最近动态条数
const recentActivityLimit = 5

// SwapService 交换状态机
//
//	pending  → accepted | rejected | cancelled | expired
//	accepted → completed
//
// 每个操作是一个数据库事务：交换行 FOR UPDATE 锁定，状态写入带源状态条件，
// 物品预留与积分记账在同一事务内完成；通知在事务提交之后才入队。
type SwapService interface {
	Create(ctx context.Context, requesterID string, req *dto.CreateSwapRequest) (*dto.SwapResponse, error)
	Accept(ctx context.Context, swapID, callerID string, req *dto.RespondSwapRequest) (*dto.SwapResponse, error)
	Reject(ctx context.Context, swapID, callerID string, req *dto.RespondSwapRequest) (*dto.SwapResponse, error)
	Cancel(ctx context.Context, swapID, callerID string) (*dto.SwapResponse, error)
	Complete(ctx context.Context, swapID, callerID string) (*dto.SwapResponse, error)

	Get(ctx context.Context, swapID, callerID string) (*dto.SwapResponse, error)
	List(ctx context.Context, callerID string, req *dto.SwapListRequest) ([]dto.SwapResponse, int64, error)
	Stats(ctx context.Context, callerID string) (*dto.SwapStatsResponse, error)
}

type swapService struct {
	repo     *repository.Repository
	ledger   *Ledger
	guard    ItemGuard
	notifier notify.Notifier
	now      Clock
	logger   *zap.Logger
}

// NewSwapService 创建 SwapService 实例
func NewSwapService(repo *repository.Repository, ledger *Ledger, notifier notify.Notifier, now Clock, logger *zap.Logger) SwapService {
	if notifier == nil {
		notifier = notify.Nop
	}
	if now == nil {
		now = SystemClock
	}
	return &swapService{
		repo:     repo,
		ledger:   ledger,
		notifier: notifier,
		now:      now,
		logger:   logger,
	}
}

// partyRole 操作要求的调用方身份
type partyRole int

const (
	roleOwner partyRole = iota
	roleRequester
)

func (r partyRole) matches(sw *model.Swap, userID string) bool {
	if r == roleOwner {
		return sw.ItemOwnerID == userID
	}
	return sw.RequesterID == userID
}

// ════════════════════════════════════════════════════════════
// Create — 发起交换请求
// ════════════════════════════════════════════════════════════

func (s *swapService) Create(ctx context.Context, requesterID string, req *dto.CreateSwapRequest) (resp *dto.SwapResponse, err error) {
	ctx, end := startSpan(ctx, "SwapService.Create", attribute.String("item_id", req.ItemID))
	defer func() { end(err) }()

	var swapType model.SwapType
	if err := swapType.UnmarshalText([]byte(req.SwapType)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSwapValidation, err)
	}

	var (
		swap   *model.Swap
		target *model.Item
	)
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		now := s.now()

		// 1. 目标物品：存在、可交换、不是自己的
		item, err := tx.Item.GetByID(ctx, req.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			s.logger.Error("查询目标物品失败", zap.Error(err))
			return err
		}
		if !item.Swappable() {
			return ErrItemUnavailable
		}
		if item.OwnerID == requesterID {
			return ErrSelfSwap
		}
		target = item

		sw := &model.Swap{
			RequesterID:      requesterID,
			ItemOwnerID:      item.OwnerID,
			ItemID:           item.ItemID,
			SwapType:         swapType,
			Status:           model.SwapPending,
			RequesterMessage: req.RequesterMessage,
			ExpiresAt:        now.Add(model.SwapExpiryWindow),
		}

		switch swapType {
		case model.SwapDirect:
			// 2. 以物换物：报价物品属于申请人且可交换
			if req.OfferedItemID == nil || *req.OfferedItemID == "" {
				return ErrOfferedItemRequired
			}
			offered, err := tx.Item.GetByID(ctx, *req.OfferedItemID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrOfferedItemNotFound
				}
				s.logger.Error("查询报价物品失败", zap.Error(err))
				return err
			}
			if offered.OwnerID != requesterID {
				return ErrOfferedItemNotFound
			}
			if !offered.Swappable() {
				return ErrItemUnavailable
			}
			offeredID := offered.ItemID
			sw.OfferedItemID = &offeredID

		case model.SwapPointsRedemption:
			// 3. 积分兑换：余额充足且不低于物品价值的一半（向下取整）
			if req.PointsOffered == nil {
				return ErrPointsOfferedRequired
			}
			points := *req.PointsOffered
			if points <= 0 {
				return fmt.Errorf("%w: points_offered 必须为正整数", ErrSwapValidation)
			}
			requester, err := tx.User.GetByID(ctx, requesterID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrUserNotFound
				}
				s.logger.Error("查询申请人失败", zap.Error(err))
				return err
			}
			if requester.PointsBalance < points {
				return ErrInsufficientPoints
			}
			if minOffer := item.PointsValue / 2; points < minOffer {
				return fmt.Errorf("%w（最低 %d 积分）", ErrPointsBelowMinimum, minOffer)
			}
			sw.PointsOffered = &points
		}

		// 4. 同一 (物品, 申请人) 不允许重复 pending；已逾期的旧请求先行过期
		if _, err := tx.Swap.ExpireOverdue(ctx, repository.OverdueFilter{UserID: requesterID}, now); err != nil {
			s.logger.Error("过期逾期交换失败", zap.Error(err))
			return err
		}
		exists, err := tx.Swap.ExistsPending(ctx, item.ItemID, requesterID)
		if err != nil {
			s.logger.Error("查询待处理交换失败", zap.Error(err))
			return err
		}
		if exists {
			return ErrDuplicatePendingSwap
		}

		if err := tx.Swap.Create(ctx, sw); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicatePendingSwap
			}
			s.logger.Error("创建交换失败", zap.Error(err))
			return err
		}
		swap = sw
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := s.loadView(ctx, swap)
	s.notifier.Dispatch(notify.Event{
		Kind:       notify.KindSwapRequest,
		Recipients: []string{swap.ItemOwnerID},
		Title:      "收到新的交换请求",
		Message:    fmt.Sprintf("%s 想要交换你的「%s」", view.RequesterUsername, target.Title),
		SwapID:     swap.SwapID,
		Payload: map[string]interface{}{
			"swap_id":            swap.SwapID,
			"item_id":            target.ItemID,
			"item_title":         target.Title,
			"swap_type":          swap.SwapType.String(),
			"points_offered":     swap.PointsOffered,
			"requester_username": view.RequesterUsername,
		},
	})

	out := toSwapResponse(view)
	return &out, nil
}

// ════════════════════════════════════════════════════════════
// Accept / Reject / Cancel — pending 源状态迁移
// ════════════════════════════════════════════════════════════

func (s *swapService) Accept(ctx context.Context, swapID, callerID string, req *dto.RespondSwapRequest) (resp *dto.SwapResponse, err error) {
	ctx, end := startSpan(ctx, "SwapService.Accept", attribute.String("swap_id", swapID))
	defer func() { end(err) }()

	sw, err := s.transition(ctx, swapID, callerID, roleOwner, model.SwapAccepted,
		func(tx *repository.Repository, sw *model.Swap, now time.Time) error {
			// 目标物品与报价物品必须同时预留成功，任一失败整体回滚
			if err := s.guard.Reserve(ctx, tx, sw.ItemID, sw.SwapID); err != nil {
				return err
			}
			if sw.SwapType == model.SwapDirect && sw.OfferedItemID != nil {
				if err := s.guard.Reserve(ctx, tx, *sw.OfferedItemID, sw.SwapID); err != nil {
					return err
				}
			}
			sw.OwnerResponse = respondMessage(req)
			sw.RespondedAt = &now
			return nil
		})
	if err != nil {
		return nil, err
	}

	view := s.loadView(ctx, sw)
	s.notifier.Dispatch(notify.Event{
		Kind:       notify.KindSwapResponse,
		Recipients: []string{sw.RequesterID},
		Title:      "交换请求已被接受",
		Message:    fmt.Sprintf("%s 接受了你对「%s」的交换请求", view.OwnerUsername, view.ItemTitle),
		SwapID:     sw.SwapID,
		Payload:    responsePayload(view, true),
	})

	out := toSwapResponse(view)
	return &out, nil
}

func (s *swapService) Reject(ctx context.Context, swapID, callerID string, req *dto.RespondSwapRequest) (resp *dto.SwapResponse, err error) {
	ctx, end := startSpan(ctx, "SwapService.Reject", attribute.String("swap_id", swapID))
	defer func() { end(err) }()

	sw, err := s.transition(ctx, swapID, callerID, roleOwner, model.SwapRejected,
		func(_ *repository.Repository, sw *model.Swap, now time.Time) error {
			sw.OwnerResponse = respondMessage(req)
			sw.RespondedAt = &now
			return nil
		})
	if err != nil {
		return nil, err
	}

	view := s.loadView(ctx, sw)
	s.notifier.Dispatch(notify.Event{
		Kind:       notify.KindSwapResponse,
		Recipients: []string{sw.RequesterID},
		Title:      "交换请求已被拒绝",
		Message:    fmt.Sprintf("%s 拒绝了你对「%s」的交换请求", view.OwnerUsername, view.ItemTitle),
		SwapID:     sw.SwapID,
		Payload:    responsePayload(view, false),
	})

	out := toSwapResponse(view)
	return &out, nil
}

func (s *swapService) Cancel(ctx context.Context, swapID, callerID string) (resp *dto.SwapResponse, err error) {
	ctx, end := startSpan(ctx, "SwapService.Cancel", attribute.String("swap_id", swapID))
	defer func() { end(err) }()

	sw, err := s.transition(ctx, swapID, callerID, roleRequester, model.SwapCancelled, nil)
	if err != nil {
		return nil, err
	}

	view := s.loadView(ctx, sw)
	payload := responsePayload(view, false)
	payload["cancelled"] = true
	s.notifier.Dispatch(notify.Event{
		Kind:       notify.KindSwapResponse,
		Recipients: []string{sw.ItemOwnerID},
		Title:      "交换请求已被撤回",
		Message:    fmt.Sprintf("%s 撤回了对「%s」的交换请求", view.RequesterUsername, view.ItemTitle),
		SwapID:     sw.SwapID,
		Payload:    payload,
	})

	out := toSwapResponse(view)
	return &out, nil
}

// ════════════════════════════════════════════════════════════
// Complete — 完成交换并结算积分
// ════════════════════════════════════════════════════════════

func (s *swapService) Complete(ctx context.Context, swapID, callerID string) (resp *dto.SwapResponse, err error) {
	ctx, end := startSpan(ctx, "SwapService.Complete", attribute.String("swap_id", swapID))
	defer func() { end(err) }()

	var (
		settlement []*model.PointTransaction
		itemTitle  string
	)
	sw, err := s.transition(ctx, swapID, callerID, roleOwner, model.SwapCompleted,
		func(tx *repository.Repository, sw *model.Swap, now time.Time) error {
			settlement = settlement[:0]

			target, err := s.lockItem(ctx, tx, sw.ItemID)
			if err != nil {
				return err
			}
			itemTitle = target.Title
			swapRef := sw.SwapID

			switch sw.SwapType {
			case model.SwapPointsRedemption:
				// 先扣后加：完成时重新校验余额，扣减失败则不入账、不改任何状态
				amount := sw.OfferedPoints()
				itemRef := target.ItemID
				debit, err := s.ledger.Debit(ctx, tx, Posting{
					UserID:      sw.RequesterID,
					Amount:      amount,
					Type:        model.TxPointsRedemption,
					Description: fmt.Sprintf("积分兑换「%s」", target.Title),
					SwapID:      &swapRef,
					ItemID:      &itemRef,
				})
				if err != nil {
					return err
				}
				credit, err := s.ledger.Credit(ctx, tx, Posting{
					UserID:      sw.ItemOwnerID,
					Amount:      amount,
					Type:        model.TxPointsReceived,
					Description: fmt.Sprintf("「%s」被积分兑换", target.Title),
					SwapID:      &swapRef,
					ItemID:      &itemRef,
				})
				if err != nil {
					return err
				}
				settlement = append(settlement, debit, credit)

			case model.SwapDirect:
				if sw.OfferedItemID == nil {
					return fmt.Errorf("%w: 以物换物缺少报价物品", ErrSwapStateConflict)
				}
				offered, err := s.lockItem(ctx, tx, *sw.OfferedItemID)
				if err != nil {
					return err
				}
				if err := s.guard.Finalize(ctx, tx, offered.ItemID); err != nil {
					return err
				}

				// 双方各得对方物品价值的 25%（向下取整）
				// 每笔在独立 SAVEPOINT 内记账，失败只回滚该笔，两笔都会尝试；错误合并返回后整体回滚
				targetRef, offeredRef := target.ItemID, offered.ItemID
				awards := []Posting{
					{
						UserID:      sw.RequesterID,
						Amount:      target.PointsValue / 4,
						Type:        model.TxSwapCompleted,
						Description: fmt.Sprintf("换得「%s」获得积分", target.Title),
						SwapID:      &swapRef,
						ItemID:      &targetRef,
					},
					{
						UserID:      sw.ItemOwnerID,
						Amount:      offered.PointsValue / 4,
						Type:        model.TxSwapCompleted,
						Description: fmt.Sprintf("换出「%s」获得积分", offered.Title),
						SwapID:      &swapRef,
						ItemID:      &offeredRef,
					},
				}
				var errs []error
				for _, p := range awards {
					if p.Amount <= 0 {
						continue
					}
					var row *model.PointTransaction
					err := tx.Transaction(ctx, func(sp *repository.Repository) error {
						var err error
						row, err = s.ledger.Credit(ctx, sp, p)
						return err
					})
					if err != nil {
						errs = append(errs, fmt.Errorf("用户 %s 入账: %w", p.UserID, err))
						continue
					}
					settlement = append(settlement, row)
				}
				if err := errors.Join(errs...); err != nil {
					return err
				}
			}

			if err := s.guard.Finalize(ctx, tx, target.ItemID); err != nil {
				return err
			}
			sw.CompletedAt = &now
			return nil
		})
	if err != nil {
		return nil, err
	}

	view := s.loadView(ctx, sw)
	if view.ItemTitle == "" {
		view.ItemTitle = itemTitle
	}

	earned := map[string]int{}
	for _, row := range settlement {
		if row.Amount > 0 {
			earned[row.UserID] += row.Amount
		}
	}
	s.notifier.Dispatch(notify.Event{
		Kind:       notify.KindSwapCompleted,
		Recipients: []string{sw.RequesterID, sw.ItemOwnerID},
		Title:      "交换已完成",
		Message:    fmt.Sprintf("「%s」的交换已完成", view.ItemTitle),
		SwapID:     sw.SwapID,
		Payload: map[string]interface{}{
			"swap_id":       sw.SwapID,
			"item_id":       sw.ItemID,
			"item_title":    view.ItemTitle,
			"swap_type":     sw.SwapType.String(),
			"points_earned": earned,
		},
	})
	for _, userID := range []string{sw.RequesterID, sw.ItemOwnerID} {
		points, ok := earned[userID]
		if !ok {
			continue
		}
		s.notifier.Dispatch(notify.Event{
			Kind:       notify.KindPointsEarned,
			Recipients: []string{userID},
			Title:      "获得积分",
			Message:    fmt.Sprintf("完成「%s」的交换，获得 %d 积分", view.ItemTitle, points),
			SwapID:     sw.SwapID,
			Payload: map[string]interface{}{
				"points": points,
				"reason": "swap_completed",
			},
		})
	}

	out := toSwapResponse(view)
	for _, row := range settlement {
		out.Settlement = append(out.Settlement, dto.PostingItem{
			UserID: row.UserID,
			Amount: row.Amount,
			Type:   string(row.TransactionType),
		})
	}
	return &out, nil
}

// transition 在一个事务内执行一次状态迁移
//
// 顺序：锁定交换 → 校验调用方 → 惰性过期 → 校验源状态 → apply → 条件写入状态。
// 惰性过期会提交 expired 状态，随后向调用方返回 ErrSwapExpired。
func (s *swapService) transition(
	ctx context.Context,
	swapID, callerID string,
	role partyRole,
	to model.SwapStatus,
	apply func(tx *repository.Repository, sw *model.Swap, now time.Time) error,
) (*model.Swap, error) {
	var (
		result  *model.Swap
		expired bool
	)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		sw, err := tx.Swap.GetByIDForUpdate(ctx, swapID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSwapNotFound
			}
			s.logger.Error("查询交换失败", zap.String("swap_id", swapID), zap.Error(err))
			return err
		}
		if !role.matches(sw, callerID) {
			return ErrSwapNotFound
		}

		now := s.now()
		if sw.ExpiredAt(now) {
			sw.Status = model.SwapExpired
			if err := tx.Swap.UpdateStatus(ctx, sw, model.SwapPending); err != nil {
				return s.mapStatusErr(err, swapID)
			}
			expired = true
			return nil
		}

		from := sw.Status
		if !from.CanTransitionTo(to) {
			return ErrSwapStateConflict
		}
		if apply != nil {
			if err := apply(tx, sw, now); err != nil {
				return err
			}
		}
		sw.Status = to
		if err := tx.Swap.UpdateStatus(ctx, sw, from); err != nil {
			return s.mapStatusErr(err, swapID)
		}
		result = sw
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		s.logger.Info("交换已过期", zap.String("swap_id", swapID))
		return nil, ErrSwapExpired
	}
	return result, nil
}

func (s *swapService) mapStatusErr(err error, swapID string) error {
	if errors.Is(err, pkgerrors.ErrConditionFailed) {
		return ErrSwapStateConflict
	}
	s.logger.Error("更新交换状态失败", zap.String("swap_id", swapID), zap.Error(err))
	return err
}

func (s *swapService) lockItem(ctx context.Context, tx *repository.Repository, itemID string) (*model.Item, error) {
	item, err := tx.Item.GetByIDForUpdate(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		s.logger.Error("查询物品失败", zap.String("item_id", itemID), zap.Error(err))
		return nil, err
	}
	return item, nil
}

// ════════════════════════════════════════════════════════════
// 读模型
// ════════════════════════════════════════════════════════════

func (s *swapService) Get(ctx context.Context, swapID, callerID string) (*dto.SwapResponse, error) {
	sw, err := s.repo.Swap.GetByID(ctx, swapID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSwapNotFound
		}
		s.logger.Error("查询交换失败", zap.Error(err))
		return nil, err
	}
	if !sw.IsParty(callerID) {
		return nil, ErrSwapNotFound
	}

	if now := s.now(); sw.ExpiredAt(now) {
		if _, err := s.repo.Swap.ExpireOverdue(ctx, repository.OverdueFilter{SwapIDs: []string{sw.SwapID}}, now); err != nil {
			s.logger.Error("惰性过期失败", zap.String("swap_id", swapID), zap.Error(err))
			return nil, err
		}
		sw.Status = model.SwapExpired
	}

	out := toSwapResponse(s.loadView(ctx, sw))
	return &out, nil
}

func (s *swapService) List(ctx context.Context, callerID string, req *dto.SwapListRequest) ([]dto.SwapResponse, int64, error) {
	filter := repository.SwapListFilter{UserID: callerID, Box: repository.SwapBox(req.Box)}
	if filter.Box == "" {
		filter.Box = repository.SwapBoxAll
	}
	if req.Status != "" {
		status, err := model.ParseSwapStatus(req.Status)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrSwapValidation, err)
		}
		filter.Status = &status
	}

	if err := s.expireForUser(ctx, callerID); err != nil {
		return nil, 0, err
	}

	views, total, err := s.repo.Swap.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询交换列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.SwapResponse, 0, len(views))
	for i := range views {
		result = append(result, toSwapResponse(&views[i]))
	}
	return result, total, nil
}

func (s *swapService) Stats(ctx context.Context, callerID string) (*dto.SwapStatsResponse, error) {
	if err := s.expireForUser(ctx, callerID); err != nil {
		return nil, err
	}

	sent, err := s.repo.Swap.CountByStatus(ctx, callerID, repository.SwapBoxSent)
	if err != nil {
		s.logger.Error("统计发出的交换失败", zap.Error(err))
		return nil, err
	}
	received, err := s.repo.Swap.CountByStatus(ctx, callerID, repository.SwapBoxReceived)
	if err != nil {
		s.logger.Error("统计收到的交换失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.SwapStatsResponse{
		Sent:           statusCounts(sent),
		Received:       statusCounts(received),
		RecentActivity: []dto.SwapActivityItem{},
	}
	// requester ≠ owner，发出与收到不会重复计数
	for _, counts := range []map[model.SwapStatus]int64{sent, received} {
		for status, n := range counts {
			resp.TotalSwaps += n
			if status == model.SwapCompleted {
				resp.TotalCompleted += n
			}
		}
	}
	if resp.TotalSwaps > 0 {
		rate := float64(resp.TotalCompleted) / float64(resp.TotalSwaps) * 100
		resp.SuccessRate = math.Round(rate*100) / 100
	}

	recent, err := s.repo.Swap.ListRecent(ctx, callerID, recentActivityLimit)
	if err != nil {
		s.logger.Error("查询最近交换失败", zap.Error(err))
		return nil, err
	}
	for _, v := range recent {
		item := dto.SwapActivityItem{
			SwapID:       v.SwapID,
			Direction:    string(repository.SwapBoxSent),
			Status:       v.Status.String(),
			ItemTitle:    v.ItemTitle,
			Counterparty: v.OwnerUsername,
			CreatedAt:    dto.FormatTime(v.CreatedAt),
		}
		if v.RequesterID != callerID {
			item.Direction = string(repository.SwapBoxReceived)
			item.Counterparty = v.RequesterUsername
		}
		resp.RecentActivity = append(resp.RecentActivity, item)
	}
	return resp, nil
}

func (s *swapService) expireForUser(ctx context.Context, userID string) error {
	n, err := s.repo.Swap.ExpireOverdue(ctx, repository.OverdueFilter{UserID: userID}, s.now())
	if err != nil {
		s.logger.Error("惰性过期失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	if n > 0 {
		s.logger.Debug("惰性过期交换", zap.String("user_id", userID), zap.Int64("count", n))
	}
	return nil
}

// loadView 提交后读取投影；读取失败不影响已提交的结果，退化为仅含交换本身的视图
func (s *swapService) loadView(ctx context.Context, sw *model.Swap) *repository.SwapView {
	view, err := s.repo.Swap.GetView(ctx, sw.SwapID)
	if err != nil {
		s.logger.Warn("读取交换投影失败", zap.String("swap_id", sw.SwapID), zap.Error(err))
		return &repository.SwapView{Swap: *sw}
	}
	// 以刚写入的状态为准
	view.Swap = *sw
	return view
}

// ── 转换辅助 ──

func respondMessage(req *dto.RespondSwapRequest) string {
	if req == nil {
		return ""
	}
	return req.Message
}

func responsePayload(v *repository.SwapView, accepted bool) map[string]interface{} {
	return map[string]interface{}{
		"swap_id":        v.SwapID,
		"item_id":        v.ItemID,
		"item_title":     v.ItemTitle,
		"owner_response": v.OwnerResponse,
		"accepted":       accepted,
	}
}

func statusCounts(counts map[model.SwapStatus]int64) map[string]int64 {
	out := make(map[string]int64, len(counts))
	for status, n := range counts {
		out[status.String()] = n
	}
	return out
}

func toSwapResponse(v *repository.SwapView) dto.SwapResponse {
	resp := dto.SwapResponse{
		ID:       v.SwapID,
		SwapType: v.SwapType.String(),
		Status:   v.Status.String(),
		Item: dto.ItemBrief{
			ID:          v.ItemID,
			Title:       v.ItemTitle,
			PointsValue: v.ItemPointsValue,
		},
		PointsOffered:    v.PointsOffered,
		Requester:        dto.UserBrief{ID: v.RequesterID, Username: v.RequesterUsername},
		Owner:            dto.UserBrief{ID: v.ItemOwnerID, Username: v.OwnerUsername},
		RequesterMessage: v.RequesterMessage,
		OwnerResponse:    v.OwnerResponse,
		ExpiresAt:        dto.FormatTime(v.ExpiresAt),
		RespondedAt:      dto.FormatTimePtr(v.RespondedAt),
		CompletedAt:      dto.FormatTimePtr(v.CompletedAt),
		CreatedAt:        dto.FormatTime(v.CreatedAt),
		UpdatedAt:        dto.FormatTime(v.UpdatedAt),
	}
	if v.OfferedItemID != nil {
		resp.OfferedItem = &dto.ItemBrief{ID: *v.OfferedItemID, Title: v.OfferedItemTitle}
	}
	return resp
}
