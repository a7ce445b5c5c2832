package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Huzaifa785/rewear-backend/internal/dto"
	"github.com/Huzaifa785/rewear-backend/internal/service"
	"github.com/Huzaifa785/rewear-backend/pkg/response"
)

// SwapHandler 交换模块 HTTP 处理器
type SwapHandler struct {
	swapSvc service.SwapService
}

// NewSwapHandler 创建 SwapHandler
func NewSwapHandler(swapSvc service.SwapService) *SwapHandler {
	return &SwapHandler{swapSvc: swapSvc}
}

// CreateSwap 发起交换请求
// POST /api/v1/swaps
func (h *SwapHandler) CreateSwap(c *gin.Context) {
	var req dto.CreateSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	swap, err := h.swapSvc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.Created(c, swap)
}

// ListSwaps 我的交换列表
// GET /api/v1/swaps?box=sent&status=pending
func (h *SwapHandler) ListSwaps(c *gin.Context) {
	var req dto.SwapListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, total, err := h.swapSvc.List(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetStats 交换统计
// GET /api/v1/swaps/stats
func (h *SwapHandler) GetStats(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	stats, err := h.swapSvc.Stats(c.Request.Context(), userID)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.OK(c, stats)
}

// GetSwap 交换详情（仅交换双方可见）
// GET /api/v1/swaps/:id
func (h *SwapHandler) GetSwap(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "交换ID不能为空")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	swap, err := h.swapSvc.Get(c.Request.Context(), id, userID)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.OK(c, swap)
}

// AcceptSwap 物主接受交换
// PUT /api/v1/swaps/:id/accept
func (h *SwapHandler) AcceptSwap(c *gin.Context) {
	h.respond(c, h.swapSvc.Accept)
}

// RejectSwap 物主拒绝交换
// PUT /api/v1/swaps/:id/reject
func (h *SwapHandler) RejectSwap(c *gin.Context) {
	h.respond(c, h.swapSvc.Reject)
}

// CancelSwap 发起方撤回交换
// PUT /api/v1/swaps/:id/cancel
func (h *SwapHandler) CancelSwap(c *gin.Context) {
	h.transition(c, h.swapSvc.Cancel)
}

// CompleteSwap 完成交换并结算积分
// PUT /api/v1/swaps/:id/complete
func (h *SwapHandler) CompleteSwap(c *gin.Context) {
	h.transition(c, h.swapSvc.Complete)
}

// respond 接受/拒绝共用，请求体可为空
func (h *SwapHandler) respond(c *gin.Context, fn func(context.Context, string, string, *dto.RespondSwapRequest) (*dto.SwapResponse, error)) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "交换ID不能为空")
		return
	}

	var req dto.RespondSwapRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	swap, err := fn(c.Request.Context(), id, userID, &req)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.OK(c, swap)
}

// transition 撤回/完成共用
func (h *SwapHandler) transition(c *gin.Context, fn func(context.Context, string, string) (*dto.SwapResponse, error)) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "交换ID不能为空")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	swap, err := fn(c.Request.Context(), id, userID)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.OK(c, swap)
}

// handleSwapError 交换模块错误映射
//
//	400 参数/报价不合法、余额不足（独立错误码）
//	404 交换或物品不存在，或调用方不是对应参与方
//	409 状态冲突、物品不可用、重复请求、已过期
func (h *SwapHandler) handleSwapError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSwapValidation):
		response.BadRequest(c, 13001, err.Error())
	case errors.Is(err, service.ErrOfferedItemRequired):
		response.BadRequest(c, 13002, "以物换物必须提供 offered_item_id")
	case errors.Is(err, service.ErrPointsOfferedRequired):
		response.BadRequest(c, 13003, "积分兑换必须提供 points_offered")
	case errors.Is(err, service.ErrPointsBelowMinimum):
		response.BadRequest(c, 13004, err.Error())
	case errors.Is(err, service.ErrSelfSwap):
		response.BadRequest(c, 13005, "不能对自己的物品发起交换")
	case errors.Is(err, service.ErrInsufficientPoints):
		response.BadRequest(c, 13010, "积分余额不足")
	case errors.Is(err, service.ErrSwapNotFound):
		response.NotFound(c, 13101, "交换请求不存在或已处理")
	case errors.Is(err, service.ErrItemNotFound):
		response.NotFound(c, 13102, "物品不存在")
	case errors.Is(err, service.ErrOfferedItemNotFound):
		response.NotFound(c, 13103, "报价物品不存在或不可用")
	case errors.Is(err, service.ErrSwapExpired):
		response.Conflict(c, 13201, "交换请求已过期")
	case errors.Is(err, service.ErrSwapStateConflict):
		response.Conflict(c, 13202, "交换当前状态不允许此操作")
	case errors.Is(err, service.ErrItemUnavailable):
		response.Conflict(c, 13203, "物品当前不可交换")
	case errors.Is(err, service.ErrDuplicatePendingSwap):
		response.Conflict(c, 13204, "你已对该物品发起过待处理的交换请求")
	default:
		response.InternalError(c)
	}
}
