package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Huzaifa785/rewear-backend/internal/dto"
	"github.com/Huzaifa785/rewear-backend/internal/service"
	"github.com/Huzaifa785/rewear-backend/pkg/response"
)

// PointsHandler 积分模块 HTTP 处理器
type PointsHandler struct {
	ledgerSvc service.LedgerService
}

// NewPointsHandler 创建 PointsHandler
func NewPointsHandler(ledgerSvc service.LedgerService) *PointsHandler {
	return &PointsHandler{ledgerSvc: ledgerSvc}
}

// GetMyWallet 我的积分
// GET /api/v1/points/me
func (h *PointsHandler) GetMyWallet(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	wallet, err := h.ledgerSvc.GetWallet(c.Request.Context(), userID)
	if err != nil {
		h.handlePointsError(c, err)
		return
	}

	response.OK(c, wallet)
}

// ListTransactions 我的积分流水
// GET /api/v1/points/transactions?type=points_redemption
func (h *PointsHandler) ListTransactions(c *gin.Context) {
	var req dto.TransactionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, total, err := h.ledgerSvc.ListTransactions(c.Request.Context(), userID, &req)
	if err != nil {
		h.handlePointsError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Reconcile 余额对账（管理员）
// GET /api/v1/points/users/:id/reconcile
func (h *PointsHandler) Reconcile(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "用户ID不能为空")
		return
	}

	result, err := h.ledgerSvc.Reconcile(c.Request.Context(), id)
	if err != nil {
		h.handlePointsError(c, err)
		return
	}

	response.OK(c, result)
}

// Adjust 管理员调整积分
// POST /api/v1/points/users/:id/adjust
func (h *PointsHandler) Adjust(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "用户ID不能为空")
		return
	}

	var req dto.AdjustPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	tx, err := h.ledgerSvc.Adjust(c.Request.Context(), adminID, id, &req)
	if err != nil {
		h.handlePointsError(c, err)
		return
	}

	response.Created(c, tx)
}

func (h *PointsHandler) handlePointsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPostingAmount):
		response.BadRequest(c, 14001, "调整金额必须非零")
	case errors.Is(err, service.ErrInsufficientPoints):
		response.BadRequest(c, 14010, "积分余额不足")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 14101, "用户不存在")
	default:
		response.InternalError(c)
	}
}
