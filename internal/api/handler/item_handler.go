package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Huzaifa785/rewear-backend/internal/dto"
	"github.com/Huzaifa785/rewear-backend/internal/service"
	pkgerrors "github.com/Huzaifa785/rewear-backend/pkg/errors"
	"github.com/Huzaifa785/rewear-backend/pkg/response"
)

// ItemHandler 物品模块 HTTP 处理器
type ItemHandler struct {
	itemSvc service.ItemService
}

// NewItemHandler 创建 ItemHandler
func NewItemHandler(itemSvc service.ItemService) *ItemHandler {
	return &ItemHandler{itemSvc: itemSvc}
}

// CreateItem 发布物品
// POST /api/v1/items
func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req dto.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.itemSvc.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleItemError(c, err)
		return
	}

	response.Created(c, result)
}

// GetItem 物品详情
// GET /api/v1/items/:id
func (h *ItemHandler) GetItem(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "物品ID不能为空")
		return
	}

	item, err := h.itemSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleItemError(c, err)
		return
	}

	response.OK(c, item)
}

// UpdateItem 修改物品（仅物主，且物品未被交换锁定）
// PUT /api/v1/items/:id
func (h *ItemHandler) UpdateItem(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "物品ID不能为空")
		return
	}

	var req dto.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	item, err := h.itemSvc.Update(c.Request.Context(), userID, id, &req)
	if err != nil {
		h.handleItemError(c, err)
		return
	}

	response.OK(c, item)
}

// WithdrawItem 下架物品
// POST /api/v1/items/:id/withdraw
func (h *ItemHandler) WithdrawItem(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "物品ID不能为空")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	item, err := h.itemSvc.Withdraw(c.Request.Context(), userID, id)
	if err != nil {
		h.handleItemError(c, err)
		return
	}

	response.OK(c, item)
}

func (h *ItemHandler) handleItemError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrItemValidation):
		response.BadRequest(c, 12001, err.Error())
	case errors.Is(err, service.ErrItemNotFound):
		response.NotFound(c, 12101, "物品不存在")
	case errors.Is(err, service.ErrItemLocked):
		response.Conflict(c, 12201, "物品处于交换中或已交换，不可修改")
	case errors.Is(err, service.ErrItemUnavailable):
		response.Conflict(c, 12202, "物品已下架")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 12203, "物品已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
