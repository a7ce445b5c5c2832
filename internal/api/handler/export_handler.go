package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Huzaifa785/rewear-backend/internal/service"
	"github.com/Huzaifa785/rewear-backend/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportTransactions 导出我的积分流水
// GET /api/v1/points/transactions/export
func (h *ExportHandler) ExportTransactions(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportPointTransactions(c.Request.Context(), userID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	sendFile(c, buf, filename, contentTypeXLSX)
}

// ExportSwapCalendar 待处理交换过期日历，可直接被日历客户端订阅
// GET /api/v1/swaps/calendar.ics
func (h *ExportHandler) ExportSwapCalendar(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportSwapCalendar(c.Request.Context(), userID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	sendFile(c, buf, filename, contentTypeICS)
}

// sendFile 设置下载响应头并写入文件内容
func sendFile(c *gin.Context, buf *bytes.Buffer, filename, contentType string) {
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 16101, "用户不存在")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
