package handler

import "github.com/Huzaifa785/rewear-backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Item         *ItemHandler
	Swap         *SwapHandler
	Points       *PointsHandler
	Notification *NotificationHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		Item:         NewItemHandler(svc.Item),
		Swap:         NewSwapHandler(svc.Swap),
		Points:       NewPointsHandler(svc.Ledger),
		Notification: NewNotificationHandler(svc.Notification),
		Export:       NewExportHandler(svc.Export),
	}
}
