package service

import (
	"go.uber.org/zap"

	"github.com/Huzaifa785/rewear-backend/config"
	"github.com/Huzaifa785/rewear-backend/internal/notify"
	"github.com/Huzaifa785/rewear-backend/internal/repository"
	"github.com/Huzaifa785/rewear-backend/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Item         ItemService
	Swap         SwapService
	Ledger       LedgerService
	Notification NotificationService
	Export       ExportService
	Sweeper      *ExpirySweeper
}

// NewService 创建 Service 聚合；blacklist、notifier 可为 nil
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	notifier notify.Notifier,
	logger *zap.Logger,
) *Service {
	ledger := NewLedger(logger)
	now := Clock(SystemClock)

	return &Service{
		Auth:         NewAuthService(cfg, repo, ledger, jwtMgr, blacklist, logger),
		Item:         NewItemService(cfg.Points, repo, ledger, notifier, logger),
		Swap:         NewSwapService(repo, ledger, notifier, now, logger),
		Ledger:       NewLedgerService(repo, ledger, notifier, logger),
		Notification: NewNotificationService(repo, logger),
		Export:       NewExportService(repo, cfg.Server.BaseURL, now, logger),
		Sweeper:      NewExpirySweeper(repo, &cfg.Swap, now, logger),
	}
}
