package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Huzaifa785/rewear-backend/internal/dto"
	"github.com/Huzaifa785/rewear-backend/internal/model"
	"github.com/Huzaifa785/rewear-backend/internal/repository"
)

// NotificationService 站内信收件箱
type NotificationService interface {
	List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (*dto.MarkAllReadResponse, error)
	UnreadCount(ctx context.Context, userID string) (*dto.UnreadCountResponse, error)
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

func (s *notificationService) List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	rows, total, err := s.repo.Notification.ListByUser(ctx, userID, req.UnreadOnly, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询通知列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.NotificationResponse, 0, len(rows))
	for i := range rows {
		result = append(result, toNotificationResponse(&rows[i]))
	}
	return result, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if err := s.repo.Notification.MarkRead(ctx, userID, notificationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		s.logger.Error("标记通知已读失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (*dto.MarkAllReadResponse, error) {
	n, err := s.repo.Notification.MarkAllRead(ctx, userID)
	if err != nil {
		s.logger.Error("全部标记已读失败", zap.Error(err))
		return nil, err
	}
	return &dto.MarkAllReadResponse{Updated: n}, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (*dto.UnreadCountResponse, error) {
	n, err := s.repo.Notification.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("统计未读通知失败", zap.Error(err))
		return nil, err
	}
	return &dto.UnreadCountResponse{Unread: n}, nil
}

func toNotificationResponse(n *model.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:            n.NotificationID,
		Kind:          n.Kind,
		Title:         n.Title,
		Content:       n.Content,
		Payload:       n.Payload,
		IsRead:        n.IsRead,
		RelatedSwapID: n.RelatedSwapID,
		CreatedAt:     dto.FormatTime(n.CreatedAt),
	}
}
