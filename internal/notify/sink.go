package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Huzaifa785/rewear-backend/internal/model"
	"github.com/Huzaifa785/rewear-backend/internal/repository"
)

// ── 站内收件箱 ──

// InboxSink 为每个接收人写入一条 notifications 记录
type InboxSink struct {
	repo repository.NotificationRepository
}

// NewInboxSink 创建站内收件箱 Sink
func NewInboxSink(repo repository.NotificationRepository) *InboxSink {
	return &InboxSink{repo: repo}
}

func (s *InboxSink) Name() string { return "inbox" }

func (s *InboxSink) Deliver(ctx context.Context, ev Event) error {
	var payload string
	if len(ev.Payload) > 0 {
		raw, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("序列化通知负载失败: %w", err)
		}
		payload = string(raw)
	}

	var related *string
	if ev.SwapID != "" {
		swapID := ev.SwapID
		related = &swapID
	}

	var errs []error
	for _, userID := range ev.Recipients {
		n := &model.Notification{
			UserID:        userID,
			Kind:          string(ev.Kind),
			Title:         ev.Title,
			Content:       ev.Message,
			Payload:       payload,
			RelatedSwapID: related,
		}
		if err := s.repo.Create(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("用户 %s: %w", userID, err))
		}
	}
	return errors.Join(errs...)
}

// ── Redis Pub/Sub ──

// Publisher Redis 发布能力（*redis.Client 实现）
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
}

// RedisSink 向 <prefix><user_id> 频道发布 JSON 事件，由 WebSocket 网关订阅推送
type RedisSink struct {
	pub    Publisher
	prefix string
}

// NewRedisSink 创建 Redis 发布 Sink
func NewRedisSink(pub Publisher, channelPrefix string) *RedisSink {
	return &RedisSink{pub: pub, prefix: channelPrefix}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	var errs []error
	for _, userID := range ev.Recipients {
		if _, err := s.pub.Publish(ctx, s.prefix+userID, raw); err != nil {
			errs = append(errs, fmt.Errorf("频道 %s: %w", s.prefix+userID, err))
		}
	}
	return errors.Join(errs...)
}

// ── 日志 ──

// LogSink 把事件写入结构化日志
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink 创建日志 Sink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, ev Event) error {
	s.logger.Info("通知事件",
		zap.String("kind", string(ev.Kind)),
		zap.Strings("recipients", ev.Recipients),
		zap.String("swap_id", ev.SwapID),
		zap.String("title", ev.Title),
		zap.Time("occurred_at", ev.OccurredAt),
	)
	return nil
}
