package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Huzaifa785/rewear-backend/config"
	"github.com/Huzaifa785/rewear-backend/internal/repository"
)

// ExpirySweeper 后台过期扫描
//
// 读路径已做惰性过期，扫描器只负责让长期无人访问的请求也按时落为 expired。
// 每批先取逾期 ID 再做条件更新，并发的 accept/cancel 先提交时该行不会被覆盖。
type ExpirySweeper struct {
	repo      *repository.Repository
	interval  time.Duration
	batchSize int
	now       Clock
	logger    *zap.Logger
}

// NewExpirySweeper 创建过期扫描器
func NewExpirySweeper(repo *repository.Repository, cfg *config.SwapConfig, now Clock, logger *zap.Logger) *ExpirySweeper {
	if now == nil {
		now = SystemClock
	}
	interval, batch := cfg.SweepInterval, cfg.SweepBatchSize
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 100
	}
	return &ExpirySweeper{
		repo:      repo,
		interval:  interval,
		batchSize: batch,
		now:       now,
		logger:    logger,
	}
}

// SweepOnce 分批过期全部逾期请求，返回本轮过期条数
func (s *ExpirySweeper) SweepOnce(ctx context.Context) (total int64, err error) {
	ctx, end := startSpan(ctx, "ExpirySweeper.SweepOnce")
	defer func() { end(err) }()

	now := s.now()
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		ids, err := s.repo.Swap.ListOverdueIDs(ctx, now, s.batchSize)
		if err != nil {
			s.logger.Error("查询逾期交换失败", zap.Error(err))
			return total, err
		}
		if len(ids) == 0 {
			break
		}

		n, err := s.repo.Swap.ExpireOverdue(ctx, repository.OverdueFilter{SwapIDs: ids}, now)
		if err != nil {
			s.logger.Error("批量过期交换失败", zap.Int("batch", len(ids)), zap.Error(err))
			return total, err
		}
		total += n

		if len(ids) < s.batchSize {
			break
		}
	}

	if total > 0 {
		s.logger.Info("过期扫描完成", zap.Int64("expired", total))
	}
	return total, nil
}

// Run 按固定间隔扫描，ctx 取消后返回
func (s *ExpirySweeper) Run(ctx context.Context) {
	s.logger.Info("交换过期扫描已启动",
		zap.Duration("interval", s.interval),
		zap.Int("batch_size", s.batchSize),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("交换过期扫描已停止")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("过期扫描失败，等待下一轮", zap.Error(err))
			}
		}
	}
}
