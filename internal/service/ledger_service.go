package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Huzaifa785/rewear-backend/internal/dto"
	"github.com/Huzaifa785/rewear-backend/internal/model"
	"github.com/Huzaifa785/rewear-backend/internal/notify"
	"github.com/Huzaifa785/rewear-backend/internal/repository"
)

// LedgerService 积分钱包读模型与管理员调账
type LedgerService interface {
	GetWallet(ctx context.Context, userID string) (*dto.WalletResponse, error)
	ListTransactions(ctx context.Context, userID string, req *dto.TransactionListRequest) ([]dto.TransactionResponse, int64, error)
	// Reconcile 对账：余额缓存 vs 流水合计
	Reconcile(ctx context.Context, userID string) (*dto.ReconcileResponse, error)
	// Adjust 管理员调账，amount 为正入账、为负扣减
	Adjust(ctx context.Context, adminID, userID string, req *dto.AdjustPointsRequest) (*dto.TransactionResponse, error)
}

type ledgerService struct {
	repo     *repository.Repository
	ledger   *Ledger
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewLedgerService 创建 LedgerService 实例
func NewLedgerService(repo *repository.Repository, ledger *Ledger, notifier notify.Notifier, logger *zap.Logger) LedgerService {
	if notifier == nil {
		notifier = notify.Nop
	}
	return &ledgerService{repo: repo, ledger: ledger, notifier: notifier, logger: logger}
}

func (s *ledgerService) GetWallet(ctx context.Context, userID string) (*dto.WalletResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.WalletResponse{
		UserID:            user.UserID,
		PointsBalance:     user.PointsBalance,
		TotalPointsEarned: user.TotalPointsEarned,
		TotalPointsSpent:  user.TotalPointsSpent,
	}, nil
}

func (s *ledgerService) ListTransactions(ctx context.Context, userID string, req *dto.TransactionListRequest) ([]dto.TransactionResponse, int64, error) {
	rows, total, err := s.repo.PointTransaction.ListByUser(ctx, userID, model.TransactionType(req.Type), req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询积分流水失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.TransactionResponse, 0, len(rows))
	for i := range rows {
		result = append(result, toTransactionResponse(&rows[i]))
	}
	return result, total, nil
}

func (s *ledgerService) Reconcile(ctx context.Context, userID string) (*dto.ReconcileResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum, err := s.repo.PointTransaction.SumByUser(ctx, userID)
	if err != nil {
		s.logger.Error("汇总积分流水失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.ReconcileResponse{
		UserID:           user.UserID,
		CachedBalance:    user.PointsBalance,
		LedgerSum:        sum,
		TotalEarned:      user.TotalPointsEarned,
		TotalSpent:       user.TotalPointsSpent,
		EarnedMinusSpent: user.TotalPointsEarned - user.TotalPointsSpent,
	}
	resp.Consistent = int64(resp.CachedBalance) == sum && resp.EarnedMinusSpent == resp.CachedBalance
	if !resp.Consistent {
		s.logger.Warn("积分对账不一致",
			zap.String("user_id", userID),
			zap.Int("cached_balance", resp.CachedBalance),
			zap.Int64("ledger_sum", sum),
			zap.Int("earned_minus_spent", resp.EarnedMinusSpent),
		)
	}
	return resp, nil
}

func (s *ledgerService) Adjust(ctx context.Context, adminID, userID string, req *dto.AdjustPointsRequest) (resp *dto.TransactionResponse, err error) {
	ctx, end := startSpan(ctx, "LedgerService.Adjust",
		attribute.String("user_id", userID),
		attribute.Int("amount", req.Amount),
	)
	defer func() { end(err) }()

	if req.Amount == 0 {
		return nil, ErrInvalidPostingAmount
	}

	var row *model.PointTransaction
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		p := Posting{
			UserID:      userID,
			Amount:      req.Amount,
			Type:        model.TxAdjustment,
			Description: fmt.Sprintf("管理员调整：%s", req.Reason),
		}
		var err error
		if req.Amount > 0 {
			row, err = s.ledger.Credit(ctx, tx, p)
		} else {
			p.Amount = -req.Amount
			row, err = s.ledger.Debit(ctx, tx, p)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("管理员调整积分",
		zap.String("admin_id", adminID),
		zap.String("user_id", userID),
		zap.Int("amount", req.Amount),
		zap.Int("balance_after", row.BalanceAfter),
	)

	if row.Amount > 0 {
		s.notifier.Dispatch(notify.Event{
			Kind:       notify.KindPointsEarned,
			Recipients: []string{userID},
			Title:      "获得积分",
			Message:    fmt.Sprintf("管理员为你增加了 %d 积分：%s", row.Amount, req.Reason),
			Payload: map[string]interface{}{
				"points": row.Amount,
				"reason": string(model.TxAdjustment),
			},
		})
	}

	out := toTransactionResponse(row)
	return &out, nil
}

func (s *ledgerService) getUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}
	return user, nil
}

func toTransactionResponse(t *model.PointTransaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:           t.TransactionID,
		Amount:       t.Amount,
		BalanceAfter: t.BalanceAfter,
		Type:         string(t.TransactionType),
		Description:  t.Description,
		SwapID:       t.SwapID,
		ItemID:       t.ItemID,
		CreatedAt:    dto.FormatTime(t.CreatedAt),
	}
}
