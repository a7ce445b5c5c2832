package dto

// ── 积分模块 DTO ──

// TransactionListRequest 积分流水查询参数
type TransactionListRequest struct {
	PaginationRequest
	Type string `form:"type" binding:"omitempty,oneof=signup_bonus item_listed swap_completed points_redemption points_received adjustment"`
}

// AdjustPointsRequest 管理员调整积分请求；amount 为正入账、为负扣减
type AdjustPointsRequest struct {
	Amount int    `json:"amount" binding:"required,ne=0"`
	Reason string `json:"reason" binding:"required,min=2,max=200"`
}

// ── 响应 ──

// WalletResponse 积分钱包
type WalletResponse struct {
	UserID            string `json:"user_id"`
	PointsBalance     int    `json:"points_balance"`
	TotalPointsEarned int    `json:"total_points_earned"`
	TotalPointsSpent  int    `json:"total_points_spent"`
}

// TransactionResponse 积分流水
type TransactionResponse struct {
	ID           string  `json:"id"`
	Amount       int     `json:"amount"`
	BalanceAfter int     `json:"balance_after"`
	Type         string  `json:"type"`
	Description  string  `json:"description"`
	SwapID       *string `json:"swap_id,omitempty"`
	ItemID       *string `json:"item_id,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// ReconcileResponse 余额对账结果
type ReconcileResponse struct {
	UserID           string `json:"user_id"`
	CachedBalance    int    `json:"cached_balance"`
	LedgerSum        int64  `json:"ledger_sum"`
	Consistent       bool   `json:"consistent"`
	TotalEarned      int    `json:"total_earned"`
	TotalSpent       int    `json:"total_spent"`
	EarnedMinusSpent int    `json:"earned_minus_spent"`
}
