package dto

// ── 交换模块 DTO ──

// CreateSwapRequest 发起交换请求
type CreateSwapRequest struct {
	ItemID           string  `json:"item_id"           binding:"required,uuid"`
	SwapType         string  `json:"swap_type"         binding:"required,oneof=direct_swap points_redemption"`
	OfferedItemID    *string `json:"offered_item_id"   binding:"omitempty,uuid"`
	PointsOffered    *int    `json:"points_offered"    binding:"omitempty,min=1"`
	RequesterMessage string  `json:"requester_message" binding:"omitempty,max=1000"`
}

// RespondSwapRequest 物主接受/拒绝时的附言
type RespondSwapRequest struct {
	Message string `json:"message" binding:"omitempty,max=1000"`
}

// SwapListRequest 我的交换列表查询参数
type SwapListRequest struct {
	PaginationRequest
	Box    string `form:"box"    binding:"omitempty,oneof=all sent received"`
	Status string `form:"status" binding:"omitempty,oneof=pending accepted rejected completed cancelled expired"`
}

// ── 响应 ──

// SwapResponse 交换详情
type SwapResponse struct {
	ID               string        `json:"id"`
	SwapType         string        `json:"swap_type"`
	Status           string        `json:"status"`
	Item             ItemBrief     `json:"item"`
	OfferedItem      *ItemBrief    `json:"offered_item,omitempty"`
	PointsOffered    *int          `json:"points_offered,omitempty"`
	Requester        UserBrief     `json:"requester"`
	Owner            UserBrief     `json:"owner"`
	RequesterMessage string        `json:"requester_message,omitempty"`
	OwnerResponse    string        `json:"owner_response,omitempty"`
	ExpiresAt        string        `json:"expires_at"`
	RespondedAt      *string       `json:"responded_at,omitempty"`
	CompletedAt      *string       `json:"completed_at,omitempty"`
	CreatedAt        string        `json:"created_at"`
	UpdatedAt        string        `json:"updated_at"`
	Settlement       []PostingItem `json:"settlement,omitempty"` // 仅 complete 返回
}

// ItemBrief 物品简要信息
type ItemBrief struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	PointsValue int    `json:"points_value,omitempty"`
}

// UserBrief 用户简要信息
type UserBrief struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// PostingItem 结算产生的积分记账
type PostingItem struct {
	UserID string `json:"user_id"`
	Amount int    `json:"amount"`
	Type   string `json:"type"`
}

// SwapStatsResponse 交换统计
type SwapStatsResponse struct {
	Sent           map[string]int64   `json:"sent"`
	Received       map[string]int64   `json:"received"`
	TotalSwaps     int64              `json:"total_swaps"`
	TotalCompleted int64              `json:"total_completed"`
	SuccessRate    float64            `json:"success_rate"` // 百分比，保留两位小数
	RecentActivity []SwapActivityItem `json:"recent_activity"`
}

// SwapActivityItem 最近交换动态
type SwapActivityItem struct {
	SwapID       string `json:"swap_id"`
	Direction    string `json:"direction"` // sent | received
	Status       string `json:"status"`
	ItemTitle    string `json:"item_title"`
	Counterparty string `json:"counterparty"`
	CreatedAt    string `json:"created_at"`
}
