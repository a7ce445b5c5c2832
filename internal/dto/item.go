package dto

// ── 物品模块 DTO ──

// CreateItemRequest 发布物品请求
type CreateItemRequest struct {
	Title       string `json:"title"        binding:"required,min=2,max=200"`
	Description string `json:"description"  binding:"omitempty,max=5000"`
	PointsValue int    `json:"points_value" binding:"required,min=1,max=100000"`
}

// UpdateItemRequest 修改物品请求（仅非空字段生效）
type UpdateItemRequest struct {
	Title       *string `json:"title"        binding:"omitempty,min=2,max=200"`
	Description *string `json:"description"  binding:"omitempty,max=5000"`
	PointsValue *int    `json:"points_value" binding:"omitempty,min=1,max=100000"`
}

// ItemResponse 物品响应
type ItemResponse struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	PointsValue int    `json:"points_value"`
	Status      string `json:"status"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// CreateItemResponse 发布物品响应，附带上架奖励积分
type CreateItemResponse struct {
	Item          ItemResponse `json:"item"`
	PointsAwarded int          `json:"points_awarded"`
}
