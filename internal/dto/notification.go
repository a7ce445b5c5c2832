package dto

// NotificationListRequest 通知列表查询参数
type NotificationListRequest struct {
	PaginationRequest
	UnreadOnly bool `form:"unread_only"`
}

// NotificationResponse 站内通知
type NotificationResponse struct {
	ID            string  `json:"id"`
	Kind          string  `json:"kind"`
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	Payload       string  `json:"payload,omitempty"`
	IsRead        bool    `json:"is_read"`
	RelatedSwapID *string `json:"related_swap_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// UnreadCountResponse 未读数
type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}

// MarkAllReadResponse 全部已读结果
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}
