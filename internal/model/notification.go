package model

import "gorm.io/gorm"

// Notification 站内通知表 — 对应 notifications，由通知收件箱投递器写入
type Notification struct {
	NotificationID string  `gorm:"type:uuid;primaryKey"         json:"notification_id"`
	UserID         string  `gorm:"type:uuid;not null;index"     json:"user_id"`
	Kind           string  `gorm:"type:varchar(30);not null"    json:"kind"` // swap_request | swap_response | swap_completed | points_earned
	Title          string  `gorm:"type:varchar(200);not null"   json:"title"`
	Content        string  `gorm:"type:text;not null"           json:"content"`
	Payload        string  `gorm:"type:text"                    json:"payload,omitempty"` // JSON
	IsRead         bool    `gorm:"not null;default:false"       json:"is_read"`
	RelatedSwapID  *string `gorm:"type:uuid"                    json:"related_swap_id,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// BeforeCreate 生成主键
func (n *Notification) BeforeCreate(*gorm.DB) error {
	newID(&n.NotificationID)
	return nil
}
