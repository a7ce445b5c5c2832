package model

import (
	"time"

	"gorm.io/gorm"
)

// SwapExpiryWindow 交换请求有效期（创建时固定写入 expires_at）
const SwapExpiryWindow = 7 * 24 * time.Hour

// Swap 交换表 — 对应 swaps
// 同一 (物品, 申请人) 仅允许一条 pending 记录，由部分唯一索引保证
type Swap struct {
	SwapID           string     `gorm:"type:uuid;primaryKey"                                                  json:"swap_id"`
	RequesterID      string     `gorm:"type:uuid;not null;index;uniqueIndex:uq_swaps_pending_item_requester,where:status = 1" json:"requester_id"`
	ItemOwnerID      string     `gorm:"type:uuid;not null;index"                                              json:"item_owner_id"`
	ItemID           string     `gorm:"type:uuid;not null;index;uniqueIndex:uq_swaps_pending_item_requester,where:status = 1" json:"item_id"`
	SwapType         SwapType   `gorm:"type:smallint;not null"                                                json:"swap_type"`
	Status           SwapStatus `gorm:"type:smallint;not null;default:1;index"                                json:"status"`
	OfferedItemID    *string    `gorm:"type:uuid;index"                                                       json:"offered_item_id,omitempty"`
	PointsOffered    *int       `                                                                             json:"points_offered,omitempty"`
	RequesterMessage string     `gorm:"type:text"                                                             json:"requester_message,omitempty"`
	OwnerResponse    string     `gorm:"type:text"                                                             json:"owner_response,omitempty"`
	ExpiresAt        time.Time  `gorm:"not null;index"                                                        json:"expires_at"`
	RespondedAt      *time.Time `                                                                             json:"responded_at,omitempty"`
	CompletedAt      *time.Time `                                                                             json:"completed_at,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (Swap) TableName() string { return "swaps" }

// BeforeCreate 生成主键
func (s *Swap) BeforeCreate(*gorm.DB) error {
	newID(&s.SwapID)
	return nil
}

// IsParty 是否为交换参与方
func (s *Swap) IsParty(userID string) bool {
	return s.RequesterID == userID || s.ItemOwnerID == userID
}

// ExpiredAt 待处理请求在 now 时刻是否已过期
func (s *Swap) ExpiredAt(now time.Time) bool {
	return s.Status == SwapPending && now.After(s.ExpiresAt)
}

// OfferedPoints 报价积分（非积分兑换时为 0）
func (s *Swap) OfferedPoints() int {
	if s.PointsOffered == nil {
		return 0
	}
	return *s.PointsOffered
}
