package model

import (
	"time"

	"gorm.io/gorm"
)

// PointTransaction 积分流水表 — 对应 point_transactions（只追加，不可修改）
// Amount 正数为入账，负数为出账；BalanceAfter 为记账后的余额快照
type PointTransaction struct {
	TransactionID   string          `gorm:"type:uuid;primaryKey"                json:"transaction_id"`
	UserID          string          `gorm:"type:uuid;not null;index"            json:"user_id"`
	Amount          int             `gorm:"not null"                            json:"amount"`
	BalanceAfter    int             `gorm:"not null"                            json:"balance_after"`
	TransactionType TransactionType `gorm:"type:varchar(50);not null;index"     json:"transaction_type"`
	SwapID          *string         `gorm:"type:uuid;index"                     json:"swap_id,omitempty"`
	ItemID          *string         `gorm:"type:uuid"                           json:"item_id,omitempty"`
	Description     string          `gorm:"type:text;not null"                  json:"description"`
	CreatedAt       time.Time       `gorm:"not null;index"                      json:"created_at"`
}

// TableName 指定表名
func (PointTransaction) TableName() string { return "point_transactions" }

// BeforeCreate 生成主键
func (t *PointTransaction) BeforeCreate(*gorm.DB) error {
	newID(&t.TransactionID)
	return nil
}
