package model

import "gorm.io/gorm"

// Item 物品表 — 对应 items
// 本服务只读取物品并翻转 status 字段，物品目录由上游模块维护
type Item struct {
	ItemID      string     `gorm:"type:uuid;primaryKey"              json:"item_id"`
	OwnerID     string     `gorm:"type:uuid;not null;index"          json:"owner_id"`
	Title       string     `gorm:"type:varchar(200);not null"        json:"title"`
	Description string     `gorm:"type:text"                         json:"description,omitempty"`
	PointsValue int        `gorm:"not null"                          json:"points_value"`
	Status      ItemStatus `gorm:"type:smallint;not null;default:1;index" json:"status"`
	IsActive    bool       `gorm:"not null;default:true"             json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (Item) TableName() string { return "items" }

// BeforeCreate 生成主键
func (i *Item) BeforeCreate(*gorm.DB) error {
	newID(&i.ItemID)
	return nil
}

// Swappable 物品当前可作为交换标的或报价物品
func (i *Item) Swappable() bool {
	return i.IsActive && i.Status == ItemAvailable
}
