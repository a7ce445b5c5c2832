package model

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// VersionedModel 支持乐观锁的模型
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// newID 生成主键；主键由应用侧生成，与数据库方言无关
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// All 返回需要建表的全部模型（sqlite AutoMigrate 使用）
func All() []interface{} {
	return []interface{}{
		&User{},
		&Item{},
		&Swap{},
		&PointTransaction{},
		&Notification{},
	}
}
