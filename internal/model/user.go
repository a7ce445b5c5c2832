package model

import "gorm.io/gorm"

// User 用户表 — 对应 users；积分钱包字段仅由账本更新
type User struct {
	UserID            string `gorm:"type:uuid;primaryKey"                     json:"user_id"`
	Username          string `gorm:"type:varchar(50);not null;uniqueIndex"    json:"username"`
	Email             string `gorm:"type:varchar(255);not null;uniqueIndex"   json:"email"`
	PasswordHash      string `gorm:"type:varchar(255);not null"               json:"-"`
	Role              string `gorm:"type:varchar(20);not null;default:'member'" json:"role"` // member | admin
	IsActive          bool   `gorm:"not null;default:true"                    json:"is_active"`
	PointsBalance     int    `gorm:"not null;default:0"                       json:"points_balance"`
	TotalPointsEarned int    `gorm:"not null;default:0"                       json:"total_points_earned"`
	TotalPointsSpent  int    `gorm:"not null;default:0"                       json:"total_points_spent"`
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// BeforeCreate 生成主键
func (u *User) BeforeCreate(*gorm.DB) error {
	newID(&u.UserID)
	return nil
}
