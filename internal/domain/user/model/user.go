package model

import (
	"time"
	baseModel "sofra_market/pkg/model"
)

// User 用户模型
// 客户和服务商共用一张表，通过 Role 区分
type User struct {
	baseModel.BaseModel
	Mobile        string     `gorm:"unique;not null" json:"mobile"`
	Email         string     `gorm:"index" json:"email"` // 支付客户按邮箱关联
	Nickname      string     `json:"nickname"`
	AvatarURL     string     `json:"avatarUrl"`
	Role          int        `gorm:"default:1" json:"role"`
	Status        int        `gorm:"default:1" json:"status"`
	BannedUntil   *time.Time `json:"bannedUntil,omitempty"`
	Token         string     `json:"-"`
	TokenExpireAt *time.Time `json:"-"`
}

// 角色
const (
	RoleClient      = 1 // 客户
	RoleHomeCook    = 2 // 家厨
	RoleHouseWorker = 3 // 家政
	RoleCraftsman   = 4 // 工匠
	RoleAdmin       = 9 // 管理员
)

// 状态
const (
	StatusNormal  = 1
	StatusBanned  = 2
	StatusDeleted = 3
)

// IsProvider 是否为服务商角色
func (u *User) IsProvider() bool {
	return u.Role == RoleHomeCook || u.Role == RoleHouseWorker || u.Role == RoleCraftsman
}

// ProviderType 角色对应的服务商类别（订阅按类别计费）
func (u *User) ProviderType() string {
	switch u.Role {
	case RoleHomeCook:
		return "home_cook"
	case RoleHouseWorker:
		return "house_worker"
	case RoleCraftsman:
		return "craftsman"
	default:
		return ""
	}
}
