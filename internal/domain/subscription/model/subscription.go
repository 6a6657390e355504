package model

import (
	"time"

	baseModel "sofra_market/pkg/model"
)

// SubscriptionStatus 订阅状态（封闭枚举）
// 除试用兜底外，状态一律从支付方镜像回写，不在本地推算
type SubscriptionStatus string

const (
	SubscriptionStatusTrial     SubscriptionStatus = "trial"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// 服务商类别（按类别定价）
const (
	ProviderTypeHomeCook    = "home_cook"
	ProviderTypeHouseWorker = "house_worker"
	ProviderTypeCraftsman   = "craftsman"
)

// Subscription 服务商订阅模型
// 每个服务商一条记录，StripeCustomerID/StripeSubscriptionID 在状态检查时镜像回写
type Subscription struct {
	baseModel.BaseModel
	UserID               string             `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	ProviderType         string             `gorm:"type:varchar(20);not null" json:"providerType"`
	Status               SubscriptionStatus `gorm:"type:varchar(20);default:'trial'" json:"status"`
	EndsAt               *time.Time         `json:"endsAt,omitempty"`
	TrialEndsAt          *time.Time         `json:"trialEndsAt,omitempty"`
	StripeCustomerID     string             `json:"-"`
	StripeSubscriptionID string             `json:"-"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// TrialActive 试用期是否还有效
func (s *Subscription) TrialActive(now time.Time) bool {
	return s.Status == SubscriptionStatusTrial && s.TrialEndsAt != nil && s.TrialEndsAt.After(now)
}

// DayMillis 一天的毫秒数，试用剩余天数按毫秒向上取整
const DayMillis = 86_400_000

// DaysLeft 到 end 为止剩余的天数，不足一天按一天算
func DaysLeft(now, end time.Time) int {
	remaining := end.Sub(now).Milliseconds()
	if remaining <= 0 {
		return 0
	}
	days := remaining / DayMillis
	if remaining%DayMillis > 0 {
		days++
	}
	return int(days)
}
