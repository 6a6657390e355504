package model

import (
	baseModel "sofra_market/pkg/model"
)

// Review 订单评价
// 每个已完成订单最多一条，评价人固定是下单客户
type Review struct {
	baseModel.BaseModel
	OrderID    string `gorm:"type:uuid;uniqueIndex;not null" json:"orderId"`
	ClientID   string `gorm:"type:uuid;index;not null" json:"clientId"`
	ProviderID string `gorm:"type:uuid;index;not null" json:"providerId"`
	DishID     string `gorm:"type:uuid;index" json:"dishId"`
	Rating     int    `gorm:"not null" json:"rating"` // 1..5
	Comment    string `json:"comment"`
}

func (Review) TableName() string {
	return "reviews"
}

// ProviderStats 服务商评价汇总
type ProviderStats struct {
	ProviderID    string  `json:"providerId"`
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int64   `json:"reviewCount"`
}
