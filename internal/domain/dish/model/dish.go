package model

import (
	"encoding/json"
	baseModel "sofra_market/pkg/model"
)

// Dish 菜品模型
type Dish struct {
	baseModel.BaseModel
	CookID      string          `gorm:"type:uuid;index;not null" json:"cookId"`
	Name        string          `gorm:"not null" json:"name"`             // 阿拉伯语名称
	NameEn      string          `json:"nameEn"`                           // 英文名称
	Description string          `json:"description"`
	Price       float64         `gorm:"not null" json:"price"`
	Category    string          `gorm:"index" json:"category"`
	ImageURLs   json.RawMessage `gorm:"type:jsonb" json:"imageUrls"`      // 图片 URL 数组
	Available   bool            `gorm:"default:true" json:"available"`    // 上架/下架
	Status      string          `gorm:"default:'pending'" json:"status"`  // pending, approved, rejected
}

const (
	DishStatusPending  = "pending"
	DishStatusApproved = "approved"
	DishStatusRejected = "rejected"
)

// Orderable 是否可下单：审核通过且在售
func (d *Dish) Orderable() bool {
	return d.Status == DishStatusApproved && d.Available
}
