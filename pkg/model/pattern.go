// Package model 定义车队排班引擎的核心数据模型
package model

import (
	"github.com/google/uuid"
)

// SlotPattern 时段置信度模式（按 (签名, 司机) 聚合的派生数据）
// 每次重算整表删除重建，保证可复现，不做增量合并
type SlotPattern struct {
	Signature     string    `json:"signature" db:"signature"`
	DriverID      uuid.UUID `json:"driver_id" db:"driver_id"`
	DriverName    string    `json:"driver_name" db:"driver_name"`
	WeightedCount float64   `json:"weighted_count" db:"weighted_count"` // 衰减加权次数
	RawCount      int       `json:"raw_count" db:"raw_count"`           // 原始次数
	RecentCount   int       `json:"recent_count" db:"recent_count"`     // 近 8 周次数（用于并列裁决）
	LastDate      string    `json:"last_date" db:"last_date"`           // 最近一次分配的服务日期
	Confidence    float64   `json:"confidence" db:"confidence"`         // 归一化份额 0-1
}

// SlotDistribution 单个时段的归属分布
type SlotDistribution struct {
	Signature        string                `json:"signature"`
	Class            SlotClass             `json:"class"`
	OwnerID          *uuid.UUID            `json:"owner_id,omitempty"`
	OwnerName        string                `json:"owner_name,omitempty"`
	OwnerShare       float64               `json:"owner_share"`
	Shares           map[uuid.UUID]float64 `json:"-"`
	TotalAssignments int                   `json:"total_assignments"`
}

// Share 返回某司机在该时段的历史份额（无历史为 0）
func (d *SlotDistribution) Share(driverID uuid.UUID) float64 {
	if d == nil || d.Shares == nil {
		return 0
	}
	return d.Shares[driverID]
}
