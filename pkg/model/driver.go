// Package model 定义车队排班引擎的核心数据模型
package model

import (
	"github.com/google/uuid"
)

// Driver 司机
type Driver struct {
	BaseModel
	OrgID        uuid.UUID    `json:"org_id" db:"org_id"`
	Name         string       `json:"name" db:"name"`
	Code         string       `json:"code,omitempty" db:"code"`
	ContractType ContractType `json:"contract_type" db:"contract_type"`
	Status       string       `json:"status" db:"status"` // active/inactive/on_leave
	LoadEligible bool         `json:"load_eligible" db:"load_eligible"`
	Notes        string       `json:"notes,omitempty" db:"notes"`
}

// IsEligible 检查司机是否可参与排班
// 必须在职且具备载货资格，这是所有评分之前的前置条件
func (d *Driver) IsEligible() bool {
	return d.Status == "active" && d.LoadEligible
}

// DriverWorkPattern 司机的典型工作模式（从历史数据推导）
type DriverWorkPattern struct {
	DriverID    uuid.UUID      `json:"driver_id"`
	TypicalDays int            `json:"typical_days"` // 每周典型工作天数
	DayList     []string       `json:"day_list"`     // 按频次排序的工作日
	DayCounts   map[string]int `json:"day_counts"`   // 各工作日的历史分配次数
	Confidence  float64        `json:"confidence"`   // 模式一致性 0-1
}
