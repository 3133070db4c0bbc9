// Package model 定义车队排班引擎的核心数据模型
package model

import (
	"github.com/google/uuid"
)

// ProtectedRule 保护性规则（硬覆盖）
// 命中且在有效期内的保护规则直接决定分配结果，绕过偏好评分
type ProtectedRule struct {
	BaseModel
	OrgID         uuid.UUID      `json:"org_id" db:"org_id"`
	DriverID      uuid.UUID      `json:"driver_id" db:"driver_id"`
	DriverName    string         `json:"driver_name" db:"driver_name"`
	Days          []int          `json:"days" db:"days"`                     // 适用星期（周日为 0），空表示不限
	ContractTypes []ContractType `json:"contract_types" db:"contract_types"` // 适用合同类型，空表示不限
	StartAfter    string         `json:"start_after,omitempty" db:"start_after"`   // 开始时刻下界 HH:MM，空表示不限
	StartBefore   string         `json:"start_before,omitempty" db:"start_before"` // 开始时刻上界 HH:MM，空表示不限
	EffectiveFrom string         `json:"effective_from" db:"effective_from"`       // 生效日期 YYYY-MM-DD
	EffectiveTo   string         `json:"effective_to,omitempty" db:"effective_to"` // 失效日期，空表示长期有效
	IsProtected   bool           `json:"is_protected" db:"is_protected"`
	Note          string         `json:"note,omitempty" db:"note"`
}

// EffectiveOn 检查规则在某服务日期是否有效
func (r *ProtectedRule) EffectiveOn(date string) bool {
	if r.EffectiveFrom != "" && date < r.EffectiveFrom {
		return false
	}
	if r.EffectiveTo != "" && date > r.EffectiveTo {
		return false
	}
	return true
}

// Matches 检查规则是否命中指定时段
// 按星期、合同类型、开始时刻边界逐项匹配；空条件视为不限
func (r *ProtectedRule) Matches(contractType ContractType, canonicalTime string, dayOfWeek int) bool {
	if len(r.Days) > 0 {
		found := false
		for _, d := range r.Days {
			if d == dayOfWeek {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(r.ContractTypes) > 0 {
		found := false
		for _, ct := range r.ContractTypes {
			if ct == contractType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	minutes, err := ParseClock(canonicalTime)
	if err != nil {
		return false
	}
	if r.StartAfter != "" {
		if lower, err := ParseClock(r.StartAfter); err == nil && minutes < lower {
			return false
		}
	}
	if r.StartBefore != "" {
		if upper, err := ParseClock(r.StartBefore); err == nil && minutes > upper {
			return false
		}
	}

	return true
}
