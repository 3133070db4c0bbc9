// Package model 定义车队排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// Block 班次块（一次待分配的具体班次）
// 由外部导入/生成流程创建，引擎只读消费
type Block struct {
	BaseModel
	OrgID        uuid.UUID    `json:"org_id" db:"org_id"`
	TractorID    string       `json:"tractor_id" db:"tractor_id"`
	ContractType ContractType `json:"contract_type" db:"contract_type"`
	ServiceDate  string       `json:"service_date" db:"service_date"` // YYYY-MM-DD
	StartTime    string       `json:"start_time" db:"start_time"`     // 记录的原始开始时刻 HH:MM（可能含噪声）
	Status       string       `json:"status" db:"status"`             // open/assigned/cancelled
}

// Weekday 返回服务日期的星期索引（周日为 0）
func (b *Block) Weekday() (int, error) {
	return DayOfWeek(b.ServiceDate)
}

// AssignmentRecord 历史分配记录（不可变事实）
// 只追加或软退役，是所有模式学习的唯一数据来源
type AssignmentRecord struct {
	BaseModel
	OrgID        uuid.UUID    `json:"org_id" db:"org_id"`
	DriverID     uuid.UUID    `json:"driver_id" db:"driver_id"`
	DriverName   string       `json:"driver_name" db:"driver_name"`
	BlockID      uuid.UUID    `json:"block_id" db:"block_id"`
	TractorID    string       `json:"tractor_id" db:"tractor_id"`
	ContractType ContractType `json:"contract_type" db:"contract_type"`
	ServiceDate  string       `json:"service_date" db:"service_date"`
	StartTime    string       `json:"start_time" db:"start_time"`
	AssignedAt   time.Time    `json:"assigned_at" db:"assigned_at"`
	RetiredAt    *time.Time   `json:"retired_at,omitempty" db:"retired_at"`
}

// IsRetired 检查记录是否已软退役
func (r *AssignmentRecord) IsRetired() bool {
	return r.RetiredAt != nil
}
