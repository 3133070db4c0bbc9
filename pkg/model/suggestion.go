// Package model 定义车队排班引擎的核心数据模型
package model

import (
	"github.com/google/uuid"
)

// ScoreBreakdown 评分构成明细
type ScoreBreakdown struct {
	Pattern    float64 `json:"pattern"`    // 历史模式份额
	Workload   float64 `json:"workload"`   // 周负载均衡得分
	Compliance float64 `json:"compliance"` // 合规得分（通过校验为 1.0）
	Fairness   float64 `json:"fairness"`   // 公平性分量（轮换时段）
}

// Suggestion 排班建议
type Suggestion struct {
	BlockID     uuid.UUID      `json:"block_id"`
	Signature   string         `json:"signature"`
	ServiceDate string         `json:"service_date"`
	DriverID    uuid.UUID      `json:"driver_id"`
	DriverName  string         `json:"driver_name"`
	Score       float64        `json:"score"`
	Breakdown   ScoreBreakdown `json:"breakdown"`
	SlotClass   SlotClass      `json:"slot_class"`
	Rationale   string         `json:"rationale"`
	Protected   bool           `json:"protected"`
}

// Unassignable 无法分配报告
type Unassignable struct {
	BlockID     uuid.UUID `json:"block_id"`
	Signature   string    `json:"signature,omitempty"`
	ServiceDate string    `json:"service_date"`
	Reason      string    `json:"reason"`
}

// WarningType 告警类型
type WarningType string

const (
	WarnMissingPattern       WarningType = "missing_pattern"        // 时段无历史模式
	WarnRuleConflict         WarningType = "rule_conflict"          // 多条保护规则冲突
	WarnRejectedCandidate    WarningType = "rejected_candidate"     // 候选司机被校验拒绝
	WarnMissingCanonicalTime WarningType = "missing_canonical_time" // 缺少标准开始时刻映射
	WarnCapOverride          WarningType = "cap_override"           // 保护性分配突破天数上限
)

// Warning 批次运行中收集的告警
// 保留足够上下文（时段、司机、规则、计算值），无需重跑即可定位
type Warning struct {
	Type        WarningType `json:"type"`
	BlockID     uuid.UUID   `json:"block_id,omitempty"`
	Signature   string      `json:"signature,omitempty"`
	ServiceDate string      `json:"service_date,omitempty"`
	DriverID    *uuid.UUID  `json:"driver_id,omitempty"`
	RuleIDs     []uuid.UUID `json:"rule_ids,omitempty"`
	Message     string      `json:"message"`
	Fields      JSONMap     `json:"fields,omitempty"`
}
