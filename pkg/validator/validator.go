// Package validator 提供排班硬约束校验
//
// 校验是与评分无关的纯谓词，按 (候选司机, 班次块, 服务日期) 评估。
// 每次拒绝都携带可读的原因和计算值，校验器不会无声丢弃候选人。
package validator

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paiche/paiche/pkg/model"
)

// RejectReason 拒绝原因类型
type RejectReason string

const (
	ReasonIneligible       RejectReason = "ineligible"          // 不在职或无载货资格
	ReasonContractMismatch RejectReason = "contract_mismatch"   // 合同类型不匹配
	ReasonDayCap           RejectReason = "day_cap"             // 超过周天数上限
	ReasonDoubleBooking    RejectReason = "double_booking"      // 时间重叠
	ReasonRestViolation    RejectReason = "rest_violation"      // 休息时间不足
	ReasonProtectedOther   RejectReason = "protected_for_other" // 时段受他人保护规则覆盖
)

// Config 校验器配置
type Config struct {
	MinRestHours   float64                              // 班次间最小休息时间（小时）
	ShiftDurations map[model.ContractType]time.Duration // 各合同类型的固定班次时长
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		MinRestHours: 10,
		ShiftDurations: map[model.ContractType]time.Duration{
			model.ContractSolo1: 8 * time.Hour,
			model.ContractSolo2: 8 * time.Hour,
			model.ContractTeam:  10 * time.Hour,
		},
	}
}

// Duration 返回合同类型对应的班次时长
func (c *Config) Duration(ct model.ContractType) time.Duration {
	if d, ok := c.ShiftDurations[ct]; ok {
		return d
	}
	return 8 * time.Hour
}

// Result 校验结果
type Result struct {
	Valid       bool
	Protected   bool // 命中候选人本人的保护规则，自动通过
	Reason      RejectReason
	Message     string
	RestHours   *float64             // 休息不足时的实际休息小时数
	MatchedRule *model.ProtectedRule // 命中的保护规则
}

// pass 构造通过结果
func pass() Result {
	return Result{Valid: true}
}

// reject 构造拒绝结果
func reject(reason RejectReason, message string) Result {
	return Result{Valid: false, Reason: reason, Message: message}
}

// Checker 硬约束校验器
type Checker struct {
	cfg *Config
}

// NewChecker 创建校验器
func NewChecker(cfg *Config) *Checker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Checker{cfg: cfg}
}

// Config 返回校验器配置
func (c *Checker) Config() *Config {
	return c.cfg
}

// SpanFor 计算班次在目标日期的绝对时间跨度
// 开始时刻加固定时长，跨午夜的结束时间自然落到次日
func (c *Checker) SpanFor(blockID uuid.UUID, date, startClock string, ct model.ContractType) (model.ShiftSpan, error) {
	start, err := model.CombineDateClock(date, startClock)
	if err != nil {
		return model.ShiftSpan{}, err
	}
	return model.ShiftSpan{
		BlockID:     blockID,
		ServiceDate: date,
		Start:       start,
		End:         start.Add(c.cfg.Duration(ct)),
	}, nil
}

// Check 校验候选司机能否承接指定班次块
//
// matchedRules 是已按时段和有效期筛选过的保护规则；
// 存在候选人本人的保护规则即通过（绕过天数上限，上限突破由编排器告警），
// 否则只要存在他人的保护规则即拒绝。
func (c *Checker) Check(
	candidate *model.Driver,
	block *model.Block,
	canonicalTime string,
	state *model.DriverWeekState,
	dayCap int,
	matchedRules []*model.ProtectedRule,
) Result {
	// 保护规则优先于一切评分和约束
	// 先扫完整个规则集再下结论：候选人本人的规则存在即通过，
	// 与规则在切片中的先后顺序无关
	var foreign *model.ProtectedRule
	for _, rule := range matchedRules {
		if !rule.IsProtected {
			continue
		}
		if rule.DriverID == candidate.ID {
			return Result{Valid: true, Protected: true, MatchedRule: rule,
				Message: fmt.Sprintf("保护性分配：规则 %s 指定司机 %s", rule.ID, candidate.Name)}
		}
		if foreign == nil {
			foreign = rule
		}
	}
	if foreign != nil {
		return Result{Valid: false, Reason: ReasonProtectedOther, MatchedRule: foreign,
			Message: fmt.Sprintf("时段受保护规则覆盖，指定司机为 %s", foreign.DriverName)}
	}

	if !candidate.IsEligible() {
		return reject(ReasonIneligible,
			fmt.Sprintf("司机 %s 不在职或无载货资格", candidate.Name))
	}

	// 合同类型必须一致
	if candidate.ContractType != block.ContractType {
		return reject(ReasonContractMismatch,
			fmt.Sprintf("司机 %s 合同类型 %s 与班次 %s 不匹配", candidate.Name, candidate.ContractType, block.ContractType))
	}

	// 周天数上限（按不同服务日期计，不按班次数计）
	daysIfAssigned := state.DayCountIfAssigned(block.ServiceDate)
	if daysIfAssigned > dayCap {
		return reject(ReasonDayCap,
			fmt.Sprintf("司机 %s 本周将工作 %d 天，超过上限 %d 天", candidate.Name, daysIfAssigned, dayCap))
	}

	newSpan, err := c.SpanFor(block.ID, block.ServiceDate, canonicalTime, block.ContractType)
	if err != nil {
		return reject(ReasonDoubleBooking,
			fmt.Sprintf("班次时间无法解析: %v", err))
	}

	// 重叠与休息间隔都在统一时间轴上比较，跨午夜班次无需特判
	for _, span := range state.Shifts {
		if span.Overlaps(newSpan) {
			return reject(ReasonDoubleBooking,
				fmt.Sprintf("司机 %s 与 %s 的已有班次时间重叠", candidate.Name, span.ServiceDate))
		}

		var rest float64
		if !span.End.After(newSpan.Start) {
			rest = newSpan.Start.Sub(span.End).Hours()
		} else {
			rest = span.Start.Sub(newSpan.End).Hours()
		}
		if rest < c.cfg.MinRestHours {
			r := rest
			return Result{
				Valid:     false,
				Reason:    ReasonRestViolation,
				RestHours: &r,
				Message: fmt.Sprintf("司机 %s 班次间仅休息 %.1f 小时，少于要求的 %.0f 小时",
					candidate.Name, rest, c.cfg.MinRestHours),
			}
		}
	}

	return pass()
}

// MatchRules 筛选命中指定时段且在有效期内的保护规则
func MatchRules(rules []*model.ProtectedRule, block *model.Block, canonicalTime string) ([]*model.ProtectedRule, error) {
	dow, err := block.Weekday()
	if err != nil {
		return nil, err
	}
	var matched []*model.ProtectedRule
	for _, rule := range rules {
		if !rule.EffectiveOn(block.ServiceDate) {
			continue
		}
		if rule.Matches(block.ContractType, canonicalTime, dow) {
			matched = append(matched, rule)
		}
	}
	return matched, nil
}

// ConflictingProtected 检查命中的保护规则是否指向不同司机
// 冲突必须以告警形式上报，由人工裁决，引擎不会按优先级自动消解
func ConflictingProtected(matched []*model.ProtectedRule) []*model.ProtectedRule {
	var protected []*model.ProtectedRule
	seen := make(map[uuid.UUID]bool)
	for _, rule := range matched {
		if rule.IsProtected && !seen[rule.DriverID] {
			seen[rule.DriverID] = true
			protected = append(protected, rule)
		}
	}
	if len(protected) > 1 {
		return protected
	}
	return nil
}
