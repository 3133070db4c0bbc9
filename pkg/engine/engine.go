// Package engine 提供排班建议批次编排引擎
//
// 一次批次运行 = 模式表重算 + 按确定性顺序逐块分配。
// 块内流程：保护规则 -> 硬约束校验 -> 按时段分类评分 -> 取最优，
// 每接受一个建议立即更新周状态，后续块在新状态下校验。
// 引擎本身无副作用，持久化由调用方完成。
package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paiche/paiche/pkg/logger"
	"github.com/paiche/paiche/pkg/model"
	"github.com/paiche/paiche/pkg/pattern"
	"github.com/paiche/paiche/pkg/scorer"
	"github.com/paiche/paiche/pkg/signature"
	"github.com/paiche/paiche/pkg/validator"
)

// Options 引擎参数
type Options struct {
	PatternParams   pattern.Params
	ValidatorConfig *validator.Config
	Weights         scorer.Weights
}

// DefaultOptions 返回默认参数
func DefaultOptions() Options {
	return Options{
		PatternParams:   pattern.DefaultParams(),
		ValidatorConfig: validator.DefaultConfig(),
		Weights:         scorer.DefaultWeights(),
	}
}

// HardDayCeiling 与司机偏好无关的周天数硬上限
// 保护性分配可以突破模式推导的上限，但突破此值必须告警
const HardDayCeiling = 6

// Engine 排班建议引擎
type Engine struct {
	resolver *signature.Resolver
	patterns *pattern.Engine
	checker  *validator.Checker
	scorer   *scorer.Scorer
	log      *logger.EngineLogger
}

// New 创建排班建议引擎
func New(resolver *signature.Resolver, opts Options) *Engine {
	if resolver == nil {
		resolver = signature.NewResolver(nil)
	}
	return &Engine{
		resolver: resolver,
		patterns: pattern.NewEngine(resolver, opts.PatternParams),
		checker:  validator.NewChecker(opts.ValidatorConfig),
		scorer:   scorer.NewScorer(opts.Weights),
		log:      logger.NewEngineLogger(),
	}
}

// Request 批次分析请求
type Request struct {
	WeekStart string                        // 目标周起始日期 YYYY-MM-DD
	Blocks    []*model.Block                // 待分配的班次块
	Drivers   []*model.Driver               // 候选司机全集
	Records   []*model.AssignmentRecord     // 历史分配记录（模式表输入）
	Existing  []*model.AssignmentRecord     // 本周已锁定的分配（预置周状态）
	Rules     []*model.ProtectedRule        // 保护规则
	Absences  map[uuid.UUID]map[string]bool // 司机不可用日期
	Now       time.Time                     // 批次参考时刻（零值取当前时间）
}

// Result 批次分析结果
type Result struct {
	WeekStart    string                `json:"week_start"`
	Suggestions  []*model.Suggestion   `json:"suggestions"`
	Unassignable []*model.Unassignable `json:"unassignable"`
	Warnings     []model.Warning       `json:"warnings"`
	Table        *pattern.Table        `json:"-"`
}

// blockPlan 已完成签名解析的待分配块
type blockPlan struct {
	block         *model.Block
	sig           string
	canonicalTime string
}

// Analyze 执行一次批次分析
// 对相同输入重复调用产生相同的建议序列
func (e *Engine) Analyze(req *Request) *Result {
	start := time.Now()
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	e.log.StartRun(req.WeekStart, len(req.Blocks), len(req.Drivers))

	result := &Result{
		WeekStart:    req.WeekStart,
		Suggestions:  make([]*model.Suggestion, 0, len(req.Blocks)),
		Unassignable: make([]*model.Unassignable, 0),
		Warnings:     make([]model.Warning, 0),
	}

	table := e.patterns.Compute(req.Records, now)
	result.Table = table
	result.Warnings = append(result.Warnings, table.Warnings...)

	state := model.NewWeekState()
	e.seedState(req.Existing, state, result)

	plans := e.resolveBlocks(req.Blocks, result)

	for _, plan := range plans {
		e.assignBlock(plan, req, table, state, result)
	}

	e.log.RunComplete(req.WeekStart, time.Since(start), len(result.Suggestions), len(result.Unassignable))
	return result
}

// seedState 用本周已锁定的分配预置周状态
// 锁定分配的约束占位与新建议完全等价
func (e *Engine) seedState(existing []*model.AssignmentRecord, state *model.WeekState, result *Result) {
	for _, rec := range existing {
		if rec.IsRetired() {
			continue
		}
		canonicalTime, err := e.resolver.CanonicalTime(rec.ContractType, rec.TractorID)
		if err != nil {
			result.Warnings = append(result.Warnings, model.Warning{
				Type:        model.WarnMissingCanonicalTime,
				BlockID:     rec.BlockID,
				ServiceDate: rec.ServiceDate,
				DriverID:    &rec.DriverID,
				Message:     "已锁定分配无法解析标准时刻，未计入周状态: " + err.Error(),
			})
			continue
		}
		span, err := e.checker.SpanFor(rec.BlockID, rec.ServiceDate, canonicalTime, rec.ContractType)
		if err != nil {
			result.Warnings = append(result.Warnings, model.Warning{
				Type:        model.WarnMissingCanonicalTime,
				BlockID:     rec.BlockID,
				ServiceDate: rec.ServiceDate,
				DriverID:    &rec.DriverID,
				Message:     "已锁定分配时间无法解析，未计入周状态: " + err.Error(),
			})
			continue
		}
		state.Get(rec.DriverID).AddShift(span)
	}
}

// resolveBlocks 解析全部块的签名并按确定性顺序排序
// 缺少标准时刻映射的块直接进入无法分配报告，不参与排序
func (e *Engine) resolveBlocks(blocks []*model.Block, result *Result) []blockPlan {
	plans := make([]blockPlan, 0, len(blocks))
	for _, block := range blocks {
		sig, canonicalTime, err := e.resolver.ForBlock(block)
		if err != nil {
			result.Warnings = append(result.Warnings, model.Warning{
				Type:        model.WarnMissingCanonicalTime,
				BlockID:     block.ID,
				ServiceDate: block.ServiceDate,
				Message:     err.Error(),
			})
			result.Unassignable = append(result.Unassignable, &model.Unassignable{
				BlockID:     block.ID,
				ServiceDate: block.ServiceDate,
				Reason:      err.Error(),
			})
			continue
		}
		plans = append(plans, blockPlan{block: block, sig: sig, canonicalTime: canonicalTime})
	}

	// 服务日期 -> 标准时刻 -> 签名，保证批次顺序与输入顺序无关
	sort.Slice(plans, func(i, j int) bool {
		if plans[i].block.ServiceDate != plans[j].block.ServiceDate {
			return plans[i].block.ServiceDate < plans[j].block.ServiceDate
		}
		if plans[i].canonicalTime != plans[j].canonicalTime {
			return plans[i].canonicalTime < plans[j].canonicalTime
		}
		return plans[i].sig < plans[j].sig
	})
	return plans
}

// candidateScore 单个块内的候选人评估结果
type candidateScore struct {
	driver    *model.Driver
	score     scorer.Score
	protected bool
	rationale string
}

// assignBlock 为单个块生成建议
func (e *Engine) assignBlock(plan blockPlan, req *Request, table *pattern.Table, state *model.WeekState, result *Result) {
	block := plan.block

	matchedRules, err := validator.MatchRules(req.Rules, block, plan.canonicalTime)
	if err != nil {
		result.Unassignable = append(result.Unassignable, &model.Unassignable{
			BlockID:     block.ID,
			Signature:   plan.sig,
			ServiceDate: block.ServiceDate,
			Reason:      err.Error(),
		})
		return
	}

	// 冲突的保护规则不自动消解：告警后当作无保护规则走正常评分
	if conflicting := validator.ConflictingProtected(matchedRules); conflicting != nil {
		ruleIDs := make([]uuid.UUID, 0, len(conflicting))
		names := make([]string, 0, len(conflicting))
		for _, r := range conflicting {
			ruleIDs = append(ruleIDs, r.ID)
			names = append(names, r.DriverName)
		}
		result.Warnings = append(result.Warnings, model.Warning{
			Type:        model.WarnRuleConflict,
			BlockID:     block.ID,
			Signature:   plan.sig,
			ServiceDate: block.ServiceDate,
			RuleIDs:     ruleIDs,
			Message:     fmt.Sprintf("时段命中多条指向不同司机的保护规则: %v，已回退到正常评分", names),
		})
		matchedRules = nil
	}

	class := table.Classify(plan.sig)
	dist := table.Distribution(plan.sig)
	if class == model.SlotUnknown {
		result.Warnings = append(result.Warnings, model.Warning{
			Type:        model.WarnMissingPattern,
			BlockID:     block.ID,
			Signature:   plan.sig,
			ServiceDate: block.ServiceDate,
			Message:     "时段无历史模式，按轮换时段评分",
		})
	}

	valid, rejections := e.validateCandidates(plan, req, table, state, matchedRules, result)

	if len(valid) == 0 {
		result.Unassignable = append(result.Unassignable, &model.Unassignable{
			BlockID:     block.ID,
			Signature:   plan.sig,
			ServiceDate: block.ServiceDate,
			Reason:      summarizeRejections(rejections),
		})
		return
	}

	// 保护性分配优先于评分
	for _, cand := range valid {
		if cand.protected {
			e.accept(plan, cand, class, state, result)
			return
		}
	}

	// 有归属时段但归属司机不在可用池内时，回退到公平性轮换
	scoringClass := class
	fallback := false
	if class == model.SlotOwned && dist != nil && dist.OwnerID != nil {
		ownerAvailable := false
		for _, cand := range valid {
			if cand.driver.ID == *dist.OwnerID {
				ownerAvailable = true
				break
			}
		}
		if !ownerAvailable {
			scoringClass = model.SlotRotating
			fallback = true
		}
	}

	scored := e.scoreCandidates(plan, valid, scoringClass, dist, state, fallback, result)
	if len(scored) == 0 {
		result.Unassignable = append(result.Unassignable, &model.Unassignable{
			BlockID:     block.ID,
			Signature:   plan.sig,
			ServiceDate: block.ServiceDate,
			Reason:      summarizeRejections(append(rejections, "剩余候选人负载已满")),
		})
		return
	}

	e.accept(plan, scored[0], class, state, result)
}

// validateCandidates 对全集逐人校验，返回通过者和拒绝原因汇总
func (e *Engine) validateCandidates(
	plan blockPlan,
	req *Request,
	table *pattern.Table,
	state *model.WeekState,
	matchedRules []*model.ProtectedRule,
	result *Result,
) (valid []candidateScore, rejections []string) {
	block := plan.block

	for _, driver := range req.Drivers {
		if absences, ok := req.Absences[driver.ID]; ok && absences[block.ServiceDate] {
			e.log.CandidateRejected(block.ID.String(), driver.Name, "当日不可用")
			continue
		}

		st := state.Get(driver.ID)
		dayCap := table.TargetDayCap(driver.ID)
		res := e.checker.Check(driver, block, plan.canonicalTime, st, dayCap, matchedRules)

		if !res.Valid {
			e.log.CandidateRejected(block.ID.String(), driver.Name, string(res.Reason))
			// 合同不匹配是池的定义而非异常，不产生告警
			if res.Reason != validator.ReasonContractMismatch && res.Reason != validator.ReasonIneligible {
				driverID := driver.ID
				warning := model.Warning{
					Type:        model.WarnRejectedCandidate,
					BlockID:     block.ID,
					Signature:   plan.sig,
					ServiceDate: block.ServiceDate,
					DriverID:    &driverID,
					Message:     res.Message,
				}
				if res.RestHours != nil {
					warning.Fields = model.JSONMap{"rest_hours": *res.RestHours}
				}
				result.Warnings = append(result.Warnings, warning)
				rejections = append(rejections, res.Message)
			}
			continue
		}

		cand := candidateScore{driver: driver, protected: res.Protected}
		if res.Protected {
			cand.rationale = res.Message
			// 保护性分配绕过模式上限，但突破硬上限必须告警
			if st.DayCountIfAssigned(block.ServiceDate) > HardDayCeiling {
				driverID := driver.ID
				result.Warnings = append(result.Warnings, model.Warning{
					Type:        model.WarnCapOverride,
					BlockID:     block.ID,
					Signature:   plan.sig,
					ServiceDate: block.ServiceDate,
					DriverID:    &driverID,
					Message: fmt.Sprintf("保护性分配使司机 %s 本周达到 %d 天，超过硬上限 %d 天",
						driver.Name, st.DayCountIfAssigned(block.ServiceDate), HardDayCeiling),
				})
			}
		}
		valid = append(valid, cand)
	}
	return valid, rejections
}

// scoreCandidates 按时段分类给通过校验的候选人评分并排序
func (e *Engine) scoreCandidates(
	plan blockPlan,
	valid []candidateScore,
	class model.SlotClass,
	dist *model.SlotDistribution,
	state *model.WeekState,
	fallback bool,
	result *Result,
) []candidateScore {
	poolMin, poolMax := poolDayRange(valid, state)

	scored := make([]candidateScore, 0, len(valid))
	for _, cand := range valid {
		st := state.Get(cand.driver.ID)
		in := scorer.Input{
			CurrentDays:    st.DayCount(),
			DaysIfAssigned: st.DayCountIfAssigned(plan.block.ServiceDate),
			PoolMinDays:    poolMin,
			PoolMaxDays:    poolMax,
		}
		if dist != nil {
			in.Share = dist.Share(cand.driver.ID)
		}

		score := e.scorer.Evaluate(class, in)
		if score.Excluded {
			e.log.CandidateRejected(plan.block.ID.String(), cand.driver.Name, "负载已满")
			continue
		}

		cand.score = score
		cand.rationale = rationaleFor(class, fallback, in.Share)
		scored = append(scored, cand)
	}

	// 得分降序，并列按份额降序、当前天数升序、司机名
	sort.Slice(scored, func(i, j int) bool {
		si, sj := scored[i], scored[j]
		if si.score.Value != sj.score.Value {
			return si.score.Value > sj.score.Value
		}
		if si.score.Breakdown.Pattern != sj.score.Breakdown.Pattern {
			return si.score.Breakdown.Pattern > sj.score.Breakdown.Pattern
		}
		di := state.Get(si.driver.ID).DayCount()
		dj := state.Get(sj.driver.ID).DayCount()
		if di != dj {
			return di < dj
		}
		return si.driver.Name < sj.driver.Name
	})
	return scored
}

// accept 接受建议并更新周状态
func (e *Engine) accept(plan blockPlan, cand candidateScore, class model.SlotClass, state *model.WeekState, result *Result) {
	block := plan.block

	span, err := e.checker.SpanFor(block.ID, block.ServiceDate, plan.canonicalTime, block.ContractType)
	if err != nil {
		result.Unassignable = append(result.Unassignable, &model.Unassignable{
			BlockID:     block.ID,
			Signature:   plan.sig,
			ServiceDate: block.ServiceDate,
			Reason:      err.Error(),
		})
		return
	}
	state.Get(cand.driver.ID).AddShift(span)

	score := cand.score.Value
	if cand.protected {
		score = 1.0
		cand.score.Breakdown.Compliance = 1.0
	}

	result.Suggestions = append(result.Suggestions, &model.Suggestion{
		BlockID:     block.ID,
		Signature:   plan.sig,
		ServiceDate: block.ServiceDate,
		DriverID:    cand.driver.ID,
		DriverName:  cand.driver.Name,
		Score:       score,
		Breakdown:   cand.score.Breakdown,
		SlotClass:   class,
		Rationale:   cand.rationale,
		Protected:   cand.protected,
	})
}

// poolDayRange 返回候选池当前天数的最小值和最大值
func poolDayRange(valid []candidateScore, state *model.WeekState) (min, max int) {
	for i, cand := range valid {
		days := state.Get(cand.driver.ID).DayCount()
		if i == 0 {
			min, max = days, days
			continue
		}
		if days < min {
			min = days
		}
		if days > max {
			max = days
		}
	}
	return min, max
}

// rationaleFor 构造建议理由
func rationaleFor(class model.SlotClass, fallback bool, share float64) string {
	switch {
	case fallback:
		return "归属司机不可用，按公平性轮换"
	case class == model.SlotOwned:
		return fmt.Sprintf("历史归属时段（份额 %.2f）", share)
	default:
		return "轮换时段，按公平性排序"
	}
}

// summarizeRejections 汇总拒绝原因
func summarizeRejections(rejections []string) string {
	if len(rejections) == 0 {
		return "无合同匹配且在职的候选司机"
	}
	const maxShown = 3
	if len(rejections) > maxShown {
		return fmt.Sprintf("%v 等 %d 条拒绝原因", rejections[:maxShown], len(rejections))
	}
	return fmt.Sprintf("%v", rejections)
}
