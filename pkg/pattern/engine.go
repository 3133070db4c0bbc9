// Package pattern 提供衰减历史置信度模式引擎
//
// 对回看窗口内的历史分配记录做指数衰减加权统计，按 (签名, 司机)
// 聚合出归一化的归属份额。整表重算是幂等的纯函数：
// (records, now, params) -> 模式表，调用方先整体删除旧表再写入新表，
// 避免增量合并与追加日志之间产生漂移。
package pattern

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paiche/paiche/pkg/model"
	"github.com/paiche/paiche/pkg/signature"
)

// Params 模式引擎参数
type Params struct {
	LookbackWeeks      int     `json:"lookback_weeks"`      // 回看窗口（周）
	HalfLifeWeeks      int     `json:"half_life_weeks"`     // 衰减半衰期（周）
	OwnershipThreshold float64 `json:"ownership_threshold"` // 归属分类阈值
	RecentWindowWeeks  int     `json:"recent_window_weeks"` // 并列裁决的近期窗口（周）
}

// DefaultParams 返回默认参数
func DefaultParams() Params {
	return Params{
		LookbackWeeks:      12,
		HalfLifeWeeks:      4,
		OwnershipThreshold: 0.70,
		RecentWindowWeeks:  8,
	}
}

// DecayFactor 返回每周衰减系数 exp(-ln2/halfLife)
// 半衰期周数后权重正好减半
func (p Params) DecayFactor() float64 {
	if p.HalfLifeWeeks <= 0 {
		return 1.0
	}
	return math.Exp(-math.Ln2 / float64(p.HalfLifeWeeks))
}

// Table 一次重算得到的完整模式表
type Table struct {
	Rows     []*model.SlotPattern `json:"rows"`
	Warnings []model.Warning      `json:"warnings,omitempty"`

	params         Params
	bySignature    map[string][]*model.SlotPattern
	distributions  map[string]*model.SlotDistribution
	driverPatterns map[uuid.UUID]*model.DriverWorkPattern
}

// Engine 模式引擎
type Engine struct {
	resolver *signature.Resolver
	params   Params
}

// NewEngine 创建模式引擎
func NewEngine(resolver *signature.Resolver, params Params) *Engine {
	return &Engine{resolver: resolver, params: params}
}

// accumulator (签名, 司机) 的累计状态
type accumulator struct {
	driverID   uuid.UUID
	driverName string
	weighted   float64
	raw        int
	recent     int
	lastDate   string
}

// Compute 整表重算
// 对相同输入重复调用产生逐位相同的结果；签名解析失败的记录
// 以告警形式收集并跳过，不会用原始时刻污染签名空间
func (e *Engine) Compute(records []*model.AssignmentRecord, now time.Time) *Table {
	p := e.params
	decay := p.DecayFactor()
	cutoff := now.AddDate(0, 0, -7*p.LookbackWeeks)
	recentCutoff := now.AddDate(0, 0, -7*p.RecentWindowWeeks).Format(model.DateLayout)

	table := &Table{
		params:         p,
		bySignature:    make(map[string][]*model.SlotPattern),
		distributions:  make(map[string]*model.SlotDistribution),
		driverPatterns: make(map[uuid.UUID]*model.DriverWorkPattern),
	}

	accs := make(map[string]map[uuid.UUID]*accumulator)
	driverDayCounts := make(map[uuid.UUID]map[int]int)
	driverNames := make(map[uuid.UUID]string)

	for _, rec := range records {
		if rec.IsRetired() {
			continue
		}

		serviceDate, err := model.ParseDate(rec.ServiceDate)
		if err != nil {
			table.Warnings = append(table.Warnings, model.Warning{
				Type:     model.WarnMissingPattern,
				DriverID: &rec.DriverID,
				Message:  "历史记录服务日期无效，已跳过: " + err.Error(),
			})
			continue
		}
		if serviceDate.Before(cutoff) || serviceDate.After(now) {
			continue
		}

		sig, err := e.resolver.ForRecord(rec)
		if err != nil {
			table.Warnings = append(table.Warnings, model.Warning{
				Type:        model.WarnMissingCanonicalTime,
				DriverID:    &rec.DriverID,
				ServiceDate: rec.ServiceDate,
				Message:     err.Error(),
			})
			continue
		}

		weeksAgo := int(math.Floor(now.Sub(serviceDate).Hours() / (24 * 7)))
		if weeksAgo < 0 {
			weeksAgo = 0
		}
		weight := math.Pow(decay, float64(weeksAgo))

		byDriver, ok := accs[sig]
		if !ok {
			byDriver = make(map[uuid.UUID]*accumulator)
			accs[sig] = byDriver
		}
		acc, ok := byDriver[rec.DriverID]
		if !ok {
			acc = &accumulator{
				driverID:   rec.DriverID,
				driverName: rec.DriverName,
			}
			byDriver[rec.DriverID] = acc
		}

		acc.weighted += weight
		acc.raw++
		if rec.ServiceDate >= recentCutoff {
			acc.recent++
		}
		if rec.ServiceDate > acc.lastDate {
			acc.lastDate = rec.ServiceDate
		}

		dow, _ := model.DayOfWeek(rec.ServiceDate)
		dayCounts, ok := driverDayCounts[rec.DriverID]
		if !ok {
			dayCounts = make(map[int]int)
			driverDayCounts[rec.DriverID] = dayCounts
		}
		dayCounts[dow]++
		driverNames[rec.DriverID] = rec.DriverName
	}

	// 归一化并构建分布
	for sig, byDriver := range accs {
		var total float64
		for _, acc := range byDriver {
			total += acc.weighted
		}

		rows := make([]*model.SlotPattern, 0, len(byDriver))
		dist := &model.SlotDistribution{
			Signature: sig,
			Shares:    make(map[uuid.UUID]float64, len(byDriver)),
		}

		for _, acc := range byDriver {
			confidence := 0.0
			if total > 0 {
				confidence = acc.weighted / total
			}
			row := &model.SlotPattern{
				Signature:     sig,
				DriverID:      acc.driverID,
				DriverName:    acc.driverName,
				WeightedCount: acc.weighted,
				RawCount:      acc.raw,
				RecentCount:   acc.recent,
				LastDate:      acc.lastDate,
				Confidence:    confidence,
			}
			rows = append(rows, row)
			dist.Shares[acc.driverID] = confidence
			dist.TotalAssignments += acc.raw
		}

		// 确定性排序：份额降序，并列按近期次数降序，再按司机名
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].Confidence != rows[j].Confidence {
				return rows[i].Confidence > rows[j].Confidence
			}
			if rows[i].RecentCount != rows[j].RecentCount {
				return rows[i].RecentCount > rows[j].RecentCount
			}
			return rows[i].DriverName < rows[j].DriverName
		})

		top := rows[0]
		if top.Confidence >= p.OwnershipThreshold {
			dist.Class = model.SlotOwned
			ownerID := top.DriverID
			dist.OwnerID = &ownerID
			dist.OwnerName = top.DriverName
			dist.OwnerShare = top.Confidence
		} else {
			dist.Class = model.SlotRotating
			dist.OwnerShare = top.Confidence
		}

		table.bySignature[sig] = rows
		table.distributions[sig] = dist
		table.Rows = append(table.Rows, rows...)
	}

	// 整表行的确定性排序（便于持久化和逐位比较）
	sort.Slice(table.Rows, func(i, j int) bool {
		if table.Rows[i].Signature != table.Rows[j].Signature {
			return table.Rows[i].Signature < table.Rows[j].Signature
		}
		return table.Rows[i].Confidence > table.Rows[j].Confidence
	})

	// 推导司机典型工作模式
	for driverID, dayCounts := range driverDayCounts {
		table.driverPatterns[driverID] = deriveWorkPattern(driverID, driverNames[driverID], dayCounts)
	}

	return table
}

// MinAssignmentsPerDay 一个工作日计入典型模式所需的最少历史次数
// 按当天所有时段的合计计数，而不是单时段计数
const MinAssignmentsPerDay = 2

// deriveWorkPattern 从各工作日的合计次数推导典型工作模式
func deriveWorkPattern(driverID uuid.UUID, name string, dayTotals map[int]int) *model.DriverWorkPattern {
	counting := make(map[int]int)
	for dow, cnt := range dayTotals {
		if cnt >= MinAssignmentsPerDay {
			counting[dow] = cnt
		}
	}

	if len(counting) == 0 {
		// 数据不足，回退到安全上限
		return &model.DriverWorkPattern{
			DriverID:    driverID,
			TypicalDays: 6,
			DayList:     []string{},
			DayCounts:   map[string]int{},
			Confidence:  0,
		}
	}

	days := make([]int, 0, len(counting))
	for dow := range counting {
		days = append(days, dow)
	}
	sort.Slice(days, func(i, j int) bool {
		if counting[days[i]] != counting[days[j]] {
			return counting[days[i]] > counting[days[j]]
		}
		return days[i] < days[j]
	})

	dayList := make([]string, 0, len(days))
	dayCounts := make(map[string]int, len(days))
	var sum float64
	for _, dow := range days {
		dayList = append(dayList, model.DayNames[dow])
		dayCounts[model.DayNames[dow]] = counting[dow]
		sum += float64(counting[dow])
	}

	mean := sum / float64(len(days))
	var variance float64
	for _, dow := range days {
		diff := float64(counting[dow]) - mean
		variance += diff * diff
	}
	variance /= float64(len(days))
	confidence := 1.0 - math.Sqrt(variance)/(mean+1)
	confidence = math.Max(0, math.Min(1, confidence))

	return &model.DriverWorkPattern{
		DriverID:    driverID,
		TypicalDays: len(days),
		DayList:     dayList,
		DayCounts:   dayCounts,
		Confidence:  confidence,
	}
}

// Distribution 返回某签名的归属分布（无历史返回 nil）
func (t *Table) Distribution(sig string) *model.SlotDistribution {
	return t.distributions[sig]
}

// Classify 返回某签名的归属分类
func (t *Table) Classify(sig string) model.SlotClass {
	dist, ok := t.distributions[sig]
	if !ok {
		return model.SlotUnknown
	}
	return dist.Class
}

// Patterns 返回某签名下按份额排序的模式行
func (t *Table) Patterns(sig string) []*model.SlotPattern {
	return t.bySignature[sig]
}

// DriverPattern 返回司机的典型工作模式
// 无任何历史时返回安全上限模式（典型 6 天、置信度 0）
func (t *Table) DriverPattern(driverID uuid.UUID) *model.DriverWorkPattern {
	if p, ok := t.driverPatterns[driverID]; ok {
		return p
	}
	return &model.DriverWorkPattern{
		DriverID:    driverID,
		TypicalDays: 6,
		DayList:     []string{},
		DayCounts:   map[string]int{},
		Confidence:  0,
	}
}

// TargetDayCap 返回司机的周天数上限
// clamp(典型天数, 4, 6)：下限 4 保证历史稀疏的司机仍有机会，
// 上限 6 是与偏好无关的硬性安全上限
func (t *Table) TargetDayCap(driverID uuid.UUID) int {
	typical := t.DriverPattern(driverID).TypicalDays
	if typical < 4 {
		return 4
	}
	if typical > 6 {
		return 6
	}
	return typical
}
