// Package stats 提供排班结果的统计分析
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paiche/paiche/pkg/model"
)

// WorkloadMetrics 周负载公平性指标
type WorkloadMetrics struct {
	// 整体负载公平性
	DaysGini     float64 `json:"days_gini"`     // 工作天数基尼系数 (0=完全公平, 1=完全不公平)
	HoursGini    float64 `json:"hours_gini"`    // 工时基尼系数
	DaysVariance float64 `json:"days_variance"` // 天数方差
	AvgDays      float64 `json:"avg_days"`      // 人均工作天数
	MaxDays      int     `json:"max_days"`      // 最大工作天数
	MinDays      int     `json:"min_days"`      // 最小工作天数

	// 夜班分配公平性
	NightShiftGini float64 `json:"night_shift_gini"` // 夜班分配基尼系数

	// 司机级别统计
	DriverStats []DriverStat `json:"driver_stats"`

	// 综合评分
	BalanceScore float64 `json:"balance_score"` // 综合均衡评分 (0-100)
}

// DriverStat 单个司机的周负载统计
type DriverStat struct {
	DriverID    uuid.UUID `json:"driver_id"`
	DriverName  string    `json:"driver_name"`
	ShiftCount  int       `json:"shift_count"`
	DayCount    int       `json:"day_count"`
	TotalHours  float64   `json:"total_hours"`
	NightShifts int       `json:"night_shifts"`
	Deviation   float64   `json:"deviation"` // 天数与均值的偏差百分比
}

// WorkloadAnalyzer 周负载分析器
type WorkloadAnalyzer struct {
	nightStartHour int // 夜班判定：开始时刻不早于此小时
	nightEndHour   int // 夜班判定：开始时刻早于此小时
}

// NewWorkloadAnalyzer 创建周负载分析器
func NewWorkloadAnalyzer() *WorkloadAnalyzer {
	return &WorkloadAnalyzer{
		nightStartHour: 22,
		nightEndHour:   6,
	}
}

// ShiftRecord 计入统计的单次分配
type ShiftRecord struct {
	DriverID    uuid.UUID
	DriverName  string
	ServiceDate string
	Start       time.Time
	End         time.Time
}

// Analyze 分析一周排班的负载分布
func (w *WorkloadAnalyzer) Analyze(shifts []ShiftRecord) *WorkloadMetrics {
	if len(shifts) == 0 {
		return &WorkloadMetrics{BalanceScore: 100, DriverStats: []DriverStat{}}
	}

	statMap := make(map[uuid.UUID]*DriverStat)
	dayMap := make(map[uuid.UUID]map[string]bool)

	for _, s := range shifts {
		stat, ok := statMap[s.DriverID]
		if !ok {
			stat = &DriverStat{DriverID: s.DriverID, DriverName: s.DriverName}
			statMap[s.DriverID] = stat
			dayMap[s.DriverID] = make(map[string]bool)
		}

		stat.ShiftCount++
		stat.TotalHours += s.End.Sub(s.Start).Hours()
		dayMap[s.DriverID][s.ServiceDate] = true

		if w.isNightShift(s.Start) {
			stat.NightShifts++
		}
	}

	stats := make([]DriverStat, 0, len(statMap))
	days := make([]float64, 0, len(statMap))
	hours := make([]float64, 0, len(statMap))
	nights := make([]float64, 0, len(statMap))

	for id, stat := range statMap {
		stat.DayCount = len(dayMap[id])
		stats = append(stats, *stat)
	}

	// 天数降序，并列按司机名，保证输出稳定
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].DayCount != stats[j].DayCount {
			return stats[i].DayCount > stats[j].DayCount
		}
		return stats[i].DriverName < stats[j].DriverName
	})

	for _, stat := range stats {
		days = append(days, float64(stat.DayCount))
		hours = append(hours, stat.TotalHours)
		nights = append(nights, float64(stat.NightShifts))
	}

	avgDays := mean(days)
	maxDays, minDays := valueRange(days)

	for i := range stats {
		if avgDays > 0 {
			stats[i].Deviation = (float64(stats[i].DayCount) - avgDays) / avgDays * 100
		}
	}

	daysGini := gini(days)
	hoursGini := gini(hours)
	nightGini := gini(nights)

	return &WorkloadMetrics{
		DaysGini:       daysGini,
		HoursGini:      hoursGini,
		DaysVariance:   variance(days, avgDays),
		AvgDays:        avgDays,
		MaxDays:        int(maxDays),
		MinDays:        int(minDays),
		NightShiftGini: nightGini,
		DriverStats:    stats,
		BalanceScore:   balanceScore(daysGini, hoursGini, nightGini),
	}
}

// FromSuggestions 将建议序列转换为统计输入
// blocks 提供合同类型以计算班次时长
func FromSuggestions(suggestions []*model.Suggestion, blocks []*model.Block, durations map[model.ContractType]time.Duration, canonical func(*model.Block) (string, error)) []ShiftRecord {
	blockMap := make(map[uuid.UUID]*model.Block, len(blocks))
	for _, b := range blocks {
		blockMap[b.ID] = b
	}

	records := make([]ShiftRecord, 0, len(suggestions))
	for _, s := range suggestions {
		block, ok := blockMap[s.BlockID]
		if !ok {
			continue
		}
		clock, err := canonical(block)
		if err != nil {
			continue
		}
		start, err := model.CombineDateClock(s.ServiceDate, clock)
		if err != nil {
			continue
		}
		dur, ok := durations[block.ContractType]
		if !ok {
			dur = 8 * time.Hour
		}
		records = append(records, ShiftRecord{
			DriverID:    s.DriverID,
			DriverName:  s.DriverName,
			ServiceDate: s.ServiceDate,
			Start:       start,
			End:         start.Add(dur),
		})
	}
	return records
}

// isNightShift 判断是否夜班
func (w *WorkloadAnalyzer) isNightShift(start time.Time) bool {
	hour := start.Hour()
	return hour >= w.nightStartHour || hour < w.nightEndHour
}

// balanceScore 综合均衡评分
func balanceScore(daysGini, hoursGini, nightGini float64) float64 {
	const (
		daysWeight  = 0.5
		hoursWeight = 0.3
		nightWeight = 0.2
	)
	score := (1-daysGini)*daysWeight*100 +
		(1-hoursGini)*hoursWeight*100 +
		(1-nightGini)*nightWeight*100
	return math.Max(0, math.Min(100, score))
}

// mean 计算平均值
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance 计算方差
func variance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// valueRange 计算极值
func valueRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}
	g = g / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}
