// Package stats 提供排班结果的统计分析
package stats

import (
	"sort"

	"github.com/paiche/paiche/pkg/model"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	TotalBlocks     int     `json:"total_blocks"`     // 总班次块数
	AssignedBlocks  int     `json:"assigned_blocks"`  // 已生成建议的块数
	OverallCoverage float64 `json:"overall_coverage"` // 整体覆盖率 (%)

	DailyCoverage    map[string]DayCoverage `json:"daily_coverage"`    // 按服务日期
	ContractCoverage map[string]float64     `json:"contract_coverage"` // 按合同类型 (%)

	// 归属分类分布（已分配块）
	ClassDistribution map[string]int `json:"class_distribution"`

	UncoveredBlocks []UncoveredBlock `json:"uncovered_blocks"` // 未覆盖块明细
}

// DayCoverage 单日覆盖情况
type DayCoverage struct {
	Date         string  `json:"date"`
	TotalBlocks  int     `json:"total_blocks"`
	Assigned     int     `json:"assigned"`
	CoverageRate float64 `json:"coverage_rate"`
	DriverCount  int     `json:"driver_count"`
}

// UncoveredBlock 未覆盖块明细
type UncoveredBlock struct {
	BlockID      string `json:"block_id"`
	ServiceDate  string `json:"service_date"`
	TractorID    string `json:"tractor_id"`
	ContractType string `json:"contract_type"`
	Reason       string `json:"reason"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct{}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{}
}

// Analyze 分析一次批次运行的覆盖情况
func (c *CoverageAnalyzer) Analyze(blocks []*model.Block, suggestions []*model.Suggestion, unassignable []*model.Unassignable) *CoverageMetrics {
	metrics := &CoverageMetrics{
		TotalBlocks:       len(blocks),
		DailyCoverage:     make(map[string]DayCoverage),
		ContractCoverage:  make(map[string]float64),
		ClassDistribution: make(map[string]int),
		UncoveredBlocks:   make([]UncoveredBlock, 0, len(unassignable)),
	}
	if len(blocks) == 0 {
		metrics.OverallCoverage = 100
		return metrics
	}

	assigned := make(map[string]*model.Suggestion, len(suggestions))
	for _, s := range suggestions {
		assigned[s.BlockID.String()] = s
	}
	reasons := make(map[string]string, len(unassignable))
	for _, u := range unassignable {
		reasons[u.BlockID.String()] = u.Reason
	}

	dailyTotal := make(map[string]int)
	dailyAssigned := make(map[string]int)
	dailyDrivers := make(map[string]map[string]bool)
	contractTotal := make(map[string]int)
	contractAssigned := make(map[string]int)

	for _, block := range blocks {
		dailyTotal[block.ServiceDate]++
		contractTotal[string(block.ContractType)]++

		s, ok := assigned[block.ID.String()]
		if ok {
			metrics.AssignedBlocks++
			dailyAssigned[block.ServiceDate]++
			contractAssigned[string(block.ContractType)]++
			metrics.ClassDistribution[string(s.SlotClass)]++

			if dailyDrivers[block.ServiceDate] == nil {
				dailyDrivers[block.ServiceDate] = make(map[string]bool)
			}
			dailyDrivers[block.ServiceDate][s.DriverID.String()] = true
			continue
		}

		metrics.UncoveredBlocks = append(metrics.UncoveredBlocks, UncoveredBlock{
			BlockID:      block.ID.String(),
			ServiceDate:  block.ServiceDate,
			TractorID:    block.TractorID,
			ContractType: string(block.ContractType),
			Reason:       reasons[block.ID.String()],
		})
	}

	metrics.OverallCoverage = percent(metrics.AssignedBlocks, metrics.TotalBlocks)

	for date, total := range dailyTotal {
		metrics.DailyCoverage[date] = DayCoverage{
			Date:         date,
			TotalBlocks:  total,
			Assigned:     dailyAssigned[date],
			CoverageRate: percent(dailyAssigned[date], total),
			DriverCount:  len(dailyDrivers[date]),
		}
	}
	for ct, total := range contractTotal {
		metrics.ContractCoverage[ct] = percent(contractAssigned[ct], total)
	}

	// 未覆盖块按日期排序，保证输出稳定
	sort.Slice(metrics.UncoveredBlocks, func(i, j int) bool {
		if metrics.UncoveredBlocks[i].ServiceDate != metrics.UncoveredBlocks[j].ServiceDate {
			return metrics.UncoveredBlocks[i].ServiceDate < metrics.UncoveredBlocks[j].ServiceDate
		}
		return metrics.UncoveredBlocks[i].BlockID < metrics.UncoveredBlocks[j].BlockID
	})

	return metrics
}

// percent 计算百分比
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
