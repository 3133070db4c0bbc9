// Package scorer 提供候选司机评分策略
//
// 按时段归属分类分派不同策略：有归属时段用综合得分（模式 + 负载 + 合规），
// 轮换时段用公平性得分。两种策略都只给已通过硬约束校验的候选人打分，
// 评分永远不会推翻校验结论。
package scorer

import (
	"github.com/paiche/paiche/pkg/model"
)

// Weights 评分权重配置
type Weights struct {
	OwnedPattern    float64 `json:"owned_pattern"`    // 有归属时段：历史份额权重
	OwnedWorkload   float64 `json:"owned_workload"`   // 有归属时段：负载均衡权重
	OwnedCompliance float64 `json:"owned_compliance"` // 有归属时段：合规权重

	RotatingFairness float64 `json:"rotating_fairness"` // 轮换时段：公平性权重
	RotatingPattern  float64 `json:"rotating_pattern"`  // 轮换时段：历史份额权重
	PatternBoost     float64 `json:"pattern_boost"`     // 轮换时段历史份额的提升系数
}

// DefaultWeights 返回默认权重
func DefaultWeights() Weights {
	return Weights{
		OwnedPattern:     0.5,
		OwnedWorkload:    0.3,
		OwnedCompliance:  0.2,
		RotatingFairness: 0.7,
		RotatingPattern:  0.3,
		PatternBoost:     1.3,
	}
}

// Input 单个候选人的评分输入
type Input struct {
	Share          float64 // 候选人在该时段的归属份额
	CurrentDays    int     // 本周当前已工作天数
	DaysIfAssigned int     // 接受分配后的本周工作天数
	PoolMinDays    int     // 候选池当前天数最小值
	PoolMaxDays    int     // 候选池当前天数最大值
}

// Score 单个候选人的评分结果
type Score struct {
	Value     float64
	Breakdown model.ScoreBreakdown
	Excluded  bool // 负载已满，排除出本时段
}

// Scorer 评分器
type Scorer struct {
	weights Weights
}

// NewScorer 创建评分器
func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Evaluate 按时段分类分派评分策略
// 无历史数据的时段没有可依赖的归属份额，按轮换策略处理
func (s *Scorer) Evaluate(class model.SlotClass, in Input) Score {
	switch class {
	case model.SlotOwned:
		return s.owned(in)
	default:
		return s.rotating(in)
	}
}

// owned 有归属时段的综合得分
func (s *Scorer) owned(in Input) Score {
	workload, excluded := workloadScore(in.DaysIfAssigned)
	if excluded {
		return Score{Excluded: true}
	}

	// 合规分量恒为 1.0：能进入评分说明已通过全部硬约束
	breakdown := model.ScoreBreakdown{
		Pattern:    in.Share,
		Workload:   workload,
		Compliance: 1.0,
	}
	value := breakdown.Pattern*s.weights.OwnedPattern +
		breakdown.Workload*s.weights.OwnedWorkload +
		breakdown.Compliance*s.weights.OwnedCompliance

	return Score{Value: value, Breakdown: breakdown}
}

// rotating 轮换时段的公平性得分
// 本周天数越少得分越高，历史份额只作次要加成
func (s *Scorer) rotating(in Input) Score {
	fairness := FairnessScore(in.CurrentDays, in.PoolMinDays, in.PoolMaxDays)
	breakdown := model.ScoreBreakdown{
		Pattern:  in.Share,
		Fairness: fairness,
	}
	value := fairness*s.weights.RotatingFairness +
		in.Share*s.weights.PatternBoost*s.weights.RotatingPattern

	return Score{Value: value, Breakdown: breakdown}
}

// workloadScore 按接受分配后的周天数计算负载均衡得分
// 4-5 天是理想负载，6 天接近上限大幅降分，超过 6 天排除
func workloadScore(daysIfAssigned int) (score float64, excluded bool) {
	switch {
	case daysIfAssigned >= 4 && daysIfAssigned <= 5:
		return 1.0, false
	case daysIfAssigned >= 1 && daysIfAssigned <= 3:
		return 0.8, false
	case daysIfAssigned == 6:
		return 0.3, false
	default:
		return 0, true
	}
}

// FairnessScore 计算候选池内的公平性得分
// 线性映射到 [0.2, 1.0]：天数最少的候选人得 1.0，最多的得 0.2；
// 池内天数全部相同时返回中性值 0.6
func FairnessScore(currentDays, poolMin, poolMax int) float64 {
	if poolMax == poolMin {
		return 0.6
	}
	ratio := float64(poolMax-currentDays) / float64(poolMax-poolMin)
	return 0.2 + 0.8*ratio
}
