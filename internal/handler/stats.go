// Package handler 提供API处理器
package handler

import (
	"net/http"
	"time"

	"github.com/paiche/paiche/internal/metrics"
	"github.com/paiche/paiche/pkg/errors"
	"github.com/paiche/paiche/pkg/model"
	"github.com/paiche/paiche/pkg/signature"
	"github.com/paiche/paiche/pkg/stats"
)

// StatsRequest 统计分析请求
// 与分析端点一致：调用方提供完整快照，统计无状态
type StatsRequest struct {
	Blocks       []*model.Block        `json:"blocks"`
	Suggestions  []*model.Suggestion   `json:"suggestions"`
	Unassignable []*model.Unassignable `json:"unassignable,omitempty"`
}

// StatsHandler 统计分析处理器
// 复用服务启动时配置好的解析器和班次时长，
// 保证统计口径与分析端点一致
type StatsHandler struct {
	resolver  *signature.Resolver
	durations map[model.ContractType]time.Duration
}

// NewStatsHandler 创建统计分析处理器
func NewStatsHandler(resolver *signature.Resolver, durations map[model.ContractType]time.Duration) *StatsHandler {
	if resolver == nil {
		resolver = signature.NewResolver(nil)
	}
	return &StatsHandler{resolver: resolver, durations: durations}
}

// Workload 周负载公平性统计
// POST /api/v1/stats/workload
func (h *StatsHandler) Workload(w http.ResponseWriter, r *http.Request) {
	var req StatsRequest
	if !requirePost(w, r, &req) {
		return
	}
	if len(req.Suggestions) == 0 {
		writeError(w, errors.InvalidInput("suggestions", "建议列表不能为空"))
		return
	}

	shifts := stats.FromSuggestions(req.Suggestions, req.Blocks, h.durations,
		func(b *model.Block) (string, error) {
			return h.resolver.CanonicalTime(b.ContractType, b.TractorID)
		})

	result := stats.NewWorkloadAnalyzer().Analyze(shifts)
	metrics.SetQualityGauges(-1, result.DaysGini)

	writeData(w, result)
}

// Coverage 覆盖率统计
// POST /api/v1/stats/coverage
func (h *StatsHandler) Coverage(w http.ResponseWriter, r *http.Request) {
	var req StatsRequest
	if !requirePost(w, r, &req) {
		return
	}
	if len(req.Blocks) == 0 {
		writeError(w, errors.InvalidInput("blocks", "班次块列表不能为空"))
		return
	}

	result := stats.NewCoverageAnalyzer().Analyze(req.Blocks, req.Suggestions, req.Unassignable)
	metrics.SetQualityGauges(result.OverallCoverage, -1)

	writeData(w, result)
}
