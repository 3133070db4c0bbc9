// Package handler 提供API处理器
package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/paiche/paiche/internal/metrics"
	"github.com/paiche/paiche/pkg/engine"
	"github.com/paiche/paiche/pkg/errors"
	"github.com/paiche/paiche/pkg/model"
	"github.com/paiche/paiche/pkg/signature"
)

// AnalyzeRequest 批次分析请求
// 调用方提供一周的完整快照，分析本身不读库不写库
type AnalyzeRequest struct {
	WeekStart string                    `json:"week_start"`
	Blocks    []*model.Block            `json:"blocks"`
	Drivers   []*model.Driver           `json:"drivers"`
	Records   []*model.AssignmentRecord `json:"records"`
	Existing  []*model.AssignmentRecord `json:"existing,omitempty"`
	Rules     []*model.ProtectedRule    `json:"rules,omitempty"`
	Absences  map[uuid.UUID][]string    `json:"absences,omitempty"` // 司机ID -> 不可用日期列表
	Now       string                    `json:"now,omitempty"`      // 参考时刻 YYYY-MM-DD（缺省取当前时间）
}

// AnalyzeHandler 批次分析处理器
type AnalyzeHandler struct {
	engine *engine.Engine
}

// NewAnalyzeHandler 创建批次分析处理器
func NewAnalyzeHandler(resolver *signature.Resolver, opts engine.Options) *AnalyzeHandler {
	return &AnalyzeHandler{engine: engine.New(resolver, opts)}
}

// AnalyzeWeek 生成一周的排班建议
// POST /api/v1/analyze/week
func (h *AnalyzeHandler) AnalyzeWeek(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !requirePost(w, r, &req) {
		return
	}

	if _, err := model.ParseDate(req.WeekStart); err != nil {
		writeError(w, errors.InvalidInput("week_start", err.Error()))
		return
	}
	if len(req.Blocks) == 0 {
		writeError(w, errors.InvalidInput("blocks", "待分配班次块不能为空"))
		return
	}
	if len(req.Drivers) == 0 {
		writeError(w, errors.InvalidInput("drivers", "候选司机不能为空"))
		return
	}

	var now time.Time
	if req.Now != "" {
		parsed, err := model.ParseDate(req.Now)
		if err != nil {
			writeError(w, errors.InvalidInput("now", err.Error()))
			return
		}
		now = parsed
	}

	absences := make(map[uuid.UUID]map[string]bool, len(req.Absences))
	for driverID, dates := range req.Absences {
		set := make(map[string]bool, len(dates))
		for _, d := range dates {
			set[d] = true
		}
		absences[driverID] = set
	}

	start := time.Now()
	result := h.engine.Analyze(&engine.Request{
		WeekStart: req.WeekStart,
		Blocks:    req.Blocks,
		Drivers:   req.Drivers,
		Records:   req.Records,
		Existing:  req.Existing,
		Rules:     req.Rules,
		Absences:  absences,
		Now:       now,
	})

	recordAnalyzeMetrics(result, time.Since(start))
	writeData(w, result)
}

// recordAnalyzeMetrics 汇总批次结果并上报指标
func recordAnalyzeMetrics(result *engine.Result, duration time.Duration) {
	byClass := make(map[string]int)
	for _, s := range result.Suggestions {
		byClass[string(s.SlotClass)]++
	}
	byWarning := make(map[string]int)
	for _, warn := range result.Warnings {
		byWarning[string(warn.Type)]++
	}
	metrics.RecordAnalyzeRun(true, duration, byClass, len(result.Unassignable), byWarning)
}
