// Package handler 提供API处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/paiche/paiche/internal/repository"
	"github.com/paiche/paiche/pkg/engine"
	"github.com/paiche/paiche/pkg/errors"
	"github.com/paiche/paiche/pkg/logger"
	"github.com/paiche/paiche/pkg/model"
	"github.com/paiche/paiche/pkg/signature"
)

// 周快照数据源
// 按接口声明依赖，存储实现可替换
type blockSource interface {
	ListOpenForWeek(ctx context.Context, orgID uuid.UUID, weekStart, weekEnd string) ([]*model.Block, error)
}

type driverSource interface {
	ListEligible(ctx context.Context, orgID uuid.UUID) ([]*model.Driver, error)
}

type ruleSource interface {
	ListEffective(ctx context.Context, orgID uuid.UUID, from, to string) ([]*model.ProtectedRule, error)
}

type recordSource interface {
	ListSince(ctx context.Context, orgID uuid.UUID, sinceDate string) ([]*model.AssignmentRecord, error)
	ListForWeek(ctx context.Context, orgID uuid.UUID, weekStart, weekEnd string) ([]*model.AssignmentRecord, error)
}

// WeekHandler 数据库驱动的批次分析处理器
// 与快照式分析端点共用同一引擎，区别只在快照从库里加载
type WeekHandler struct {
	engine        *engine.Engine
	lookbackWeeks int
	blocks        blockSource
	drivers       driverSource
	rules         ruleSource
	records       recordSource
}

// NewWeekHandler 创建数据库驱动的批次分析处理器
func NewWeekHandler(db repository.DB, resolver *signature.Resolver, opts engine.Options) *WeekHandler {
	return &WeekHandler{
		engine:        engine.New(resolver, opts),
		lookbackWeeks: opts.PatternParams.LookbackWeeks,
		blocks:        repository.NewBlockRepository(db),
		drivers:       repository.NewDriverRepository(db),
		rules:         repository.NewRuleRepository(db),
		records:       repository.NewAssignmentRepository(db),
	}
}

// WeekAnalyzeRequest 数据库驱动的批次分析请求
// 块、司机、规则、历史记录全部从库加载；
// 不可用日期没有持久化来源，仍由调用方随请求注入
type WeekAnalyzeRequest struct {
	OrgID     uuid.UUID              `json:"org_id"`
	WeekStart string                 `json:"week_start"`
	Absences  map[uuid.UUID][]string `json:"absences,omitempty"`
	Now       string                 `json:"now,omitempty"` // 参考时刻 YYYY-MM-DD（缺省取当前时间）
}

// AnalyzeWeek 加载指定周的快照并生成排班建议
// POST /api/v1/analyze/week/db
func (h *WeekHandler) AnalyzeWeek(w http.ResponseWriter, r *http.Request) {
	var req WeekAnalyzeRequest
	if !requirePost(w, r, &req) {
		return
	}

	if req.OrgID == uuid.Nil {
		writeError(w, errors.InvalidInput("org_id", "不能为空"))
		return
	}
	weekStartDate, err := model.ParseDate(req.WeekStart)
	if err != nil {
		writeError(w, errors.InvalidInput("week_start", err.Error()))
		return
	}
	weekEnd := weekStartDate.AddDate(0, 0, 6).Format(model.DateLayout)

	now := time.Now()
	if req.Now != "" {
		parsed, err := model.ParseDate(req.Now)
		if err != nil {
			writeError(w, errors.InvalidInput("now", err.Error()))
			return
		}
		now = parsed
	}

	ctx := r.Context()

	blocks, err := h.blocks.ListOpenForWeek(ctx, req.OrgID, req.WeekStart, weekEnd)
	if err != nil {
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "加载班次块失败"))
		return
	}
	drivers, err := h.drivers.ListEligible(ctx, req.OrgID)
	if err != nil {
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "加载司机失败"))
		return
	}
	rules, err := h.rules.ListEffective(ctx, req.OrgID, req.WeekStart, weekEnd)
	if err != nil {
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "加载保护规则失败"))
		return
	}

	sinceDate := now.AddDate(0, 0, -7*h.lookbackWeeks).Format(model.DateLayout)
	records, err := h.records.ListSince(ctx, req.OrgID, sinceDate)
	if err != nil {
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "加载历史分配记录失败"))
		return
	}
	existing, err := h.records.ListForWeek(ctx, req.OrgID, req.WeekStart, weekEnd)
	if err != nil {
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "加载本周已锁定分配失败"))
		return
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
		Blocks:    blocks,
		Drivers:   drivers,
		Records:   records,
		Existing:  existing,
		Rules:     rules,
		Absences:  absences,
		Now:       now,
	})

	recordAnalyzeMetrics(result, time.Since(start))
	logger.Info().
		Str("org_id", req.OrgID.String()).
		Str("week_start", req.WeekStart).
		Int("blocks", len(blocks)).
		Int("drivers", len(drivers)).
		Int("suggestions", len(result.Suggestions)).
		Msg("数据库批次分析完成")

	writeData(w, result)
}
