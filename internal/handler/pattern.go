// Package handler 提供API处理器
package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/paiche/paiche/internal/database"
	"github.com/paiche/paiche/internal/metrics"
	"github.com/paiche/paiche/internal/repository"
	"github.com/paiche/paiche/pkg/errors"
	"github.com/paiche/paiche/pkg/logger"
	"github.com/paiche/paiche/pkg/model"
	"github.com/paiche/paiche/pkg/pattern"
	"github.com/paiche/paiche/pkg/signature"
)

// PatternHandler 模式表处理器（需要数据库）
type PatternHandler struct {
	db          *database.DB
	engine      *pattern.Engine
	params      pattern.Params
	patterns    *repository.PatternRepository
	assignments *repository.AssignmentRepository
}

// NewPatternHandler 创建模式表处理器
func NewPatternHandler(db *database.DB, resolver *signature.Resolver, params pattern.Params) *PatternHandler {
	return &PatternHandler{
		db:          db,
		engine:      pattern.NewEngine(resolver, params),
		params:      params,
		patterns:    repository.NewPatternRepository(db),
		assignments: repository.NewAssignmentRepository(db),
	}
}

// RebuildRequest 模式表重算请求
type RebuildRequest struct {
	OrgID uuid.UUID `json:"org_id"`
	Now   string    `json:"now,omitempty"` // 参考时刻 YYYY-MM-DD（缺省取当前时间）
}

// RebuildResponse 模式表重算响应
type RebuildResponse struct {
	Rows     int             `json:"rows"`
	Records  int             `json:"records"`
	Warnings []model.Warning `json:"warnings,omitempty"`
}

// Rebuild 整表重算并持久化模式数据
// POST /api/v1/patterns/rebuild
func (h *PatternHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	var req RebuildRequest
	if !requirePost(w, r, &req) {
		return
	}
	if req.OrgID == uuid.Nil {
		writeError(w, errors.InvalidInput("org_id", "不能为空"))
		return
	}

	now := time.Now()
	if req.Now != "" {
		parsed, err := model.ParseDate(req.Now)
		if err != nil {
			writeError(w, errors.InvalidInput("now", err.Error()))
			return
		}
		now = parsed
	}

	sinceDate := now.AddDate(0, 0, -7*h.params.LookbackWeeks).Format(model.DateLayout)
	records, err := h.assignments.ListSince(r.Context(), req.OrgID, sinceDate)
	if err != nil {
		metrics.RecordPatternRebuild(false, 0)
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "加载历史分配记录失败"))
		return
	}

	table := h.engine.Compute(records, now)

	if err := h.patterns.ReplaceAll(r.Context(), h.db, req.OrgID, table.Rows); err != nil {
		metrics.RecordPatternRebuild(false, 0)
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "写入模式表失败"))
		return
	}

	metrics.RecordPatternRebuild(true, len(table.Rows))
	logger.Info().
		Str("org_id", req.OrgID.String()).
		Int("records", len(records)).
		Int("rows", len(table.Rows)).
		Msg("模式表重算完成")

	writeData(w, RebuildResponse{
		Rows:     len(table.Rows),
		Records:  len(records),
		Warnings: table.Warnings,
	})
}

// SlotResponse 时段模式查询响应
type SlotResponse struct {
	Signature string               `json:"signature"`
	Class     model.SlotClass      `json:"class"`
	Rows      []*model.SlotPattern `json:"rows"`
}

// Slot 查询某签名的持久化模式行和归属分类
// GET /api/v1/patterns/slot?org_id=...&signature=...
func (h *PatternHandler) Slot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Success: false, Error: "仅支持 GET 方法"})
		return
	}

	orgID, err := uuid.Parse(r.URL.Query().Get("org_id"))
	if err != nil {
		writeError(w, errors.InvalidInput("org_id", "必须是有效的UUID"))
		return
	}
	sig := r.URL.Query().Get("signature")
	if sig == "" {
		writeError(w, errors.InvalidInput("signature", "不能为空"))
		return
	}

	rows, err := h.patterns.GetBySignature(r.Context(), orgID, sig)
	if err != nil {
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询模式行失败"))
		return
	}

	// 分类从持久化的份额直接推导，与重算时的判定保持同一阈值
	class := model.SlotUnknown
	if len(rows) > 0 {
		if rows[0].Confidence >= h.params.OwnershipThreshold {
			class = model.SlotOwned
		} else {
			class = model.SlotRotating
		}
	}

	writeData(w, SlotResponse{Signature: sig, Class: class, Rows: rows})
}
