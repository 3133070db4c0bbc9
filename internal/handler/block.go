// Package handler 提供API处理器
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/paiche/paiche/internal/repository"
	"github.com/paiche/paiche/pkg/errors"
	"github.com/paiche/paiche/pkg/model"
)

// BlockHandler 班次块资源处理器
type BlockHandler struct {
	blocks *repository.BlockRepository
}

// NewBlockHandler 创建班次块资源处理器
func NewBlockHandler(db repository.DB) *BlockHandler {
	return &BlockHandler{blocks: repository.NewBlockRepository(db)}
}

// Handle 班次块资源入口
// GET /api/v1/blocks?id= 查询单个；不带 id 时按过滤条件查列表
// （org_id/status/contract_type/tractor_id/start_date/end_date）
// POST 创建，PUT 更新，DELETE ?id= 软删除
func (h *BlockHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPost:
		h.create(w, r)
	case http.MethodPut:
		h.update(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, Response{Success: false, Error: "不支持的方法"})
	}
}

func (h *BlockHandler) get(w http.ResponseWriter, r *http.Request) {
	if idParam := r.URL.Query().Get("id"); idParam != "" {
		id, err := uuid.Parse(idParam)
		if err != nil {
			writeError(w, errors.InvalidInput("id", "必须是有效的UUID"))
			return
		}
		block, err := h.blocks.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, errors.NotFound("班次块", idParam).WithCause(err))
			return
		}
		writeData(w, block)
		return
	}

	filter := repository.DefaultListFilter().
		WithLimit(queryInt(r, "limit", 100)).
		WithOffset(queryInt(r, "offset", 0)).
		WithDateRange(r.URL.Query().Get("start_date"), r.URL.Query().Get("end_date"))
	if orgID, err := uuid.Parse(r.URL.Query().Get("org_id")); err == nil {
		filter = filter.WithOrgID(orgID)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter = filter.WithStatus(status)
	}
	if ct := r.URL.Query().Get("contract_type"); ct != "" {
		filter = filter.WithContractType(ct)
	}
	filter.TractorID = r.URL.Query().Get("tractor_id")

	blocks, total, err := h.blocks.List(r.Context(), filter)
	if err != nil {
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询班次块列表失败"))
		return
	}
	writeData(w, ListResponse{Items: blocks, Total: total})
}

func (h *BlockHandler) create(w http.ResponseWriter, r *http.Request) {
	var block model.Block
	if err := json.NewDecoder(r.Body).Decode(&block); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeInvalidInput, "请求体解析失败"))
		return
	}
	if block.TractorID == "" {
		writeError(w, errors.InvalidInput("tractor_id", "不能为空"))
		return
	}
	if block.ContractType == "" {
		writeError(w, errors.InvalidInput("contract_type", "不能为空"))
		return
	}
	if _, err := model.ParseDate(block.ServiceDate); err != nil {
		writeError(w, errors.InvalidInput("service_date", err.Error()))
		return
	}

	if err := h.blocks.Create(r.Context(), &block); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "创建班次块失败"))
		return
	}
	writeData(w, block)
}

func (h *BlockHandler) update(w http.ResponseWriter, r *http.Request) {
	var block model.Block
	if err := json.NewDecoder(r.Body).Decode(&block); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeInvalidInput, "请求体解析失败"))
		return
	}
	if block.ID == uuid.Nil {
		writeError(w, errors.InvalidInput("id", "不能为空"))
		return
	}

	if err := h.blocks.Update(r.Context(), &block); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "更新班次块失败"))
		return
	}
	writeData(w, block)
}

func (h *BlockHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, errors.InvalidInput("id", "必须是有效的UUID"))
		return
	}

	if err := h.blocks.Delete(r.Context(), id); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "删除班次块失败"))
		return
	}
	writeData(w, map[string]string{"id": id.String()})
}
