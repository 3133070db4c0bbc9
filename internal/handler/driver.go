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

// DriverHandler 司机资源处理器
type DriverHandler struct {
	drivers *repository.DriverRepository
}

// NewDriverHandler 创建司机资源处理器
func NewDriverHandler(db repository.DB) *DriverHandler {
	return &DriverHandler{drivers: repository.NewDriverRepository(db)}
}

// ListResponse 列表响应
type ListResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
}

// Handle 司机资源入口
// GET /api/v1/drivers?id= 查询单个；不带 id 时按过滤条件查列表
// POST 创建，PUT 更新，DELETE ?id= 软删除
func (h *DriverHandler) Handle(w http.ResponseWriter, r *http.Request) {
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

func (h *DriverHandler) get(w http.ResponseWriter, r *http.Request) {
	if idParam := r.URL.Query().Get("id"); idParam != "" {
		id, err := uuid.Parse(idParam)
		if err != nil {
			writeError(w, errors.InvalidInput("id", "必须是有效的UUID"))
			return
		}
		driver, err := h.drivers.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, errors.NotFound("司机", idParam).WithCause(err))
			return
		}
		writeData(w, driver)
		return
	}

	filter := repository.DefaultListFilter().
		WithLimit(queryInt(r, "limit", 20)).
		WithOffset(queryInt(r, "offset", 0))
	if orgID, err := uuid.Parse(r.URL.Query().Get("org_id")); err == nil {
		filter = filter.WithOrgID(orgID)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter = filter.WithStatus(status)
	}
	if ct := r.URL.Query().Get("contract_type"); ct != "" {
		filter = filter.WithContractType(ct)
	}
	filter.Search = r.URL.Query().Get("search")

	drivers, total, err := h.drivers.List(r.Context(), filter)
	if err != nil {
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询司机列表失败"))
		return
	}
	writeData(w, ListResponse{Items: drivers, Total: total})
}

func (h *DriverHandler) create(w http.ResponseWriter, r *http.Request) {
	var driver model.Driver
	if err := json.NewDecoder(r.Body).Decode(&driver); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeInvalidInput, "请求体解析失败"))
		return
	}
	if driver.Name == "" {
		writeError(w, errors.InvalidInput("name", "不能为空"))
		return
	}
	if driver.ContractType == "" {
		writeError(w, errors.InvalidInput("contract_type", "不能为空"))
		return
	}
	if driver.Status == "" {
		driver.Status = "active"
	}

	if err := h.drivers.Create(r.Context(), &driver); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "创建司机失败"))
		return
	}
	writeData(w, driver)
}

func (h *DriverHandler) update(w http.ResponseWriter, r *http.Request) {
	var driver model.Driver
	if err := json.NewDecoder(r.Body).Decode(&driver); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeInvalidInput, "请求体解析失败"))
		return
	}
	if driver.ID == uuid.Nil {
		writeError(w, errors.InvalidInput("id", "不能为空"))
		return
	}

	if err := h.drivers.Update(r.Context(), &driver); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "更新司机失败"))
		return
	}
	writeData(w, driver)
}

func (h *DriverHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, errors.InvalidInput("id", "必须是有效的UUID"))
		return
	}

	if err := h.drivers.Delete(r.Context(), id); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "删除司机失败"))
		return
	}
	writeData(w, map[string]string{"id": id.String()})
}
