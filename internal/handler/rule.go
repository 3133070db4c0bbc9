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

// RuleHandler 保护规则资源处理器
type RuleHandler struct {
	rules *repository.RuleRepository
}

// NewRuleHandler 创建保护规则资源处理器
func NewRuleHandler(db repository.DB) *RuleHandler {
	return &RuleHandler{rules: repository.NewRuleRepository(db)}
}

// Handle 保护规则资源入口
// GET /api/v1/rules?id= 查询单个；?org_id=&from=&to= 查询有效期重叠的规则
// POST 创建，PUT 更新，DELETE ?id= 软删除
func (h *RuleHandler) Handle(w http.ResponseWriter, r *http.Request) {
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

func (h *RuleHandler) get(w http.ResponseWriter, r *http.Request) {
	if idParam := r.URL.Query().Get("id"); idParam != "" {
		id, err := uuid.Parse(idParam)
		if err != nil {
			writeError(w, errors.InvalidInput("id", "必须是有效的UUID"))
			return
		}
		rule, err := h.rules.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, errors.NotFound("保护规则", idParam).WithCause(err))
			return
		}
		writeData(w, rule)
		return
	}

	orgID, err := uuid.Parse(r.URL.Query().Get("org_id"))
	if err != nil {
		writeError(w, errors.InvalidInput("org_id", "必须是有效的UUID"))
		return
	}
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if _, err := model.ParseDate(from); err != nil {
		writeError(w, errors.InvalidInput("from", err.Error()))
		return
	}
	if _, err := model.ParseDate(to); err != nil {
		writeError(w, errors.InvalidInput("to", err.Error()))
		return
	}

	rules, err := h.rules.ListEffective(r.Context(), orgID, from, to)
	if err != nil {
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询保护规则失败"))
		return
	}
	writeData(w, ListResponse{Items: rules, Total: len(rules)})
}

func (h *RuleHandler) create(w http.ResponseWriter, r *http.Request) {
	var rule model.ProtectedRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeInvalidInput, "请求体解析失败"))
		return
	}
	if rule.DriverID == uuid.Nil {
		writeError(w, errors.InvalidInput("driver_id", "不能为空"))
		return
	}

	if err := h.rules.Create(r.Context(), &rule); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "创建保护规则失败"))
		return
	}
	writeData(w, rule)
}

func (h *RuleHandler) update(w http.ResponseWriter, r *http.Request) {
	var rule model.ProtectedRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeInvalidInput, "请求体解析失败"))
		return
	}
	if rule.ID == uuid.Nil {
		writeError(w, errors.InvalidInput("id", "不能为空"))
		return
	}

	if err := h.rules.Update(r.Context(), &rule); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "更新保护规则失败"))
		return
	}
	writeData(w, rule)
}

func (h *RuleHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, errors.InvalidInput("id", "必须是有效的UUID"))
		return
	}

	if err := h.rules.Delete(r.Context(), id); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeDatabaseError, "删除保护规则失败"))
		return
	}
	writeData(w, map[string]string{"id": id.String()})
}
