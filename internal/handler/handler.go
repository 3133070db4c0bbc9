// Package handler 提供API处理器
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/paiche/paiche/pkg/errors"
	"github.com/paiche/paiche/pkg/logger"
)

// Response 统一响应包装
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// writeJSON 写入JSON响应
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Msg("写入响应失败")
	}
}

// writeData 写入成功响应
func writeData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

// writeError 写入错误响应
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errors.GetHTTPStatus(err), Response{
		Success: false,
		Error:   err.Error(),
		Code:    string(errors.GetCode(err)),
	})
}

// queryInt 解析整型查询参数，缺省或非法时返回默认值
func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// requirePost 校验请求方法并解码JSON请求体
func requirePost(w http.ResponseWriter, r *http.Request, body interface{}) bool {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, Response{
			Success: false,
			Error:   "仅支持 POST 方法",
		})
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		writeError(w, errors.Wrap(err, errors.CodeInvalidInput, "请求体解析失败"))
		return false
	}
	return true
}
