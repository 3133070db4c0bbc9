package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paiche/paiche/pkg/engine"
	"github.com/paiche/paiche/pkg/model"
)

func postJSON(t *testing.T, h http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze/week", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func validAnalyzeRequest() *AnalyzeRequest {
	driver := &model.Driver{
		BaseModel:    model.NewBaseModel(),
		Name:         "司机A",
		ContractType: model.ContractSolo1,
		Status:       "active",
		LoadEligible: true,
	}
	block := &model.Block{
		BaseModel:    model.NewBaseModel(),
		TractorID:    "Tractor_1",
		ContractType: model.ContractSolo1,
		ServiceDate:  "2026-08-31",
		Status:       "open",
	}
	return &AnalyzeRequest{
		WeekStart: "2026-08-31",
		Blocks:    []*model.Block{block},
		Drivers:   []*model.Driver{driver},
		Now:       "2026-08-31",
	}
}

func TestAnalyzeWeek(t *testing.T) {
	h := NewAnalyzeHandler(nil, engine.DefaultOptions())

	rec := postJSON(t, h.AnalyzeWeek, validAnalyzeRequest())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool           `json:"success"`
		Data    *engine.Result `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success response")
	}
	if len(resp.Data.Suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(resp.Data.Suggestions))
	}
	if resp.Data.Suggestions[0].DriverName != "司机A" {
		t.Errorf("suggested driver = %s", resp.Data.Suggestions[0].DriverName)
	}
}

func TestAnalyzeWeek_MethodNotAllowed(t *testing.T) {
	h := NewAnalyzeHandler(nil, engine.DefaultOptions())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyze/week", nil)
	rec := httptest.NewRecorder()
	h.AnalyzeWeek(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestAnalyzeWeek_Validation(t *testing.T) {
	h := NewAnalyzeHandler(nil, engine.DefaultOptions())

	t.Run("非法周起始日期", func(t *testing.T) {
		req := validAnalyzeRequest()
		req.WeekStart = "2026/08/31"
		rec := postJSON(t, h.AnalyzeWeek, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("空班次列表", func(t *testing.T) {
		req := validAnalyzeRequest()
		req.Blocks = nil
		rec := postJSON(t, h.AnalyzeWeek, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("空司机列表", func(t *testing.T) {
		req := validAnalyzeRequest()
		req.Drivers = nil
		rec := postJSON(t, h.AnalyzeWeek, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}
