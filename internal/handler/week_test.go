package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/paiche/paiche/pkg/engine"
	"github.com/paiche/paiche/pkg/model"
	"github.com/paiche/paiche/pkg/signature"
)

// fakeWeekSource 以内存切片充当周快照数据源，并记录收到的查询参数
type fakeWeekSource struct {
	blocks   []*model.Block
	drivers  []*model.Driver
	rules    []*model.ProtectedRule
	records  []*model.AssignmentRecord
	existing []*model.AssignmentRecord

	gotWeekStart string
	gotWeekEnd   string
	gotFrom      string
	gotTo        string
	gotSince     string
}

func (f *fakeWeekSource) ListOpenForWeek(_ context.Context, _ uuid.UUID, weekStart, weekEnd string) ([]*model.Block, error) {
	f.gotWeekStart, f.gotWeekEnd = weekStart, weekEnd
	return f.blocks, nil
}

func (f *fakeWeekSource) ListEligible(_ context.Context, _ uuid.UUID) ([]*model.Driver, error) {
	return f.drivers, nil
}

func (f *fakeWeekSource) ListEffective(_ context.Context, _ uuid.UUID, from, to string) ([]*model.ProtectedRule, error) {
	f.gotFrom, f.gotTo = from, to
	return f.rules, nil
}

func (f *fakeWeekSource) ListSince(_ context.Context, _ uuid.UUID, sinceDate string) ([]*model.AssignmentRecord, error) {
	f.gotSince = sinceDate
	return f.records, nil
}

func (f *fakeWeekSource) ListForWeek(_ context.Context, _ uuid.UUID, _, _ string) ([]*model.AssignmentRecord, error) {
	return f.existing, nil
}

func newFakeWeekHandler(src *fakeWeekSource) *WeekHandler {
	opts := engine.DefaultOptions()
	return &WeekHandler{
		engine:        engine.New(signature.NewResolver(nil), opts),
		lookbackWeeks: opts.PatternParams.LookbackWeeks,
		blocks:        src,
		drivers:       src,
		rules:         src,
		records:       src,
	}
}

func TestWeekHandler_AnalyzeWeek(t *testing.T) {
	driver := &model.Driver{
		BaseModel:    model.NewBaseModel(),
		Name:         "司机A",
		ContractType: model.ContractSolo1,
		Status:       "active",
		LoadEligible: true,
	}

	var records []*model.AssignmentRecord
	for _, date := range []string{"2026-08-24", "2026-08-17", "2026-08-10"} {
		records = append(records, &model.AssignmentRecord{
			BaseModel:    model.NewBaseModel(),
			DriverID:     driver.ID,
			DriverName:   driver.Name,
			ContractType: model.ContractSolo1,
			TractorID:    "Tractor_1",
			ServiceDate:  date,
		})
	}

	src := &fakeWeekSource{
		blocks: []*model.Block{{
			BaseModel:    model.NewBaseModel(),
			TractorID:    "Tractor_1",
			ContractType: model.ContractSolo1,
			ServiceDate:  "2026-08-31",
			Status:       "open",
		}},
		drivers: []*model.Driver{driver},
		records: records,
	}
	h := newFakeWeekHandler(src)

	rec := postJSON(t, h.AnalyzeWeek, &WeekAnalyzeRequest{
		OrgID:     uuid.New(),
		WeekStart: "2026-08-31",
		Now:       "2026-08-31",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	// 快照加载参数：周范围与回看窗口
	if src.gotWeekStart != "2026-08-31" || src.gotWeekEnd != "2026-09-06" {
		t.Errorf("block window = %s..%s, want 2026-08-31..2026-09-06", src.gotWeekStart, src.gotWeekEnd)
	}
	if src.gotFrom != "2026-08-31" || src.gotTo != "2026-09-06" {
		t.Errorf("rule window = %s..%s, want the same week", src.gotFrom, src.gotTo)
	}
	// 默认回看 12 周
	if src.gotSince != "2026-06-08" {
		t.Errorf("since date = %s, want 2026-06-08", src.gotSince)
	}

	var resp struct {
		Success bool           `json:"success"`
		Data    *engine.Result `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || len(resp.Data.Suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %+v", resp)
	}
	if resp.Data.Suggestions[0].DriverID != driver.ID {
		t.Errorf("suggested %s, want 司机A", resp.Data.Suggestions[0].DriverName)
	}
}

func TestWeekHandler_Validation(t *testing.T) {
	h := newFakeWeekHandler(&fakeWeekSource{})

	t.Run("缺少组织ID", func(t *testing.T) {
		rec := postJSON(t, h.AnalyzeWeek, &WeekAnalyzeRequest{WeekStart: "2026-08-31"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("非法周起始日期", func(t *testing.T) {
		rec := postJSON(t, h.AnalyzeWeek, &WeekAnalyzeRequest{OrgID: uuid.New(), WeekStart: "2026/08/31"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("不支持GET", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/analyze/week/db", nil)
		rec := httptest.NewRecorder()
		h.AnalyzeWeek(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})
}
