package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paiche/paiche/pkg/model"
	"github.com/paiche/paiche/pkg/signature"
)

// testNow 固定在 2026-08-31（周一）
var testNow = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return New(signature.NewResolver(nil), DefaultOptions())
}

func solo1Driver(name string) *model.Driver {
	return &model.Driver{
		BaseModel:    model.NewBaseModel(),
		Name:         name,
		ContractType: model.ContractSolo1,
		Status:       "active",
		LoadEligible: true,
	}
}

func solo1Block(tractorID, date string) *model.Block {
	return &model.Block{
		BaseModel:    model.NewBaseModel(),
		TractorID:    tractorID,
		ContractType: model.ContractSolo1,
		ServiceDate:  date,
		Status:       "open",
	}
}

// history 构造司机在过去 n 个相同星期的历史记录
func history(d *model.Driver, tractorID, weekday string, n int) []*model.AssignmentRecord {
	base, _ := model.ParseDate(weekday)
	records := make([]*model.AssignmentRecord, 0, n)
	for i := 1; i <= n; i++ {
		records = append(records, &model.AssignmentRecord{
			BaseModel:    model.NewBaseModel(),
			DriverID:     d.ID,
			DriverName:   d.Name,
			ContractType: d.ContractType,
			TractorID:    tractorID,
			ServiceDate:  base.AddDate(0, 0, -7*i).Format(model.DateLayout),
		})
	}
	return records
}

func TestEngine_Analyze_OwnedSlotPrefersOwner(t *testing.T) {
	e := newTestEngine()
	owner := solo1Driver("司机A")
	other := solo1Driver("司机B")

	req := &Request{
		WeekStart: "2026-08-31",
		Blocks:    []*model.Block{solo1Block("Tractor_1", "2026-08-31")},
		Drivers:   []*model.Driver{owner, other},
		Records:   history(owner, "Tractor_1", "2026-08-31", 8),
		Now:       testNow,
	}

	result := e.Analyze(req)
	if len(result.Suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(result.Suggestions))
	}
	s := result.Suggestions[0]
	if s.DriverID != owner.ID {
		t.Errorf("suggested %s, want owner 司机A", s.DriverName)
	}
	if s.SlotClass != model.SlotOwned {
		t.Errorf("slot class = %s, want owned", s.SlotClass)
	}
	if s.Breakdown.Pattern != 1.0 {
		t.Errorf("pattern share = %f, want 1.0", s.Breakdown.Pattern)
	}
}

func TestEngine_Analyze_Deterministic(t *testing.T) {
	e := newTestEngine()
	a := solo1Driver("司机A")
	b := solo1Driver("司机B")

	blocks := []*model.Block{
		solo1Block("Tractor_2", "2026-09-02"),
		solo1Block("Tractor_1", "2026-08-31"),
		solo1Block("Tractor_1", "2026-09-01"),
	}
	records := append(
		history(a, "Tractor_1", "2026-08-31", 5),
		history(b, "Tractor_2", "2026-09-02", 5)...,
	)

	run := func(bs []*model.Block) *Result {
		return e.Analyze(&Request{
			WeekStart: "2026-08-31",
			Blocks:    bs,
			Drivers:   []*model.Driver{a, b},
			Records:   records,
			Now:       testNow,
		})
	}

	r1 := run(blocks)
	// 输入顺序颠倒，输出必须一致
	reversed := []*model.Block{blocks[2], blocks[1], blocks[0]}
	r2 := run(reversed)

	if len(r1.Suggestions) != len(r2.Suggestions) {
		t.Fatalf("suggestion counts differ: %d vs %d", len(r1.Suggestions), len(r2.Suggestions))
	}
	for i := range r1.Suggestions {
		s1, s2 := r1.Suggestions[i], r2.Suggestions[i]
		if s1.BlockID != s2.BlockID || s1.DriverID != s2.DriverID || s1.Score != s2.Score {
			t.Errorf("suggestion %d differs: %+v vs %+v", i, s1, s2)
		}
	}
}

func TestEngine_Analyze_DayCapUnassignable(t *testing.T) {
	e := newTestEngine()
	a := solo1Driver("司机A")

	// 典型 4 天模式（周一到周四各 2 次以上）
	var records []*model.AssignmentRecord
	for _, weekday := range []string{"2026-08-31", "2026-09-01", "2026-09-02", "2026-09-03"} {
		records = append(records, history(a, "Tractor_1", weekday, 2)...)
	}

	// 本周已锁定周一到周四的分配
	var existing []*model.AssignmentRecord
	for _, date := range []string{"2026-08-31", "2026-09-01", "2026-09-02", "2026-09-03"} {
		existing = append(existing, &model.AssignmentRecord{
			BaseModel:    model.NewBaseModel(),
			DriverID:     a.ID,
			DriverName:   a.Name,
			ContractType: model.ContractSolo1,
			TractorID:    "Tractor_1",
			ServiceDate:  date,
		})
	}

	req := &Request{
		WeekStart: "2026-08-31",
		Blocks:    []*model.Block{solo1Block("Tractor_1", "2026-09-04")},
		Drivers:   []*model.Driver{a},
		Records:   records,
		Existing:  existing,
		Now:       testNow,
	}

	result := e.Analyze(req)
	if len(result.Suggestions) != 0 {
		t.Fatalf("5th day must not be suggested for a 4-day-pattern driver")
	}
	if len(result.Unassignable) != 1 {
		t.Fatalf("expected 1 unassignable block, got %d", len(result.Unassignable))
	}

	found := false
	for _, warn := range result.Warnings {
		if warn.Type == model.WarnRejectedCandidate && warn.DriverID != nil && *warn.DriverID == a.ID {
			found = true
		}
	}
	if !found {
		t.Error("expected rejected_candidate warning for the capped driver")
	}
}

func TestEngine_Analyze_ProtectedRulePrecedence(t *testing.T) {
	e := newTestEngine()
	owner := solo1Driver("司机A")
	protected := solo1Driver("司机B")

	rule := &model.ProtectedRule{
		BaseModel:     model.NewBaseModel(),
		DriverID:      protected.ID,
		DriverName:    protected.Name,
		Days:          []int{1}, // 周一
		ContractTypes: []model.ContractType{model.ContractSolo1},
		IsProtected:   true,
	}

	req := &Request{
		WeekStart: "2026-08-31",
		Blocks:    []*model.Block{solo1Block("Tractor_1", "2026-08-31")},
		Drivers:   []*model.Driver{owner, protected},
		Records:   history(owner, "Tractor_1", "2026-08-31", 8),
		Rules:     []*model.ProtectedRule{rule},
		Now:       testNow,
	}

	result := e.Analyze(req)
	if len(result.Suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(result.Suggestions))
	}
	s := result.Suggestions[0]
	if s.DriverID != protected.ID {
		t.Errorf("protected rule must win over ownership, got %s", s.DriverName)
	}
	if !s.Protected || s.Score != 1.0 {
		t.Errorf("protected suggestion: protected=%v score=%f", s.Protected, s.Score)
	}
}

func TestEngine_Analyze_ConflictingRulesFallThrough(t *testing.T) {
	e := newTestEngine()
	a := solo1Driver("司机A")
	b := solo1Driver("司机B")

	rules := []*model.ProtectedRule{
		{BaseModel: model.NewBaseModel(), DriverID: a.ID, DriverName: a.Name, Days: []int{1}, IsProtected: true},
		{BaseModel: model.NewBaseModel(), DriverID: b.ID, DriverName: b.Name, Days: []int{1}, IsProtected: true},
	}

	req := &Request{
		WeekStart: "2026-08-31",
		Blocks:    []*model.Block{solo1Block("Tractor_1", "2026-08-31")},
		Drivers:   []*model.Driver{a, b},
		Records:   history(a, "Tractor_1", "2026-08-31", 8),
		Rules:     rules,
		Now:       testNow,
	}

	result := e.Analyze(req)

	conflictWarned := false
	for _, warn := range result.Warnings {
		if warn.Type == model.WarnRuleConflict {
			conflictWarned = true
			if len(warn.RuleIDs) != 2 {
				t.Errorf("conflict warning should carry both rule IDs, got %d", len(warn.RuleIDs))
			}
		}
	}
	if !conflictWarned {
		t.Fatal("expected rule_conflict warning")
	}

	// 冲突后回退到正常评分：历史归属司机 A 胜出
	if len(result.Suggestions) != 1 || result.Suggestions[0].DriverID != a.ID {
		t.Error("conflicting rules must fall through to normal scoring")
	}
	if result.Suggestions[0].Protected {
		t.Error("fall-through suggestion must not be marked protected")
	}
}

func TestEngine_Analyze_OwnerAbsentFallsBackToFairness(t *testing.T) {
	e := newTestEngine()
	owner := solo1Driver("司机A")
	busy := solo1Driver("司机B")
	idle := solo1Driver("司机C")

	// B 本周已有一天，C 空闲
	existing := []*model.AssignmentRecord{{
		BaseModel:    model.NewBaseModel(),
		DriverID:     busy.ID,
		DriverName:   busy.Name,
		ContractType: model.ContractSolo1,
		TractorID:    "Tractor_2",
		ServiceDate:  "2026-08-31",
	}}

	req := &Request{
		WeekStart: "2026-08-31",
		Blocks:    []*model.Block{solo1Block("Tractor_1", "2026-09-01")},
		Drivers:   []*model.Driver{owner, busy, idle},
		Records:   history(owner, "Tractor_1", "2026-09-01", 8),
		Existing:  existing,
		Absences:  map[uuid.UUID]map[string]bool{owner.ID: {"2026-09-01": true}},
		Now:       testNow,
	}

	result := e.Analyze(req)
	if len(result.Suggestions) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(result.Suggestions))
	}
	s := result.Suggestions[0]
	if s.DriverID != idle.ID {
		t.Errorf("fallback should pick the idle driver, got %s", s.DriverName)
	}
	if s.Breakdown.Fairness == 0 {
		t.Error("fallback suggestion must carry a fairness component")
	}
}

func TestEngine_Analyze_NoContractMatch(t *testing.T) {
	e := newTestEngine()
	solo2 := &model.Driver{
		BaseModel:    model.NewBaseModel(),
		Name:         "司机D",
		ContractType: model.ContractSolo2,
		Status:       "active",
		LoadEligible: true,
	}

	req := &Request{
		WeekStart: "2026-08-31",
		Blocks:    []*model.Block{solo1Block("Tractor_1", "2026-08-31")},
		Drivers:   []*model.Driver{solo2},
		Now:       testNow,
	}

	result := e.Analyze(req)
	if len(result.Unassignable) != 1 {
		t.Fatalf("expected 1 unassignable block, got %d", len(result.Unassignable))
	}
	if result.Unassignable[0].Reason == "" {
		t.Error("unassignable report must explain why")
	}
}

func TestEngine_Analyze_MissingCanonicalTimeBlock(t *testing.T) {
	e := newTestEngine()
	a := solo1Driver("司机A")

	req := &Request{
		WeekStart: "2026-08-31",
		Blocks:    []*model.Block{solo1Block("Tractor_99", "2026-08-31")},
		Drivers:   []*model.Driver{a},
		Now:       testNow,
	}

	result := e.Analyze(req)
	if len(result.Unassignable) != 1 {
		t.Fatalf("block without canonical time must be unassignable")
	}

	found := false
	for _, warn := range result.Warnings {
		if warn.Type == model.WarnMissingCanonicalTime {
			found = true
		}
	}
	if !found {
		t.Error("expected missing_canonical_time warning")
	}
}
