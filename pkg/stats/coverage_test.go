package stats

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/paiche/paiche/pkg/model"
)

func coverageBlock(ct model.ContractType, tractorID, date string) *model.Block {
	return &model.Block{
		BaseModel:    model.NewBaseModel(),
		TractorID:    tractorID,
		ContractType: ct,
		ServiceDate:  date,
	}
}

func TestCoverageAnalyzer_Analyze(t *testing.T) {
	c := NewCoverageAnalyzer()
	a := uuid.New()

	covered := coverageBlock(model.ContractSolo1, "Tractor_1", "2026-08-31")
	uncovered := coverageBlock(model.ContractSolo2, "Tractor_4", "2026-09-01")

	suggestions := []*model.Suggestion{{
		BlockID:     covered.ID,
		ServiceDate: "2026-08-31",
		DriverID:    a,
		DriverName:  "司机A",
		SlotClass:   model.SlotOwned,
	}}
	unassignable := []*model.Unassignable{{
		BlockID:     uncovered.ID,
		ServiceDate: "2026-09-01",
		Reason:      "无合同匹配且在职的候选司机",
	}}

	m := c.Analyze([]*model.Block{covered, uncovered}, suggestions, unassignable)

	if m.TotalBlocks != 2 || m.AssignedBlocks != 1 {
		t.Fatalf("blocks = %d/%d, want 1/2", m.AssignedBlocks, m.TotalBlocks)
	}
	if math.Abs(m.OverallCoverage-50) > 1e-9 {
		t.Errorf("overall coverage = %f, want 50", m.OverallCoverage)
	}

	if day := m.DailyCoverage["2026-08-31"]; day.CoverageRate != 100 || day.DriverCount != 1 {
		t.Errorf("monday coverage = %+v, want 100%% with 1 driver", day)
	}
	if day := m.DailyCoverage["2026-09-01"]; day.CoverageRate != 0 {
		t.Errorf("tuesday coverage = %f, want 0", day.CoverageRate)
	}

	if m.ContractCoverage["solo1"] != 100 || m.ContractCoverage["solo2"] != 0 {
		t.Errorf("contract coverage = %v", m.ContractCoverage)
	}
	if m.ClassDistribution["owned"] != 1 {
		t.Errorf("class distribution = %v, want owned:1", m.ClassDistribution)
	}

	if len(m.UncoveredBlocks) != 1 {
		t.Fatalf("expected 1 uncovered block, got %d", len(m.UncoveredBlocks))
	}
	u := m.UncoveredBlocks[0]
	if u.TractorID != "Tractor_4" || u.Reason != "无合同匹配且在职的候选司机" {
		t.Errorf("uncovered detail = %+v", u)
	}
}

func TestCoverageAnalyzer_UncoveredSorted(t *testing.T) {
	c := NewCoverageAnalyzer()

	later := coverageBlock(model.ContractSolo1, "Tractor_1", "2026-09-03")
	earlier := coverageBlock(model.ContractSolo1, "Tractor_2", "2026-09-01")

	m := c.Analyze([]*model.Block{later, earlier}, nil, nil)
	if len(m.UncoveredBlocks) != 2 {
		t.Fatalf("expected 2 uncovered blocks, got %d", len(m.UncoveredBlocks))
	}
	if m.UncoveredBlocks[0].ServiceDate != "2026-09-01" {
		t.Error("uncovered blocks must be sorted by service date")
	}
}

func TestCoverageAnalyzer_Empty(t *testing.T) {
	m := NewCoverageAnalyzer().Analyze(nil, nil, nil)
	if m.OverallCoverage != 100 {
		t.Errorf("empty input coverage = %f, want 100", m.OverallCoverage)
	}
	if m.TotalBlocks != 0 {
		t.Errorf("total blocks = %d, want 0", m.TotalBlocks)
	}
}
